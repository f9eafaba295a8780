package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "donodopedaco/internal/config"
)

func TestNewR2Client_RequiresConfig(t *testing.T) {
	_, err := NewR2Client(context.Background(), appconfig.R2{Bucket: "catalog"})
	assert.ErrorIs(t, err, ErrMissingConfig)
}

func TestR2Client_RoundTrip(t *testing.T) {
	r2 := appconfig.R2{
		Endpoint:  os.Getenv("R2_ENDPOINT"),
		AccessKey: os.Getenv("R2_ACCESS_KEY"),
		SecretKey: os.Getenv("R2_SECRET_KEY"),
		Bucket:    os.Getenv("R2_BUCKET_NAME"),
	}
	if r2.Endpoint == "" {
		t.Skip("R2_ENDPOINT not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewR2Client(ctx, r2)
	require.NoError(t, err)

	key := "test/" + t.Name() + ".yaml"
	require.NoError(t, client.Upload(ctx, key, []byte("categories: []\n"), "application/yaml"))

	data, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "categories: []\n", string(data))
}
