package catalog

import (
	"context"
	"fmt"

	"donodopedaco/internal/config"
	"donodopedaco/internal/storage"
)

// OpenSource picks the catalog source named by CATALOG_SOURCE.
func OpenSource(ctx context.Context, env config.Env) (Source, error) {
	switch env.CatalogSource {
	case "", "embedded":
		return EmbeddedSource{}, nil
	case "file":
		return FileSource{Path: env.CatalogPath}, nil
	case "r2":
		client, err := storage.NewR2Client(ctx, env.R2)
		if err != nil {
			return nil, err
		}
		return ObjectSource{Client: client, Key: env.R2.CatalogKey}, nil
	}
	return nil, fmt.Errorf("unknown catalog source %q", env.CatalogSource)
}
