package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
)

//go:embed catalog.yaml
var embedded []byte

// Source loads a catalog from wherever it is kept.
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
	Name() string
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(embedded)
	if err != nil {
		panic("embedded catalog: " + err.Error())
	}
	return c
}

type EmbeddedSource struct{}

func (EmbeddedSource) Name() string { return "embedded" }

func (EmbeddedSource) Load(context.Context) (*Catalog, error) {
	return Parse(embedded)
}

// FileSource reads a YAML or JSON file from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Load(context.Context) (*Catalog, error) {
	if err := ValidateFileExtension(s.Path); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", s.Path, err)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// ObjectGetter is the part of the R2 client the catalog needs.
type ObjectGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// ObjectSource reads the catalog from a bucket object.
type ObjectSource struct {
	Client ObjectGetter
	Key    string
}

func (s ObjectSource) Name() string { return "r2:" + s.Key }

func (s ObjectSource) Load(ctx context.Context) (*Catalog, error) {
	if err := ValidateFileExtension(s.Key); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", s.Key, err)
	}
	data, err := s.Client.Get(ctx, s.Key)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
