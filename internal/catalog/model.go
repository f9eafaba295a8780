// Package catalog serves the bakery's menu: ordered categories of products
// plus the highlights of the day.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrEmptyCatalog    = errors.New("catalog has no categories")
)

type Product struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Price       string `yaml:"price" json:"price"`
}

type Category struct {
	Slug     string    `yaml:"slug" json:"slug"`
	Name     string    `yaml:"name" json:"name"`
	Products []Product `yaml:"products" json:"products"`
}

type Highlight struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Badges      []string `yaml:"badges" json:"badges"`
	Price       string   `yaml:"price" json:"price"`
}

type Catalog struct {
	Categories []Category  `yaml:"categories" json:"categories"`
	Highlights []Highlight `yaml:"highlights" json:"highlights"`
}

// Category looks a category up by slug.
func (c *Catalog) Category(slug string) (Category, error) {
	for _, cat := range c.Categories {
		if cat.Slug == slug {
			return cat, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %s", ErrUnknownCategory, slug)
}

func (c *Catalog) Count() int {
	n := 0
	for _, cat := range c.Categories {
		n += len(cat.Products)
	}
	return n
}

// Parse reads a YAML or JSON catalog and checks it can be shown.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Categories) == 0 {
		return ErrEmptyCatalog
	}
	seen := map[string]bool{}
	for i, cat := range c.Categories {
		if cat.Slug == "" || cat.Name == "" {
			return fmt.Errorf("catalog: category %d needs slug and name", i)
		}
		if seen[cat.Slug] {
			return fmt.Errorf("catalog: duplicate category %q", cat.Slug)
		}
		seen[cat.Slug] = true
		for j, p := range cat.Products {
			if strings.TrimSpace(p.Title) == "" {
				return fmt.Errorf("catalog: %s product %d has no title", cat.Slug, j)
			}
		}
	}
	return nil
}

var allowedExt = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// ValidateFileExtension accepts the formats Parse understands.
func ValidateFileExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	if ext == "" {
		return errors.New("file extension missing")
	}

	if !allowedExt[ext] {
		return errors.New("file type not allowed")
	}

	return nil
}
