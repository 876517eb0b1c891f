package core

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// CatalogItem is one piece of members-area content.
type CatalogItem struct {
	ID    int    `yaml:"id"`
	Title string `yaml:"title"`
	Image string `yaml:"image"`
}

// Catalog is the fixed set of content items shown in the members area. It is
// loaded once at startup from the embedded manifest and read-only afterwards.
type Catalog struct {
	Items []CatalogItem `yaml:"items"`
}

// LoadCatalog parses the embedded catalog manifest.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Items) == 0 {
		return nil, errors.New("catalog has no items")
	}
	return &c, nil
}

// ByID returns the item with the given id.
func (c *Catalog) ByID(id int) (CatalogItem, bool) {
	for _, item := range c.Items {
		if item.ID == id {
			return item, true
		}
	}
	return CatalogItem{}, false
}

// Random returns an arbitrary item for the members page.
func (c *Catalog) Random() CatalogItem {
	return c.Items[rand.Intn(len(c.Items))]
}
