package shop

import (
	"fmt"

	"github.com/spf13/viper"
)

// Catalog is the full set of shop definitions loaded from the catalog file.
type Catalog struct {
	shops []*Definition
	byID  map[string]*Definition
}

// LoadCatalog reads shop definitions from a YAML file (top-level `shops`
// list) and validates every definition fail-fast.
func LoadCatalog(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read shop catalog: %w", err)
	}

	var defs []*Definition
	if err := v.UnmarshalKey("shops", &defs); err != nil {
		return nil, fmt.Errorf("unmarshal shop catalog: %w", err)
	}
	return NewCatalog(defs)
}

// NewCatalog validates and indexes the given definitions.
func NewCatalog(defs []*Definition) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Definition, len(defs))}
	for _, def := range defs {
		if err := def.Normalize(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("duplicate shop id %q", def.ID)
		}
		c.byID[def.ID] = def
		c.shops = append(c.shops, def)
	}
	return c, nil
}

// ByID returns the definition for a shop id, or nil if unknown.
func (c *Catalog) ByID(id string) *Definition {
	return c.byID[id]
}

// All returns every definition in catalog order.
func (c *Catalog) All() []*Definition {
	return c.shops
}

func (c *Catalog) Len() int {
	return len(c.shops)
}
