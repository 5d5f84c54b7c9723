package levels

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/mitchellh/hashstructure/v2"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// Builtin parses the catalog shipped with the binary.
func Builtin() (*Catalog, error) {
	return Parse("builtin catalog", builtinCatalog)
}

// LoadFile parses a catalog from disk. An empty path selects the builtin one.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Builtin()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, b)
}

func Parse(name string, body []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	sort.SliceStable(c.Levels, func(i, j int) bool { return c.Levels[i].ID < c.Levels[j].ID })
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", name, err)
	}
	return &c, nil
}

// Find returns the level with the given id.
func (c *Catalog) Find(id int) (Level, error) {
	if id >= 1 && id <= len(c.Levels) {
		return c.Levels[id-1], nil
	}
	return Level{}, fmt.Errorf("level %d not found", id)
}

// MaxID is the id of the final level.
func (c *Catalog) MaxID() int {
	return len(c.Levels)
}

// Fingerprint identifies the catalog content. It changes whenever a level is
// added, removed or edited.
func (c *Catalog) Fingerprint() (string, error) {
	h, err := hashstructure.Hash(c.Levels, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("fingerprint catalog: %w", err)
	}
	return fmt.Sprintf("%016x", h), nil
}
