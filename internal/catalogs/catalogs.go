package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed blocks.json
var defaultBlocks []byte

const Air = "air"

type Catalogs struct {
	Blocks BlockCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID        string `json:"id"`
	Solid     bool   `json:"solid"`
	Climbable bool   `json:"climbable,omitempty"`
}

// Load reads blocks.json from configDir. An empty configDir, or one without
// blocks.json, yields the embedded defaults.
func Load(configDir string) (*Catalogs, error) {
	raw := defaultBlocks
	name := "blocks.json (embedded)"
	if configDir != "" {
		path := filepath.Join(configDir, "blocks.json")
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			raw, name = b, path
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	var c Catalogs
	if err := parseBlocks(name, raw, &c.Blocks); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the embedded catalog.
func Default() *Catalogs {
	c, err := Load("")
	if err != nil {
		panic(err)
	}
	return c
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func parseBlocks(name string, raw []byte, out *BlockCatalog) error {
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		d.ID = Normalize(d.ID)
		if d.ID == "" {
			return fmt.Errorf("%s: empty id", name)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure air exists and is palette id 0.
	if _, ok := out.Defs[Air]; !ok {
		return fmt.Errorf("%s: missing %s", name, Air)
	}
	ids = append([]string{Air}, filterOut(ids, Air)...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

// Normalize lowercases a block id and drops a "minecraft:" namespace.
func Normalize(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	return strings.TrimPrefix(id, "minecraft:")
}

// IsSolid reports whether a block can back a ladder. Blocks missing from the
// catalog are taken to be building material and therefore solid.
func (c *BlockCatalog) IsSolid(id string) bool {
	id = Normalize(id)
	if id == "" || id == Air {
		return false
	}
	d, ok := c.Defs[id]
	if !ok {
		return true
	}
	return d.Solid
}

func (c *BlockCatalog) IsClimbable(id string) bool {
	d, ok := c.Defs[Normalize(id)]
	return ok && d.Climbable
}

// Known reports whether id is listed in the catalog.
func (c *BlockCatalog) Known(id string) bool {
	_, ok := c.Defs[Normalize(id)]
	return ok
}

func filterOut(in []string, remove string) []string {
	out := in[:0]
	for _, s := range in {
		if s != remove {
			out = append(out, s)
		}
	}
	return out
}
