package catalog

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/d2oracle/oracle/core/infra/schema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/catalog.schema.json data/default.yaml
var catalogFS embed.FS

var catalogSchema = schema.MustCompile("formula-catalog", mustRead("schema/catalog.schema.json"))

// Document is the on-disk catalog layout.
type Document struct {
	Categories map[string]Category          `yaml:"categories"`
	Firing     map[string]FiringDataFormula `yaml:"firing"`
	Magazines  map[string]AmmoFormula       `yaml:"magazines"`
	Weapons    []WeaponEntry                `yaml:"weapons"`
}

// Category groups the formulas shared by a weapon archetype.
type Category struct {
	Range            RangeFormula     `yaml:"range"`
	Reload           ReloadFormula    `yaml:"reload"`
	Handling         HandlingFormula  `yaml:"handling"`
	CombatantScalars DamageModFormula `yaml:"combatantScalars"`
}

// WeaponEntry binds a weapon path to named formula profiles.
type WeaponEntry struct {
	Type      uint32   `yaml:"type"`
	Intrinsic uint32   `yaml:"intrinsic"`
	Category  string   `yaml:"category"`
	Firing    string   `yaml:"firing"`
	Magazine  string   `yaml:"magazine"`
	PVE       *float64 `yaml:"pve"`
}

// UnmarshalYAML keeps unset scalars at their neutral value.
func (d *DamageModFormula) UnmarshalYAML(node *yaml.Node) error {
	type plain DamageModFormula
	out := plain(DefaultDamageMods())
	if err := node.Decode(&out); err != nil {
		return err
	}
	*d = DamageModFormula(out)
	return nil
}

// Catalog is an immutable, resolved formula lookup table.
type Catalog struct {
	revision string
	weapons  map[WeaponPath]Formulas
}

// Parse validates a YAML (or JSON) catalog document and resolves every weapon entry.
func Parse(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("catalog is empty")
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := catalogSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	weapons, err := resolve(&doc)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return &Catalog{
		revision: hex.EncodeToString(sum[:8]),
		weapons:  weapons,
	}, nil
}

// LoadFile reads and parses a catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return nil, errors.New("catalog path is empty")
	}
	// #nosec G304 -- catalog path is operator-provided.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}

// Default returns the catalog bundled with the binary.
func Default() *Catalog {
	cat, err := Parse(DefaultDocument())
	if err != nil {
		panic(fmt.Sprintf("bundled catalog invalid: %v", err))
	}
	return cat
}

// DefaultDocument returns the raw bundled catalog.
func DefaultDocument() []byte {
	return mustRead("data/default.yaml")
}

// Lookup resolves the formulas for a weapon path.
func (c *Catalog) Lookup(path WeaponPath) (Formulas, bool) {
	if c == nil {
		return Formulas{}, false
	}
	f, ok := c.weapons[path]
	return f, ok
}

// Len reports the number of weapon paths.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.weapons)
}

// Revision is a short content hash of the source document.
func (c *Catalog) Revision() string {
	if c == nil {
		return ""
	}
	return c.revision
}

// Paths lists the known weapon paths in ascending order.
func (c *Catalog) Paths() []WeaponPath {
	if c == nil {
		return nil
	}
	out := make([]WeaponPath, 0, len(c.weapons))
	for p := range c.weapons {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WeaponType != out[j].WeaponType {
			return out[i].WeaponType < out[j].WeaponType
		}
		return out[i].Intrinsic < out[j].Intrinsic
	})
	return out
}

func resolve(doc *Document) (map[WeaponPath]Formulas, error) {
	out := make(map[WeaponPath]Formulas, len(doc.Weapons))
	for i, w := range doc.Weapons {
		cat, ok := doc.Categories[w.Category]
		if !ok {
			return nil, fmt.Errorf("weapon %d: unknown category %q", i, w.Category)
		}
		firing, ok := doc.Firing[w.Firing]
		if !ok {
			return nil, fmt.Errorf("weapon %d: unknown firing profile %q", i, w.Firing)
		}
		mag, ok := doc.Magazines[w.Magazine]
		if !ok {
			return nil, fmt.Errorf("weapon %d: unknown magazine profile %q", i, w.Magazine)
		}
		path := WeaponPath{WeaponType: w.Type, Intrinsic: w.Intrinsic}
		if _, dup := out[path]; dup {
			return nil, fmt.Errorf("weapon %d: duplicate path type=%d intrinsic=%d", i, w.Type, w.Intrinsic)
		}
		mods := cat.CombatantScalars
		if mods == (DamageModFormula{}) {
			mods = DefaultDamageMods()
		}
		mods.PVE = 1
		if w.PVE != nil {
			mods.PVE = *w.PVE
		}
		out[path] = Formulas{
			Range:      cat.Range,
			Reload:     cat.Reload,
			Handling:   cat.Handling,
			Ammo:       mag,
			DamageMods: mods,
			Firing:     firing,
		}
	}
	return out, nil
}

func mustRead(name string) []byte {
	data, err := catalogFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return data
}
