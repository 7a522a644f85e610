// Package engine is the in-process weapon calculator behind the oracle gateway.
//
// A Calculator holds exactly one weapon at a time and is driven by a
// set-identity, set-stats, read sequence. It is not safe for concurrent use;
// callers must serialize sessions or give each session its own Calculator.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/d2oracle/oracle/core/catalog"
	"github.com/d2oracle/oracle/core/infra/logging"
)

var (
	ErrNoWeapon         = errors.New("no weapon loaded")
	ErrUnknownWeapon    = errors.New("unknown weapon path")
	ErrUnknownAmmoType  = errors.New("unknown ammo type")
	ErrInvalidStatValue = errors.New("invalid stat value")
)

// Options tune how strictly the calculator treats unknown input.
type Options struct {
	// Strict rejects weapon paths missing from the catalog instead of using default formulas.
	Strict bool
}

// Calculator is a single-slot weapon engine.
type Calculator struct {
	catalog *catalog.Catalog
	opts    Options
	weapon  *Weapon
}

// New builds a calculator over a formula catalog. A nil catalog behaves as an empty one.
func New(cat *catalog.Catalog, opts Options) *Calculator {
	return &Calculator{catalog: cat, opts: opts}
}

// SetWeaponIdentity loads a fresh weapon. On error the slot is cleared so a later read cannot
// observe a previous weapon.
func (c *Calculator) SetWeaponIdentity(hash uint64, itemFamily, itemSubFamily, ammoType, damageType uint32) error {
	c.weapon = nil
	if ammoType > uint32(AmmoHeavy) {
		return fmt.Errorf("%w: %d", ErrUnknownAmmoType, ammoType)
	}
	path := catalog.WeaponPath{WeaponType: itemFamily, Intrinsic: itemSubFamily}
	formulas, ok := c.catalog.Lookup(path)
	if !ok {
		if c.opts.Strict {
			return fmt.Errorf("%w: type=%d intrinsic=%d", ErrUnknownWeapon, itemFamily, itemSubFamily)
		}
		logging.Warn("engine", "no formulas for weapon path, using defaults", "type", itemFamily, "intrinsic", itemSubFamily)
		formulas = catalog.DefaultFormulas()
	}
	c.weapon = newWeapon(hash, itemFamily, itemSubFamily, ammoType, damageType, formulas)
	return nil
}

// SetStats replaces the loaded weapon's stats.
func (c *Calculator) SetStats(stats map[uint32]float64) error {
	if c.weapon == nil {
		return ErrNoWeapon
	}
	for id, v := range stats {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: stat %d", ErrInvalidStatValue, id)
		}
	}
	c.weapon.setStats(stats)
	return nil
}

// ReadSerializedWeapon returns the loaded weapon as JSON.
func (c *Calculator) ReadSerializedWeapon() (json.RawMessage, error) {
	if c.weapon == nil {
		return nil, ErrNoWeapon
	}
	data, err := json.Marshal(c.weapon)
	if err != nil {
		return nil, fmt.Errorf("serialize weapon: %w", err)
	}
	return data, nil
}

