package oracle

import (
	"fmt"
	"strconv"
	"strings"
)

// WeaponDescriptor is the canonical form of one scoring request. It is immutable once built.
type WeaponDescriptor struct {
	hash          uint64
	itemFamily    uint32
	itemSubFamily uint32
	ammoType      uint32
	damageType    uint32
	stats         map[uint32]float64
}

// NewWeaponDescriptor builds a descriptor from already-parsed values. The stats map is copied.
func NewWeaponDescriptor(hash uint64, itemFamily, itemSubFamily, ammoType, damageType uint32, stats map[uint32]float64) *WeaponDescriptor {
	return &WeaponDescriptor{
		hash:          hash,
		itemFamily:    itemFamily,
		itemSubFamily: itemSubFamily,
		ammoType:      ammoType,
		damageType:    damageType,
		stats:         copyStats(stats),
	}
}

func (d *WeaponDescriptor) Hash() uint64          { return d.hash }
func (d *WeaponDescriptor) ItemFamily() uint32    { return d.itemFamily }
func (d *WeaponDescriptor) ItemSubFamily() uint32 { return d.itemSubFamily }
func (d *WeaponDescriptor) AmmoType() uint32      { return d.ammoType }
func (d *WeaponDescriptor) DamageType() uint32    { return d.damageType }

// Stats returns a copy of the stat map.
func (d *WeaponDescriptor) Stats() map[uint32]float64 { return copyStats(d.stats) }

// StatCount is the number of distinct stats.
func (d *WeaponDescriptor) StatCount() int { return len(d.stats) }

// Stat looks up a single stat value.
func (d *WeaponDescriptor) Stat(id uint32) (float64, bool) {
	v, ok := d.stats[id]
	return v, ok
}

func (d *WeaponDescriptor) String() string {
	return fmt.Sprintf("weapon(hash=%d family=%d subfamily=%d ammo=%d damage=%d stats=%d)",
		d.hash, d.itemFamily, d.itemSubFamily, d.ammoType, d.damageType, len(d.stats))
}

// BuildDescriptor parses validated fields into a descriptor.
func BuildDescriptor(f *ValidatedFields) (*WeaponDescriptor, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: no fields", ErrInvalidPayload)
	}
	hash, err := strconv.ParseUint(strings.TrimSpace(f.Hash), 10, 64)
	if err != nil {
		return nil, &FieldError{Field: FieldHash, Err: err}
	}
	d := &WeaponDescriptor{hash: hash, stats: make(map[uint32]float64, len(f.Stats))}
	ids := []struct {
		field string
		text  string
		dst   *uint32
	}{
		{FieldItemFamily, f.ItemFamily, &d.itemFamily},
		{FieldItemSubFamily, f.ItemSubFamily, &d.itemSubFamily},
		{FieldAmmoType, f.AmmoType, &d.ammoType},
		{FieldDamageType, f.DamageType, &d.damageType},
	}
	for _, id := range ids {
		v, err := parseUint32(id.text)
		if err != nil {
			return nil, &FieldError{Field: id.field, Err: err}
		}
		*id.dst = v
	}
	for key, num := range f.Stats {
		field := FieldStats + "." + key
		id, err := parseUint32(key)
		if err != nil {
			return nil, &FieldError{Field: field, Err: err}
		}
		if _, dup := d.stats[id]; dup {
			return nil, &FieldError{Field: field, Err: fmt.Errorf("duplicate stat id %d", id)}
		}
		v, err := num.Float64()
		if err != nil {
			return nil, &FieldError{Field: field, Err: err}
		}
		d.stats[id] = v
	}
	return d, nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func copyStats(in map[uint32]float64) map[uint32]float64 {
	out := make(map[uint32]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
