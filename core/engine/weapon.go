package engine

import "github.com/d2oracle/oracle/core/catalog"

// Stat is one weapon stat split into its sources.
type Stat struct {
	BaseValue float64 `json:"base_value"`
	PartValue float64 `json:"part_value"`
	PerkValue float64 `json:"perk_value"`
}

// Val is the stat without conditional perk bonuses, clamped to 0..100.
func (s Stat) Val() float64 {
	return clamp(s.BaseValue + s.PartValue)
}

// PerkVal includes every bonus, clamped to 0..100.
func (s Stat) PerkVal() float64 {
	return clamp(s.BaseValue + s.PartValue + s.PerkValue)
}

// Perk is a trait attached to a weapon.
type Perk struct {
	StatBuffs map[uint32]float64 `json:"stat_buffs"`
	Enhanced  bool               `json:"enhanced"`
	Value     uint32             `json:"value"`
	Hash      uint32             `json:"hash"`
	RawHash   uint32             `json:"raw_hash"`
}

// Weapon is the engine's working state for a single weapon.
type Weapon struct {
	Hash          uint64          `json:"hash"`
	IntrinsicHash uint32          `json:"intrinsic_hash"`
	Perks         map[uint32]Perk `json:"perks"`
	Stats         map[uint32]Stat `json:"stats"`

	DamageMods      catalog.DamageModFormula  `json:"damage_mods"`
	FiringData      catalog.FiringDataFormula `json:"firing_data"`
	RangeFormula    catalog.RangeFormula      `json:"range_formula"`
	AmmoFormula     catalog.AmmoFormula       `json:"ammo_formula"`
	HandlingFormula catalog.HandlingFormula   `json:"handling_formula"`
	ReloadFormula   catalog.ReloadFormula     `json:"reload_formula"`

	WeaponType WeaponType `json:"weapon_type"`
	DamageType DamageType `json:"damage_type"`
	AmmoType   AmmoType   `json:"ammo_type"`
}

func newWeapon(hash uint64, weaponType, intrinsic, ammo, damage uint32, f catalog.Formulas) *Weapon {
	return &Weapon{
		Hash:          hash,
		IntrinsicHash: intrinsic,
		Perks: map[uint32]Perk{
			intrinsic: {StatBuffs: map[uint32]float64{}, Hash: intrinsic, RawHash: intrinsic},
			0:         {StatBuffs: map[uint32]float64{}},
		},
		Stats:           map[uint32]Stat{},
		DamageMods:      f.DamageMods,
		FiringData:      f.Firing,
		RangeFormula:    f.Range,
		AmmoFormula:     f.Ammo,
		HandlingFormula: f.Handling,
		ReloadFormula:   f.Reload,
		WeaponType:      WeaponType(weaponType),
		DamageType:      DamageType(damage),
		AmmoType:        AmmoType(ammo),
	}
}

// setStats replaces the stat table and folds static perk buffs into part values.
func (w *Weapon) setStats(base map[uint32]float64) {
	stats := make(map[uint32]Stat, len(base))
	for id, v := range base {
		stats[id] = Stat{BaseValue: v}
	}
	w.Stats = stats
	w.updateStats()
}

// The catalog carries no perk data, so intrinsic and slot perks start with empty buffs
// and part values stay zero unless a perk with buffs is installed.
func (w *Weapon) updateStats() {
	for id, stat := range w.Stats {
		var part float64
		for _, perk := range w.Perks {
			part += perk.StatBuffs[id]
		}
		stat.PartValue = part
		w.Stats[id] = stat
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
