package catalog

// StatQuadraticFormula evaluates evpp*x^2 + vpp*x + offset. Linear formulas leave evpp at zero.
type StatQuadraticFormula struct {
	EVPP   float64 `yaml:"evpp" json:"evpp"`
	VPP    float64 `yaml:"vpp" json:"vpp"`
	Offset float64 `yaml:"offset" json:"offset"`
}

// SolveAt evaluates the formula at x.
func (f StatQuadraticFormula) SolveAt(x float64) float64 {
	return f.EVPP*x*x + f.VPP*x + f.Offset
}

// SolveAtStat evaluates the formula at a stat value clamped to 0..100.
func (f StatQuadraticFormula) SolveAtStat(stat float64) float64 {
	return f.SolveAt(clampStat(stat))
}

type RangeFormula struct {
	Start        StatQuadraticFormula `yaml:"start" json:"start"`
	End          StatQuadraticFormula `yaml:"end" json:"end"`
	FloorPercent float64              `yaml:"floorPercent" json:"floorPercent"`
	Fusion       bool                 `yaml:"fusion" json:"fusion"`
}

type ReloadFormula struct {
	ReloadData  StatQuadraticFormula `yaml:"reloadData" json:"reloadData"`
	AmmoPercent float64              `yaml:"ammoPercent" json:"ammoPercent"`
}

type HandlingFormula struct {
	Ready StatQuadraticFormula `yaml:"ready" json:"ready"`
	Stow  StatQuadraticFormula `yaml:"stow" json:"stow"`
	ADS   StatQuadraticFormula `yaml:"ads" json:"ads"`
}

type AmmoFormula struct {
	Mag       StatQuadraticFormula `yaml:"mag" json:"mag"`
	RoundTo   int32                `yaml:"roundTo" json:"roundTo"`
	ReserveID uint32               `yaml:"reserveId" json:"reserveId"`
}

// DamageModFormula holds per-combatant damage scalars. Unset scalars default to 1.
type DamageModFormula struct {
	PVE      float64 `yaml:"pve" json:"pve"`
	Minor    float64 `yaml:"minor" json:"minor"`
	Elite    float64 `yaml:"elite" json:"elite"`
	Miniboss float64 `yaml:"miniboss" json:"miniboss"`
	Champion float64 `yaml:"champion" json:"champion"`
	Boss     float64 `yaml:"boss" json:"boss"`
	Vehicle  float64 `yaml:"vehicle" json:"vehicle"`
}

// DefaultDamageMods returns neutral scalars.
func DefaultDamageMods() DamageModFormula {
	return DamageModFormula{PVE: 1, Minor: 1, Elite: 1, Miniboss: 1, Champion: 1, Boss: 1, Vehicle: 1}
}

type FiringDataFormula struct {
	Damage          float64 `yaml:"damage" json:"damage"`
	CritMult        float64 `yaml:"critMult" json:"critMult"`
	BurstDelay      float64 `yaml:"burstDelay" json:"burstDelay"`
	InnerBurstDelay float64 `yaml:"innerBurstDelay" json:"innerBurstDelay"`
	BurstSize       int32   `yaml:"burstSize" json:"burstSize"`
	OneAmmo         bool    `yaml:"oneAmmo" json:"oneAmmo"`
	Charge          bool    `yaml:"charge" json:"charge"`
}

// Formulas is the full formula set resolved for one weapon path.
type Formulas struct {
	Range      RangeFormula
	Reload     ReloadFormula
	Handling   HandlingFormula
	Ammo       AmmoFormula
	DamageMods DamageModFormula
	Firing     FiringDataFormula
}

// DefaultFormulas is used for weapons the catalog does not know.
func DefaultFormulas() Formulas {
	return Formulas{DamageMods: DefaultDamageMods()}
}

// WeaponPath addresses a weapon in the catalog: weapon type id plus intrinsic frame hash.
type WeaponPath struct {
	WeaponType uint32 `json:"weapon_type"`
	Intrinsic  uint32 `json:"intrinsic"`
}

func clampStat(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
