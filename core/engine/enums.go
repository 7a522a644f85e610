package engine

import "encoding/json"

// AmmoType classifies the ammo slot a weapon draws from.
type AmmoType uint32

const (
	AmmoUnknown AmmoType = 0
	AmmoPrimary AmmoType = 1
	AmmoSpecial AmmoType = 2
	AmmoHeavy   AmmoType = 3
)

func (a AmmoType) String() string {
	switch a {
	case AmmoPrimary:
		return "PRIMARY"
	case AmmoSpecial:
		return "SPECIAL"
	case AmmoHeavy:
		return "HEAVY"
	default:
		return "UNKNOWN"
	}
}

func (a AmmoType) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }

// WeaponType is the item sub-type id of a weapon.
type WeaponType uint32

const (
	WeaponUnknown           WeaponType = 0
	WeaponAutoRifle         WeaponType = 6
	WeaponShotgun           WeaponType = 7
	WeaponMachineGun        WeaponType = 8
	WeaponHandCannon        WeaponType = 9
	WeaponRocket            WeaponType = 10
	WeaponFusionRifle       WeaponType = 11
	WeaponSniper            WeaponType = 12
	WeaponPulseRifle        WeaponType = 13
	WeaponScoutRifle        WeaponType = 14
	WeaponSidearm           WeaponType = 17
	WeaponSword             WeaponType = 18
	WeaponLinearFusionRifle WeaponType = 22
	WeaponGrenadeLauncher   WeaponType = 23
	WeaponSubmachineGun     WeaponType = 24
	WeaponTraceRifle        WeaponType = 25
	WeaponBow               WeaponType = 31
	WeaponGlaive            WeaponType = 33
)

var weaponTypeNames = map[WeaponType]string{
	WeaponAutoRifle:         "AUTORIFLE",
	WeaponShotgun:           "SHOTGUN",
	WeaponMachineGun:        "MACHINEGUN",
	WeaponHandCannon:        "HANDCANNON",
	WeaponRocket:            "ROCKET",
	WeaponFusionRifle:       "FUSIONRIFLE",
	WeaponSniper:            "SNIPER",
	WeaponPulseRifle:        "PULSERIFLE",
	WeaponScoutRifle:        "SCOUTRIFLE",
	WeaponSidearm:           "SIDEARM",
	WeaponSword:             "SWORD",
	WeaponLinearFusionRifle: "LINEARFUSIONRIFLE",
	WeaponGrenadeLauncher:   "GRENADELAUNCHER",
	WeaponSubmachineGun:     "SUBMACHINEGUN",
	WeaponTraceRifle:        "TRACERIFLE",
	WeaponBow:               "BOW",
	WeaponGlaive:            "GLAIVE",
}

func (w WeaponType) String() string {
	if name, ok := weaponTypeNames[w]; ok {
		return name
	}
	return "UNKNOWN"
}

func (w WeaponType) MarshalJSON() ([]byte, error) { return json.Marshal(w.String()) }

// DamageType is the element of a weapon, addressed by its damage type hash.
type DamageType uint32

const (
	DamageUnknown DamageType = 0
	DamageKinetic DamageType = 3373582085
	DamageArc     DamageType = 2303181850
	DamageSolar   DamageType = 1847026933
	DamageVoid    DamageType = 3454344768
	DamageStasis  DamageType = 151347233
	DamageStrand  DamageType = 3949783978
)

func (d DamageType) String() string {
	switch d {
	case DamageKinetic:
		return "KINETIC"
	case DamageArc:
		return "ARC"
	case DamageSolar:
		return "SOLAR"
	case DamageVoid:
		return "VOID"
	case DamageStasis:
		return "STASIS"
	case DamageStrand:
		return "STRAND"
	default:
		return "UNKNOWN"
	}
}

func (d DamageType) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }
