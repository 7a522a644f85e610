package engine

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/d2oracle/oracle/core/catalog"
)

const handCannonIntrinsic = 1636108362

func decodeWeapon(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode weapon: %v", err)
	}
	return out
}

func TestReadBeforeIdentity(t *testing.T) {
	calc := New(catalog.Default(), Options{})
	if _, err := calc.ReadSerializedWeapon(); !errors.Is(err, ErrNoWeapon) {
		t.Fatalf("expected ErrNoWeapon, got %v", err)
	}
	if err := calc.SetStats(map[uint32]float64{4043523819: 50}); !errors.Is(err, ErrNoWeapon) {
		t.Fatalf("expected ErrNoWeapon from SetStats, got %v", err)
	}
}

func TestCatalogWeaponSerialization(t *testing.T) {
	calc := New(catalog.Default(), Options{})
	if err := calc.SetWeaponIdentity(3489657138, 9, handCannonIntrinsic, 1, uint32(DamageSolar)); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	if err := calc.SetStats(map[uint32]float64{4043523819: 84, 1240592695: 46}); err != nil {
		t.Fatalf("set stats: %v", err)
	}
	data, err := calc.ReadSerializedWeapon()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := decodeWeapon(t, data)
	if out["weapon_type"] != "HANDCANNON" || out["ammo_type"] != "PRIMARY" || out["damage_type"] != "SOLAR" {
		t.Fatalf("unexpected enums: %v %v %v", out["weapon_type"], out["ammo_type"], out["damage_type"])
	}
	if out["hash"] != float64(3489657138) || out["intrinsic_hash"] != float64(handCannonIntrinsic) {
		t.Fatalf("unexpected identity: %v %v", out["hash"], out["intrinsic_hash"])
	}
	stats := out["stats"].(map[string]any)
	impact := stats["4043523819"].(map[string]any)
	if impact["base_value"] != float64(84) || impact["part_value"] != float64(0) {
		t.Fatalf("unexpected impact stat: %#v", impact)
	}
	firing := out["firing_data"].(map[string]any)
	if firing["damage"] != 49.9 {
		t.Fatalf("expected catalog firing data, got %#v", firing)
	}
	perks := out["perks"].(map[string]any)
	if _, ok := perks["0"]; !ok {
		t.Fatalf("expected empty perk slot")
	}
	if _, ok := perks["1636108362"]; !ok {
		t.Fatalf("expected intrinsic perk")
	}
}

func TestUnknownPathFallsBackToDefaults(t *testing.T) {
	calc := New(catalog.Default(), Options{})
	if err := calc.SetWeaponIdentity(123, 1, 2, 1, 3); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	if err := calc.SetStats(map[uint32]float64{1001: 10}); err != nil {
		t.Fatalf("set stats: %v", err)
	}
	data, err := calc.ReadSerializedWeapon()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := decodeWeapon(t, data)
	if out["hash"] != float64(123) || out["weapon_type"] != "UNKNOWN" {
		t.Fatalf("unexpected identity: %#v", out)
	}
	stat := out["stats"].(map[string]any)["1001"].(map[string]any)
	if stat["base_value"] != float64(10) {
		t.Fatalf("expected stat preserved, got %#v", stat)
	}
	mods := out["damage_mods"].(map[string]any)
	if mods["pve"] != float64(1) || mods["boss"] != float64(1) {
		t.Fatalf("expected neutral damage mods, got %#v", mods)
	}
}

func TestStrictRejectsUnknownPath(t *testing.T) {
	calc := New(catalog.Default(), Options{Strict: true})
	if err := calc.SetWeaponIdentity(123, 1, 2, 1, 3); !errors.Is(err, ErrUnknownWeapon) {
		t.Fatalf("expected ErrUnknownWeapon, got %v", err)
	}
	if _, err := calc.ReadSerializedWeapon(); !errors.Is(err, ErrNoWeapon) {
		t.Fatalf("expected cleared slot, got %v", err)
	}
}

func TestFailedIdentityClearsPreviousWeapon(t *testing.T) {
	calc := New(catalog.Default(), Options{})
	if err := calc.SetWeaponIdentity(1, 9, handCannonIntrinsic, 1, 0); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	if err := calc.SetWeaponIdentity(2, 9, handCannonIntrinsic, 7, 0); !errors.Is(err, ErrUnknownAmmoType) {
		t.Fatalf("expected ErrUnknownAmmoType, got %v", err)
	}
	if _, err := calc.ReadSerializedWeapon(); !errors.Is(err, ErrNoWeapon) {
		t.Fatalf("expected no weapon after failed identity, got %v", err)
	}
}

func TestSetStatsRejectsNonFinite(t *testing.T) {
	calc := New(nil, Options{})
	if err := calc.SetWeaponIdentity(1, 9, 1, 1, 0); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	if err := calc.SetStats(map[uint32]float64{1: math.NaN()}); !errors.Is(err, ErrInvalidStatValue) {
		t.Fatalf("expected ErrInvalidStatValue, got %v", err)
	}
}

func TestSerializationIsDeterministic(t *testing.T) {
	stats := map[uint32]float64{1: 10, 2: 20, 3: 30, 4: 40, 5: 50}
	var first []byte
	for i := 0; i < 5; i++ {
		calc := New(catalog.Default(), Options{})
		if err := calc.SetWeaponIdentity(42, 6, 2757685314, 1, uint32(DamageArc)); err != nil {
			t.Fatalf("set identity: %v", err)
		}
		if err := calc.SetStats(stats); err != nil {
			t.Fatalf("set stats: %v", err)
		}
		data, err := calc.ReadSerializedWeapon()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if first == nil {
			first = data
			continue
		}
		if string(first) != string(data) {
			t.Fatalf("non-deterministic output:\n%s\n%s", first, data)
		}
	}
}

func TestStatClamp(t *testing.T) {
	s := Stat{BaseValue: 90, PartValue: 20, PerkValue: 5}
	if s.Val() != 100 || s.PerkVal() != 100 {
		t.Fatalf("expected clamp to 100, got %v %v", s.Val(), s.PerkVal())
	}
	s = Stat{BaseValue: 5, PartValue: -10}
	if s.Val() != 0 {
		t.Fatalf("expected clamp to 0, got %v", s.Val())
	}
}

func TestPerkBuffsFoldIntoPartValue(t *testing.T) {
	w := newWeapon(1, 9, 77, 1, 0, catalog.DefaultFormulas())
	w.Perks[77] = Perk{StatBuffs: map[uint32]float64{1: 5}, Hash: 77, RawHash: 77}
	w.setStats(map[uint32]float64{1: 40, 2: 10})
	if w.Stats[1].PartValue != 5 || w.Stats[2].PartValue != 0 {
		t.Fatalf("unexpected part values: %#v", w.Stats)
	}
}

func TestFreshWeaponPerksCarryNoBuffs(t *testing.T) {
	w := newWeapon(1, 9, 77, 1, 0, catalog.DefaultFormulas())
	w.setStats(map[uint32]float64{1: 40})
	if len(w.Perks) != 2 {
		t.Fatalf("expected intrinsic and empty slot perks, got %#v", w.Perks)
	}
	if s := w.Stats[1]; s.PartValue != 0 || s.PerkValue != 0 || s.Val() != 40 {
		t.Fatalf("expected unbuffed stat, got %#v", s)
	}
}

func TestEnumNames(t *testing.T) {
	if WeaponGlaive.String() != "GLAIVE" || WeaponType(99).String() != "UNKNOWN" {
		t.Fatalf("unexpected weapon type names")
	}
	if AmmoHeavy.String() != "HEAVY" || DamageStrand.String() != "STRAND" {
		t.Fatalf("unexpected enum names")
	}
}
