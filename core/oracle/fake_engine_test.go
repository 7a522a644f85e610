package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// fakeEngine records protocol calls and echoes the loaded weapon back as JSON.
type fakeEngine struct {
	mu      sync.Mutex
	calls   []string
	hash    uint64
	family  uint32
	stats   map[uint32]float64
	failOn  string
	panicOn string

	// entered is signalled when a session reaches ReadSerializedWeapon; read then waits on release.
	entered chan struct{}
	release chan struct{}

	active   atomic.Int32
	overlaps atomic.Int32
}

func (f *fakeEngine) record(op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
	if f.panicOn == op {
		panic("engine exploded")
	}
	if f.failOn == op {
		return errors.New("unrecognized category code")
	}
	return nil
}

func (f *fakeEngine) SetWeaponIdentity(hash uint64, itemFamily, _, _, _ uint32) error {
	if f.active.Add(1) > 1 {
		f.overlaps.Add(1)
	}
	if err := f.record("identity"); err != nil {
		f.active.Add(-1)
		return err
	}
	f.hash = hash
	f.family = itemFamily
	runtime.Gosched()
	return nil
}

func (f *fakeEngine) SetStats(stats map[uint32]float64) error {
	if err := f.record("stats"); err != nil {
		f.active.Add(-1)
		return err
	}
	f.stats = stats
	runtime.Gosched()
	return nil
}

func (f *fakeEngine) ReadSerializedWeapon() (json.RawMessage, error) {
	defer f.active.Add(-1)
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if err := f.record("read"); err != nil {
		return nil, err
	}
	keys := make(map[string]float64, len(f.stats))
	for k, v := range f.stats {
		keys[fmt.Sprint(k)] = v
	}
	return json.Marshal(map[string]any{"hash": f.hash, "family": f.family, "stats": keys})
}

func (f *fakeEngine) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
