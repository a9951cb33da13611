package resolver

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"memwatch/offsets"
	"memwatch/process"

	"github.com/retroenv/retrogolib/assert"
)

type fakeSession struct {
	exited atomic.Bool
	base   atomic.Uint64
}

func newFakeSession(base process.ProcessMemoryAddress) *fakeSession {
	s := &fakeSession{}
	s.base.Store(uint64(base))
	return s
}

func (s *fakeSession) HasExited() bool {
	return s.exited.Load()
}

func (s *fakeSession) ModuleBaseAddress() (process.ProcessMemoryAddress, error) {
	if s.exited.Load() {
		return 0, process.ErrProcessExited
	}
	return process.ProcessMemoryAddress(s.base.Load()), nil
}

func mustTable(t *testing.T, source map[string]string) *offsets.Table {
	t.Helper()
	table, err := offsets.Load(source)
	assert.NoError(t, err)
	return table
}

func defaultTable(t *testing.T) *offsets.Table {
	return mustTable(t, map[string]string{
		"base":   "10",
		"camera": "1A0",
		"gpose":  "2000",
		"emote":  "3000",
	})
}

func TestRecompute(t *testing.T) {
	r := New(newFakeSession(0x140000000), defaultTable(t))

	snap := r.Snapshot()
	assert.False(t, snap.Resolved())
	_, ok := snap.Get(offsets.Base)
	assert.False(t, ok)

	assert.NoError(t, r.Recompute())

	snap = r.Snapshot()
	assert.True(t, snap.Resolved())
	assert.Equal(t, uint64(1), snap.Generation())
	assert.Equal(t, process.ProcessMemoryAddress(0x140000000), snap.ModuleBase())

	base, ok := snap.Get(offsets.Base)
	assert.True(t, ok)
	assert.Equal(t, process.ProcessMemoryAddress(0x140000010), base)
	assert.Equal(t, "1400001A0", snap.Hex(offsets.Camera))
	assert.Equal(t, "140002000", snap.Hex(offsets.Gpose))
	assert.Equal(t, "140003000", snap.Hex(offsets.Emote))
	assert.Equal(t, "", snap.Hex("missing"))
	assert.Equal(t, 4, len(snap.Map()))
	assert.Equal(t, offsets.Base, snap.Names()[0])
}

func TestRecomputeProcessExited(t *testing.T) {
	session := newFakeSession(0x140000000)
	r := New(session, defaultTable(t))
	assert.NoError(t, r.Recompute())
	before := r.Snapshot()

	session.exited.Store(true)
	assert.False(t, r.IsReady())

	err := r.Recompute()
	assert.True(t, errors.Is(err, process.ErrProcessExited))
	assert.True(t, before == r.Snapshot())
	assert.Equal(t, "140000010", r.Snapshot().Hex(offsets.Base))
}

func TestRecomputeExitedBeforeFirstResolve(t *testing.T) {
	session := newFakeSession(0x140000000)
	session.exited.Store(true)
	r := New(session, defaultTable(t))

	assert.True(t, errors.Is(r.Recompute(), process.ErrProcessExited))
	assert.False(t, r.Snapshot().Resolved())
}

func TestRecomputeOverflowIsAllOrNothing(t *testing.T) {
	session := newFakeSession(0x1000)
	r := New(session, mustTable(t, map[string]string{
		"base":   "10",
		"camera": "20",
		"gpose":  "30",
		"emote":  "7FFFFFFFFFFFFFFF",
	}))
	assert.NoError(t, r.Recompute())
	before := r.Snapshot()

	// base, camera and gpose still fit, emote does not
	session.base.Store(math.MaxUint64 - 0x100)
	err := r.Recompute()

	var overflowErr *process.OverflowError
	assert.True(t, errors.As(err, &overflowErr))
	assert.True(t, before == r.Snapshot())
	assert.Equal(t, "1010", r.Snapshot().Hex(offsets.Base))
}

func TestSnapshotNeverTorn(t *testing.T) {
	session := newFakeSession(0x10000)
	r := New(session, mustTable(t, map[string]string{
		"base":   "0",
		"camera": "1000",
		"gpose":  "2000",
		"emote":  "3000",
	}))

	var stop atomic.Bool
	var wg sync.WaitGroup
	var torn atomic.Int64

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				snap := r.Snapshot()
				if !snap.Resolved() {
					continue
				}
				base, _ := snap.Get(offsets.Base)
				camera, _ := snap.Get(offsets.Camera)
				gpose, _ := snap.Get(offsets.Gpose)
				emote, _ := snap.Get(offsets.Emote)
				if base != snap.ModuleBase() || camera != base+0x1000 || gpose != base+0x2000 || emote != base+0x3000 {
					torn.Add(1)
				}
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		session.base.Store(uint64(0x10000 + i*0x10000))
		assert.NoError(t, r.Recompute())
	}
	stop.Store(true)
	wg.Wait()

	assert.Equal(t, int64(0), torn.Load())
	assert.Equal(t, uint64(2000), r.Snapshot().Generation())
}

func TestConcat(t *testing.T) {
	assert.Equal(t, "A,B,C", Concat("A", "B", "C"))
	assert.Equal(t, "A", Concat("A"))
	assert.Equal(t, "", Concat())
	assert.Equal(t, "140000010,18", Concat("140000010", "18"))

	base, offs, err := process.ParseAddressString(Concat("140000010", "18", "2C"))
	assert.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x140000010), base)
	assert.Equal(t, 2, len(offs))
}
