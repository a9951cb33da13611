package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"memwatch/config"
	"memwatch/offsets"
	"memwatch/poller"
	"memwatch/process"
	"memwatch/process/memory_map"

	"github.com/retroenv/retrogolib/assert"
)

type fakeProcess struct {
	pid    process.ProcessID
	base   process.ProcessMemoryAddress
	exited atomic.Bool
	closed atomic.Bool
}

func (f *fakeProcess) Open(pid process.ProcessID) error { return nil }
func (f *fakeProcess) Close() error                     { f.closed.Store(true); return nil }
func (f *fakeProcess) GetPID() process.ProcessID        { return f.pid }
func (f *fakeProcess) UpdateMemoryMap() error           { return nil }
func (f *fakeProcess) HasExited() bool                  { return f.exited.Load() }

func (f *fakeProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool { return false }

func (f *fakeProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) { return nil, nil }

func (f *fakeProcess) ModuleBaseAddress() (process.ProcessMemoryAddress, error) {
	if f.exited.Load() {
		return 0, process.ErrProcessExited
	}
	return f.base, nil
}

func (f *fakeProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	return nil, process.ErrAddressNotMapped
}

func (f *fakeProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	return process.ErrAddressNotMapped
}

type fakeOpener struct {
	proc     *fakeProcess
	byName   string
	byPID    process.ProcessID
	notFound bool
}

func (o *fakeOpener) NewWithPID(pid process.ProcessID) (process.Process, error) {
	o.byPID = pid
	if o.notFound {
		return nil, &process.OpenError{PID: pid, Err: process.ErrProcessNotFound}
	}
	return o.proc, nil
}

func (o *fakeOpener) OpenProcessByName(name string) (process.Process, error) {
	o.byName = name
	if o.notFound {
		return nil, process.ErrProcessNotFound
	}
	return o.proc, nil
}

var settings = config.StaticSource{
	offsets.Base:   "10",
	offsets.Camera: "20",
	offsets.Gpose:  "30",
	offsets.Emote:  "40",
}

func TestOpenByName(t *testing.T) {
	opener := &fakeOpener{proc: &fakeProcess{pid: 42, base: 0x140000000}}

	s, err := OpenWithSource(context.Background(), opener, settings, config.Config{})
	assert.NoError(t, err)
	assert.Equal(t, config.DefaultProcessName, opener.byName)
	assert.Equal(t, 4, s.Offsets().Len())
	assert.Equal(t, process.ProcessID(42), s.Process().GetPID())
	assert.Equal(t, poller.DefaultInterval, s.Loop().Interval())
	assert.False(t, s.Resolver().Snapshot().Resolved())
}

func TestOpenByPID(t *testing.T) {
	opener := &fakeOpener{proc: &fakeProcess{pid: 77}}

	_, err := OpenWithSource(context.Background(), opener, settings, config.Config{PID: 77})
	assert.NoError(t, err)
	assert.Equal(t, process.ProcessID(77), opener.byPID)
	assert.Equal(t, "", opener.byName)
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()

	_, err := OpenWithSource(ctx, &fakeOpener{notFound: true}, settings, config.Config{})
	assert.True(t, errors.Is(err, process.ErrProcessNotFound))

	_, err = OpenWithSource(ctx, &fakeOpener{notFound: true}, settings, config.Config{PID: 5})
	var openErr *process.OpenError
	assert.True(t, errors.As(err, &openErr))
	assert.Equal(t, process.ProcessID(5), openErr.PID)

	opener := &fakeOpener{proc: &fakeProcess{}}
	_, err = OpenWithSource(ctx, opener, config.StaticSource{offsets.Base: "10"}, config.Config{})
	var missing *offsets.MissingKeyError
	assert.True(t, errors.As(err, &missing))
	assert.Equal(t, "", opener.byName)

	_, err = OpenWithSource(ctx, opener, config.StaticSource{
		offsets.Base: "10", offsets.Camera: "xyz", offsets.Gpose: "30", offsets.Emote: "40",
	}, config.Config{})
	var formatErr *process.FormatError
	assert.True(t, errors.As(err, &formatErr))
}

func TestStartResolvesImmediately(t *testing.T) {
	proc := &fakeProcess{pid: 42, base: 0x140000000}
	s, err := OpenWithSource(context.Background(), &fakeOpener{proc: proc}, settings, config.Config{Interval: time.Hour})
	assert.NoError(t, err)

	assert.NoError(t, s.Start(context.Background()))
	defer s.Close()

	snap := s.Resolver().Snapshot()
	assert.True(t, snap.Resolved())
	assert.Equal(t, "140000020", snap.Hex(offsets.Camera))
}

func TestTicksAndClose(t *testing.T) {
	proc := &fakeProcess{pid: 42, base: 0x1000}
	s, err := OpenWithSource(context.Background(), &fakeOpener{proc: proc}, settings, config.Config{Interval: 5 * time.Millisecond})
	assert.NoError(t, err)

	ticks := make(chan struct{}, 16)
	s.Mediator().SubscribeWork(func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	assert.NoError(t, s.Start(context.Background()))

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("no work tick")
	}

	proc.exited.Store(true)
	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("loop stopped ticking after exit")
	}

	assert.NoError(t, s.Close())
	assert.True(t, proc.closed.Load())
	select {
	case <-s.Done():
	default:
		t.Fatal("loop still running after Close")
	}
	assert.Equal(t, poller.Stopped, s.Loop().State())
}
