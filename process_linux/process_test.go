//go:build linux

package process_linux

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"memwatch/process"

	"github.com/retroenv/retrogolib/assert"
)

const fakeExe = "/games/ffxiv/game/ffxiv_dx11.exe"

// start time every fake process reports unless a test changes it
const fakeStart = 1000

// fakeProc builds a minimal procfs entry for pid under root.
func fakeProc(t *testing.T, root string, pid int, comm, state string) string {
	t.Helper()

	dir := filepath.Join(root, strconv.Itoa(pid))
	assert.NoError(t, os.MkdirAll(dir, 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0o644))
	writeState(t, dir, comm, state)
	assert.NoError(t, os.Symlink(fakeExe, filepath.Join(dir, "exe")))

	maps := "7f0000000000-7f0000021000 rw-p 00000000 00:00 0\n" +
		"140001000-142000000 r-xp 00001000 08:01 4242 " + fakeExe + "\n" +
		"140000000-140001000 r--p 00000000 08:01 4242 " + fakeExe + "\n"
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "maps"), []byte(maps), 0o644))

	return dir
}

func writeState(t *testing.T, dir, comm, state string) {
	t.Helper()
	writeStat(t, dir, comm, state, fakeStart)
}

// writeStat writes a stat line with state and starttime in their real positions.
func writeStat(t *testing.T, dir, comm, state string, start uint64) {
	t.Helper()
	fields := []string{state, "1"}
	for i := 0; i < 17; i++ {
		fields = append(fields, "0")
	}
	fields = append(fields, strconv.FormatUint(start, 10), "0")
	stat := "1 (" + comm + ") " + strings.Join(fields, " ") + "\n"
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte(stat), 0o644))
}

func setMapsRefreshInterval(t *testing.T, d time.Duration) {
	t.Helper()
	old := mapsRefreshInterval
	mapsRefreshInterval = d
	t.Cleanup(func() { mapsRefreshInterval = old })
}

func useProcRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	old := procRoot
	procRoot = root
	t.Cleanup(func() { procRoot = old })
	return root
}

func TestOpenResolvesModuleBase(t *testing.T) {
	root := useProcRoot(t)
	fakeProc(t, root, 4242, "ffxiv_dx11.exe", "S")

	proc, err := NewWithPID(4242)
	assert.NoError(t, err)
	defer proc.Close()

	assert.Equal(t, process.ProcessID(4242), proc.GetPID())
	assert.False(t, proc.HasExited())

	base, err := proc.ModuleBaseAddress()
	assert.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x140000000), base)

	assert.True(t, proc.IsValidAddress(0x140001234))
	assert.False(t, proc.IsValidAddress(0x10))

	mm, err := proc.GetMemoryMap()
	assert.NoError(t, err)
	assert.Equal(t, 3, len(mm))
	assert.Equal(t, uint64(0x140000000), mm[0].Address)
}

func TestOpenMissingProcess(t *testing.T) {
	useProcRoot(t)

	_, err := NewWithPID(999)
	var openErr *process.OpenError
	assert.True(t, errors.As(err, &openErr))
	assert.Equal(t, process.ProcessID(999), openErr.PID)
	assert.True(t, errors.Is(err, process.ErrProcessNotFound))
}

func TestHasExitedIsSticky(t *testing.T) {
	root := useProcRoot(t)
	dir := fakeProc(t, root, 77, "ffxiv_dx11.exe", "R")

	proc, err := NewWithPID(77)
	assert.NoError(t, err)
	assert.False(t, proc.HasExited())

	writeState(t, dir, "ffxiv_dx11.exe", "Z")
	assert.True(t, proc.HasExited())

	_, err = proc.ModuleBaseAddress()
	assert.True(t, errors.Is(err, process.ErrProcessExited))

	// a recycled pid does not bring the session back
	writeState(t, dir, "ffxiv_dx11.exe", "R")
	assert.True(t, proc.HasExited())

	_, err = proc.ReadMemory(0x140000000, 4)
	assert.True(t, errors.Is(err, process.ErrProcessExited))
}

func TestHasExitedWhenPIDReused(t *testing.T) {
	root := useProcRoot(t)
	dir := fakeProc(t, root, 79, "ffxiv_dx11.exe", "S")

	proc, err := NewWithPID(79)
	assert.NoError(t, err)
	assert.Equal(t, uint64(fakeStart), readStartTime(79))
	assert.False(t, proc.HasExited())

	// same pid, running, but started later
	writeStat(t, dir, "ffxiv_dx11.exe", "R", fakeStart+500)
	assert.True(t, proc.HasExited())

	_, err = proc.ModuleBaseAddress()
	assert.True(t, errors.Is(err, process.ErrProcessExited))
}

func TestHasExitedWhenProcDirGone(t *testing.T) {
	root := useProcRoot(t)
	dir := fakeProc(t, root, 78, "ffxiv_dx11.exe", "S")

	proc, err := NewWithPID(78)
	assert.NoError(t, err)

	assert.NoError(t, os.RemoveAll(dir))
	assert.True(t, proc.HasExited())
}

func TestFindProcessByName(t *testing.T) {
	root := useProcRoot(t)
	fakeProc(t, root, 3900500, "ffxiv_dx11.exe", "S")
	fakeProc(t, root, 3900300, "ffxiv_dx11.exe", "S")
	fakeProc(t, root, 3900200, "bash", "S")
	assert.NoError(t, os.MkdirAll(filepath.Join(root, "self"), 0o755))

	finder := NewProcessFinder()
	found, err := finder.FindProcessByName("ffxiv_dx11")
	assert.NoError(t, err)
	assert.Equal(t, 2, len(found))

	pid, err := process.FindProcessID(finder, "ffxiv_dx11")
	assert.NoError(t, err)
	assert.Equal(t, process.ProcessID(3900300), pid)

	info, err := finder.FindProcessByPID(3900200)
	assert.NoError(t, err)
	assert.Equal(t, "bash", info.Name)
	assert.Equal(t, process.ProcessSleeping, info.State)

	_, err = finder.FindProcessByPID(3900201)
	assert.True(t, errors.Is(err, process.ErrProcessNotFound))
}

func TestOpenProcessByName(t *testing.T) {
	root := useProcRoot(t)
	fakeProc(t, root, 3900612, "ffxiv_dx11.exe", "S")

	proc, err := NewHelper().OpenProcessByName("ffxiv_dx11")
	assert.NoError(t, err)
	assert.Equal(t, process.ProcessID(3900612), proc.GetPID())

	_, err = NewHelper().OpenProcessByName("missing")
	assert.True(t, errors.Is(err, process.ErrProcessNotFound))
}

func TestRegionMappedAfterOpen(t *testing.T) {
	root := useProcRoot(t)
	dir := fakeProc(t, root, 80, "ffxiv_dx11.exe", "S")

	setMapsRefreshInterval(t, time.Hour)
	proc, err := NewWithPID(80)
	assert.NoError(t, err)
	assert.False(t, proc.IsValidAddress(0x300000010))

	maps, err := os.ReadFile(filepath.Join(dir, "maps"))
	assert.NoError(t, err)
	maps = append(maps, "300000000-300001000 rw-p 00000000 00:00 0\n"...)
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "maps"), maps, 0o644))

	// misses inside the refresh interval keep the loaded map
	assert.False(t, proc.IsValidAddress(0x300000010))

	setMapsRefreshInterval(t, 0)
	assert.True(t, proc.IsValidAddress(0x300000010))

	mm, err := proc.GetMemoryMap()
	assert.NoError(t, err)
	assert.Equal(t, 4, len(mm))

	maps = append(maps, "310000000-310001000 rw-p 00000000 00:00 0\n"...)
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "maps"), maps, 0o644))
	setMapsRefreshInterval(t, time.Hour)
	assert.False(t, proc.IsValidAddress(0x310000000))
	assert.NoError(t, proc.UpdateMemoryMap())
	assert.True(t, proc.IsValidAddress(0x310000000))
}

const wineGameExe = "/home/user/.wine/drive_c/ffxiv/game/ffxiv_dx11.exe"

// fakeWineProc builds a process whose exe link names the Wine preloader.
func fakeWineProc(t *testing.T, root string, pid int, comm string) {
	t.Helper()

	dir := filepath.Join(root, strconv.Itoa(pid))
	assert.NoError(t, os.MkdirAll(dir, 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0o644))
	writeState(t, dir, comm, "S")
	assert.NoError(t, os.Symlink("/usr/bin/wine64-preloader", filepath.Join(dir, "exe")))

	maps := "7d000000-7d001000 r--p 00000000 08:01 11 /usr/bin/wine64-preloader\n" +
		"7d001000-7d002000 r-xp 00001000 08:01 11 /usr/bin/wine64-preloader\n" +
		"140001000-142000000 r-xp 00001000 08:01 4242 " + wineGameExe + "\n" +
		"140000000-140001000 r--p 00000000 08:01 4242 " + wineGameExe + "\n" +
		"7f0000000000-7f0000021000 rw-p 00000000 00:00 0\n"
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "maps"), []byte(maps), 0o644))
}

func TestOpenUnderWine(t *testing.T) {
	root := useProcRoot(t)
	fakeWineProc(t, root, 3900700, "ffxiv_dx11.exe")

	proc, err := NewHelper().OpenProcessByName("ffxiv_dx11")
	assert.NoError(t, err)
	base, err := proc.ModuleBaseAddress()
	assert.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x140000000), base)

	// Windows names are matched without regard to case
	proc, err = NewWithImage(3900700, "FFXIV_DX11.EXE")
	assert.NoError(t, err)
	base, _ = proc.ModuleBaseAddress()
	assert.Equal(t, process.ProcessMemoryAddress(0x140000000), base)

	// without a name the command name is used
	proc, err = NewWithPID(3900700)
	assert.NoError(t, err)
	base, _ = proc.ModuleBaseAddress()
	assert.Equal(t, process.ProcessMemoryAddress(0x140000000), base)

	// an image that is not mapped falls back to the exe link
	proc, err = NewWithImage(3900700, "launcher")
	assert.NoError(t, err)
	base, _ = proc.ModuleBaseAddress()
	assert.Equal(t, process.ProcessMemoryAddress(0x7d000000), base)
}
