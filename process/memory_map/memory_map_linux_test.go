//go:build linux

package memory_map

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

const sampleMaps = `140000000-140001000 r--p 00000000 08:01 4242       /games/ffxiv/ffxiv_dx11.exe
140001000-142000000 r-xp 00001000 08:01 4242       /games/ffxiv/ffxiv_dx11.exe
7f0000000000-7f0000021000 rw-p 00000000 00:00 0
garbage line
7ffd00000000-7ffd00021000 rw-p 00000000 00:00 0          [stack]
7ffe0000-7ffe1000 r--p 00000000 08:01 77 /home/user/My Games/save.dat
`

func TestParseMaps(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(sampleMaps))
	assert.NoError(t, err)
	assert.Equal(t, 5, len(mm))

	assert.Equal(t, uint64(0x140000000), mm[0].Address)
	assert.Equal(t, uint(0x1000), mm[0].Size)
	assert.Equal(t, "r--p", mm[0].Perms)
	assert.Equal(t, "/games/ffxiv/ffxiv_dx11.exe", mm[0].Path)

	assert.Equal(t, uint64(0x1000), mm[1].Offset)
	assert.Equal(t, "", mm[2].Path)
	assert.Equal(t, "[stack]", mm[3].Path)
	assert.Equal(t, "/home/user/My Games/save.dat", mm[4].Path)
}

func TestFindRegionAndImageBase(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(sampleMaps))
	assert.NoError(t, err)
	SortByAddress(mm)

	region := FindRegion(0x140001234, mm)
	assert.True(t, region != nil)
	assert.Equal(t, "r-xp", region.Perms)

	assert.True(t, FindRegion(0x10, mm) == nil)
	assert.True(t, FindRegion(0x142000000, mm) == nil)

	base, ok := ImageBase("/games/ffxiv/ffxiv_dx11.exe", mm)
	assert.True(t, ok)
	assert.Equal(t, uint64(0x140000000), base)

	_, ok = ImageBase("/nope", mm)
	assert.False(t, ok)
}

func TestPerms(t *testing.T) {
	l := NewLinuxMemoryMap()
	assert.True(t, l.IsReadablePerms("r-xp"))
	assert.False(t, l.IsWritablePerms("r-xp"))
	assert.True(t, l.IsExecutablePerms("r-xp"))
	assert.False(t, l.IsReadablePerms(""))
}

// under Wine the process image is the preloader; the game exe is mapped later
const wineMaps = `7d0000000000-7d0000001000 r--p 00000000 08:01 11   /usr/bin/wine64-preloader
7d0000001000-7d0000002000 r-xp 00001000 08:01 11   /usr/bin/wine64-preloader
140001000-142000000 r-xp 00001000 08:01 4242       /home/user/.wine/drive_c/ffxiv/game/ffxiv_dx11.exe
140000000-140001000 r--p 00000000 08:01 4242       /home/user/.wine/drive_c/ffxiv/game/ffxiv_dx11.exe
7f0000000000-7f0000021000 rw-p 00000000 00:00 0
`

func TestImageBaseFunc(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(wineMaps))
	assert.NoError(t, err)

	_, ok := ImageBase("/usr/bin/wine64", mm)
	assert.False(t, ok)

	base, ok := ImageBaseFunc(func(path string) bool {
		return filepath.Base(path) == "ffxiv_dx11.exe"
	}, mm)
	assert.True(t, ok)
	assert.Equal(t, uint64(0x140000000), base)

	// anonymous mappings never match
	_, ok = ImageBaseFunc(func(string) bool { return true }, mm[4:])
	assert.False(t, ok)
}

func TestReadMemoryMap(t *testing.T) {
	root := t.TempDir()
	assert.NoError(t, os.MkdirAll(filepath.Join(root, "4242"), 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(root, "4242", "maps"), []byte(sampleMaps), 0o644))

	l := &LinuxMemoryMap{Root: root}
	mm, err := l.ReadMemoryMap(4242)
	assert.NoError(t, err)
	assert.Equal(t, 5, len(mm))

	_, err = l.ReadMemoryMap(1)
	assert.True(t, os.IsNotExist(err))
}
