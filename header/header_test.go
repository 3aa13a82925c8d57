package header

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/csc-os/tinyfs/bitmap"
	"github.com/csc-os/tinyfs/common"
	"github.com/csc-os/tinyfs/disk"
)

func TestAllocateLeaf(t *testing.T) {
	assert := assert.New(t)
	bm := bitmap.New(64)

	h := New(common.LevelLeaf)
	ok := h.Allocate(bm, common.SectorSize*3)
	assert.True(ok)
	assert.Equal(uint64(3), h.NumSectors)
	assert.Equal(uint64(61), bm.NumClear())
}

func TestAllocateZeroBytes(t *testing.T) {
	assert := assert.New(t)
	bm := bitmap.New(64)
	h := New(common.LevelLeaf)
	assert.True(h.Allocate(bm, 0))
	assert.Equal(uint64(0), h.NumSectors)
}

func TestAllocateNoSpaceRollsBack(t *testing.T) {
	assert := assert.New(t)
	bm := bitmap.New(4)
	h := New(common.LevelLeaf)
	ok := h.Allocate(bm, common.SectorSize*10)
	assert.False(ok)
	assert.Equal(uint64(4), bm.NumClear(), "failed allocation must not strand reservations")
}

func TestDeallocateFreesSectors(t *testing.T) {
	assert := assert.New(t)
	bm := bitmap.New(64)
	h := New(common.LevelLeaf)
	assert.True(h.Allocate(bm, common.SectorSize*2))
	assert.Equal(uint64(62), bm.NumClear())

	h.Deallocate(bm)
	assert.Equal(uint64(64), bm.NumClear())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	assert := assert.New(t)
	bm := bitmap.New(64)
	h := New(common.LevelLeaf)
	assert.True(h.Allocate(bm, common.SectorSize*2))

	h2 := Decode(h.Encode())
	assert.Equal(h.NumBytes, h2.NumBytes)
	assert.Equal(h.NumSectors, h2.NumSectors)
	assert.Equal(h.Level, h2.Level)
	assert.Equal(h.DataSectors, h2.DataSectors)
}

func TestFetchFromWriteBack(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(16)
	bm := bitmap.New(64)
	h := New(common.LevelLeaf)
	assert.True(h.Allocate(bm, common.SectorSize))

	assert.NoError(h.WriteBack(d, 5))
	h2, err := FetchFrom(d, 5)
	assert.NoError(err)
	assert.Equal(h.NumBytes, h2.NumBytes)
	assert.Equal(h.DataSectors, h2.DataSectors)
}

func TestByteToSectorLeaf(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(16)
	bm := bitmap.New(64)
	h := New(common.LevelLeaf)
	assert.True(h.Allocate(bm, common.SectorSize*2))

	s0, err := h.ByteToSector(d, 0)
	assert.NoError(err)
	assert.Equal(h.DataSectors[0], s0)

	s1, err := h.ByteToSector(d, common.SectorSize)
	assert.NoError(err)
	assert.Equal(h.DataSectors[1], s1)
}

func TestByteToSectorIndirect(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(256)
	bm := bitmap.New(256)

	leaf := New(common.LevelLeaf)
	assert.True(leaf.Allocate(bm, common.SectorSize*2))
	leafSector, ok := bm.FindAndSet()
	assert.True(ok)
	assert.NoError(leaf.WriteBack(d, leafSector))

	top := New(common.LevelIndirect)
	top.NumSectors = 1
	top.DataSectors[0] = leafSector
	top.NumBytes = common.SectorSize * 2

	s, err := top.ByteToSector(d, common.SectorSize+1)
	assert.NoError(err)
	assert.Equal(leaf.DataSectors[1], s)
}
