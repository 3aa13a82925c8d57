// Package disk provides the flat, fixed-geometry block device the rest of
// the file system is layered over: a fixed number of fixed-size sectors,
// read and written whole.
package disk

import (
	"fmt"
	"sync"

	"github.com/csc-os/tinyfs/common"
)

// Sector is a SectorSize-byte buffer.
type Sector = []byte

// Disk is the raw device collaborator: a flat array of sectors, addressed
// by index. Implementations need not be safe for concurrent use by
// multiple goroutines without external synchronization; the file system
// itself never issues overlapping requests.
type Disk interface {
	// ReadSector reads sector n into a freshly allocated buffer.
	ReadSector(n common.Sector) (Sector, error)

	// WriteSector writes v, which must be exactly SectorSize bytes, to
	// sector n.
	WriteSector(n common.Sector, v Sector) error

	// NumSectors reports the disk's fixed sector count.
	NumSectors() uint64

	// Close releases any resources held by the disk.
	Close() error
}

var _ Disk = (*MemDisk)(nil)

// MemDisk is an in-memory Disk, used for tests and for file systems that
// don't need to outlive the process.
type MemDisk struct {
	mu      sync.RWMutex
	sectors [][]byte
}

// NewMemDisk allocates a zeroed in-memory disk of numSectors sectors.
func NewMemDisk(numSectors uint64) *MemDisk {
	sectors := make([][]byte, numSectors)
	for i := range sectors {
		sectors[i] = make([]byte, common.SectorSize)
	}
	return &MemDisk{sectors: sectors}
}

func (d *MemDisk) ReadSector(n common.Sector) (Sector, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n >= uint64(len(d.sectors)) {
		return nil, fmt.Errorf("disk: out-of-bounds read at sector %d", n)
	}
	buf := make([]byte, common.SectorSize)
	copy(buf, d.sectors[n])
	return buf, nil
}

func (d *MemDisk) WriteSector(n common.Sector, v Sector) error {
	if uint64(len(v)) != common.SectorSize {
		return fmt.Errorf("disk: sector buffer is %d bytes, want %d", len(v), common.SectorSize)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if n >= uint64(len(d.sectors)) {
		return fmt.Errorf("disk: out-of-bounds write at sector %d", n)
	}
	copy(d.sectors[n], v)
	return nil
}

func (d *MemDisk) NumSectors() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return uint64(len(d.sectors))
}

func (d *MemDisk) Close() error { return nil }
