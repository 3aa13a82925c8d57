package disk

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/csc-os/tinyfs/common"
)

var _ Disk = (*FileDisk)(nil)

// FileDisk is a Disk backed by a single regular file, read and written at a
// sector-aligned offset with positioned I/O so the file system survives a
// process restart.
type FileDisk struct {
	fd         int
	numSectors uint64
}

// NewFileDisk opens (creating if necessary) the file at path and presents
// it as a disk of numSectors sectors, truncating or extending the file to
// exactly that size.
func NewFileDisk(path string, numSectors uint64) (*FileDisk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	size := int64(numSectors * common.SectorSize)
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("disk: stat %s: %w", path, err)
	}
	if stat.Size != size {
		if err := unix.Ftruncate(fd, size); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("disk: truncate %s: %w", path, err)
		}
	}
	return &FileDisk{fd: fd, numSectors: numSectors}, nil
}

func (d *FileDisk) ReadSector(n common.Sector) (Sector, error) {
	if n >= d.numSectors {
		return nil, fmt.Errorf("disk: out-of-bounds read at sector %d", n)
	}
	buf := make([]byte, common.SectorSize)
	if _, err := unix.Pread(d.fd, buf, int64(n*common.SectorSize)); err != nil {
		return nil, fmt.Errorf("disk: read sector %d: %w", n, err)
	}
	return buf, nil
}

func (d *FileDisk) WriteSector(n common.Sector, v Sector) error {
	if uint64(len(v)) != common.SectorSize {
		return fmt.Errorf("disk: sector buffer is %d bytes, want %d", len(v), common.SectorSize)
	}
	if n >= d.numSectors {
		return fmt.Errorf("disk: out-of-bounds write at sector %d", n)
	}
	if _, err := unix.Pwrite(d.fd, v, int64(n*common.SectorSize)); err != nil {
		return fmt.Errorf("disk: write sector %d: %w", n, err)
	}
	return nil
}

func (d *FileDisk) NumSectors() uint64 {
	return d.numSectors
}

func (d *FileDisk) Close() error {
	return unix.Close(d.fd)
}
