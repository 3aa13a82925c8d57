// Package header implements the file header: a single sector of metadata
// that maps a file's logical byte offset to the disk sectors holding its
// data, with one level of indirection available for files too large to
// address directly.
package header

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/csc-os/tinyfs/bitmap"
	"github.com/csc-os/tinyfs/common"
	"github.com/csc-os/tinyfs/disk"
)

// Header is the in-memory form of a file header. It occupies exactly one
// sector on disk.
type Header struct {
	NumBytes    uint64
	NumSectors  uint64
	Level       common.HeaderLevel
	DataSectors [common.NumDirect]common.Sector
}

// New returns an empty header at the given indirection level.
func New(level common.HeaderLevel) *Header {
	return &Header{Level: level}
}

// Allocate reserves sectors from freeMap to hold sizeBytes of data and
// records them in DataSectors. It is only meaningful for a leaf
// (common.LevelLeaf) header: a level-0 header's DataSectors hold header
// sectors, allocated one at a time by the caller via FindAndSet, not by
// this method.
//
// On failure, freeMap is left exactly as it was handed in from the
// caller's point of view: every sector this call itself reserved is freed
// before returning, so a caller that discards its in-memory freeMap on
// failure (as the facade does) never leaks an allocation it didn't ask
// for into a bitmap it goes on to use.
func (h *Header) Allocate(freeMap *bitmap.Bitmap, sizeBytes uint64) bool {
	if h.Level != common.LevelLeaf {
		panic("header: Allocate called on a non-leaf header")
	}
	n := (sizeBytes + common.SectorSize - 1) / common.SectorSize
	if n > common.NumDirect {
		return false
	}
	if freeMap.NumClear() < n {
		return false
	}
	reserved := make([]common.Sector, 0, n)
	for uint64(len(reserved)) < n {
		s, ok := freeMap.FindAndSet()
		if !ok {
			for _, r := range reserved {
				freeMap.Clear(r)
			}
			return false
		}
		reserved = append(reserved, s)
	}
	copy(h.DataSectors[:], reserved)
	h.NumSectors = n
	h.NumBytes = sizeBytes
	return true
}

// Deallocate clears every sector in DataSectors[:NumSectors] from freeMap.
// It does not clear the header's own sector; the caller is responsible for
// that, since a level-0/level-1 pair must be freed in a specific order
// (children's data first, then the level-1 header sectors, which are
// exactly the level-0 header's own DataSectors).
func (h *Header) Deallocate(freeMap *bitmap.Bitmap) {
	for i := uint64(0); i < h.NumSectors; i++ {
		freeMap.Clear(h.DataSectors[i])
	}
}

// ByteToSector maps a logical byte offset to the physical sector holding
// it, reading a child level-1 header from d if this header is a level-0
// root.
func (h *Header) ByteToSector(d disk.Disk, offset uint64) (common.Sector, error) {
	if h.Level == common.LevelLeaf {
		idx := offset / common.SectorSize
		if idx >= h.NumSectors {
			return 0, fmt.Errorf("header: offset %d beyond %d allocated sectors", offset, h.NumSectors)
		}
		return h.DataSectors[idx], nil
	}
	span := common.NumDirect * common.SectorSize
	childIdx := offset / span
	if childIdx >= h.NumSectors {
		return 0, fmt.Errorf("header: offset %d beyond %d level-1 headers", offset, h.NumSectors)
	}
	child, err := FetchFrom(d, h.DataSectors[childIdx])
	if err != nil {
		return 0, err
	}
	return child.ByteToSector(d, offset%span)
}

// Encode returns the exact sector-sized byte image of h.
func (h *Header) Encode() []byte {
	enc := marshal.NewEnc(common.SectorSize)
	enc.PutInt(h.NumBytes)
	enc.PutInt(h.NumSectors)
	enc.PutInt(uint64(h.Level))
	for _, s := range h.DataSectors {
		enc.PutInt(s)
	}
	return enc.Finish()
}

// Decode parses a sector-sized byte image produced by Encode.
func Decode(data []byte) *Header {
	dec := marshal.NewDec(data)
	h := &Header{
		NumBytes:   dec.GetInt(),
		NumSectors: dec.GetInt(),
		Level:      common.HeaderLevel(dec.GetInt()),
	}
	for i := range h.DataSectors {
		h.DataSectors[i] = dec.GetInt()
	}
	return h
}

// FetchFrom reads and decodes the header stored at sector on d.
func FetchFrom(d disk.Disk, sector common.Sector) (*Header, error) {
	buf, err := d.ReadSector(sector)
	if err != nil {
		return nil, fmt.Errorf("header: fetch from sector %d: %w", sector, err)
	}
	return Decode(buf), nil
}

// WriteBack encodes h and writes it to sector on d.
func (h *Header) WriteBack(d disk.Disk, sector common.Sector) error {
	if err := d.WriteSector(sector, h.Encode()); err != nil {
		return fmt.Errorf("header: write back to sector %d: %w", sector, err)
	}
	return nil
}
