// Package directory implements the fixed-capacity directory table: a flat
// array of named entries, each either a file or a sub-directory, stored as
// the data of an ordinary file.
package directory

import (
	"fmt"
	"io"

	"github.com/tchajed/marshal"

	"github.com/csc-os/tinyfs/common"
)

// NameLen is the fixed width, in bytes, of a directory entry's name field.
const NameLen = 32

// entrySize is the on-disk width of one directory entry: an 8-byte InUse
// flag, an 8-byte IsDirectory flag, an 8-byte HeaderSector, and NameLen
// bytes of Name. InUse and IsDirectory are stored as full marshal ints
// rather than packed bits, matching the width marshal.PutInt/GetInt
// operate on.
const entrySize = 8 + 8 + 8 + NameLen

// ByteSize is the total on-disk size of a directory's entry table.
const ByteSize = entrySize * common.NumDirEntries

// Entry is one slot of a directory's entry table.
type Entry struct {
	InUse        bool
	IsDirectory  bool
	Name         string
	HeaderSector common.Sector
}

// Directory is the in-memory form of a directory's entry table.
type Directory struct {
	entries [common.NumDirEntries]Entry
}

// New returns an empty directory with every slot free.
func New() *Directory {
	return &Directory{}
}

// Find returns the header sector of the in-use entry named name.
func (d *Directory) Find(name string) (common.Sector, bool) {
	for i := range d.entries {
		e := &d.entries[i]
		if e.InUse && e.Name == name {
			return e.HeaderSector, true
		}
	}
	return 0, false
}

// FindIndex returns the table index of the in-use entry named name.
func (d *Directory) FindIndex(name string) (int, bool) {
	for i := range d.entries {
		e := &d.entries[i]
		if e.InUse && e.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Add installs a new entry in the first free slot. It fails if name is
// already present, if name is longer than NameLen, or if no slot is free.
func (d *Directory) Add(name string, sector common.Sector, isDirectory bool) bool {
	if len(name) > NameLen {
		return false
	}
	if _, exists := d.Find(name); exists {
		return false
	}
	for i := range d.entries {
		if !d.entries[i].InUse {
			d.entries[i] = Entry{
				InUse:        true,
				IsDirectory:  isDirectory,
				Name:         name,
				HeaderSector: sector,
			}
			return true
		}
	}
	return false
}

// Remove marks the entry named name as free, without compacting the table.
func (d *Directory) Remove(name string) bool {
	idx, ok := d.FindIndex(name)
	if !ok {
		return false
	}
	d.entries[idx] = Entry{}
	return true
}

// EntryNamed returns the full entry named name, for callers (such as
// Remove) that need to know IsDirectory as well as HeaderSector.
func (d *Directory) EntryNamed(name string) (Entry, bool) {
	for i := range d.entries {
		e := &d.entries[i]
		if e.InUse && e.Name == name {
			return *e, true
		}
	}
	return Entry{}, false
}

// List returns the names of every in-use entry, in table order.
func (d *Directory) List() []string {
	var names []string
	for _, e := range d.entries {
		if e.InUse {
			names = append(names, e.Name)
		}
	}
	return names
}

// Entries returns every in-use entry, in table order. Callers use this to
// walk a sub-tree (checking IsDirectory) without poking at internal state.
func (d *Directory) Entries() []Entry {
	var out []Entry
	for _, e := range d.entries {
		if e.InUse {
			out = append(out, e)
		}
	}
	return out
}

// Encode returns the exact byte image of the entry table.
func (d *Directory) Encode() []byte {
	enc := marshal.NewEnc(ByteSize)
	for _, e := range d.entries {
		if e.InUse {
			enc.PutInt(1)
		} else {
			enc.PutInt(0)
		}
		if e.IsDirectory {
			enc.PutInt(1)
		} else {
			enc.PutInt(0)
		}
		enc.PutInt(uint64(e.HeaderSector))
		nameBytes := make([]byte, NameLen)
		copy(nameBytes, e.Name)
		enc.PutBytes(nameBytes)
	}
	return enc.Finish()
}

// Decode parses a byte image produced by Encode.
func Decode(data []byte) (*Directory, error) {
	if uint64(len(data)) < ByteSize {
		return nil, fmt.Errorf("directory: need %d bytes, got %d", ByteSize, len(data))
	}
	dec := marshal.NewDec(data)
	d := &Directory{}
	for i := range d.entries {
		inUse := dec.GetInt() != 0
		isDir := dec.GetInt() != 0
		sector := dec.GetInt()
		nameBytes := dec.GetBytes(NameLen)
		d.entries[i] = Entry{
			InUse:        inUse,
			IsDirectory:  isDir,
			Name:         trimName(nameBytes),
			HeaderSector: sector,
		}
	}
	return d, nil
}

func trimName(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// FetchFrom replaces the directory's contents by reading its byte image
// from r.
func (d *Directory) FetchFrom(r io.Reader) error {
	buf := make([]byte, ByteSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("directory: fetch: %w", err)
	}
	decoded, err := Decode(buf)
	if err != nil {
		return err
	}
	*d = *decoded
	return nil
}

// WriteBack writes the directory's byte image to w.
func (d *Directory) WriteBack(w io.Writer) error {
	if _, err := w.Write(d.Encode()); err != nil {
		return fmt.Errorf("directory: write back: %w", err)
	}
	return nil
}
