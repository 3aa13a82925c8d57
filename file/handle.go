// Package file implements the open file handle: a byte-oriented
// read/write interface over a file header's sector list, with a per-handle
// seek position. It has no reference counting — one handle per open call,
// released by the caller when done.
package file

import (
	"fmt"

	"github.com/csc-os/tinyfs/common"
	"github.com/csc-os/tinyfs/disk"
	"github.com/csc-os/tinyfs/header"
)

// Handle is an open file: a header loaded into memory, the disk it reads
// and writes sectors against, and a current byte position.
type Handle struct {
	d            disk.Disk
	hdr          *header.Header
	headerSector common.Sector
	pos          uint64
}

// Open loads the header at headerSector from d and returns a handle
// positioned at offset 0.
func Open(d disk.Disk, headerSector common.Sector) (*Handle, error) {
	h, err := header.FetchFrom(d, headerSector)
	if err != nil {
		return nil, fmt.Errorf("file: open sector %d: %w", headerSector, err)
	}
	return &Handle{d: d, hdr: h, headerSector: headerSector}, nil
}

// HeaderSector reports the sector holding this handle's header.
func (f *Handle) HeaderSector() common.Sector {
	return f.headerSector
}

// Size reports the file's logical size in bytes, as recorded in its
// header at creation time.
func (f *Handle) Size() uint64 {
	return f.hdr.NumBytes
}

// Seek moves the handle's byte position to pos. Unlike io.Seeker, pos is
// always absolute from the start of the file; files here never grow, so
// there is no "end" to seek relative to that isn't already known.
func (f *Handle) Seek(pos uint64) {
	f.pos = pos
}

// Read copies up to len(p) bytes starting at the current position into p
// and advances the position by the amount read. It returns fewer bytes
// than len(p) (possibly zero) at end of file, with a nil error — matching
// io.Reader's EOF-via-short-read convention for a file that can never be
// appended to.
func (f *Handle) Read(p []byte) (int, error) {
	if f.pos >= f.hdr.NumBytes {
		return 0, nil
	}
	avail := f.hdr.NumBytes - f.pos
	n := uint64(len(p))
	if n > avail {
		n = avail
	}
	var done uint64
	for done < n {
		sector, err := f.hdr.ByteToSector(f.d, f.pos+done)
		if err != nil {
			return int(done), fmt.Errorf("file: read: %w", err)
		}
		buf, err := f.d.ReadSector(sector)
		if err != nil {
			return int(done), fmt.Errorf("file: read: %w", err)
		}
		offInSector := (f.pos + done) % common.SectorSize
		chunk := common.SectorSize - offInSector
		if chunk > n-done {
			chunk = n - done
		}
		copy(p[done:done+chunk], buf[offInSector:offInSector+chunk])
		done += chunk
	}
	f.pos += done
	return int(done), nil
}

// Write copies up to len(p) bytes from p to the current position,
// preserving the untouched portion of any sector it only partially
// overwrites, and advances the position by the amount written. Writes
// past the end of the file are truncated to the remaining capacity
// (NumBytes - position) rather than extending or rejected outright.
func (f *Handle) Write(p []byte) (int, error) {
	if f.pos >= f.hdr.NumBytes {
		return 0, nil
	}
	avail := f.hdr.NumBytes - f.pos
	n := uint64(len(p))
	if n > avail {
		n = avail
	}
	var done uint64
	for done < n {
		sector, err := f.hdr.ByteToSector(f.d, f.pos+done)
		if err != nil {
			return int(done), fmt.Errorf("file: write: %w", err)
		}
		buf, err := f.d.ReadSector(sector)
		if err != nil {
			return int(done), fmt.Errorf("file: write: %w", err)
		}
		offInSector := (f.pos + done) % common.SectorSize
		chunk := common.SectorSize - offInSector
		if chunk > n-done {
			chunk = n - done
		}
		copy(buf[offInSector:offInSector+chunk], p[done:done+chunk])
		if err := f.d.WriteSector(sector, buf); err != nil {
			return int(done), fmt.Errorf("file: write: %w", err)
		}
		done += chunk
	}
	f.pos += done
	return int(done), nil
}
