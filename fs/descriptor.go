package fs

import (
	"github.com/csc-os/tinyfs/ferrors"
	"github.com/csc-os/tinyfs/file"
	"github.com/csc-os/tinyfs/util"
)

// OpenFD opens the file at path and installs it in the descriptor table,
// returning its id (1..19). It returns -1 if path does not resolve or if
// the table is full.
func (fs *FileSystem) OpenFD(path string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := fs.open(path)
	if err != nil {
		return -1
	}
	for id := 1; id < numDescriptors; id++ {
		if fs.descriptors[id] == nil {
			fs.descriptors[id] = f
			return id
		}
	}
	return -1
}

// handleFor returns the open handle at id, or ferrors.ErrBadDescriptor if
// id is outside 1..19 or names a slot with nothing open in it.
func (fs *FileSystem) handleFor(id int) (*file.Handle, error) {
	if id < 1 || id >= numDescriptors || fs.descriptors[id] == nil {
		return nil, ferrors.ErrBadDescriptor
	}
	return fs.descriptors[id], nil
}

// ReadFD reads up to n bytes from descriptor id into buf, advancing its
// position. It returns -1 if id is not open.
func (fs *FileSystem) ReadFD(id int, buf []byte, n int) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := fs.handleFor(id)
	if err != nil {
		util.DPrintf(2, "fs: ReadFD %d: %v\n", id, err)
		return -1
	}
	if n > len(buf) {
		n = len(buf)
	}
	got, err := f.Read(buf[:n])
	if err != nil {
		return -1
	}
	return got
}

// WriteFD writes up to n bytes from buf to descriptor id, advancing its
// position. It returns -1 if id is not open.
func (fs *FileSystem) WriteFD(id int, buf []byte, n int) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := fs.handleFor(id)
	if err != nil {
		util.DPrintf(2, "fs: WriteFD %d: %v\n", id, err)
		return -1
	}
	if n > len(buf) {
		n = len(buf)
	}
	put, err := f.Write(buf[:n])
	if err != nil {
		return -1
	}
	return put
}

// CloseFD releases descriptor id, freeing its slot for reuse. It returns 1
// on success, 0 if id was not open.
func (fs *FileSystem) CloseFD(id int) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.handleFor(id); err != nil {
		util.DPrintf(2, "fs: CloseFD %d: %v\n", id, err)
		return 0
	}
	fs.descriptors[id] = nil
	return 1
}
