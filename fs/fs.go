// Package fs is the file-system facade: formatting, create/open/remove/list
// over a hierarchical directory tree, and the small integer descriptor
// table user-facing callers address open files by. It ties together the
// bitmap, header, directory, and file packages, loading the free-map fresh
// from disk at the start of every mutation and writing it back last, so a
// failure partway through never leaves a stale in-memory bitmap.
package fs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/csc-os/tinyfs/bitmap"
	"github.com/csc-os/tinyfs/common"
	"github.com/csc-os/tinyfs/directory"
	"github.com/csc-os/tinyfs/disk"
	"github.com/csc-os/tinyfs/ferrors"
	"github.com/csc-os/tinyfs/file"
	"github.com/csc-os/tinyfs/header"
	"github.com/csc-os/tinyfs/util"
)

// numDescriptors is the size of the descriptor table, including the
// always-empty slot 0.
const numDescriptors = 20

// FileSystem is the facade over a single disk. It assumes exactly one
// request is in flight at a time; the embedded mutex only serializes
// callers across goroutines, it does not add any new concurrency
// semantics to the algorithms below.
type FileSystem struct {
	mu sync.Mutex

	d           disk.Disk
	freeMapFile *file.Handle
	rootDirFile *file.Handle

	descriptors [numDescriptors]*file.Handle
}

// New mounts a file system on d. If format is true, the disk is treated as
// entirely unformatted: it is reinitialized with an empty root directory
// and a free-map with only the two reserved sectors allocated. If format
// is false, d is assumed to already hold a valid free-map and root
// directory at their well-known sectors.
func New(d disk.Disk, format bool) (*FileSystem, error) {
	if format {
		if err := doFormat(d); err != nil {
			return nil, fmt.Errorf("fs: format: %w", err)
		}
	}
	freeMapFile, err := file.Open(d, common.FreeMapSector)
	if err != nil {
		return nil, fmt.Errorf("fs: open free-map file: %w", err)
	}
	rootDirFile, err := file.Open(d, common.RootDirSector)
	if err != nil {
		return nil, fmt.Errorf("fs: open root directory file: %w", err)
	}
	return &FileSystem{
		d:           d,
		freeMapFile: freeMapFile,
		rootDirFile: rootDirFile,
	}, nil
}

func doFormat(d disk.Disk) error {
	util.DPrintf(0, "fs: formatting %d sectors\n", d.NumSectors())

	freeMap := bitmap.New(d.NumSectors())
	freeMap.Mark(common.FreeMapSector)
	freeMap.Mark(common.RootDirSector)

	mapHdr := header.New(common.LevelLeaf)
	dirHdr := header.New(common.LevelLeaf)

	if !mapHdr.Allocate(freeMap, bitmap.ByteLen(d.NumSectors())) {
		return ferrors.ErrNoSpace
	}
	if !dirHdr.Allocate(freeMap, directory.ByteSize) {
		return ferrors.ErrNoSpace
	}

	if err := mapHdr.WriteBack(d, common.FreeMapSector); err != nil {
		return err
	}
	if err := dirHdr.WriteBack(d, common.RootDirSector); err != nil {
		return err
	}

	freeMapFile, err := file.Open(d, common.FreeMapSector)
	if err != nil {
		return err
	}
	rootDirFile, err := file.Open(d, common.RootDirSector)
	if err != nil {
		return err
	}

	if err := directory.New().WriteBack(rootDirFile); err != nil {
		return err
	}
	if err := freeMap.WriteBack(freeMapFile); err != nil {
		return err
	}
	return nil
}

// Close releases the underlying disk.
func (fs *FileSystem) Close() error {
	return fs.d.Close()
}

// loadFreeMap reloads the free-map from its well-known file. It is called
// at the start of every mutation, never cached, so a mutation that fails
// partway through only ever discards an in-memory copy: nothing stale
// survives to the next call.
func (fs *FileSystem) loadFreeMap() (*bitmap.Bitmap, error) {
	fs.freeMapFile.Seek(0)
	freeMap := bitmap.New(fs.d.NumSectors())
	if err := freeMap.FetchFrom(fs.freeMapFile); err != nil {
		return nil, fmt.Errorf("fs: load free-map: %w", err)
	}
	return freeMap, nil
}

func (fs *FileSystem) writeFreeMap(freeMap *bitmap.Bitmap) error {
	fs.freeMapFile.Seek(0)
	return freeMap.WriteBack(fs.freeMapFile)
}

// dirFileAt returns a handle on the directory file stored at sector. The
// root directory's handle is the one held open for the file system's
// lifetime; any other directory is opened fresh.
func (fs *FileSystem) dirFileAt(sector common.Sector) (*file.Handle, error) {
	if sector == common.RootDirSector {
		return fs.rootDirFile, nil
	}
	return file.Open(fs.d, sector)
}

// openDir walks path from the root and returns the header sector of the
// directory it names. An empty path or "/" resolves to the root.
func (fs *FileSystem) openDir(path string) (common.Sector, bool) {
	fs.rootDirFile.Seek(0)
	dir := directory.New()
	if err := dir.FetchFrom(fs.rootDirFile); err != nil {
		return 0, false
	}
	sector := common.Sector(common.RootDirSector)
	for _, seg := range segments(path) {
		next, ok := dir.Find(seg)
		if !ok {
			return 0, false
		}
		sector = next
		f, err := file.Open(fs.d, sector)
		if err != nil {
			return 0, false
		}
		if err := dir.FetchFrom(f); err != nil {
			return 0, false
		}
	}
	return sector, true
}

// loadDir fetches the directory stored at sector, along with the handle it
// was read through (the caller writes the directory back through the same
// handle after mutating it).
func (fs *FileSystem) loadDir(sector common.Sector) (*directory.Directory, *file.Handle, error) {
	f, err := fs.dirFileAt(sector)
	if err != nil {
		return nil, nil, err
	}
	f.Seek(0)
	dir := directory.New()
	if err := dir.FetchFrom(f); err != nil {
		return nil, nil, err
	}
	return dir, f, nil
}

// Create adds a new, fixed-size file at path. Its contents are initially
// whatever is left over from a previous tenant of the data sectors it is
// allocated; the original Nachos behaved the same way, and this file
// system is not in the business of zeroing freed sectors on reuse.
func (fs *FileSystem) Create(path string, initialSize uint64) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.create(path, initialSize)
}

func (fs *FileSystem) create(path string, initialSize uint64) (bool, error) {
	if initialSize > common.MaxFileBytes {
		return false, ferrors.ErrNoSpace
	}

	parentPath, leaf := SplitPath(path)
	parentSector, ok := fs.openDir(parentPath)
	if !ok {
		return false, ferrors.ErrNotFound
	}
	dir, dirFile, err := fs.loadDir(parentSector)
	if err != nil {
		return false, err
	}
	if _, exists := dir.Find(leaf); exists {
		return false, ferrors.ErrExists
	}

	freeMap, err := fs.loadFreeMap()
	if err != nil {
		return false, err
	}

	numLevel1 := util.RoundUp(initialSize, common.NumDirect*common.SectorSize)

	topSector, ok := freeMap.FindAndSet()
	if !ok {
		return false, ferrors.ErrNoSpace
	}
	level1Sectors := make([]common.Sector, 0, numLevel1)
	for uint64(len(level1Sectors)) < numLevel1 {
		s, ok := freeMap.FindAndSet()
		if !ok {
			return false, ferrors.ErrNoSpace
		}
		level1Sectors = append(level1Sectors, s)
	}

	if !dir.Add(leaf, topSector, false) {
		return false, ferrors.ErrDirFull
	}

	topHdr := header.New(common.LevelIndirect)
	topHdr.NumBytes = initialSize
	topHdr.NumSectors = numLevel1
	copy(topHdr.DataSectors[:], level1Sectors)

	level1Hdrs := make([]*header.Header, numLevel1)
	remaining := initialSize
	for i := uint64(0); i < numLevel1; i++ {
		toRequest := util.Min(remaining, common.NumDirect*common.SectorSize)
		remaining -= toRequest
		lh := header.New(common.LevelLeaf)
		if !lh.Allocate(freeMap, toRequest) {
			return false, ferrors.ErrNoSpace
		}
		level1Hdrs[i] = lh
	}

	if err := topHdr.WriteBack(fs.d, topSector); err != nil {
		return false, err
	}
	for i, lh := range level1Hdrs {
		if err := lh.WriteBack(fs.d, level1Sectors[i]); err != nil {
			return false, err
		}
	}
	dirFile.Seek(0)
	if err := dir.WriteBack(dirFile); err != nil {
		return false, err
	}
	if err := fs.writeFreeMap(freeMap); err != nil {
		return false, err
	}
	util.DPrintf(1, "fs: created %s size %d sector %d\n", path, initialSize, topSector)
	return true, nil
}

// CreateDirectory adds a new, empty sub-directory named name inside the
// directory at parentPath.
func (fs *FileSystem) CreateDirectory(name, parentPath string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.createDirectory(name, parentPath)
}

func (fs *FileSystem) createDirectory(name, parentPath string) (bool, error) {
	parentSector, ok := fs.openDir(parentPath)
	if !ok {
		return false, ferrors.ErrNotFound
	}
	dir, dirFile, err := fs.loadDir(parentSector)
	if err != nil {
		return false, err
	}
	if _, exists := dir.Find(name); exists {
		return false, ferrors.ErrExists
	}

	freeMap, err := fs.loadFreeMap()
	if err != nil {
		return false, err
	}

	sector, ok := freeMap.FindAndSet()
	if !ok {
		return false, ferrors.ErrNoSpace
	}
	if !dir.Add(name, sector, true) {
		return false, ferrors.ErrDirFull
	}

	dirHdr := header.New(common.LevelLeaf)
	if !dirHdr.Allocate(freeMap, directory.ByteSize) {
		return false, ferrors.ErrNoSpace
	}

	if err := dirHdr.WriteBack(fs.d, sector); err != nil {
		return false, err
	}
	dirFile.Seek(0)
	if err := dir.WriteBack(dirFile); err != nil {
		return false, err
	}
	if err := fs.writeFreeMap(freeMap); err != nil {
		return false, err
	}

	newDirFile, err := file.Open(fs.d, sector)
	if err != nil {
		return false, err
	}
	if err := directory.New().WriteBack(newDirFile); err != nil {
		return false, err
	}
	util.DPrintf(1, "fs: created directory %s in %s sector %d\n", name, parentPath, sector)
	return true, nil
}

// Open resolves path and returns a handle on the file it names.
func (fs *FileSystem) Open(path string) (*file.Handle, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.open(path)
}

func (fs *FileSystem) open(path string) (*file.Handle, error) {
	parentPath, leaf := SplitPath(path)
	parentSector, ok := fs.openDir(parentPath)
	if !ok {
		return nil, ferrors.ErrNotFound
	}
	dir, _, err := fs.loadDir(parentSector)
	if err != nil {
		return nil, err
	}
	sector, ok := dir.Find(leaf)
	if !ok {
		return nil, ferrors.ErrNotFound
	}
	return file.Open(fs.d, sector)
}

// Remove deletes the file or directory at path. Removing a non-empty
// directory fails unless recursive is true, in which case the entire
// sub-tree is removed depth-first.
//
// The free-map is loaded once here and threaded through every recursive
// call below rather than reloaded per directory level: a sub-tree removal
// frees sectors at every depth, and keeping the single copy every level
// clears bits in is what keeps an outer directory's removal from
// clobbering the frees its own children already made. Each level writes
// that copy back before it writes its parent directory, and Remove writes
// it once more when the whole removal has succeeded.
func (fs *FileSystem) Remove(path string, recursive bool) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	freeMap, err := fs.loadFreeMap()
	if err != nil {
		return false, err
	}
	ok, err := fs.remove(path, recursive, freeMap)
	if err != nil {
		return false, err
	}
	if err := fs.writeFreeMap(freeMap); err != nil {
		return false, err
	}
	return ok, nil
}

func (fs *FileSystem) remove(path string, recursive bool, freeMap *bitmap.Bitmap) (bool, error) {
	parentPath, leaf := SplitPath(path)
	parentSector, ok := fs.openDir(parentPath)
	if !ok {
		return false, ferrors.ErrNotFound
	}
	dir, dirFile, err := fs.loadDir(parentSector)
	if err != nil {
		return false, err
	}
	entry, ok := dir.EntryNamed(leaf)
	if !ok {
		return false, ferrors.ErrNotFound
	}
	sector := entry.HeaderSector

	fileHdr, err := header.FetchFrom(fs.d, sector)
	if err != nil {
		return false, err
	}

	if entry.IsDirectory {
		subDirFile, err := file.Open(fs.d, sector)
		if err != nil {
			return false, err
		}
		subDir := directory.New()
		if err := subDir.FetchFrom(subDirFile); err != nil {
			return false, err
		}
		children := subDir.Entries()
		if len(children) != 0 && !recursive {
			return false, ferrors.ErrNotEmpty
		}
		for _, child := range children {
			if _, err := fs.remove(JoinPath(path, child.Name), recursive, freeMap); err != nil {
				return false, err
			}
		}
	}

	if fileHdr.Level == common.LevelIndirect {
		for i := uint64(0); i < fileHdr.NumSectors; i++ {
			childHdr, err := header.FetchFrom(fs.d, fileHdr.DataSectors[i])
			if err != nil {
				return false, err
			}
			childHdr.Deallocate(freeMap)
		}
	}
	fileHdr.Deallocate(freeMap)
	freeMap.Clear(sector)
	dir.Remove(leaf)

	if err := fs.writeFreeMap(freeMap); err != nil {
		return false, err
	}
	dirFile.Seek(0)
	if err := dir.WriteBack(dirFile); err != nil {
		return false, err
	}
	util.DPrintf(1, "fs: removed %s\n", path)
	return true, nil
}

// List returns the names of the in-use entries in the directory at path,
// in directory-table order. It returns nil, nil if path does not resolve,
// matching the original's silent no-op.
func (fs *FileSystem) List(path string) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	sector, ok := fs.openDir(path)
	if !ok {
		return nil, nil
	}
	dir, _, err := fs.loadDir(sector)
	if err != nil {
		return nil, err
	}
	names := dir.List()
	for _, name := range names {
		util.DPrintf(2, "fs: list %s: %s\n", path, name)
	}
	return names, nil
}

// RecursiveList renders the sub-tree rooted at path as a box-drawn tree,
// in the style of Nachos's FileSystem::List(recursive).
func (fs *FileSystem) RecursiveList(path string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	sector, ok := fs.openDir(path)
	if !ok {
		return "", nil
	}
	var b strings.Builder
	if err := fs.renderTree(&b, sector, ""); err != nil {
		return "", err
	}
	out := b.String()
	util.DPrintf(2, "fs: recursive list %s:\n%s", path, out)
	return out, nil
}

func (fs *FileSystem) renderTree(b *strings.Builder, sector common.Sector, prefix string) error {
	dir, _, err := fs.loadDir(sector)
	if err != nil {
		return err
	}
	entries := dir.Entries()
	for i, e := range entries {
		last := i == len(entries)-1
		branch := "├── "
		nextPrefix := prefix + "│   "
		if last {
			branch = "└── "
			nextPrefix = prefix + "    "
		}
		b.WriteString(prefix)
		b.WriteString(branch)
		b.WriteString(e.Name)
		if e.IsDirectory {
			b.WriteByte('/')
		}
		b.WriteByte('\n')
		if e.IsDirectory {
			if err := fs.renderTree(b, e.HeaderSector, nextPrefix); err != nil {
				return err
			}
		}
	}
	return nil
}
