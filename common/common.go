// Package common holds the disk geometry constants and small integer types
// shared by every layer of the file system: the sector size, the derived
// capacity of a file header's sector array, and the well-known sectors that
// anchor the free-map and the root directory.
package common

// SectorSize is the size in bytes of a single disk sector. It is also the
// unit in which file headers, directory blocks, and bitmap chunks are
// stored: each of those structures occupies a whole number of sectors.
const SectorSize uint64 = 512

// intSize is the on-disk width of every fixed-size integer field in a
// header (NumBytes, NumSectors, Level, and each entry of DataSectors). It
// matches the width marshal.PutInt/GetInt operate on.
const intSize uint64 = 8

// headerMetaFields is the count of fixed-size integer fields that precede
// DataSectors in a file header.
const headerMetaFields = 3

// NumDirect is the number of sector pointers a single header can hold after
// its fixed fields. It bounds both the size of a level-1 file
// (NumDirect*SectorSize bytes) and the number of level-1 headers a level-0
// header can reference.
const NumDirect = (SectorSize - headerMetaFields*intSize) / intSize

// NumDirEntries is the fixed capacity of a directory, in entries.
const NumDirEntries = 64

// MaxFileBytes is the largest file size representable by a two-level
// indirect header.
const MaxFileBytes = NumDirect * NumDirect * SectorSize

// FreeMapSector and RootDirSector are the two sectors whose contents are
// fixed by convention so the file system can find its own metadata on
// startup without reading anything else first.
const (
	FreeMapSector Sector = 0
	RootDirSector Sector = 1
)

// Sector identifies a sector on disk by index.
type Sector = uint64

// HeaderLevel distinguishes a top (indirect) header from a leaf header.
type HeaderLevel uint64

const (
	// LevelLeaf headers point directly at data sectors.
	LevelLeaf HeaderLevel = 1
	// LevelIndirect headers point at LevelLeaf headers.
	LevelIndirect HeaderLevel = 0
)
