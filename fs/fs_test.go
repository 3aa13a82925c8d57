package fs

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/csc-os/tinyfs/common"
	"github.com/csc-os/tinyfs/disk"
)

// diskSectors is sized generously enough for every scenario below,
// including the two-level-indirection test, without exhausting the
// free-map.
const diskSectors = 8192

type facadeSuite struct {
	suite.Suite
	d  *disk.MemDisk
	fs *FileSystem
}

func (s *facadeSuite) SetupTest() {
	s.d = disk.NewMemDisk(diskSectors)
	fs, err := New(s.d, true)
	s.Require().NoError(err)
	s.fs = fs
}

func TestFacadeSuite(t *testing.T) {
	suite.Run(t, new(facadeSuite))
}

func (s *facadeSuite) TestFormatStartsWithEmptyRoot() {
	names, err := s.fs.List("/")
	s.NoError(err)
	s.Empty(names)
}

func (s *facadeSuite) TestCreateThenWriteThenRead() {
	ok, err := s.fs.Create("/greeting", 13)
	s.NoError(err)
	s.True(ok)

	names, err := s.fs.List("/")
	s.NoError(err)
	s.Equal([]string{"greeting"}, names)

	f, err := s.fs.Open("/greeting")
	s.Require().NoError(err)

	n, err := f.Write([]byte("hello, world!"))
	s.NoError(err)
	s.Equal(13, n)

	f.Seek(0)
	buf := make([]byte, 13)
	n, err = f.Read(buf)
	s.NoError(err)
	s.Equal(13, n)
	s.Equal("hello, world!", string(buf))
}

func (s *facadeSuite) TestCreateDuplicateRejected() {
	ok, err := s.fs.Create("/dup", 10)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.fs.Create("/dup", 10)
	s.Error(err)
	s.False(ok)
}

func (s *facadeSuite) TestCreateAtMaxFileBytesSucceedsOneByteMoreFails() {
	ok, err := s.fs.Create("/atmax", common.MaxFileBytes)
	s.NoError(err)
	s.True(ok)

	ok, err = s.fs.Create("/overmax", common.MaxFileBytes+1)
	s.Error(err)
	s.False(ok)
}

func (s *facadeSuite) TestCreateMissingParentFails() {
	ok, err := s.fs.Create("/nowhere/file", 10)
	s.Error(err)
	s.False(ok)
}

func (s *facadeSuite) TestCreateAndRemoveFreesSpace() {
	big := common.NumDirect * common.SectorSize

	ok, err := s.fs.Create("/a", big)
	s.Require().NoError(err)
	s.Require().True(ok)

	freeMapBefore, err := s.fs.loadFreeMap()
	s.Require().NoError(err)
	clearBefore := freeMapBefore.NumClear()

	ok, err = s.fs.Remove("/a", false)
	s.Require().NoError(err)
	s.Require().True(ok)

	freeMapAfter, err := s.fs.loadFreeMap()
	s.Require().NoError(err)
	s.Greater(freeMapAfter.NumClear(), clearBefore)
}

func (s *facadeSuite) TestTwoLevelIndirectionRoundTrips() {
	size := common.NumDirect*common.SectorSize + common.SectorSize*3

	ok, err := s.fs.Create("/large", size)
	s.Require().NoError(err)
	s.Require().True(ok)

	f, err := s.fs.Open("/large")
	s.Require().NoError(err)
	s.Equal(size, f.Size())

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 256)
	}
	n, err := f.Write(data)
	s.NoError(err)
	s.Equal(int(size), n)

	f.Seek(0)
	out := make([]byte, size)
	n, err = f.Read(out)
	s.NoError(err)
	s.Equal(int(size), n)
	s.Equal(data, out)
}

func (s *facadeSuite) TestCreateDirectoryAndNestedFile() {
	ok, err := s.fs.CreateDirectory("sub", "/")
	s.Require().NoError(err)
	s.Require().True(ok)

	ok, err = s.fs.Create("/sub/leaf", 5)
	s.Require().NoError(err)
	s.Require().True(ok)

	names, err := s.fs.List("/sub")
	s.NoError(err)
	s.Equal([]string{"leaf"}, names)

	tree, err := s.fs.RecursiveList("/")
	s.NoError(err)
	s.Contains(tree, "sub/")
	s.Contains(tree, "leaf")
}

func (s *facadeSuite) TestRemoveNonEmptyDirectoryFailsWithoutRecursive() {
	freeMapBefore, err := s.fs.loadFreeMap()
	s.Require().NoError(err)
	clearBefore := freeMapBefore.NumClear()

	ok, err := s.fs.CreateDirectory("sub", "/")
	s.Require().NoError(err)
	s.Require().True(ok)
	ok, err = s.fs.Create("/sub/leaf", 5)
	s.Require().NoError(err)
	s.Require().True(ok)

	ok, err = s.fs.Remove("/sub", false)
	s.Error(err)
	s.False(ok)

	ok, err = s.fs.Remove("/sub", true)
	s.NoError(err)
	s.True(ok)

	names, err := s.fs.List("/")
	s.NoError(err)
	s.Empty(names)

	freeMapAfter, err := s.fs.loadFreeMap()
	s.Require().NoError(err)
	s.Equal(clearBefore, freeMapAfter.NumClear(), "recursive remove must reclaim every sector the sub-tree held, including the child file's")
}

func (s *facadeSuite) TestOpenMissingFails() {
	_, err := s.fs.Open("/missing")
	s.Error(err)
}

func (s *facadeSuite) TestDescriptorTableLifecycle() {
	ok, err := s.fs.Create("/fd", 10)
	s.Require().NoError(err)
	s.Require().True(ok)

	id := s.fs.OpenFD("/fd")
	s.GreaterOrEqual(id, 1)

	n := s.fs.WriteFD(id, []byte("0123456789"), 10)
	s.Equal(10, n)

	s.fs.CloseFD(id)
	reopened := s.fs.OpenFD("/fd")
	s.Equal(id, reopened, "freed slot should be reused")

	buf := make([]byte, 10)
	n = s.fs.ReadFD(reopened, buf, 10)
	s.Equal(10, n)
	s.Equal("0123456789", string(buf))

	s.Equal(-1, s.fs.OpenFD("/missing"))
	s.Equal(-1, s.fs.ReadFD(99, buf, 10))
	s.Equal(-1, s.fs.WriteFD(99, buf, 10))
	s.Equal(0, s.fs.CloseFD(99))
}

func (s *facadeSuite) TestDescriptorTableExhaustion() {
	for i := 0; i < numDescriptors-1; i++ {
		name := "/f" + string(rune('a'+i))
		ok, err := s.fs.Create(name, 1)
		s.Require().NoError(err)
		s.Require().True(ok)
		id := s.fs.OpenFD(name)
		s.Require().GreaterOrEqual(id, 1)
	}

	ok, err := s.fs.Create("/overflow", 1)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(-1, s.fs.OpenFD("/overflow"))
}
