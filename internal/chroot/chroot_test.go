package chroot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChroot(t *testing.T) *Chroot {
	t.Helper()
	root := t.TempDir()
	c, err := New(root)
	require.NoError(t, err)
	return c
}

func TestSafePathJoinRejectsTraversal(t *testing.T) {
	c := &Chroot{Root: "/tmp/R"}
	got := c.SafePathJoin("../../etc", "/passwd")
	assert.Equal(t, "/tmp/R/etc/passwd", got)
}

func TestSafePathJoinCollapsesDuplicateSeparators(t *testing.T) {
	c := &Chroot{Root: "/tmp/R"}
	got := c.SafePathJoin("a//b///c", "")
	assert.Equal(t, "/tmp/R/a/b/c", got)
}

func TestSafePathJoinAlreadyRooted(t *testing.T) {
	c := &Chroot{Root: "/tmp/R"}
	got := c.SafePathJoin("/tmp/R/sub", "file.txt")
	assert.Equal(t, "/tmp/R/sub/file.txt", got)
}

func TestCreateFileRefusesOverwrite(t *testing.T) {
	c := newTestChroot(t)
	require.NoError(t, c.CreateFile("a.txt", []byte("one")))
	err := c.CreateFile("a.txt", []byte("two"))
	assert.Error(t, err)

	got, err := os.ReadFile(filepath.Join(c.Root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))
}

func TestCarveFileWritesSlice(t *testing.T) {
	c := newTestChroot(t)
	require.NoError(t, c.CarveFile("carved.txt", []byte("foobarJUNK"), 0, 6))

	got, err := os.ReadFile(filepath.Join(c.Root, "carved.txt"))
	require.NoError(t, err)
	assert.Equal(t, "foobar", string(got))
}

func TestCarveFileRejectsOutOfRange(t *testing.T) {
	c := newTestChroot(t)
	err := c.CarveFile("bad.txt", []byte("short"), 2, 10)
	assert.Error(t, err)
}

func TestAppendToFileCreatesThenAppends(t *testing.T) {
	c := newTestChroot(t)
	require.NoError(t, c.AppendToFile("log.txt", []byte("a")))
	require.NoError(t, c.AppendToFile("log.txt", []byte("b")))

	got, err := os.ReadFile(filepath.Join(c.Root, "log.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ab", string(got))
}

func TestAppendToFileRefusesSymlink(t *testing.T) {
	c := newTestChroot(t)
	require.NoError(t, c.CreateFile("real.txt", []byte("x")))
	require.NoError(t, c.CreateSymlink("link.txt", "real.txt"))

	err := c.AppendToFile("link.txt", []byte("y"))
	assert.Error(t, err)
}

func TestCreateDirectoryRecursive(t *testing.T) {
	c := newTestChroot(t)
	require.NoError(t, c.CreateDirectory("a/b/c"))

	info, err := os.Stat(filepath.Join(c.Root, "a", "b", "c"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMakeExecutableSetsBit(t *testing.T) {
	c := newTestChroot(t)
	require.NoError(t, c.CreateFile("run.sh", []byte("#!/bin/sh")))
	require.NoError(t, c.MakeExecutable("run.sh"))

	info, err := os.Stat(filepath.Join(c.Root, "run.sh"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111)
}

func TestCreateSymlinkStaysConfined(t *testing.T) {
	c := newTestChroot(t)
	require.NoError(t, c.CreateDirectory("bin"))
	require.NoError(t, c.CreateFile("bin/busybox", []byte("x")))

	require.NoError(t, c.CreateSymlink("link", "/bin/busybox"))

	resolved, err := filepath.EvalSymlinks(filepath.Join(c.Root, "link"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.Root, "bin", "busybox"), resolved)
}

func TestDeviceMarkersWriteDescriptiveText(t *testing.T) {
	c := newTestChroot(t)
	require.NoError(t, c.CreateCharacterDevice("chardev", 1, 2))
	require.NoError(t, c.CreateBlockDevice("blockdev", 3, 4))
	require.NoError(t, c.CreateFifo("fifo"))
	require.NoError(t, c.CreateSocket("sock"))

	char, err := os.ReadFile(filepath.Join(c.Root, "chardev"))
	require.NoError(t, err)
	assert.Equal(t, "c 1 2", string(char))

	block, err := os.ReadFile(filepath.Join(c.Root, "blockdev"))
	require.NoError(t, err)
	assert.Equal(t, "b 3 4", string(block))

	fifo, err := os.ReadFile(filepath.Join(c.Root, "fifo"))
	require.NoError(t, err)
	assert.Equal(t, "fifo", string(fifo))

	sock, err := os.ReadFile(filepath.Join(c.Root, "sock"))
	require.NoError(t, err)
	assert.Equal(t, "socket", string(sock))
}
