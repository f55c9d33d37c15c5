package filesystem

import (
	"testing"
	"time"

	"github.com/desertwitch/forthos/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T) *Handler {
	t.Helper()

	f := NewHandler()
	require.NoError(t, f.CreateDirectory("/home"))
	require.NoError(t, f.CreateDirectory("/home/user"))
	require.NoError(t, f.CreateDirectory("/bin"))
	require.NoError(t, f.WriteFile("/bin/hello.py", `print("hello")`))
	require.NoError(t, f.WriteFile("/motd", "Welcome"))

	return f
}

func childNames(t *testing.T, f *Handler, p string) []string {
	t.Helper()

	nodes, err := f.List(p)
	require.NoError(t, err)

	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.Info().Name)
	}

	return names
}

// TestLookup_Success tests node identity and variants.
func TestLookup_Success(t *testing.T) {
	t.Parallel()

	f := newTestTree(t)

	root, err := f.Lookup("/")
	require.NoError(t, err)
	dir, ok := root.(Directory)
	require.True(t, ok)
	assert.Equal(t, "/", dir.ID)
	assert.Empty(t, dir.ParentID)
	assert.Equal(t, []string{"home", "bin", "motd"}, dir.Children)

	n, err := f.Lookup("/home//user/")
	require.NoError(t, err)
	assert.Equal(t, Meta{ID: "/home/user", Name: "user", ParentID: "/home", LastModified: n.Info().LastModified}, n.Info())

	n, err = f.Lookup("/bin/hello.py")
	require.NoError(t, err)
	file, ok := n.(File)
	require.True(t, ok)
	assert.Equal(t, "/bin/hello.py", file.ID)
	assert.Equal(t, `print("hello")`, file.Content)
}

// TestLookup_Fail_Table tests failed traversals.
func TestLookup_Fail_Table(t *testing.T) {
	t.Parallel()

	f := newTestTree(t)

	for _, p := range []string{"/nope", "/home/nope/x", "/motd/x", "/bin/hello.py/x"} {
		_, err := f.Lookup(p)
		require.ErrorIs(t, err, schema.ErrNotFound, p)
	}
}

// TestCreateDirectory_Success tests that a new directory is listed exactly
// once in its parent.
func TestCreateDirectory_Success(t *testing.T) {
	t.Parallel()

	f := newTestTree(t)

	require.NoError(t, f.CreateDirectory("/home/user/projects"))
	assert.Equal(t, []string{"projects"}, childNames(t, f, "/home/user"))

	require.NoError(t, f.CreateDirectory("/home/user/projects/go"))
	assert.True(t, f.IsDir("/home/user/projects/go"))
	assert.Equal(t, []string{"user"}, childNames(t, f, "/home"))
}

// TestCreateDirectory_Fail_Table tests rejected directory creations.
func TestCreateDirectory_Fail_Table(t *testing.T) {
	t.Parallel()

	f := newTestTree(t)

	testCases := []struct {
		name string
		path string
		err  error
	}{
		{"Fail_ExistingDirectory", "/home", schema.ErrAlreadyExists},
		{"Fail_ExistingFile", "/motd", schema.ErrAlreadyExists},
		{"Fail_Root", "/", schema.ErrAlreadyExists},
		{"Fail_MissingParent", "/nope/dir", schema.ErrNotFound},
		{"Fail_ParentIsFile", "/motd/dir", schema.ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.CreateDirectory(tc.path)
			require.ErrorIs(t, err, tc.err)
		})
	}

	assert.Equal(t, []string{"home", "bin", "motd"}, childNames(t, f, "/"))
}

// TestCreateFile_Success_Touch tests that touching an existing file keeps its
// content and only updates the modification time.
func TestCreateFile_Success_Touch(t *testing.T) {
	t.Parallel()

	f := newTestTree(t)

	before, err := f.Lookup("/motd")
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, f.CreateFile("/motd"))

	after, err := f.Lookup("/motd")
	require.NoError(t, err)

	content, err := f.Read("/motd")
	require.NoError(t, err)
	assert.Equal(t, "Welcome", content)
	assert.True(t, after.Info().LastModified.After(before.Info().LastModified))
	assert.Equal(t, []string{"home", "bin", "motd"}, childNames(t, f, "/"))
}

// TestCreateFile_Success_New tests the creation of empty files.
func TestCreateFile_Success_New(t *testing.T) {
	t.Parallel()

	f := newTestTree(t)

	require.NoError(t, f.CreateFile("/home/user/notes.txt"))
	require.NoError(t, f.CreateFile("/home/user/notes.txt"))

	content, err := f.Read("/home/user/notes.txt")
	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Equal(t, []string{"notes.txt"}, childNames(t, f, "/home/user"))
}

// TestCreateFile_Fail_Table tests rejected file creations.
func TestCreateFile_Fail_Table(t *testing.T) {
	t.Parallel()

	f := newTestTree(t)

	require.ErrorIs(t, f.CreateFile("/nope/file"), schema.ErrNotFound)
	require.ErrorIs(t, f.CreateFile("/motd/file"), schema.ErrNotFound)
}

// TestRead_Fail_Table tests rejected reads.
func TestRead_Fail_Table(t *testing.T) {
	t.Parallel()

	f := newTestTree(t)

	_, err := f.Read("/nope")
	require.ErrorIs(t, err, schema.ErrNotFound)

	_, err = f.Read("/home")
	require.ErrorIs(t, err, schema.ErrNotAFile)
}

// TestList_Fail_Table tests rejected listings.
func TestList_Fail_Table(t *testing.T) {
	t.Parallel()

	f := newTestTree(t)

	_, err := f.List("/nope")
	require.ErrorIs(t, err, schema.ErrNotFound)

	_, err = f.List("/motd")
	require.ErrorIs(t, err, schema.ErrNotADirectory)
}

// TestWriteFile_Fail_Directory tests that directories cannot be written.
func TestWriteFile_Fail_Directory(t *testing.T) {
	t.Parallel()

	f := newTestTree(t)

	require.ErrorIs(t, f.WriteFile("/home", "x"), schema.ErrNotAFile)
	require.ErrorIs(t, f.WriteFile("/", "x"), schema.ErrNotAFile)
}

// TestChecksum_Success tests the BLAKE3 checksum of file contents.
func TestChecksum_Success(t *testing.T) {
	t.Parallel()

	f := newTestTree(t)
	require.NoError(t, f.CreateFile("/empty"))

	sum, err := f.Checksum("/empty")
	require.NoError(t, err)
	assert.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", sum)

	other, err := f.Checksum("/motd")
	require.NoError(t, err)
	assert.Len(t, other, 64)
	assert.NotEqual(t, sum, other)

	_, err = f.Checksum("/home")
	require.ErrorIs(t, err, schema.ErrNotAFile)
}
