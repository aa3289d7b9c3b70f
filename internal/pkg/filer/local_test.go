package filer

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpage/voxpage/internal/pkg/test"
)

func initTest(t *testing.T) *Local {
	t.Helper()
	res, err := NewLocal(filepath.Join(t.TempDir(), "files"))
	require.Nil(t, err)
	return res
}

func TestNewLocal(t *testing.T) {
	for _, dir := range []string{"", "/", "."} {
		_, err := NewLocal(dir)
		assert.NotNil(t, err, dir)
	}
	dir := filepath.Join(t.TempDir(), "a", "b")
	_, err := NewLocal(dir)
	assert.Nil(t, err)
	st, err := os.Stat(dir)
	require.Nil(t, err)
	assert.True(t, st.IsDir())
}

func TestSaveLoad(t *testing.T) {
	f := initTest(t)
	require.Nil(t, f.SaveFile(test.Ctx(t), "a.txt", strings.NewReader("olia")))
	r, err := f.LoadFile(test.Ctx(t), "a.txt")
	require.Nil(t, err)
	defer r.Close()
	b, err := io.ReadAll(r)
	require.Nil(t, err)
	assert.Equal(t, "olia", string(b))
}

func TestSave_Overwrites(t *testing.T) {
	f := initTest(t)
	require.Nil(t, f.SaveFile(test.Ctx(t), "a.txt", strings.NewReader("old value")))
	require.Nil(t, f.SaveFile(test.Ctx(t), "a.txt", strings.NewReader("new")))
	r, err := f.LoadFile(test.Ctx(t), "a.txt")
	require.Nil(t, err)
	defer r.Close()
	assert.Equal(t, "new", test.RStr(t, r))
}

func TestLoad_NoFile(t *testing.T) {
	f := initTest(t)
	_, err := f.LoadFile(test.Ctx(t), "gone.txt")
	assert.NotNil(t, err)
}

func TestDelete(t *testing.T) {
	f := initTest(t)
	require.Nil(t, f.SaveFile(test.Ctx(t), "a.txt", strings.NewReader("olia")))
	require.Nil(t, f.Delete(test.Ctx(t), "a.txt"))
	_, err := f.LoadFile(test.Ctx(t), "a.txt")
	assert.NotNil(t, err)
}

func TestDelete_NoFile(t *testing.T) {
	f := initTest(t)
	assert.Nil(t, f.Delete(test.Ctx(t), "gone.txt"))
}

func TestPath_RejectsTraversal(t *testing.T) {
	f := initTest(t)
	for _, name := range []string{"", "..", "../a.txt", "a/b.txt", `a\b.txt`} {
		_, err := f.Path(name)
		assert.NotNil(t, err, name)
	}
	p, err := f.Path("a.txt")
	require.Nil(t, err)
	assert.Equal(t, "a.txt", filepath.Base(p))
}
