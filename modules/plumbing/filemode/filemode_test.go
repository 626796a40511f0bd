package filemode

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for str, expected := range map[string]FileMode{
		"40000":   Dir,
		"100644":  Regular,
		"0100644": Regular,
		"100664":  Deprecated,
		"100755":  Executable,
		"120000":  Symlink,
		"160000":  Submodule,
	} {
		mode, err := New(str)
		require.NoError(t, err, str)
		assert.Equal(t, expected, mode, str)
	}

	mode, err := New("8999")
	require.Error(t, err)
	assert.Equal(t, Empty, mode)
}

func TestString(t *testing.T) {
	assert.Equal(t, "0040000", Dir.String())
	assert.Equal(t, "0100644", Regular.String())
	assert.Equal(t, "0160000", Submodule.String())
}

func TestNames(t *testing.T) {
	for mode, name := range map[FileMode]string{
		Dir:        "tree",
		Regular:    "regular-file",
		Deprecated: "regular-file",
		Executable: "executable-file",
		Symlink:    "symlink",
		Submodule:  "submodule",
		Empty:      "missing",
	} {
		assert.Equal(t, name, mode.Name())
	}
}

func TestIsFile(t *testing.T) {
	assert.True(t, Regular.IsFile())
	assert.True(t, Deprecated.IsFile())
	assert.True(t, Executable.IsFile())
	assert.True(t, Symlink.IsFile())
	assert.False(t, Dir.IsFile())
	assert.False(t, Submodule.IsFile())
	assert.False(t, Empty.IsFile())
}

func TestToOSFileMode(t *testing.T) {
	m, err := Executable.ToOSFileMode()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), m)

	m, err = Dir.ToOSFileMode()
	require.NoError(t, err)
	assert.True(t, m.IsDir())

	_, err = Empty.ToOSFileMode()
	require.Error(t, err)
}

func TestFileModeJSON(t *testing.T) {
	type wrapper struct {
		A FileMode `json:"a"`
	}
	raw, err := json.Marshal(&wrapper{A: Executable})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"0100755"}`, string(raw))

	var w wrapper
	require.NoError(t, json.Unmarshal(raw, &w))
	assert.Equal(t, Executable, w.A)
}
