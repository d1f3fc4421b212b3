package configpaths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPathIsRoutedByExtension(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "custom.json", want: "json"},
		{path: "custom.yml", want: "yaml"},
		{path: "custom.yaml", want: "yaml"},
		{path: "custom.toml", want: "toml"},
		{path: "custom.conf", want: "json"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			j, y, tm := ConfigCandidatePaths(tt.path)
			got := map[string]string{"json": j[0], "yaml": y[0], "toml": tm[0]}
			assert.Equal(t, tt.path, got[tt.want])
		})
	}
}

func TestDefaultNamedConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("AppData", t.TempDir())
	dir, err := DefaultConfigDir()
	require.NoError(t, err)

	p, err := DefaultNamedConfigPath("emit", "yml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "emit.yaml"), p)
}

func TestCandidatesSearchWorkingDirFirst(t *testing.T) {
	wd := t.TempDir()
	t.Chdir(wd)
	j, y, tm := ConfigCandidatePaths("")
	require.NotEmpty(t, j)
	assert.Equal(t, filepath.Join(wd, "featurec.json"), j[0])
	assert.Equal(t, filepath.Join(wd, "featurec.yaml"), y[0])
	assert.Equal(t, filepath.Join(wd, "featurec.yml"), y[1])
	assert.Equal(t, filepath.Join(wd, "featurec.toml"), tm[0])
}
