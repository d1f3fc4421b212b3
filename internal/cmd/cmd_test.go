package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	toml "github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/codegen/generator"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestConfigInitTemplates(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		format string
		decode func([]byte, any) error
	}{
		{format: "json", decode: json.Unmarshal},
		{format: "yaml", decode: yaml.Unmarshal},
		{format: "toml", decode: func(data []byte, v any) error {
			tree, err := toml.LoadBytes(data)
			if err != nil {
				return err
			}
			*v.(*map[string]any) = tree.ToMap()
			return nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dest := filepath.Join(dir, "generate."+tt.format)
			c := &ConfigInit{Command: "generate", Format: tt.format, Output: dest}
			require.NoError(t, c.Run())

			data, err := os.ReadFile(dest)
			require.NoError(t, err)
			got := map[string]any{}
			require.NoError(t, tt.decode(data, &got))
			assert.Equal(t, "auto", got["resolve"])
			assert.Equal(t, "./generated", got["output"])
			assert.Equal(t, ".", got["dir"])
			assert.NotContains(t, got, "pattern", "positional arguments are not configurable")
			assert.NotContains(t, got, "type")

			assert.Error(t, c.Run(), "existing files need --force")
			c.Force = true
			assert.NoError(t, c.Run())
		})
	}
}

func TestConfigInitRejectsUnknownFormat(t *testing.T) {
	c := &ConfigInit{Command: "emit", Format: "ini", Output: filepath.Join(t.TempDir(), "emit.ini")}
	assert.Error(t, c.Run())
}

func spinner() *feature.Definition {
	d := &feature.Definition{
		Identifier:     "Spinner",
		DisplayName:    "Spinner",
		Description:    "Spins things",
		Category:       "examples",
		Originator:     "org.silastandard",
		FeatureVersion: "1.0",
		MaturityLevel:  feature.MaturityDraft,
		SchemaVersion:  feature.SchemaVersion,
	}
	err := d.Add(&feature.Command{
		Identifier: "Spin", DisplayName: "Spin", Description: "Spins", Observable: true,
		IntermediateResponses: []*feature.Element{{Identifier: "Angle", DisplayName: "Angle", Description: "Angle", DataType: &feature.Basic{Kind: feature.Real}}},
		Responses:             []*feature.Element{{Identifier: "Turns", DisplayName: "Turns", Description: "Turns", DataType: &feature.Basic{Kind: feature.Integer}}},
	})
	if err != nil {
		panic(err)
	}
	return d
}

func writeSpinner(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, writeFeature(spinner(), path, "json", io.Discard))
	return path
}

func TestFeatureFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"spinner.json", "spinner.yaml"} {
		t.Run(name, func(t *testing.T) {
			def, err := readFeature(writeSpinner(t, dir, name))
			require.NoError(t, err)
			assert.Equal(t, "Spinner", def.Identifier)
			require.Len(t, def.Commands(), 1)
			assert.Equal(t, "Spin", def.Commands()[0].Identifier)
		})
	}

	var stdout bytes.Buffer
	require.NoError(t, writeFeature(spinner(), "", "yaml", &stdout))
	assert.Contains(t, stdout.String(), "identifier: Spinner")
}

func TestEmitWritesAndChecks(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "units")
	e := &Emit{Feature: writeSpinner(t, dir, "spinner.json"), Target: Target{Output: out}}
	require.NoError(t, e.run(context.Background(), quiet, io.Discard))
	assert.FileExists(t, filepath.Join(out, "spinner_interface.unit"))
	assert.FileExists(t, filepath.Join(out, "spinner_server.unit"))

	e.Check = true
	var report bytes.Buffer
	require.NoError(t, e.run(context.Background(), quiet, &report))
	assert.Empty(t, report.String())

	require.NoError(t, os.WriteFile(filepath.Join(out, "spinner_client.unit"), []byte("stale\n"), 0o644))
	err := e.run(context.Background(), quiet, &report)
	assert.ErrorIs(t, err, generator.ErrDrift)
	assert.Contains(t, report.String(), "spinner_client.unit")
	assert.Contains(t, report.String(), "-stale")
}

func TestEmitSelectedKindsWithPatch(t *testing.T) {
	dir := t.TempDir()
	patch := filepath.Join(dir, "rename.json")
	require.NoError(t, os.WriteFile(patch, []byte(`[{"op": "replace", "path": "/description", "value": "Spins faster"}]`), 0o644))

	out := filepath.Join(dir, "units")
	e := &Emit{
		Feature: writeSpinner(t, dir, "spinner.yaml"),
		Patch:   patch,
		Target:  Target{Output: out, Namespace: "spin", Kind: []string{"dto"}},
	}
	require.NoError(t, e.run(context.Background(), quiet, io.Discard))
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "spinner_dto.unit", entries[0].Name())

	e.Kind = []string{"rust"}
	assert.Error(t, e.run(context.Background(), quiet, io.Discard))
}

func TestGenerateFromGoSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/counter\n\ngo 1.22\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "counter.go"), []byte(`package counter

// Counter counts things.
type Counter interface {
	// Add adds n and returns the new total.
	Add(n int) int
	Total() int
}
`), 0o644))

	out := filepath.Join(dir, "units")
	saved := filepath.Join(dir, "counter.yaml")
	g := &Generate{
		Source: Source{Pattern: ".", Type: "Counter", Dir: dir, Resolve: "default"},
		Target: Target{Output: out},
		Save:   saved,
	}
	require.NoError(t, g.run(context.Background(), quiet, io.Discard))

	def, err := readFeature(saved)
	require.NoError(t, err)
	assert.Equal(t, "Counter", def.Identifier)
	assert.Len(t, def.Commands(), 1)
	assert.Len(t, def.Properties(), 1)
	for _, kind := range []string{"interface", "dto", "client", "server"} {
		assert.FileExists(t, filepath.Join(out, "counter_"+kind+".unit"))
	}
}
