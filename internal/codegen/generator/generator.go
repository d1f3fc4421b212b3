package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	cu "github.com/Alia5/featurec/internal/codeunit"
	"github.com/Alia5/featurec/internal/codegen/common"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/codegen/generator/client"
	"github.com/Alia5/featurec/internal/codegen/generator/dto"
	"github.com/Alia5/featurec/internal/codegen/generator/iface"
	"github.com/Alia5/featurec/internal/codegen/generator/server"
	"github.com/Alia5/featurec/internal/registry"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/errgroup"
)

// ErrEmissionInconsistency is returned when a feature cannot be raised
// into consistent code units.
var ErrEmissionInconsistency = common.ErrEmissionInconsistency

// ErrDrift is returned by Check when a written unit differs from what the
// feature produces now.
var ErrDrift = errors.New("generated unit is out of date")

// Emitter fills u from src.
type Emitter func(src *common.Source, u *cu.Unit) error

var emitters = map[cu.Kind]Emitter{
	cu.KindDTO:       dto.Emit,
	cu.KindClient:    client.Emit,
	cu.KindServer:    server.Emit,
	cu.KindInterface: iface.Emit,
}

// ParseKind maps a unit kind name to its kind.
func ParseKind(s string) (cu.Kind, error) {
	k := cu.Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := emitters[k]; !ok {
		return "", fmt.Errorf("unsupported unit kind '%s' (supported: %v)", s, cu.Kinds)
	}
	return k, nil
}

// Emit raises def into one code unit of kind. reg is the frozen registry
// lowering produced; nil means a feature that was written by hand.
func Emit(def *feature.Definition, reg registry.Reader, kind cu.Kind, namespace string) (*cu.Unit, error) {
	emit, ok := emitters[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported unit kind '%s'", kind)
	}
	src, err := common.NewSource(def, reg)
	if err != nil {
		return nil, err
	}
	digest, err := def.Digest()
	if err != nil {
		return nil, fmt.Errorf("digest feature %s: %w", def.Identifier, err)
	}
	u := &cu.Unit{
		Kind:      kind,
		Namespace: namespace,
		Feature:   def.FullyQualifiedIdentifier(),
		Digest:    digest,
	}
	if err := emit(src, u); err != nil {
		return nil, fmt.Errorf("emit %s unit of %s: %w", kind, def.Identifier, err)
	}
	return u, nil
}

// EmitAll raises def into every unit kind. The emitters share nothing but
// the frozen registry and run concurrently.
func EmitAll(ctx context.Context, def *feature.Definition, reg registry.Reader, namespace string) (map[cu.Kind]*cu.Unit, error) {
	var (
		mu    sync.Mutex
		units = make(map[cu.Kind]*cu.Unit, len(cu.Kinds))
	)
	eg, ctx := errgroup.WithContext(ctx)
	for _, kind := range cu.Kinds {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			u, err := Emit(def, reg, kind, namespace)
			if err != nil {
				return err
			}
			mu.Lock()
			units[kind] = u
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return units, nil
}

type Generator struct {
	outputDir string
	namespace string
	logger    *slog.Logger
}

func New(outputDir, namespace string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		outputDir: outputDir,
		namespace: namespace,
		logger:    logger,
	}
}

// FileName is where the unit of kind for def is written.
func (g *Generator) FileName(def *feature.Definition, kind cu.Kind) string {
	return filepath.Join(g.outputDir, common.ToSnakeCase(def.Identifier)+"_"+string(kind)+".unit")
}

func (g *Generator) render(ctx context.Context, def *feature.Definition, reg registry.Reader, kinds []cu.Kind) (map[cu.Kind][]byte, error) {
	if len(kinds) == 0 {
		kinds = cu.Kinds
	}
	units, err := EmitAll(ctx, def, reg, g.namespace)
	if err != nil {
		return nil, err
	}
	out := make(map[cu.Kind][]byte, len(kinds))
	for _, kind := range kinds {
		var buf bytes.Buffer
		if err := cu.Fprint(&buf, units[kind]); err != nil {
			return nil, fmt.Errorf("print %s unit: %w", kind, err)
		}
		out[kind] = buf.Bytes()
	}
	return out, nil
}

// Generate writes the units of kinds (all kinds when empty) and returns
// the written paths.
func (g *Generator) Generate(ctx context.Context, def *feature.Definition, reg registry.Reader, kinds ...cu.Kind) ([]string, error) {
	g.logger.Info("Generating code units", "feature", def.Identifier, "output", g.outputDir)
	rendered, err := g.render(ctx, def, reg, kinds)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	var written []string
	for _, kind := range cu.Kinds {
		data, ok := rendered[kind]
		if !ok {
			continue
		}
		path := g.FileName(def, kind)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		g.logger.Debug("Wrote code unit", "kind", kind, "path", path)
		written = append(written, path)
	}
	g.logger.Info("Code unit generation complete", "feature", def.Identifier, "units", len(written))
	return written, nil
}

// Drift is the difference between a unit on disk and a fresh emission.
type Drift struct {
	Path string
	Diff string
}

// Check compares the units on disk with a fresh emission. It returns
// ErrDrift along with a report for every unit that differs or is missing.
func (g *Generator) Check(ctx context.Context, def *feature.Definition, reg registry.Reader, kinds ...cu.Kind) ([]Drift, error) {
	rendered, err := g.render(ctx, def, reg, kinds)
	if err != nil {
		return nil, err
	}
	dmp := diffpatch.New()
	var drifts []Drift
	for _, kind := range cu.Kinds {
		want, ok := rendered[kind]
		if !ok {
			continue
		}
		path := g.FileName(def, kind)
		have, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if bytes.Equal(have, want) {
			continue
		}
		a, b, lines := dmp.DiffLinesToChars(string(have), string(want))
		diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
		drifts = append(drifts, Drift{Path: path, Diff: unified(diffs)})
		g.logger.Warn("Code unit drifted", "kind", kind, "path", path)
	}
	if len(drifts) > 0 {
		return drifts, fmt.Errorf("%w: %d unit(s)", ErrDrift, len(drifts))
	}
	return nil, nil
}

// unified renders line diffs with +/- prefixes, omitting unchanged lines.
func unified(diffs []diffpatch.Diff) string {
	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffpatch.DiffInsert:
			prefix = "+"
		case diffpatch.DiffDelete:
			prefix = "-"
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix + line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}
