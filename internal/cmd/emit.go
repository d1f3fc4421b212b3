package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cu "github.com/Alia5/featurec/internal/codeunit"
	"github.com/Alia5/featurec/internal/codegen/common"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/codegen/generator"
	"github.com/Alia5/featurec/internal/registry"
)

// Target says where code units go.
type Target struct {
	Output    string   `help:"Directory code units are written to" default:"./generated" env:"FEATUREC_OUTPUT"`
	Namespace string   `help:"Namespace stamped into every unit; the feature identifier in snake case when empty" env:"FEATUREC_NAMESPACE"`
	Kind      []string `help:"Unit kinds: interface, dto, client, server; all when empty" env:"FEATUREC_KIND"`
	Check     bool     `help:"Report units that differ from a fresh emission instead of writing" env:"FEATUREC_CHECK"`
}

func (t *Target) emit(ctx context.Context, logger *slog.Logger, def *feature.Definition, reg registry.Reader, out io.Writer) error {
	kinds := make([]cu.Kind, 0, len(t.Kind))
	for _, k := range t.Kind {
		kind, err := generator.ParseKind(k)
		if err != nil {
			return err
		}
		kinds = append(kinds, kind)
	}
	namespace := t.Namespace
	if namespace == "" {
		namespace = common.ToSnakeCase(def.Identifier)
	}
	g := generator.New(t.Output, namespace, logger)

	if !t.Check {
		_, err := g.Generate(ctx, def, reg, kinds...)
		return err
	}
	drifts, err := g.Check(ctx, def, reg, kinds...)
	for _, d := range drifts {
		fmt.Fprintf(out, "--- %s\n%s", d.Path, d.Diff)
	}
	if errors.Is(err, generator.ErrDrift) {
		logger.Error("Generated code units are out of date", "units", len(drifts))
	}
	return err
}

type Emit struct {
	Target  `embed:""`
	Feature string `arg:"" name:"feature" help:"Feature definition file (.json or .yaml)" type:"existingfile"`
	Patch   string `help:"RFC 6902 JSON patch applied before emission" type:"existingfile" env:"FEATUREC_PATCH"`
}

// Run is called by Kong when the emit command is executed.
func (e *Emit) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return e.run(ctx, logger, os.Stdout)
}

func (e *Emit) run(ctx context.Context, logger *slog.Logger, out io.Writer) error {
	def, err := readFeature(e.Feature)
	if err != nil {
		return err
	}
	if e.Patch != "" {
		patch, err := os.ReadFile(e.Patch)
		if err != nil {
			return fmt.Errorf("read patch: %w", err)
		}
		if def, err = feature.ApplyPatch(def, patch); err != nil {
			return err
		}
		logger.Info("Applied feature patch", "patch", e.Patch)
	}
	// A feature read from a file carries no host bindings.
	return e.emit(ctx, logger, def, nil, out)
}

type Generate struct {
	Source `embed:""`
	Target `embed:""`
	Save   string `help:"Also write the lowered feature definition to this file" env:"FEATUREC_FEATURE"`
}

// Run is called by Kong when the generate command is executed.
func (g *Generate) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return g.run(ctx, logger, os.Stdout)
}

func (g *Generate) run(ctx context.Context, logger *slog.Logger, out io.Writer) error {
	res, err := g.lower(logger)
	if err != nil {
		return err
	}
	if g.Save != "" {
		if err := writeFeature(res.Feature, g.Save, "json", out); err != nil {
			return err
		}
	}
	return g.emit(ctx, logger, res.Feature, res.Registry, out)
}
