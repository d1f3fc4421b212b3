package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Alia5/featurec/internal/codegen/lower"
	"github.com/Alia5/featurec/internal/codegen/scanner"
	"github.com/Alia5/featurec/internal/log"
	"github.com/Alia5/featurec/internal/resolve"
)

// Source selects the Go type to lower and how lowering decides.
type Source struct {
	Pattern   string `arg:"" name:"package" help:"Go package pattern declaring the type"`
	Type      string `arg:"" name:"type" help:"Interface or struct type to lower"`
	Dir       string `help:"Directory the package pattern is resolved from" default:"." env:"FEATUREC_DIR"`
	Spec      string `help:"Member configuration file (.json, .yaml or .toml)" env:"FEATUREC_SPEC"`
	Resolve   string `help:"Ask on a terminal (auto) or always take the default" enum:"auto,default" default:"auto" env:"FEATUREC_RESOLVE"`
	Decisions string `help:"Record every ambiguity decision to this file" env:"FEATUREC_DECISIONS"`
	Strict    bool   `help:"Order data types topologically and fail on cycles" env:"FEATUREC_STRICT"`
}

func (s *Source) resolver(logger *slog.Logger) (resolve.Resolver, io.Closer, error) {
	var r resolve.Resolver = resolve.Default{Logger: logger}
	if s.Resolve == "auto" {
		r = resolve.Auto(logger)
	}
	if s.Decisions == "" {
		return r, nil, nil
	}
	f, err := os.OpenFile(s.Decisions, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open decision log: %w", err)
	}
	return resolve.Logged{Resolver: r, Log: log.NewDecisions(f)}, f, nil
}

func (s *Source) lower(logger *slog.Logger) (*lower.Result, error) {
	pkg, err := scanner.Load(s.Dir, s.Pattern)
	if err != nil {
		return nil, err
	}
	root, err := pkg.Type(s.Type)
	if err != nil {
		return nil, err
	}
	var spec *lower.Spec
	if s.Spec != "" {
		if spec, err = lower.LoadSpec(s.Spec); err != nil {
			return nil, err
		}
	}
	r, closer, err := s.resolver(logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	opts := []lower.Option{lower.WithResolver(r), lower.WithLogger(logger)}
	if s.Strict {
		opts = append(opts, lower.WithStrictOrdering())
	}
	logger.Info("Lowering", "package", pkg.Path, "type", s.Type)
	res, err := lower.Lower(root, spec, opts...)
	if err != nil {
		return nil, fmt.Errorf("lower %s.%s: %w", pkg.Name, s.Type, err)
	}
	for _, sk := range res.Skipped {
		logger.Warn("Skipped member", "member", sk.Member, "error", sk.Err)
	}
	return res, nil
}

type Lower struct {
	Source `embed:""`
	Output string `short:"o" help:"Feature file to write; stdout when empty" env:"FEATUREC_FEATURE"`
	Format string `help:"Format when writing to stdout or an unknown extension" enum:"json,yaml" default:"json" env:"FEATUREC_FORMAT"`
}

// Run is called by Kong when the lower command is executed.
func (l *Lower) Run(logger *slog.Logger) error {
	res, err := l.lower(logger)
	if err != nil {
		return err
	}
	return writeFeature(res.Feature, l.Output, l.Format, os.Stdout)
}
