// Command featurec lowers Go types into feature definitions and emits code
// units from them.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/Alia5/featurec/internal/cmd"
	"github.com/Alia5/featurec/internal/codegen/common"
	"github.com/Alia5/featurec/internal/configpaths"
	"github.com/Alia5/featurec/internal/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	version, err := common.GetVersion()
	if err != nil {
		version = common.Version
	}
	// Flags and environment variables override configuration files, which
	// are tried in candidate order per format.
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(configFlag(args))

	var cli cmd.CLI
	parser, err := kong.New(&cli,
		kong.Name("featurec"),
		kong.Description("Feature definition compiler"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	ctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	logger, closers, err := log.SetupLogger(cli.Log.Level, cli.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup logger: %v\n", err)
		return 2
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	ctx.Bind(logger)
	if err := ctx.Run(); err != nil {
		logger.Error("command failed", "command", ctx.Command(), "error", err)
		return 1
	}
	return 0
}

// configFlag finds --config before kong parses, so the file can feed kong.
func configFlag(args []string) string {
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("FEATUREC_CONFIG")
}
