// Package cmd holds the featurec commands run by kong.
package cmd

import "github.com/alecthomas/kong"

// CLI is the root of the command line.
type CLI struct {
	Version kong.VersionFlag `help:"Print the version and exit"`
	Config  string           `help:"Configuration file (.json, .yaml or .toml)" type:"path" env:"FEATUREC_CONFIG"`
	Log     Log              `embed:"" prefix:"log."`

	Lower    Lower         `cmd:"" help:"Lower a Go type into a feature definition"`
	Emit     Emit          `cmd:"" help:"Emit code units from a feature definition file"`
	Generate Generate      `cmd:"" help:"Lower a Go type and emit its code units in one pass"`
	Cfg      ConfigCommand `cmd:"" name:"config" help:"Manage configuration files"`
}

type Log struct {
	Level string `help:"Log level: trace, debug, info, warn or error" default:"info" env:"FEATUREC_LOG_LEVEL"`
	File  string `help:"Also write the log to this file" env:"FEATUREC_LOG_FILE"`
}
