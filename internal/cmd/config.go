package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/Alia5/featurec/internal/codegen/common"
	"github.com/Alia5/featurec/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit scaffolds a configuration file for one command.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to generate config for" enum:"lower,emit,generate"`
	Format  string `help:"Output format" enum:"json,yaml,toml" default:"json"`
	Output  string `help:"Destination file path (defaults to current directory)"`
	Global  bool   `help:"Write to the user configuration directory instead"`
	Force   bool   `help:"Overwrite if the file already exists"`
}

var templates = map[string]reflect.Type{
	"lower":    reflect.TypeOf(Lower{}),
	"emit":     reflect.TypeOf(Emit{}),
	"generate": reflect.TypeOf(Generate{}),
}

// Run generates a configuration template from the flags of the command struct.
func (c *ConfigInit) Run() error {
	format := normalizeFormat(c.Format)
	if format == "" {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}
	t, ok := templates[c.Command]
	if !ok {
		return errors.New("unknown command; expected 'lower', 'emit' or 'generate'")
	}
	root := buildMapFromStruct(t)

	dest := c.Output
	switch {
	case dest != "":
	case c.Global:
		p, err := configpaths.DefaultNamedConfigPath(c.Command, format)
		if err != nil {
			return err
		}
		dest = p
	default:
		dest = c.Command + "." + format
	}

	if _, err := os.Stat(dest); err == nil && !c.Force {
		return fmt.Errorf("%s exists; use --force to overwrite", dest)
	}
	data, err := encoders[format](root)
	if err != nil {
		return fmt.Errorf("encode %s template: %w", format, err)
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

var encoders = map[string]func(any) ([]byte, error){
	"json": func(v any) ([]byte, error) {
		b, err := json.MarshalIndent(v, "", "  ")
		return append(b, '\n'), err
	},
	"yaml": yaml.Marshal,
	"toml": toml.Marshal,
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	}
	return ""
}

// flagKey is the key kong's configuration resolvers look a flag up by.
func flagKey(f reflect.StructField) string {
	if name := f.Tag.Get("name"); name != "" {
		return name
	}
	return strings.ReplaceAll(common.ToSnakeCase(f.Name), "_", "-")
}

// buildMapFromStruct lists every flag of t with its default. Positional
// arguments are not configurable and are left out; embedded structs with a
// prefix become nested tables.
func buildMapFromStruct(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for f := range fields(t) {
		if _, ok := f.Tag.Lookup("embed"); !ok {
			if v := defaultValueForField(f.Type, f.Tag.Get("default")); v != nil {
				out[flagKey(f)] = v
			}
			continue
		}
		sub := buildMapFromStruct(f.Type)
		if prefix := strings.TrimSuffix(f.Tag.Get("prefix"), "."); prefix != "" {
			out[prefix] = sub
			continue
		}
		maps.Copy(out, sub)
	}
	return out
}

// fields yields the configurable fields of t.
func fields(t reflect.Type) iter.Seq[reflect.StructField] {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("kong") == "-" {
				continue
			}
			if _, ok := f.Tag.Lookup("arg"); ok {
				continue
			}
			if _, ok := f.Tag.Lookup("cmd"); ok {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

func defaultValueForField(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		return b
	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			return nil
		}
		if def == "" {
			return []string{}
		}
		return strings.Split(def, ",")
	case reflect.Struct:
		return buildMapFromStruct(t)
	}
	return nil
}
