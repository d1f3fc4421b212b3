package lower

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// Spec overrides what lowering derives from the host type. Every field is
// optional.
type Spec struct {
	Identifier  string `json:"identifier,omitempty" yaml:"identifier,omitempty" toml:"identifier,omitempty"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty" toml:"displayName,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Originator  string `json:"originator,omitempty" yaml:"originator,omitempty" toml:"originator,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty" toml:"category,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	Maturity    string `json:"maturity,omitempty" yaml:"maturity,omitempty" toml:"maturity,omitempty"`

	// Members is keyed by host member name.
	Members map[string]MemberSpec `json:"members,omitempty" yaml:"members,omitempty" toml:"members,omitempty"`
}

type MemberSpec struct {
	// Identifier renames the feature item.
	Identifier string `json:"identifier,omitempty" yaml:"identifier,omitempty" toml:"identifier,omitempty"`
	// AsMethod exposes a property or parameterless method as a command.
	AsMethod bool `json:"asMethod,omitempty" yaml:"asMethod,omitempty" toml:"asMethod,omitempty"`
	// Observable forces the observable flag. false on an observable return
	// shape is a contradiction.
	Observable *bool `json:"observable,omitempty" yaml:"observable,omitempty" toml:"observable,omitempty"`
	// Overload picks an overload by parameter types, e.g. "int,int".
	Overload string `json:"overload,omitempty" yaml:"overload,omitempty" toml:"overload,omitempty"`
	// Lazy fetches a non-observable property once.
	Lazy *bool `json:"lazy,omitempty" yaml:"lazy,omitempty" toml:"lazy,omitempty"`
	// Response maps the host result to the response value, e.g. "result.Value".
	Response string `json:"response,omitempty" yaml:"response,omitempty" toml:"response,omitempty"`
	Skip     bool   `json:"skip,omitempty" yaml:"skip,omitempty" toml:"skip,omitempty"`
}

// LoadSpec reads a spec file. The format follows the extension: .json,
// .yaml/.yml or .toml.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}
	var s Spec
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &s)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	case ".toml":
		err = toml.Unmarshal(data, &s)
	default:
		return nil, fmt.Errorf("unsupported spec format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse spec %s: %w", path, err)
	}
	return &s, nil
}
