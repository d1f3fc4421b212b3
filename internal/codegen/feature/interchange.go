package feature

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// MarshalYAML renders the definition with the same layout as its JSON form.
func (d *Definition) MarshalYAML() (any, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("convert feature to yaml: %w", err)
	}
	blockStyle(&doc)
	return doc.Content[0], nil
}

// blockStyle drops the flow and quoting styles the JSON source brings along.
// Scalars keep their tag, so strings that read as numbers stay quoted.
func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode, yaml.ScalarNode:
		n.Style = 0
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func (d *Definition) UnmarshalYAML(n *yaml.Node) error {
	var v any
	if err := n.Decode(&v); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("convert yaml feature: %w", err)
	}
	return json.Unmarshal(data, d)
}

// Digest is a stable hash of the definition's canonical JSON form.
func (d *Definition) Digest() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ApplyPatch applies an RFC 6902 JSON patch to the JSON form of d and returns
// the checked result. d is left untouched.
func ApplyPatch(d *Definition, patch []byte) (*Definition, error) {
	p, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	doc, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	patched, err := p.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}
	out := &Definition{}
	if err := json.Unmarshal(patched, out); err != nil {
		return nil, fmt.Errorf("patched feature: %w", err)
	}
	if err := out.Check(); err != nil {
		return nil, fmt.Errorf("patched feature: %w", err)
	}
	return out, nil
}
