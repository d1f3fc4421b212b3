package feature_test

import (
	"encoding/json"
	"testing"

	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func intp(i int) *int { return &i }

func sampleFeature() *feature.Definition {
	d := &feature.Definition{
		Identifier:     "GreetingProvider",
		DisplayName:    "Greeting Provider",
		Description:    "Says hello",
		Category:       "examples",
		Originator:     "org.silastandard",
		FeatureVersion: "1.0",
		MaturityLevel:  feature.MaturityDraft,
		SchemaVersion:  feature.SchemaVersion,
	}
	items := []feature.Item{
		&feature.Command{
			Identifier:  "SayHello",
			DisplayName: "Say Hello",
			Description: "Greets",
			Parameters: []*feature.Element{{
				Identifier: "Name", DisplayName: "Name", Description: "Who",
				DataType: &feature.Constrained{
					Base:        &feature.Basic{Kind: feature.String},
					Constraints: feature.Constraints{MaximalLength: intp(16)},
				},
			}},
			Responses: []*feature.Element{{
				Identifier: "Greeting", DisplayName: "Greeting", Description: "Text",
				DataType: &feature.Reference{Identifier: "Greeting"},
			}},
			DefinedExecutionErrors: []string{"Rude"},
		},
		&feature.Property{
			Identifier: "StartYear", DisplayName: "Start Year", Description: "Year",
			Observable: true,
			DataType:   &feature.Basic{Kind: feature.Integer},
		},
		&feature.DefinedExecutionError{Identifier: "Rude", DisplayName: "Rude", Description: "Rude"},
		&feature.DataTypeDefinition{
			Identifier: "Greeting", DisplayName: "Greeting", Description: "Text",
			DataType: &feature.Structure{Elements: []*feature.Element{
				{Identifier: "Text", DisplayName: "Text", Description: "Text", DataType: &feature.Basic{Kind: feature.String}},
				{Identifier: "Tags", DisplayName: "Tags", Description: "Tags", DataType: &feature.List{Elem: &feature.Basic{Kind: feature.String}}},
			}},
		},
	}
	for _, it := range items {
		if err := d.Add(it); err != nil {
			panic(err)
		}
	}
	return d
}

func TestAddRejectsDuplicatesPerKind(t *testing.T) {
	d := sampleFeature()
	err := d.Add(&feature.Command{Identifier: "SayHello"})
	assert.ErrorIs(t, err, feature.ErrDuplicateIdentifier)

	// Same identifier, different kind, is fine.
	assert.NoError(t, d.Add(&feature.Property{Identifier: "SayHello", DataType: &feature.Basic{Kind: feature.String}}))
}

func TestCheck(t *testing.T) {
	d := sampleFeature()
	require.NoError(t, d.Check())

	d.Items = append(d.Items, &feature.Property{Identifier: "Ghost", DataType: &feature.Reference{Identifier: "Missing"}})
	assert.ErrorIs(t, d.Check(), feature.ErrDanglingReference)
}

func TestCheckConstraintApplicability(t *testing.T) {
	d := sampleFeature()
	d.Items = append(d.Items, &feature.Property{
		Identifier: "Bad",
		DataType: &feature.Constrained{
			Base:        &feature.Basic{Kind: feature.Boolean},
			Constraints: feature.Constraints{Pattern: "x"},
		},
	})
	assert.ErrorIs(t, d.Check(), feature.ErrInvalidConstraint)
}

func TestJSONRoundTrip(t *testing.T) {
	d := sampleFeature()
	data, err := json.Marshal(d)
	require.NoError(t, err)

	var back feature.Definition
	require.NoError(t, json.Unmarshal(data, &back))
	if diff := cmp.Diff(d, &back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	d := sampleFeature()
	data, err := yaml.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), "identifier: GreetingProvider")
	assert.NotContains(t, string(data), `"identifier"`)
	// version strings must not turn into floats
	assert.Contains(t, string(data), `featureVersion: "1.0"`)

	var back feature.Definition
	require.NoError(t, yaml.Unmarshal(data, &back))
	if diff := cmp.Diff(d, &back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalRejectsAmbiguousDataType(t *testing.T) {
	var d feature.Definition
	err := json.Unmarshal([]byte(`{"identifier":"F","items":[{"property":{"identifier":"P","dataType":{"basic":"String","identifier":"X"}}}]}`), &d)
	assert.Error(t, err)
}

func TestDigest(t *testing.T) {
	a, err := sampleFeature().Digest()
	require.NoError(t, err)
	b, err := sampleFeature().Digest()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	changed := sampleFeature()
	changed.Description = "Says hi"
	c, err := changed.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestApplyPatch(t *testing.T) {
	d := sampleFeature()
	out, err := feature.ApplyPatch(d, []byte(`[
		{"op":"replace","path":"/displayName","value":"Greeter"},
		{"op":"remove","path":"/items/1"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, "Greeter", out.DisplayName)
	assert.Len(t, out.Properties(), 0)
	assert.Equal(t, "Greeting Provider", d.DisplayName)

	_, err = feature.ApplyPatch(d, []byte(`[{"op":"remove","path":"/items/3"}]`))
	assert.ErrorIs(t, err, feature.ErrDanglingReference)
}

func TestIdentifiers(t *testing.T) {
	d := sampleFeature()
	assert.Equal(t, "org.silastandard/examples/GreetingProvider/v1", d.FullyQualifiedIdentifier())
	assert.Equal(t, "org.silastandard/examples/GreetingProvider/v1/Command/SayHello/Parameter/Name", d.ParameterIdentifier("SayHello", "Name"))
	assert.Equal(t, "org.silastandard/examples/GreetingProvider/v1/DefinedExecutionError/Rude", d.ItemIdentifier(feature.KindError, "Rude"))
}

func TestReferencesInFirstUseOrder(t *testing.T) {
	dt := &feature.Structure{Elements: []*feature.Element{
		{Identifier: "A", DataType: &feature.Reference{Identifier: "B"}},
		{Identifier: "C", DataType: &feature.List{Elem: &feature.Reference{Identifier: "A"}}},
		{Identifier: "D", DataType: &feature.Reference{Identifier: "B"}},
	}}
	assert.Equal(t, []string{"B", "A"}, feature.References(dt))
}
