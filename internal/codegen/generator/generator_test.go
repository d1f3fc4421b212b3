package generator_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cu "github.com/Alia5/featurec/internal/codeunit"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/codegen/generator"
	"github.com/Alia5/featurec/internal/codegen/lower"
	"github.com/Alia5/featurec/internal/host"
)

var (
	str   = host.Prim("string", host.PrimitiveString)
	f64   = host.Prim("float64", host.PrimitiveReal)
	boolT = host.Prim("bool", host.PrimitiveBoolean)
	ctxT  = &host.Descriptor{TypeName: "Context", Package: "context", TypeKind: host.KindOpaque, Fam: host.FamilyCancellation}
	quiet = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func record(name string, fields ...*host.Member) *host.Descriptor {
	d := host.Struct("sample", name)
	d.MemberList = fields
	var params []*host.Param
	for _, f := range fields {
		params = append(params, host.NewParam(f.Name, f.Type))
	}
	d.Ctors = []*host.Member{{Name: "New" + name, Type: d, Params: params}}
	return d
}

func field(name string, t host.Type) *host.Member { return host.Property(name, t, false) }

// robot covers every shape the emitters distinguish.
func robot() *host.Descriptor {
	progress := record("Progress", field("Percent", f64))
	outcome := record("Outcome", field("Ok", boolT))
	settings := record("Settings", field("Speed", f64), field("Label", str))
	busy := &host.Descriptor{TypeName: "BusyError", Package: "sample", TypeKind: host.KindStruct, Fam: host.FamilyError, Documentation: "The robot is busy."}
	interceptor := host.Generic("Interceptor", host.FamilyInterceptor)

	return host.Interface("sample", "Robot",
		host.Method("Echo", str, host.NewParam("text", str)),
		host.Method("Rename", nil, host.NewParam("name", str, host.Mark(host.AnnotationMaxLength, "5"))),
		host.Method("Configure", nil, host.NewParam("settings", settings)),
		host.Method("Move", host.Generic("IntermediateObservable", host.FamilyIntermediateCommand, progress, outcome), host.NewParam("target", f64)),
		host.Method("Home", host.Generic("Task", host.FamilyTask), host.NewParam("ctx", ctxT)).With(host.MarkType(host.AnnotationThrows, busy)),
		host.Method("Scan", host.Generic("Stream", host.FamilyStream, str)),
		host.Method("Upload", nil, host.NewParam("data", host.Prim("[]byte", host.PrimitiveBinary))),
		host.Property("Level", f64, false).With(host.Mark(host.AnnotationObservable, "")),
		host.Property("Speed", f64, true),
		host.Property("Model", str, false).With(host.Mark(host.AnnotationLazy, "")),
		host.Method("Serial", str),
		host.Property("Token", interceptor, false).With(host.MarkType(host.AnnotationMetadataType, str)),
	)
}

func lowered(t *testing.T) *lower.Result {
	t.Helper()
	res, err := lower.Lower(robot(), nil, lower.WithLogger(quiet))
	require.NoError(t, err)
	return res
}

func emitAll(t *testing.T) (*lower.Result, map[cu.Kind]*cu.Unit) {
	t.Helper()
	res := lowered(t)
	units, err := generator.EmitAll(context.Background(), res.Feature, res.Registry, "robot")
	require.NoError(t, err)
	return res, units
}

func TestEmitAllStampsEveryUnit(t *testing.T) {
	res, units := emitAll(t)
	require.Len(t, units, len(cu.Kinds))

	digest, err := res.Feature.Digest()
	require.NoError(t, err)
	for _, kind := range cu.Kinds {
		u := units[kind]
		require.NotNil(t, u, "unit %s", kind)
		assert.Equal(t, kind, u.Kind)
		assert.Equal(t, "robot", u.Namespace)
		assert.Equal(t, res.Feature.FullyQualifiedIdentifier(), u.Feature)
		assert.Equal(t, digest, u.Digest)
	}
}

func TestEmitIsDeterministic(t *testing.T) {
	res := lowered(t)
	for _, kind := range cu.Kinds {
		a, err := generator.Emit(res.Feature, res.Registry, kind, "robot")
		require.NoError(t, err)
		b, err := generator.Emit(res.Feature, res.Registry, kind, "robot")
		require.NoError(t, err)
		assert.Equal(t, cu.Sprint(a), cu.Sprint(b), "kind %s", kind)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    cu.Kind
		wantErr bool
	}{
		{in: "dto", want: cu.KindDTO},
		{in: " Client ", want: cu.KindClient},
		{in: "SERVER", want: cu.KindServer},
		{in: "interface", want: cu.KindInterface},
		{in: "rust", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := generator.ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func handWritten(items ...feature.Item) *feature.Definition {
	d := &feature.Definition{
		Identifier:     "Widget",
		DisplayName:    "Widget",
		Description:    "A widget",
		Category:       "examples",
		Originator:     "org.silastandard",
		FeatureVersion: "1.0",
		MaturityLevel:  feature.MaturityDraft,
		SchemaVersion:  feature.SchemaVersion,
	}
	for _, it := range items {
		if err := d.Add(it); err != nil {
			panic(err)
		}
	}
	return d
}

func TestEmissionInconsistency(t *testing.T) {
	text := &feature.Basic{Kind: feature.String}
	tests := []struct {
		name string
		def  *feature.Definition
		kind cu.Kind
	}{
		{
			name: "reserved suffix",
			def:  handWritten(&feature.DataTypeDefinition{Identifier: "LabelDto", DisplayName: "Label", Description: "Label", DataType: text}),
			kind: cu.KindDTO,
		},
		{
			name: "declaration clash",
			def: handWritten(
				&feature.DefinedExecutionError{Identifier: "Jam", DisplayName: "Jam", Description: "Jammed"},
				&feature.DataTypeDefinition{Identifier: "JamError", DisplayName: "Jam Error", Description: "Clash", DataType: text},
			),
			kind: cu.KindInterface,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := generator.Emit(tt.def, nil, tt.kind, "widget")
			assert.ErrorIs(t, err, generator.ErrEmissionInconsistency)
		})
	}
}

func TestFractionalIntegerBoundIsRejected(t *testing.T) {
	count := &feature.Constrained{
		Base:        &feature.Basic{Kind: feature.Integer},
		Constraints: feature.Constraints{MinimalInclusive: "2.5"},
	}
	def := handWritten(&feature.DataTypeDefinition{Identifier: "Count", DisplayName: "Count", Description: "Count", DataType: count})
	_, err := generator.Emit(def, nil, cu.KindDTO, "widget")
	assert.ErrorIs(t, err, feature.ErrInvalidConstraint)
}

func TestHandWrittenFeatureUsesStandardShapes(t *testing.T) {
	def := handWritten(&feature.Command{
		Identifier: "Spin", DisplayName: "Spin", Description: "Spins", Observable: true,
		IntermediateResponses: []*feature.Element{{Identifier: "Angle", DisplayName: "Angle", Description: "Angle", DataType: &feature.Basic{Kind: feature.Real}}},
		Responses:             []*feature.Element{{Identifier: "Turns", DisplayName: "Turns", Description: "Turns", DataType: &feature.Basic{Kind: feature.Integer}}},
	})
	u, err := generator.Emit(def, nil, cu.KindInterface, "widget")
	require.NoError(t, err)
	m := u.Type("Widget").Method("Spin")
	require.NotNil(t, m)
	require.Len(t, m.Results, 1)
	assert.Equal(t, "apitypes.IntermediateObservable[float64, int64]", m.Results[0].Type.String())
}

func TestGenerateAndCheck(t *testing.T) {
	res := lowered(t)
	dir := t.TempDir()
	g := generator.New(dir, "robot", quiet)

	written, err := g.Generate(context.Background(), res.Feature, res.Registry)
	require.NoError(t, err)
	require.Len(t, written, len(cu.Kinds))
	for _, p := range written {
		assert.FileExists(t, p)
	}

	drifts, err := g.Check(context.Background(), res.Feature, res.Registry)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	path := g.FileName(res.Feature, cu.KindDTO)
	require.NoError(t, os.WriteFile(path, []byte("unit dto robot\nstale line\n"), 0o644))
	require.NoError(t, os.Remove(g.FileName(res.Feature, cu.KindServer)))

	drifts, err = g.Check(context.Background(), res.Feature, res.Registry, cu.KindDTO, cu.KindServer)
	assert.ErrorIs(t, err, generator.ErrDrift)
	require.Len(t, drifts, 2)
	got := map[string]bool{}
	for _, d := range drifts {
		got[filepath.Base(d.Path)] = true
	}
	assert.Empty(t, cmp.Diff(map[string]bool{"robot_dto.unit": true, "robot_server.unit": true}, got))
	assert.Contains(t, drifts[0].Diff, "-stale line")
}
