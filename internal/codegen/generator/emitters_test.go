package generator_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/featurec/apitypes"
	cu "github.com/Alia5/featurec/internal/codeunit"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/codegen/generator"
	"github.com/Alia5/featurec/internal/codegen/lower"
	"github.com/Alia5/featurec/internal/host"
	"github.com/Alia5/featurec/internal/registry"
)

func names[T interface{ DeclName() string }](ds []T) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.DeclName()
	}
	return out
}

func fieldNames(fs []*cu.Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

func propertyNames(ps []*cu.Property) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func TestInterfaceKeepsMemberOrder(t *testing.T) {
	_, units := emitAll(t)
	robot := units[cu.KindInterface].Type("Robot")
	require.NotNil(t, robot)
	assert.Equal(t, cu.Interface, robot.Kind)

	assert.Empty(t, cmp.Diff([]string{"Echo", "Rename", "Configure", "Move", "Home", "Scan", "Upload", "Serial"}, names(robot.Methods)))
	assert.Empty(t, cmp.Diff([]string{"Level", "Speed", "Model", "Token"}, propertyNames(robot.Properties)))

	speed := robot.Property("Speed")
	assert.False(t, speed.ReadOnly(), "a synthesized setter makes the property writable")
	assert.True(t, robot.Property("Level").ReadOnly())
	assert.Contains(t, robot.Property("Level").Annotations, "observable")
	assert.Contains(t, robot.Property("Model").Annotations, "lazy")

	home := robot.Method("Home")
	require.Len(t, home.Params, 1)
	assert.Equal(t, "ctx", home.Params[0].Name)

	settings := units[cu.KindInterface].Type("Settings")
	require.NotNil(t, settings)
	assert.Equal(t, []string{"Speed", "Label"}, fieldNames(settings.Fields))
	assert.NotNil(t, units[cu.KindInterface].Func("NewSettings"))
	assert.NotNil(t, units[cu.KindInterface].Lookup("BusyError"))
}

// hostOf turns the result of an interface method back into the host return
// descriptor it stands for.
func hostOf(results []cu.Param) host.Type {
	if len(results) == 0 {
		return host.Void
	}
	r := results[0].Type
	args := make([]host.Type, len(r.Args))
	for i, a := range r.Args {
		args[i] = host.Struct("sample", a.String())
	}
	switch r.Name {
	case "apitypes.ObservableCommand", "apitypes.Observable":
		return host.Generic(r.Name, host.FamilyObservableCommand, args...)
	case "apitypes.IntermediateStream", "apitypes.IntermediateObservable":
		return host.Generic(r.Name, host.FamilyIntermediateCommand, args...)
	case "apitypes.Task", "apitypes.Future":
		return host.Generic(r.Name, host.FamilyTask, args...)
	case "apitypes.Stream":
		return host.Generic(r.Name, host.FamilyStream, args...)
	}
	return host.Prim(r.String(), host.PrimitiveString)
}

func TestInterfaceShapesClassifyBack(t *testing.T) {
	res, units := emitAll(t)
	robot := units[cu.KindInterface].Type("Robot")
	tests := []struct {
		command string
		want    host.Shape
	}{
		{command: "Echo", want: host.ShapeSync},
		{command: "Rename", want: host.ShapeVoid},
		{command: "Move", want: host.ShapeIntermediateResult},
		{command: "Home", want: host.ShapeTask},
		{command: "Scan", want: host.ShapeStream},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			m := robot.Method(tt.command)
			require.NotNil(t, m)
			got, err := lower.ClassifyReturn(hostOf(m.Results))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Shape)

			b, ok := res.Registry.Binding(registry.Origin("Robot", feature.KindCommand, tt.command))
			require.True(t, ok)
			assert.Equal(t, b.Shape, got.Shape)
		})
	}
}

func TestRequestValidation(t *testing.T) {
	_, units := emitAll(t)
	req := units[cu.KindDTO].Type("RenameRequestDto")
	require.NotNil(t, req)
	assert.Equal(t, []string{"Name", "CommandIdentifier"}, fieldNames(req.Fields))
	id := req.Field("CommandIdentifier")
	assert.True(t, id.ReadOnly)
	assert.Equal(t, cu.Id("RenameCommandIdentifier"), id.Init)

	validate := req.Method("Validate")
	require.NotNil(t, validate)
	calls := cu.Calls(validate, "apitypes.CheckMaximalLength")
	require.Len(t, calls, 1)
	assert.Equal(t, []cu.Expr{cu.Str("Name"), cu.Self("Name"), cu.Int(5)}, calls[0].Args)

	assert.Empty(t, apitypes.CheckMaximalLength("Name", "abcde", 5))
	assert.Len(t, apitypes.CheckMaximalLength("Name", "abcdef", 5), 1)
}

func TestSoleStructureParameterIsEncapsulated(t *testing.T) {
	_, units := emitAll(t)
	req := units[cu.KindDTO].Type("ConfigureRequestDto")
	require.NotNil(t, req)
	assert.Equal(t, []string{"Inner", "CommandIdentifier"}, fieldNames(req.Fields))
	assert.Equal(t, "*SettingsDto", req.Field("Inner").Type.String())
	assert.Equal(t, []string{"Speed", "Label"}, propertyNames(req.Properties))
	for _, p := range req.Properties {
		assert.False(t, p.ReadOnly(), "%s forwards writes", p.Name)
	}

	// Echo's plain parameter keeps its own field.
	echo := units[cu.KindDTO].Type("EchoRequestDto")
	assert.Equal(t, []string{"Text", "CommandIdentifier"}, fieldNames(echo.Fields))
}

func TestClientPropertyStrategies(t *testing.T) {
	_, units := emitAll(t)
	u := units[cu.KindClient]
	c := u.Type("RobotClient")
	require.NotNil(t, c)
	assert.Equal(t, []cu.TypeRef{cu.Named("Robot")}, c.Implements)
	assert.Equal(t, []string{"transport", "levelCell", "modelCell"}, fieldNames(c.Fields))
	assert.Equal(t, "*apiclient.ObservableProperty[float64, float64]", c.Field("levelCell").Type.String())
	assert.Equal(t, "*apiclient.Lazy[string]", c.Field("modelCell").Type.String())

	ctor := u.Func("NewRobotClient")
	require.NotNil(t, ctor)
	assert.Len(t, cu.Calls(ctor, "apiclient.NewObservableProperty"), 1)
	assert.Len(t, cu.Calls(ctor, "apiclient.NewLazy"), 1)

	closeAll := c.Method("Close")
	require.NotNil(t, closeAll)
	assert.Len(t, cu.Calls(closeAll, "levelCell.Close"), 1)
	assert.Empty(t, cu.Calls(closeAll, "modelCell.Close"))

	speed := c.Property("Speed")
	require.NotNil(t, speed)
	assert.Len(t, cu.Calls(speed.Getter, "readSpeed"), 1)
	require.False(t, speed.ReadOnly())
	calls := cu.Calls(speed.Setter, "apiclient.Call")
	require.Len(t, calls, 1)
	assert.Equal(t, cu.Id("SetSpeedCommandIdentifier"), calls[0].Args[2])
	assert.Nil(t, c.Method("SetSpeed"), "setters only surface through the property")

	token := c.Property("Token")
	require.NotNil(t, token, "metadata keeps the interface satisfied")
	assert.True(t, token.ReadOnly())
	assert.Equal(t, []cu.Stmt{cu.Ret(&cu.Nil{})}, token.Getter)
	assert.Contains(t, token.Doc, "always nil on a client")

	serial := c.Method("Serial")
	require.NotNil(t, serial, "method-bound properties stay methods")
	assert.Len(t, cu.Calls(serial, "readSerial"), 1)

	assert.NotNil(t, u.Func("WithToken"))
}

func TestClientCommands(t *testing.T) {
	_, units := emitAll(t)
	c := units[cu.KindClient].Type("RobotClient")

	echo := c.Method("Echo")
	require.Len(t, cu.Calls(echo, "apiclient.Execute"), 1)
	tries := cu.Find[*cu.Try](echo)
	require.Len(t, tries, 1)
	assert.Len(t, cu.Calls(tries[0].Catches[0].Body, "apiclient.ConvertError"), 1)

	move := c.Method("Move")
	calls := cu.Calls(move, "apiclient.ExecuteObservable")
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].TypeArgs, 4)
	assert.Len(t, calls[0].Args, 7)

	home := c.Method("Home")
	assert.Len(t, cu.Calls(home, "apitypes.Go"), 1)
	handle := c.NestedType("homeCommand")
	require.NotNil(t, handle, "nonstandard shapes run through a command handle")
	run := handle.Method("Run")
	require.NotNil(t, run)
	replay := cu.Calls(run, "apiclient.ExecuteObservable")
	require.Len(t, replay, 1)
	assert.Equal(t, cu.Dot(cu.Self("client"), "homeError"), replay[0].Args[6])

	converter := c.Method("homeError")
	require.NotNil(t, converter)
	defined := cu.Calls(converter, "apiclient.IsDefined")
	require.Len(t, defined, 1)
	assert.Equal(t, cu.Id("BusyErrorIdentifier"), defined[0].Args[1])

	scan := c.Method("Scan")
	casts := cu.Find[*cu.Cast](scan)
	require.Len(t, casts, 1)
	assert.Equal(t, "apitypes.Stream[string]", casts[0].Type.String())
}

func TestServerDispatch(t *testing.T) {
	res, units := emitAll(t)
	s := units[cu.KindServer].Type("RobotServer")
	require.NotNil(t, s)
	assert.NotNil(t, units[cu.KindServer].Func("NewRobotServer"))

	register := s.Method("Register")
	require.NotNil(t, register)
	assert.Len(t, cu.Calls(register, "r.RegisterCommand"), len(res.Feature.Commands()))
	assert.Len(t, cu.Calls(register, "r.RegisterProperty"), len(res.Feature.Properties()))
	assert.Len(t, cu.Calls(register, "r.RegisterMetadata"), 1)

	lists := cu.Find[*cu.ListLit](register)
	require.Len(t, lists, 1, "only Upload has binary parameters")
	assert.Equal(t, []cu.Expr{cu.Str(res.Feature.ParameterIdentifier("Upload", "Data"))}, lists[0].Items)

	setSpeed := s.Method("ExecuteSetSpeed")
	require.NotNil(t, setSpeed)
	assigns := cu.Find[*cu.Assign](setSpeed)
	require.Len(t, assigns, 1)
	assert.Equal(t, cu.Dot(cu.Self("impl"), "Speed"), assigns[0].Target)

	rename := s.Method("ExecuteRename")
	assert.Len(t, cu.Calls(rename, "apiserver.ValidationFault"), 3)

	home := s.Method("ExecuteHome")
	tries := cu.Find[*cu.Try](home)
	require.Len(t, tries, 1)
	var catches []string
	for _, c := range tries[0].Catches {
		catches = append(catches, c.Type.String())
	}
	assert.Equal(t, []string{"*apitypes.ValidationError", "sample.BusyError", "error"}, catches)
	assert.Len(t, cu.Calls(home, "apiserver.DefinedFault"), 1)
	assert.Len(t, cu.Calls(home, "impl.Home"), 1)

	move := s.Method("ExecuteMove")
	assert.Len(t, cu.Calls(move, "apiserver.Forward"), 1)
	assert.Len(t, cu.Calls(move, "handle.Result"), 1)
	require.Len(t, move.Results, 1)
	assert.Equal(t, "MoveResponseDto", move.Results[0].Type.String())

	handler := s.Method("CommandHandler")
	assert.Len(t, cu.Calls(handler, "apiserver.Command"), 2, "Echo and Move respond")
	assert.Len(t, cu.Calls(handler, "apiserver.Void"), len(res.Feature.Commands())-2)
	assert.Len(t, cu.Calls(s.Method("PropertyHandler"), "apiserver.Property"), len(res.Feature.Properties()))
}

func TestRegisterFollowsBinaryReferencesAndLists(t *testing.T) {
	blob := &feature.Basic{Kind: feature.Binary}
	param := func(id string, dt feature.DataType) *feature.Element {
		return &feature.Element{Identifier: id, DisplayName: id, Description: id, DataType: dt}
	}
	def := handWritten(
		&feature.DataTypeDefinition{Identifier: "Blob", DisplayName: "Blob", Description: "Raw bytes", DataType: blob},
		&feature.Command{
			Identifier: "Upload", DisplayName: "Upload", Description: "Uploads",
			Parameters: []*feature.Element{
				param("Raw", blob),
				param("Named", &feature.Reference{Identifier: "Blob"}),
				param("Many", &feature.List{Elem: blob}),
				param("Label", &feature.Basic{Kind: feature.String}),
			},
		},
	)
	u, err := generator.Emit(def, nil, cu.KindServer, "widget")
	require.NoError(t, err)
	register := u.Type("WidgetServer").Method("Register")
	require.NotNil(t, register)

	lists := cu.Find[*cu.ListLit](register)
	require.Len(t, lists, 1)
	var want []cu.Expr
	for _, p := range []string{"Raw", "Named", "Many"} {
		want = append(want, cu.Str(def.ParameterIdentifier("Upload", p)))
	}
	assert.Equal(t, want, lists[0].Items)
}
