package codeunit_test

import (
	"testing"

	cu "github.com/Alia5/featurec/internal/codeunit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportsStaySortedAndUnique(t *testing.T) {
	u := &cu.Unit{}
	for _, p := range []string{"time", "context", "github.com/x/y", "context", "apitypes"} {
		u.Import(p)
	}
	assert.Equal(t, []string{"apitypes", "context", "github.com/x/y", "time"}, u.Imports)
}

func TestAddRejectsDuplicateNames(t *testing.T) {
	u := &cu.Unit{}
	require.NoError(t, u.Add(&cu.TypeDecl{Name: "Point"}))
	assert.ErrorIs(t, u.Add(&cu.Method{Name: "Point"}), cu.ErrDuplicateDecl)
	assert.NotNil(t, u.Type("Point"))
	assert.Nil(t, u.Func("Point"))
}

func TestCallsAndPrint(t *testing.T) {
	u := &cu.Unit{Kind: cu.KindDTO, Namespace: "greeter"}
	u.Import("github.com/Alia5/featurec/apitypes")
	body := []cu.Stmt{
		&cu.Var{Name: "problems", Type: cu.ListOf(cu.Named("string"))},
		cu.Set(cu.Id("problems"), cu.CallOf(cu.Id("append"), cu.Id("problems"),
			&cu.Unary{Op: "...", X: cu.CallOf(cu.Q("apitypes", "CheckMaximalLength"), cu.Str("Name"), cu.Self("Name"), cu.Int(16))})),
		cu.Ret(cu.Id("problems")),
	}
	require.NoError(t, u.Add(&cu.TypeDecl{
		Name:   "SayHelloRequestDto",
		Fields: []*cu.Field{{Name: "Name", Type: cu.Named("string"), Wire: "Name"}},
		Methods: []*cu.Method{{
			Name:    "Validate",
			Results: []cu.Param{{Name: "problems", Type: cu.ListOf(cu.Named("string"))}},
			Body:    body,
		}},
	}))

	calls := cu.Calls(u, "apitypes.CheckMaximalLength")
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].Args, 3)

	out := cu.Sprint(u)
	assert.Contains(t, out, "unit dto greeter")
	assert.Contains(t, out, `import "github.com/Alia5/featurec/apitypes"`)
	assert.Contains(t, out, "struct SayHelloRequestDto {")
	assert.Contains(t, out, `problems = append(problems, ...apitypes.CheckMaximalLength("Name", this.Name, 16))`)
	assert.Equal(t, out, cu.Sprint(u), "printing is deterministic")
}

func TestTypeRefString(t *testing.T) {
	ref := cu.PointerTo(cu.Named("apitypes.Observable", cu.ListOf(cu.Named("int64"))))
	assert.Equal(t, "*apitypes.Observable[[]int64]", ref.String())
}
