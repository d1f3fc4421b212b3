package dto

import (
	"strconv"
	"time"

	cu "github.com/Alia5/featurec/internal/codeunit"
	"github.com/Alia5/featurec/internal/codegen/common"
	"github.com/Alia5/featurec/internal/codegen/feature"
)

const problems = "problems"

func appendProblems(x cu.Expr) cu.Stmt {
	return cu.Set(cu.Id(problems), cu.CallOf(cu.Id("append"), cu.Id(problems), &cu.Unary{Op: "...", X: x}))
}

func check(name string, args ...cu.Expr) cu.Stmt {
	return appendProblems(cu.CallOf(cu.Q("apitypes", name), args...))
}

// validateBody returns the statements checking every slot. Nilable slots
// are required.
func validateBody(slots []slot) []cu.Stmt {
	body := []cu.Stmt{&cu.Var{Name: problems, Type: cu.ListOf(cu.Named("string"))}}
	for _, s := range slots {
		x := cu.Self(s.field)
		nested := checks(s.label, s.dt, x)
		if !common.Nilable(s.dt) {
			body = append(body, nested...)
			continue
		}
		missing := cu.Set(cu.Id(problems), cu.CallOf(cu.Id("append"), cu.Id(problems), cu.Str(s.label+" is required")))
		body = append(body, &cu.If{Cond: cu.IsNil(x), Then: []cu.Stmt{missing}, Else: nested})
	}
	return append(body, cu.Ret(cu.Id(problems)))
}

// checks evaluates the constraints of dt against x.
func checks(label string, dt feature.DataType, x cu.Expr) []cu.Stmt {
	switch t := dt.(type) {
	case *feature.Constrained:
		if _, ok := t.Base.(*feature.List); ok {
			return append(countChecks(label, t.Constraints, x), checks(label, t.Base, x)...)
		}
		k, _ := feature.BaseKind(t.Base)
		return facetChecks(label, k, t.Constraints, x)
	case *feature.List:
		inner := checks(label, t.Elem, cu.Id("item"))
		if len(inner) == 0 {
			return nil
		}
		return []cu.Stmt{&cu.ForEach{Key: "_", Value: "item", Over: x, Body: inner}}
	case *feature.Reference, *feature.Structure:
		return []cu.Stmt{&cu.If{Cond: cu.NotNil(x), Then: []cu.Stmt{appendProblems(cu.CallOf(cu.Dot(x, common.ValidateMethod)))}}}
	}
	return nil
}

func countChecks(label string, cs feature.Constraints, x cu.Expr) []cu.Stmt {
	var out []cu.Stmt
	n := cu.CallOf(cu.Id("len"), x)
	if cs.MinimalElementCount != nil {
		out = append(out, check("CheckMinimalElementCount", cu.Str(label), n, cu.Int(*cs.MinimalElementCount)))
	}
	if cs.MaximalElementCount != nil {
		out = append(out, check("CheckMaximalElementCount", cu.Str(label), n, cu.Int(*cs.MaximalElementCount)))
	}
	return out
}

var timeLayouts = map[feature.BasicKind]string{
	feature.Date:      time.DateOnly,
	feature.Time:      time.TimeOnly,
	feature.Timestamp: time.RFC3339,
}

func facetChecks(label string, k feature.BasicKind, cs feature.Constraints, x cu.Expr) []cu.Stmt {
	var out []cu.Stmt
	l := cu.Str(label)
	if cs.Length != nil {
		out = append(out, check("CheckLength", l, x, cu.Int(*cs.Length)))
	}
	if cs.MinimalLength != nil {
		out = append(out, check("CheckMinimalLength", l, x, cu.Int(*cs.MinimalLength)))
	}
	if cs.MaximalLength != nil {
		out = append(out, check("CheckMaximalLength", l, x, cu.Int(*cs.MaximalLength)))
	}
	if cs.Pattern != "" {
		out = append(out, check("CheckPattern", l, x, cu.Str(cs.Pattern)))
	}
	if len(cs.Set) > 0 {
		args := []cu.Expr{l, x}
		for _, v := range cs.Set {
			args = append(args, cu.Str(v))
		}
		out = append(out, check("CheckSet", args...))
	}
	if cs.FullyQualifiedIdentifier != "" {
		out = append(out, check("CheckFullyQualifiedIdentifier", l, x, cu.Str(cs.FullyQualifiedIdentifier)))
	}

	bounds := []struct {
		value            string
		numeric          string
		minimum, exclude bool
	}{
		{cs.MinimalInclusive, "CheckMinimalInclusive", true, false},
		{cs.MaximalInclusive, "CheckMaximalInclusive", false, false},
		{cs.MinimalExclusive, "CheckMinimalExclusive", true, true},
		{cs.MaximalExclusive, "CheckMaximalExclusive", false, true},
	}
	for _, b := range bounds {
		if b.value == "" {
			continue
		}
		if layout, ok := timeLayouts[k]; ok {
			v := x
			if k != feature.Timestamp {
				v = cu.CallOf(cu.Dot(x, "Time"))
			}
			fn := "CheckTimeMaximal"
			if b.minimum {
				fn = "CheckTimeMinimal"
			}
			bound := cu.CallOf(cu.Q("apitypes", "MustTime"), cu.Str(layout), cu.Str(b.value))
			out = append(out, check(fn, l, v, bound, &cu.Lit{Value: b.exclude}))
			continue
		}
		if lit, ok := numberLiteral(k, b.value); ok {
			out = append(out, check(b.numeric, l, x, lit))
		}
	}
	return out
}

func numberLiteral(k feature.BasicKind, s string) (*cu.Lit, bool) {
	if k == feature.Integer {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &cu.Lit{Value: i}, true
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || k != feature.Real && k != feature.Integer {
		return nil, false
	}
	if k == feature.Integer {
		return &cu.Lit{Value: int64(f)}, true
	}
	return &cu.Lit{Value: f}, true
}
