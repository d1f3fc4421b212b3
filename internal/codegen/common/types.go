package common

import (
	"strings"

	cu "github.com/Alia5/featurec/internal/codeunit"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/host"
)

// NormalizeGoType strips pointer and slice prefixes from a Go type string
// and reports whether the original type was a slice or pointer.
// Examples: "*MyType" -> ("MyType", false, true), "[]uint8" -> ("uint8", true, false)
func NormalizeGoType(goType string) (base string, isSlice bool, isPointer bool) {
	base = goType
	if strings.HasPrefix(base, "*") {
		base = strings.TrimPrefix(base, "*")
		isPointer = true
	}
	if strings.HasPrefix(base, "[]") {
		base = strings.TrimPrefix(base, "[]")
		isSlice = true
	}
	return
}

// TypeRefOf parses a Go type string such as "[]*pkg.T" into a type reference.
func TypeRefOf(goType string) cu.TypeRef {
	base, isSlice, isPointer := NormalizeGoType(goType)
	var t cu.TypeRef
	if isSlice {
		t = cu.ListOf(TypeRefOf(base))
	} else {
		t = cu.Named(base)
	}
	if isPointer {
		t = cu.PointerTo(t)
	}
	return t
}

var primitives = map[feature.BasicKind]host.Primitive{
	feature.String:    host.PrimitiveString,
	feature.Integer:   host.PrimitiveInteger,
	feature.Real:      host.PrimitiveReal,
	feature.Boolean:   host.PrimitiveBoolean,
	feature.Binary:    host.PrimitiveBinary,
	feature.Date:      host.PrimitiveDate,
	feature.Time:      host.PrimitiveTime,
	feature.Timestamp: host.PrimitiveTimestamp,
	feature.Any:       host.PrimitiveAny,
}

// BasicType is the canonical host type of a basic kind.
func BasicType(k feature.BasicKind) cu.TypeRef {
	return TypeRefOf(host.CanonicalTypeName(primitives[k]))
}

// HostType is the type dt takes in interface and client signatures.
// override is the concrete host type recorded for the position and pos
// names inline structures found there.
func (s *Source) HostType(dt feature.DataType, override, pos string) cu.TypeRef {
	switch t := feature.Unconstrained(dt).(type) {
	case *feature.Basic:
		if override != "" {
			return TypeRefOf(override)
		}
		return BasicType(t.Kind)
	case *feature.List:
		elem, isSlice, _ := NormalizeGoType(override)
		if !isSlice {
			elem = ""
		}
		return cu.ListOf(s.HostType(t.Elem, elem, pos))
	case *feature.Structure:
		return cu.Named(AnonymousType(pos))
	case *feature.Reference:
		return cu.Named(s.TypeName(t.Identifier))
	}
	return cu.Named("any")
}

// DtoType is the type dt takes inside transfer objects.
func (s *Source) DtoType(dt feature.DataType, pos string) cu.TypeRef {
	switch t := feature.Unconstrained(dt).(type) {
	case *feature.Basic:
		return BasicType(t.Kind)
	case *feature.List:
		return cu.ListOf(s.DtoType(t.Elem, pos))
	case *feature.Structure:
		return cu.PointerTo(cu.Named(AnonymousDto(pos)))
	case *feature.Reference:
		return cu.PointerTo(cu.Named(TypeDto(t.Identifier)))
	}
	return cu.Named("any")
}

// Nilable reports whether a transfer object field of type dt can be absent.
func Nilable(dt feature.DataType) bool {
	switch t := feature.Unconstrained(dt).(type) {
	case *feature.Basic:
		return t.Kind == feature.Binary || t.Kind == feature.Any
	case *feature.List, *feature.Structure, *feature.Reference:
		return true
	}
	return false
}

// ToDto converts the host value x at a position into its transfer form.
// It returns x itself when no conversion is needed.
func (s *Source) ToDto(dt feature.DataType, override, pos string, x cu.Expr) cu.Expr {
	return s.convert(dt, override, pos, x, true)
}

// FromDto converts the transfer value x back into its host form.
func (s *Source) FromDto(dt feature.DataType, override, pos string, x cu.Expr) cu.Expr {
	return s.convert(dt, override, pos, x, false)
}

func (s *Source) convert(dt feature.DataType, override, pos string, x cu.Expr, toDto bool) cu.Expr {
	switch t := feature.Unconstrained(dt).(type) {
	case *feature.Basic:
		if override == "" || TypeRefOf(override).String() == BasicType(t.Kind).String() {
			return x
		}
		if toDto {
			return &cu.Cast{Type: BasicType(t.Kind), X: x}
		}
		return &cu.Cast{Type: TypeRefOf(override), X: x}
	case *feature.Structure:
		if toDto {
			return cu.CallOf(cu.Id(DtoConstructor(AnonymousDto(pos))), x)
		}
		return cu.CallOf(cu.Dot(x, ExtractMethod))
	case *feature.Reference:
		if toDto {
			return cu.CallOf(cu.Id(DtoConstructor(TypeDto(t.Identifier))), x)
		}
		return cu.CallOf(cu.Dot(x, ExtractMethod))
	case *feature.List:
		elemOverride, isSlice, _ := NormalizeGoType(override)
		if !isSlice {
			elemOverride = ""
		}
		v := cu.Id("v")
		conv := s.convert(t.Elem, elemOverride, pos, v, toDto)
		if conv == cu.Expr(v) {
			return x
		}
		in, out := s.HostType(t.Elem, elemOverride, pos), s.DtoType(t.Elem, pos)
		if !toDto {
			in, out = out, in
		}
		return cu.CallOf(cu.Q("apitypes", "MapSlice"), x, &cu.Lambda{
			Params:  []cu.Param{{Name: "v", Type: in}},
			Results: []cu.Param{{Type: out}},
			Body:    []cu.Stmt{cu.Ret(conv)},
		})
	}
	return x
}
