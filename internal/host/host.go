// Package host describes types of an implementation language in a
// language-neutral way. Adapters such as the Go scanner produce these
// descriptors and the lowering engine consumes them.
package host

import "strings"

// Kind classifies a type descriptor.
type Kind int

const (
	KindVoid Kind = iota
	KindPrimitive
	KindEnum
	KindStruct
	KindList
	KindTuple
	KindInterface
	KindOpaque
)

func (k Kind) String() string {
	return [...]string{"void", "primitive", "enum", "struct", "list", "tuple", "interface", "opaque"}[k]
}

// Primitive identifies the basic value a primitive type carries.
type Primitive int

const (
	PrimitiveNone Primitive = iota
	PrimitiveString
	PrimitiveInteger
	PrimitiveReal
	PrimitiveBoolean
	PrimitiveBinary
	PrimitiveDate
	PrimitiveTime
	PrimitiveTimestamp
	PrimitiveAny
)

// CanonicalTypeName is the host type name used for a primitive when no
// override is recorded.
func CanonicalTypeName(p Primitive) string {
	switch p {
	case PrimitiveString:
		return "string"
	case PrimitiveInteger:
		return "int64"
	case PrimitiveReal:
		return "float64"
	case PrimitiveBoolean:
		return "bool"
	case PrimitiveBinary:
		return "[]byte"
	case PrimitiveDate:
		return "apitypes.Date"
	case PrimitiveTime:
		return "apitypes.TimeOfDay"
	case PrimitiveTimestamp:
		return "time.Time"
	}
	return "any"
}

// Family marks types recognized by the role they play rather than their
// structure: command handles, cancellation carriers and the like.
type Family int

const (
	FamilyNone Family = iota
	// FamilyObservableCommand has zero or one type argument (the result).
	FamilyObservableCommand
	// FamilyIntermediateCommand has one type argument (intermediate) or
	// two (intermediate, result).
	FamilyIntermediateCommand
	// FamilyTask has zero or one type argument.
	FamilyTask
	// FamilyStream has one type argument, the element.
	FamilyStream
	FamilyCancellation
	FamilyInterceptor
	FamilyArgumentError
	FamilyError
)

// Type is a host type descriptor.
type Type interface {
	Annotated
	// Name is the short type name.
	Name() string
	// QualifiedName includes the declaring package or namespace.
	QualifiedName() string
	Kind() Kind
	Primitive() Primitive
	Family() Family
	TypeArgs() []Type
	// Elem is the element type of lists.
	Elem() Type
	EnumValues() []string
	// Members are the instance and static members in declaration order.
	Members() []*Member
	Constructors() []*Member
	// Factories are static methods returning the type.
	Factories() []*Member
	Doc() string
}

type MemberKind int

const (
	MemberMethod MemberKind = iota
	MemberProperty
	MemberField
)

// Member is a method, property or field of a type.
type Member struct {
	Name string
	Kind MemberKind
	// Type is the property or field type, or the method's return type.
	Type     Type
	Params   []*Param
	Readable bool
	Writable bool
	Static   bool
	Doc      string

	Annotations       Annotations
	ReturnAnnotations Annotations
}

func (m *Member) AnnotationSet() Annotations { return m.Annotations }

type Param struct {
	Name        string
	Type        Type
	Doc         string
	Annotations Annotations
}

func (p *Param) AnnotationSet() Annotations { return p.Annotations }

// Return views the annotations attached to a method's return value.
func Return(m *Member) Annotated { return returnValue{m} }

type returnValue struct{ m *Member }

func (r returnValue) AnnotationSet() Annotations { return r.m.ReturnAnnotations }

// Merge views the annotations of several targets as one; later targets win.
func Merge(targets ...Annotated) Annotated {
	var out Annotations
	for i := len(targets) - 1; i >= 0; i-- {
		if targets[i] != nil {
			out = append(out, targets[i].AnnotationSet()...)
		}
	}
	return out
}

// Signature renders the parameter types of m, e.g. "(string,int)".
func Signature(m *Member) string {
	parts := make([]string, len(m.Params))
	for i, p := range m.Params {
		parts[i] = p.Type.Name()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// ConstructorsByArity returns the constructors of t, most parameters first.
// Ties keep declaration order.
func ConstructorsByArity(ms []*Member) []*Member {
	out := append([]*Member(nil), ms...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && len(out[j].Params) > len(out[j-1].Params); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
