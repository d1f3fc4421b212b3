package host

// Descriptor is a plain in-memory Type. Adapters fill it in; tests build it
// with the helpers below.
type Descriptor struct {
	TypeName      string
	Package       string
	TypeKind      Kind
	Prim          Primitive
	Fam           Family
	Args          []Type
	ElemType      Type
	Values        []string
	MemberList    []*Member
	Ctors         []*Member
	Statics       []*Member
	Attrs         Annotations
	Documentation string
}

func (d *Descriptor) Name() string { return d.TypeName }

func (d *Descriptor) QualifiedName() string {
	if d.Package == "" {
		return d.TypeName
	}
	return d.Package + "." + d.TypeName
}

func (d *Descriptor) Kind() Kind                 { return d.TypeKind }
func (d *Descriptor) Primitive() Primitive       { return d.Prim }
func (d *Descriptor) Family() Family             { return d.Fam }
func (d *Descriptor) TypeArgs() []Type           { return d.Args }
func (d *Descriptor) Elem() Type                 { return d.ElemType }
func (d *Descriptor) EnumValues() []string       { return d.Values }
func (d *Descriptor) Members() []*Member         { return d.MemberList }
func (d *Descriptor) Constructors() []*Member    { return d.Ctors }
func (d *Descriptor) Factories() []*Member       { return d.Statics }
func (d *Descriptor) AnnotationSet() Annotations { return d.Attrs }
func (d *Descriptor) Doc() string                { return d.Documentation }

// Void is the descriptor of "no value".
var Void Type = &Descriptor{TypeName: "void", TypeKind: KindVoid}

// Prim returns a primitive descriptor named name.
func Prim(name string, p Primitive) *Descriptor {
	return &Descriptor{TypeName: name, TypeKind: KindPrimitive, Prim: p}
}

func ListOf(elem Type) *Descriptor {
	return &Descriptor{TypeName: "[]" + elem.Name(), TypeKind: KindList, ElemType: elem}
}

func Enum(pkg, name string, values ...string) *Descriptor {
	return &Descriptor{TypeName: name, Package: pkg, TypeKind: KindEnum, Values: values}
}

// Generic returns a role-marked type such as a command handle.
func Generic(name string, fam Family, args ...Type) *Descriptor {
	return &Descriptor{TypeName: name, TypeKind: KindOpaque, Fam: fam, Args: args}
}

// Struct returns an empty struct descriptor to be filled with members.
func Struct(pkg, name string) *Descriptor {
	return &Descriptor{TypeName: name, Package: pkg, TypeKind: KindStruct}
}

// Interface returns an interface descriptor with the given members.
func Interface(pkg, name string, members ...*Member) *Descriptor {
	return &Descriptor{TypeName: name, Package: pkg, TypeKind: KindInterface, MemberList: members}
}

// Method builds a method member.
func Method(name string, result Type, params ...*Param) *Member {
	if result == nil {
		result = Void
	}
	return &Member{Name: name, Kind: MemberMethod, Type: result, Params: params, Readable: true}
}

// Property builds a readable, optionally writable property member.
func Property(name string, t Type, writable bool) *Member {
	return &Member{Name: name, Kind: MemberProperty, Type: t, Readable: true, Writable: writable}
}

func NewParam(name string, t Type, annotations ...Annotation) *Param {
	return &Param{Name: name, Type: t, Annotations: annotations}
}

// With appends annotations to m and returns it.
func (m *Member) With(annotations ...Annotation) *Member {
	m.Annotations = append(m.Annotations, annotations...)
	return m
}

// Mark is shorthand for a value annotation.
func Mark(kind AnnotationKind, value string) Annotation {
	return Annotation{Kind: kind, Value: value}
}

// MarkType is shorthand for an annotation carrying a type argument.
func MarkType(kind AnnotationKind, t Type) Annotation {
	return Annotation{Kind: kind, Type: t}
}
