package feature

// DataType is implemented by *Basic, *Constrained, *List, *Structure and
// *Reference only.
type DataType interface{ isDataType() }

type BasicKind string

const (
	String    BasicKind = "String"
	Integer   BasicKind = "Integer"
	Real      BasicKind = "Real"
	Boolean   BasicKind = "Boolean"
	Binary    BasicKind = "Binary"
	Date      BasicKind = "Date"
	Time      BasicKind = "Time"
	Timestamp BasicKind = "Timestamp"
	Any       BasicKind = "Any"
)

var basicKinds = []BasicKind{String, Integer, Real, Boolean, Binary, Date, Time, Timestamp, Any}

// ParseBasicKind returns the kind named s.
func ParseBasicKind(s string) (BasicKind, bool) {
	for _, k := range basicKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

type Basic struct{ Kind BasicKind }

// Constrained restricts a Basic or List base type.
type Constrained struct {
	Base        DataType
	Constraints Constraints
}

type List struct{ Elem DataType }

// Structure is an anonymous record of elements.
type Structure struct{ Elements []*Element }

// Reference names a DataTypeDefinition of the same feature.
type Reference struct{ Identifier string }

func (*Basic) isDataType()       {}
func (*Constrained) isDataType() {}
func (*List) isDataType()        {}
func (*Structure) isDataType()   {}
func (*Reference) isDataType()   {}

// Walk calls fn for dt and every data type nested in it, parents first.
func Walk(dt DataType, fn func(DataType)) {
	if dt == nil {
		return
	}
	fn(dt)
	switch t := dt.(type) {
	case *Constrained:
		Walk(t.Base, fn)
	case *List:
		Walk(t.Elem, fn)
	case *Structure:
		for _, el := range t.Elements {
			Walk(el.DataType, fn)
		}
	}
}

// References lists the data type identifiers dt refers to, in first-use order.
func References(dt DataType) []string {
	var out []string
	seen := map[string]bool{}
	Walk(dt, func(t DataType) {
		if r, ok := t.(*Reference); ok && !seen[r.Identifier] {
			seen[r.Identifier] = true
			out = append(out, r.Identifier)
		}
	})
	return out
}

// BaseKind unwraps constraints and reports the basic kind underneath, if any.
func BaseKind(dt DataType) (BasicKind, bool) {
	for {
		switch t := dt.(type) {
		case *Basic:
			return t.Kind, true
		case *Constrained:
			dt = t.Base
		default:
			return "", false
		}
	}
}

// Unconstrained strips any constraint wrappers from dt.
func Unconstrained(dt DataType) DataType {
	for {
		c, ok := dt.(*Constrained)
		if !ok {
			return dt
		}
		dt = c.Base
	}
}
