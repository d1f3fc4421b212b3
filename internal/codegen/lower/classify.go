package lower

import (
	"fmt"

	"github.com/Alia5/featurec/internal/host"
)

// Classification is the recognized shape of a method's return type.
type Classification struct {
	Shape host.Shape
	// Response is the final value type, nil when there is none.
	Response host.Type
	// Intermediate is the intermediate value type, nil when there is none.
	Intermediate host.Type
}

// Observable reports whether the shape implies an observable command.
func (c Classification) Observable() bool {
	switch c.Shape {
	case host.ShapeVoid, host.ShapeSync:
		return false
	}
	return true
}

// ClassifyReturn recognizes the return shape of t. First match wins.
func ClassifyReturn(t host.Type) (Classification, error) {
	if t == nil || t.Kind() == host.KindVoid {
		return Classification{Shape: host.ShapeVoid}, nil
	}
	args := t.TypeArgs()
	switch t.Family() {
	case host.FamilyObservableCommand:
		switch len(args) {
		case 0:
			return Classification{Shape: host.ShapeObservable}, nil
		case 1:
			return Classification{Shape: host.ShapeObservableResult, Response: args[0]}, nil
		}
	case host.FamilyIntermediateCommand:
		switch len(args) {
		case 1:
			return Classification{Shape: host.ShapeIntermediate, Intermediate: args[0]}, nil
		case 2:
			return Classification{Shape: host.ShapeIntermediateResult, Intermediate: args[0], Response: args[1]}, nil
		}
	case host.FamilyTask:
		switch len(args) {
		case 0:
			return Classification{Shape: host.ShapeTask}, nil
		case 1:
			return Classification{Shape: host.ShapeTask, Response: voidToNil(args[0])}, nil
		}
	case host.FamilyStream:
		if len(args) == 1 {
			return Classification{Shape: host.ShapeStream, Intermediate: args[0]}, nil
		}
	case host.FamilyCancellation, host.FamilyInterceptor, host.FamilyArgumentError, host.FamilyError:
		return Classification{}, fmt.Errorf("%w: %s cannot be returned", ErrUnsupportedMember, t.Name())
	case host.FamilyNone:
		return Classification{Shape: host.ShapeSync, Response: t}, nil
	}
	return Classification{}, fmt.Errorf("%w: %s has %d type arguments", ErrUnsupportedMember, t.Name(), len(args))
}

func voidToNil(t host.Type) host.Type {
	if t == nil || t.Kind() == host.KindVoid {
		return nil
	}
	return t
}
