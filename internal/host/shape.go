package host

import "fmt"

// Shape is the return form of a command member.
type Shape int

const (
	// ShapeVoid returns nothing and completes synchronously.
	ShapeVoid Shape = iota
	// ShapeSync returns a value synchronously.
	ShapeSync
	// ShapeObservable is a bare observable handle without result.
	ShapeObservable
	// ShapeObservableResult is an observable handle with a result.
	ShapeObservableResult
	// ShapeIntermediate reports intermediate values and no result.
	ShapeIntermediate
	// ShapeIntermediateResult reports intermediate values and a result.
	ShapeIntermediateResult
	// ShapeTask is a background task with or without result.
	ShapeTask
	// ShapeStream is an asynchronous sequence of values.
	ShapeStream
)

var shapeNames = [...]string{"void", "sync", "observable", "observable-result", "intermediate", "intermediate-result", "task", "stream"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// ParseShape is the inverse of Shape.String.
func ParseShape(s string) (Shape, bool) {
	for i, n := range shapeNames {
		if n == s {
			return Shape(i), true
		}
	}
	return 0, false
}
