package host_test

import (
	"testing"

	"github.com/Alia5/featurec/internal/host"
	"github.com/stretchr/testify/assert"
)

func TestReaderLooksUpAnnotations(t *testing.T) {
	str := host.Prim("string", host.PrimitiveString)
	m := host.Method("Greet", str, host.NewParam("name", str, host.Mark(host.AnnotationMaxLength, "8"))).
		With(host.Mark(host.AnnotationIdentifier, "SayHello"), host.Mark(host.AnnotationThrows, "A"), host.Mark(host.AnnotationThrows, "B"))

	var r host.AttributeReader = host.Reader{}
	an, ok := r.Attribute(m, host.AnnotationIdentifier)
	assert.True(t, ok)
	assert.Equal(t, "SayHello", an.Value)
	assert.Len(t, r.Attributes(m, host.AnnotationThrows), 2)

	an, ok = r.Attribute(m.Params[0], host.AnnotationMaxLength)
	assert.True(t, ok)
	assert.Equal(t, "8", an.Value)

	_, ok = r.Attribute(host.Return(m), host.AnnotationIdentifier)
	assert.False(t, ok)
}

func TestMergePrefersLaterTargets(t *testing.T) {
	a := host.Annotations{host.Mark(host.AnnotationPattern, "a"), host.Mark(host.AnnotationUnit, "m")}
	b := host.Annotations{host.Mark(host.AnnotationPattern, "b")}
	merged := host.Merge(a, b)
	an, _ := host.Reader{}.Attribute(merged, host.AnnotationPattern)
	assert.Equal(t, "b", an.Value)
	an, _ = host.Reader{}.Attribute(merged, host.AnnotationUnit)
	assert.Equal(t, "m", an.Value)
}

func TestConstructorsByArity(t *testing.T) {
	i := host.Prim("int", host.PrimitiveInteger)
	one := host.Method("a", nil, host.NewParam("x", i))
	two := host.Method("b", nil, host.NewParam("x", i), host.NewParam("y", i))
	otherOne := host.Method("c", nil, host.NewParam("x", i))
	got := host.ConstructorsByArity([]*host.Member{one, two, otherOne})
	assert.Equal(t, []*host.Member{two, one, otherOne}, got)
	assert.Equal(t, "(int,int)", host.Signature(two))
}

func TestShapeNames(t *testing.T) {
	for s := host.ShapeVoid; s <= host.ShapeStream; s++ {
		back, ok := host.ParseShape(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, back)
	}
}
