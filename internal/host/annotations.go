package host

// AnnotationKind names a declarative marker on a host type, member or parameter.
type AnnotationKind string

const (
	AnnotationIdentifier     AnnotationKind = "identifier"
	AnnotationDisplayName    AnnotationKind = "display-name"
	AnnotationDescription    AnnotationKind = "description"
	AnnotationObservable     AnnotationKind = "observable"
	AnnotationThrows         AnnotationKind = "throws"
	AnnotationDocumentedErr  AnnotationKind = "documented-error"
	AnnotationMetadataType   AnnotationKind = "metadata-type"
	AnnotationLazy           AnnotationKind = "lazy"
	AnnotationPattern        AnnotationKind = "pattern"
	AnnotationLength         AnnotationKind = "length"
	AnnotationMinLength      AnnotationKind = "min-length"
	AnnotationMaxLength      AnnotationKind = "max-length"
	AnnotationMinInclusive   AnnotationKind = "min-inclusive"
	AnnotationMaxInclusive   AnnotationKind = "max-inclusive"
	AnnotationMinExclusive   AnnotationKind = "min-exclusive"
	AnnotationMaxExclusive   AnnotationKind = "max-exclusive"
	AnnotationUnit           AnnotationKind = "unit"
	AnnotationContentType    AnnotationKind = "content-type"
	AnnotationSchema         AnnotationKind = "schema"
	AnnotationIdentifierKind AnnotationKind = "identifier-kind"
	AnnotationMinElements    AnnotationKind = "min-elements"
	AnnotationMaxElements    AnnotationKind = "max-elements"
	AnnotationOriginator     AnnotationKind = "originator"
	AnnotationCategory       AnnotationKind = "category"
	AnnotationVersion        AnnotationKind = "version"
	AnnotationMaturity       AnnotationKind = "maturity"
)

// Annotation is one marker. Value carries textual arguments; Type carries a
// type argument such as the exception named by a throws marker.
type Annotation struct {
	Kind  AnnotationKind
	Value string
	Type  Type
}

type Annotations []Annotation

func (a Annotations) AnnotationSet() Annotations { return a }

// Lookup returns the first annotation of kind.
func (a Annotations) Lookup(kind AnnotationKind) (Annotation, bool) {
	for _, an := range a {
		if an.Kind == kind {
			return an, true
		}
	}
	return Annotation{}, false
}

// All returns every annotation of kind in declaration order.
func (a Annotations) All(kind AnnotationKind) []Annotation {
	var out []Annotation
	for _, an := range a {
		if an.Kind == kind {
			out = append(out, an)
		}
	}
	return out
}

// Annotated is anything annotations can be read from.
type Annotated interface {
	AnnotationSet() Annotations
}

// AttributeReader fetches annotations from descriptors. It is the one seam
// through which lowering sees markers, so adapters can substitute their own.
type AttributeReader interface {
	Attribute(target Annotated, kind AnnotationKind) (Annotation, bool)
	Attributes(target Annotated, kind AnnotationKind) []Annotation
}

// Reader reads the annotations stored on the descriptors themselves.
type Reader struct{}

func (Reader) Attribute(target Annotated, kind AnnotationKind) (Annotation, bool) {
	if target == nil {
		return Annotation{}, false
	}
	return target.AnnotationSet().Lookup(kind)
}

func (Reader) Attributes(target Annotated, kind AnnotationKind) []Annotation {
	if target == nil {
		return nil
	}
	return target.AnnotationSet().All(kind)
}
