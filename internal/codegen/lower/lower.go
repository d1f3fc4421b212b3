// Package lower turns a host type descriptor and a member configuration into
// a feature definition plus the registry that maps its items back to host
// members.
package lower

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Alia5/featurec/internal/codegen/common"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/host"
	"github.com/Alia5/featurec/internal/registry"
	"github.com/Alia5/featurec/internal/resolve"
)

var (
	// ErrUnsupportedMember skips the member it occurs in.
	ErrUnsupportedMember = errors.New("unsupported member")
	// ErrConfigContradiction aborts lowering.
	ErrConfigContradiction = errors.New("configuration contradiction")
	// ErrUnlowerableType skips the first member referencing the type and
	// aborts when another member references it too.
	ErrUnlowerableType = errors.New("unlowerable type")
	// ErrDanglingReference aborts lowering.
	ErrDanglingReference = feature.ErrDanglingReference
	// ErrDependencyCycle aborts lowering in strict ordering mode.
	ErrDependencyCycle = errors.New("data type dependency cycle")
)

// MemberError attributes a failure to the host member being lowered.
type MemberError struct {
	Member string
	Err    error
}

func (e *MemberError) Error() string { return e.Member + ": " + e.Err.Error() }
func (e *MemberError) Unwrap() error { return e.Err }

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func fatal(err error) error { return &fatalError{err} }

func isFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe) || errors.Is(err, ErrConfigContradiction) || errors.Is(err, ErrDanglingReference)
}

// Skipped is a member left out of the feature and why.
type Skipped struct {
	Member string
	Err    error
}

type Result struct {
	Feature *feature.Definition
	// Registry is frozen.
	Registry *registry.Registry
	Skipped  []Skipped
	Warnings []string
}

type options struct {
	resolver resolve.Resolver
	reader   host.AttributeReader
	logger   *slog.Logger
	registry *registry.Registry
	strict   bool
}

type Option func(*options)

// WithResolver sets the ambiguity resolver. The default never asks.
func WithResolver(r resolve.Resolver) Option { return func(o *options) { o.resolver = r } }

// WithReader replaces the annotation reader.
func WithReader(r host.AttributeReader) Option { return func(o *options) { o.reader = r } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithRegistry records into reg instead of a fresh registry.
func WithRegistry(reg *registry.Registry) Option { return func(o *options) { o.registry = reg } }

// WithStrictOrdering orders data types topologically and fails on cycles.
func WithStrictOrdering() Option { return func(o *options) { o.strict = true } }

// Lower lowers root, an interface or struct descriptor, into a feature.
func Lower(root host.Type, spec *Spec, opts ...Option) (*Result, error) {
	o := options{reader: host.Reader{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resolver == nil {
		o.resolver = resolve.Default{Logger: o.logger}
	}
	if o.registry == nil {
		o.registry = registry.New()
	}
	if spec == nil {
		spec = &Spec{}
	}
	if root == nil || root.Kind() != host.KindInterface && root.Kind() != host.KindStruct {
		return nil, fmt.Errorf("%w: root must be an interface or struct type", ErrUnsupportedMember)
	}
	l := &lowerer{
		o:           o,
		root:        root,
		spec:        spec,
		result:      &Result{},
		ids:         map[feature.ItemKind]map[string]bool{},
		typeEntries: map[string]*typeEntry{},
		errorOwners: map[string]string{},
		failed:      map[string]*failure{},
	}
	return l.run()
}

type lowerer struct {
	o      options
	root   host.Type
	spec   *Spec
	def    *feature.Definition
	result *Result

	members []feature.Item
	errs    []*feature.DefinedExecutionError
	types   []*typeEntry

	ids         map[feature.ItemKind]map[string]bool
	typeEntries map[string]*typeEntry
	errorOwners map[string]string
	failed      map[string]*failure

	cur *stage
}

// stage collects everything one member produces so a failing member leaves
// no trace.
type stage struct {
	member    string
	items     []feature.Item
	types     []*typeEntry
	byID      map[string]*typeEntry
	errs      []*feature.DefinedExecutionError
	errOwners map[string]string
	writes    []func(*registry.Registry) error
}

type failure struct {
	err     error
	members []string
}

func (l *lowerer) run() (*Result, error) {
	if err := l.header(); err != nil {
		return nil, err
	}
	for _, g := range groupMembers(l.root.Members()) {
		if err := l.memberGroup(g); err != nil {
			return nil, err
		}
	}

	ordered, err := l.orderTypes()
	if err != nil {
		return nil, err
	}
	for _, it := range l.members {
		if err := l.def.Add(it); err != nil {
			return nil, fatal(err)
		}
	}
	for _, e := range l.errs {
		if err := l.def.Add(e); err != nil {
			return nil, fatal(err)
		}
	}
	for _, t := range ordered {
		if err := l.def.Add(t); err != nil {
			return nil, fatal(err)
		}
	}
	if err := l.def.Check(); err != nil {
		return nil, fmt.Errorf("lowered feature %s: %w", l.def.Identifier, err)
	}

	l.result.Feature = l.def
	l.result.Registry = l.o.registry.Freeze()
	l.o.logger.Info("Lowered feature",
		"feature", l.def.Identifier,
		"items", len(l.def.Items),
		"skipped", len(l.result.Skipped),
		"warnings", len(l.result.Warnings))
	return l.result, nil
}

func (l *lowerer) header() error {
	s := l.spec
	ann := func(k host.AnnotationKind) string {
		a, _ := l.o.reader.Attribute(l.root, k)
		return a.Value
	}
	d := &feature.Definition{
		Identifier:     pick(s.Identifier, ann(host.AnnotationIdentifier), common.Identifier(l.root.Name())),
		Originator:     pick(s.Originator, ann(host.AnnotationOriginator), "org.silastandard"),
		Category:       pick(s.Category, ann(host.AnnotationCategory), "none"),
		FeatureVersion: pick(s.Version, ann(host.AnnotationVersion), "1.0"),
		MaturityLevel:  feature.Maturity(pick(s.Maturity, ann(host.AnnotationMaturity), string(feature.MaturityDraft))),
		SchemaVersion:  feature.SchemaVersion,
	}
	d.DisplayName = pick(s.DisplayName, ann(host.AnnotationDisplayName), common.Words(d.Identifier))
	d.Description = pick(s.Description, ann(host.AnnotationDescription), strings.TrimSpace(l.root.Doc()), d.DisplayName)

	if !common.ValidFeatureVersion(d.FeatureVersion) {
		return fatal(fmt.Errorf("%w: feature version %q is not MAJOR.MINOR", ErrConfigContradiction, d.FeatureVersion))
	}
	switch d.MaturityLevel {
	case feature.MaturityDraft, feature.MaturityVerified, feature.MaturityNormative:
	default:
		return fatal(fmt.Errorf("%w: unknown maturity level %q", ErrConfigContradiction, d.MaturityLevel))
	}
	l.def = d
	if d.Identifier != l.root.Name() {
		if err := l.o.registry.SetRename(d.Identifier, l.root.Name()); err != nil {
			return fatal(err)
		}
	}
	return nil
}

func pick(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

type memberGroup struct {
	name    string
	members []*host.Member
}

// groupMembers groups overloads by name in first-appearance order. Static
// members are not part of a feature.
func groupMembers(ms []*host.Member) []*memberGroup {
	var out []*memberGroup
	byName := map[string]*memberGroup{}
	for _, m := range ms {
		if m.Static {
			continue
		}
		g, ok := byName[m.Name]
		if !ok {
			g = &memberGroup{name: m.Name}
			byName[m.Name] = g
			out = append(out, g)
		}
		g.members = append(g.members, m)
	}
	return out
}

func (l *lowerer) memberGroup(g *memberGroup) error {
	ms := l.spec.Members[g.name]
	if ms.Skip {
		l.o.logger.Debug("Skipping member by configuration", "member", g.name)
		return nil
	}
	m, err := l.pickOverload(g, ms)
	if err != nil {
		return l.fail(g.name, err)
	}
	l.o.logger.Debug("Lowering member", "member", m.Name, "signature", host.Signature(m))
	l.cur = &stage{member: m.Name, byID: map[string]*typeEntry{}, errOwners: map[string]string{}}
	err = l.member(m, ms)
	if err == nil {
		err = l.drain()
	}
	if err != nil {
		l.cur = nil
		return l.fail(m.Name, err)
	}
	return l.commit()
}

func (l *lowerer) pickOverload(g *memberGroup, ms MemberSpec) (*host.Member, error) {
	if ms.Overload == "" {
		if m := resolve.ChooseOverload(l.o.resolver, g.name, g.members); m != nil {
			return m, nil
		}
		return nil, fmt.Errorf("%w: no overload of %s was chosen", ErrUnsupportedMember, g.name)
	}
	want := normalizeSignature(ms.Overload)
	for _, m := range g.members {
		names := make([]string, len(m.Params))
		for i, p := range m.Params {
			names[i] = p.Name
		}
		if normalizeSignature(host.Signature(m)) == want || normalizeSignature(strings.Join(names, ",")) == want {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: no overload of %s matches %s", ErrUnsupportedMember, g.name, ms.Overload)
}

func normalizeSignature(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, " ", ""))
	if !strings.HasPrefix(s, "(") {
		s = "(" + s + ")"
	}
	return s
}

// fail records a skipped member, or returns err when it is fatal.
func (l *lowerer) fail(member string, err error) error {
	if isFatal(err) {
		return &MemberError{Member: member, Err: err}
	}
	l.result.Skipped = append(l.result.Skipped, Skipped{Member: member, Err: err})
	l.o.logger.Warn("Skipping member", "member", member, "error", err)
	return nil
}

func (l *lowerer) warn(msg string, args ...any) {
	l.o.logger.Warn(msg, args...)
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", args[i], args[i+1])
	}
	l.result.Warnings = append(l.result.Warnings, sb.String())
}

func (l *lowerer) has(kind feature.ItemKind, id string) bool { return l.ids[kind][id] }

func (l *lowerer) mark(kind feature.ItemKind, id string) {
	if l.ids[kind] == nil {
		l.ids[kind] = map[string]bool{}
	}
	l.ids[kind][id] = true
}

func (l *lowerer) commit() error {
	s := l.cur
	l.cur = nil
	for _, it := range s.items {
		if l.has(it.ItemKind(), it.ItemIdentifier()) {
			return l.fail(s.member, fmt.Errorf("%w: %s %s is already produced by another member",
				ErrUnsupportedMember, it.ItemKind(), it.ItemIdentifier()))
		}
	}
	for _, it := range s.items {
		l.members = append(l.members, it)
		l.mark(it.ItemKind(), it.ItemIdentifier())
	}
	for _, e := range s.types {
		if l.has(feature.KindDataType, e.id) {
			continue
		}
		l.types = append(l.types, e)
		l.typeEntries[e.id] = e
		l.mark(feature.KindDataType, e.id)
	}
	for _, e := range s.errs {
		if l.has(feature.KindError, e.Identifier) {
			continue
		}
		l.errs = append(l.errs, e)
		l.errorOwners[e.Identifier] = s.errOwners[e.Identifier]
		l.mark(feature.KindError, e.Identifier)
	}
	for _, w := range s.writes {
		if err := w(l.o.registry); err != nil {
			return &MemberError{Member: s.member, Err: fatal(err)}
		}
	}
	return nil
}

func (l *lowerer) record(w func(*registry.Registry) error) { l.cur.writes = append(l.cur.writes, w) }

func (l *lowerer) rename(origin, hostName, id string) {
	if hostName == id {
		return
	}
	l.record(func(r *registry.Registry) error { return r.SetRename(origin, hostName) })
}

// overrideType records the concrete host type of a primitive element when it
// is not the canonical one.
func (l *lowerer) overrideType(origin string, t host.Type) {
	if t == nil || t.Kind() != host.KindPrimitive || t.QualifiedName() == host.CanonicalTypeName(t.Primitive()) {
		return
	}
	name := t.QualifiedName()
	l.record(func(r *registry.Registry) error { return r.SetType(origin, registry.TypeOverride{Type: name}) })
}

func (l *lowerer) origin(kind feature.ItemKind, id string, parts ...string) string {
	return registry.Origin(l.def.Identifier, kind, id, parts...)
}
