// Package resolve answers the questions lowering cannot decide on its own:
// which overload of a member to expose and which property backs a
// constructor parameter.
package resolve

import (
	"log/slog"

	"github.com/Alia5/featurec/internal/host"
	"github.com/Alia5/featurec/internal/log"
)

type QuestionKind int

const (
	// Overload asks which of several same-named methods to expose. Skipping
	// it omits the member.
	Overload QuestionKind = iota
	// Property asks which member backs a constructor parameter. Skipping it
	// fails the structural type.
	Property
)

func (k QuestionKind) String() string {
	if k == Overload {
		return "overload"
	}
	return "property"
}

// Question is one ambiguity. Options are the labels shown to a human.
type Question struct {
	Kind    QuestionKind
	Subject string
	// Field is the constructor parameter a Property question is about.
	Field   string
	Options []string
}

// Resolver picks an option index. ok is false to skip.
type Resolver interface {
	Resolve(q Question) (choice int, ok bool)
}

// ChooseOverload returns the overload to expose, or nil when skipped.
func ChooseOverload(r Resolver, name string, candidates []*host.Member) *host.Member {
	if len(candidates) == 1 {
		return candidates[0]
	}
	opts := make([]string, len(candidates))
	for i, c := range candidates {
		opts[i] = host.Signature(c)
	}
	i, ok := r.Resolve(Question{Kind: Overload, Subject: name, Options: opts})
	if !ok || i < 0 || i >= len(candidates) {
		return nil
	}
	return candidates[i]
}

// ChooseProperty returns the member backing param, or nil when skipped.
func ChooseProperty(r Resolver, typeName, param string, candidates []*host.Member) *host.Member {
	opts := make([]string, len(candidates))
	for i, c := range candidates {
		opts[i] = c.Name
	}
	i, ok := r.Resolve(Question{Kind: Property, Subject: typeName, Field: param, Options: opts})
	if !ok || i < 0 || i >= len(candidates) {
		return nil
	}
	return candidates[i]
}

// Default answers without asking: the first overload, and no property.
// Both decisions are logged as warnings.
type Default struct {
	Logger *slog.Logger
}

func (d Default) Resolve(q Question) (int, bool) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch q.Kind {
	case Overload:
		logger.Warn("Ambiguous overload, using the first one", "member", q.Subject, "chosen", q.Options[0], "candidates", len(q.Options))
		return 0, true
	default:
		logger.Warn("Cannot match constructor parameter to a property", "type", q.Subject, "parameter", q.Field, "candidates", q.Options)
		return -1, false
	}
}

// Scripted replays fixed answers in order; -1 skips. It records the
// questions asked.
type Scripted struct {
	Answers []int
	Asked   []Question
}

func (s *Scripted) Resolve(q Question) (int, bool) {
	s.Asked = append(s.Asked, q)
	if len(s.Answers) == 0 {
		return -1, false
	}
	a := s.Answers[0]
	s.Answers = s.Answers[1:]
	return a, a >= 0
}

// Logged records every decision of the wrapped resolver.
type Logged struct {
	Resolver
	Log log.DecisionLogger
}

func (l Logged) Resolve(q Question) (int, bool) {
	i, ok := l.Resolver.Resolve(q)
	choice := i
	if !ok {
		choice = -1
	}
	subject := q.Subject
	if q.Field != "" {
		subject += "." + q.Field
	}
	l.Log.Log(q.Kind.String(), subject, q.Options, choice)
	return i, ok
}
