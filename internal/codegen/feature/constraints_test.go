package feature_test

import (
	"testing"
	"time"

	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/stretchr/testify/assert"
)

func TestConstrainedValidate(t *testing.T) {
	str := &feature.Basic{Kind: feature.String}
	tests := []struct {
		name    string
		dt      *feature.Constrained
		value   any
		invalid int
	}{
		{
			name:  "pattern and length",
			dt:    &feature.Constrained{Base: str, Constraints: feature.Constraints{Pattern: `[A-Z]+`, MaximalLength: intp(3)}},
			value: "ABCD", invalid: 1,
		},
		{
			name:  "pattern violated",
			dt:    &feature.Constrained{Base: str, Constraints: feature.Constraints{Pattern: `[A-Z]+`}},
			value: "abc", invalid: 1,
		},
		{
			name:  "set",
			dt:    &feature.Constrained{Base: str, Constraints: feature.Constraints{Set: []string{"On", "Off"}}},
			value: "On", invalid: 0,
		},
		{
			name:  "exclusive max rejects value above",
			dt:    &feature.Constrained{Base: &feature.Basic{Kind: feature.Integer}, Constraints: feature.Constraints{MaximalExclusive: "10"}},
			value: int32(11), invalid: 1,
		},
		{
			name:  "exclusive max rejects bound",
			dt:    &feature.Constrained{Base: &feature.Basic{Kind: feature.Integer}, Constraints: feature.Constraints{MaximalExclusive: "10"}},
			value: 10, invalid: 1,
		},
		{
			name:  "exclusive max accepts value below",
			dt:    &feature.Constrained{Base: &feature.Basic{Kind: feature.Integer}, Constraints: feature.Constraints{MaximalExclusive: "10"}},
			value: 9, invalid: 0,
		},
		{
			name:  "real range",
			dt:    &feature.Constrained{Base: &feature.Basic{Kind: feature.Real}, Constraints: feature.Constraints{MinimalInclusive: "-273.15", MaximalInclusive: "1000"}},
			value: -300.0, invalid: 1,
		},
		{
			name:  "wrong value type",
			dt:    &feature.Constrained{Base: &feature.Basic{Kind: feature.Real}, Constraints: feature.Constraints{MinimalInclusive: "0"}},
			value: "zero", invalid: 1,
		},
		{
			name:  "timestamp bound",
			dt:    &feature.Constrained{Base: &feature.Basic{Kind: feature.Timestamp}, Constraints: feature.Constraints{MinimalExclusive: "2024-01-01T00:00:00Z"}},
			value: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), invalid: 1,
		},
		{
			name: "list element count and elements",
			dt: &feature.Constrained{
				Base: &feature.List{Elem: &feature.Constrained{Base: str, Constraints: feature.Constraints{MinimalLength: intp(1)}}},
				Constraints: feature.Constraints{MaximalElementCount: intp(2)},
			},
			value: []string{"a", "", "c"}, invalid: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.dt.Validate("Field", tt.value), tt.invalid)
		})
	}
}

func TestConstraintsMerge(t *testing.T) {
	a := feature.Constraints{Pattern: "a", MaximalLength: intp(4)}
	b := feature.Constraints{Pattern: "b", Set: []string{"x"}}
	got := a.Merge(b)
	assert.Equal(t, "b", got.Pattern)
	assert.Equal(t, 4, *got.MaximalLength)
	assert.Equal(t, []string{"x"}, got.Set)
	assert.True(t, feature.Constraints{}.IsEmpty())
	assert.False(t, got.IsEmpty())
}

func TestConstraintsCheckIntegerBounds(t *testing.T) {
	integer := &feature.Basic{Kind: feature.Integer}
	tests := []struct {
		name    string
		cs      feature.Constraints
		wantErr bool
	}{
		{name: "integral", cs: feature.Constraints{MinimalInclusive: "2", MaximalExclusive: "10"}},
		{name: "integral float notation", cs: feature.Constraints{MaximalInclusive: "2.0"}},
		{name: "fractional minimum", cs: feature.Constraints{MinimalInclusive: "2.5"}, wantErr: true},
		{name: "fractional exclusive maximum", cs: feature.Constraints{MaximalExclusive: "9.9"}, wantErr: true},
		{name: "not a number", cs: feature.Constraints{MinimalInclusive: "two"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cs.Check(integer)
			if tt.wantErr {
				assert.ErrorIs(t, err, feature.ErrInvalidConstraint)
				return
			}
			assert.NoError(t, err)
		})
	}
}
