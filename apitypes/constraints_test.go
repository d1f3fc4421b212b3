package apitypes_test

import (
	"testing"
	"time"

	"github.com/Alia5/featurec/apitypes"
	"github.com/stretchr/testify/assert"
)

func TestConstraintChecks(t *testing.T) {
	tests := []struct {
		name  string
		got   []string
		valid bool
	}{
		{"length exact", apitypes.CheckLength("Name", "abc", 3), true},
		{"length counts runes", apitypes.CheckLength("Name", "äöü", 3), true},
		{"length mismatch", apitypes.CheckLength("Name", "ab", 3), false},
		{"binary length", apitypes.CheckMaximalLength("Blob", []byte{1, 2, 3}, 2), false},
		{"minimal length", apitypes.CheckMinimalLength("Name", "", 1), false},
		{"pattern anchored", apitypes.CheckPattern("Code", "ab12", `[a-z]+`), false},
		{"pattern match", apitypes.CheckPattern("Code", "ab", `[a-z]+`), true},
		{"bad pattern", apitypes.CheckPattern("Code", "x", `(`), false},
		{"set member", apitypes.CheckSet("Mode", "Fast", "Slow", "Fast"), true},
		{"set miss", apitypes.CheckSet("Mode", "Turbo", "Slow", "Fast"), false},
		{"min inclusive on bound", apitypes.CheckMinimalInclusive("T", 5, 5), true},
		{"max inclusive above", apitypes.CheckMaximalInclusive("T", 5.1, 5), false},
		{"min exclusive on bound", apitypes.CheckMinimalExclusive("T", int64(0), 0), false},
		{"max exclusive below", apitypes.CheckMaximalExclusive("T", 99.9, 100), true},
		{"max exclusive on bound", apitypes.CheckMaximalExclusive("T", 100, 100), false},
		{"max exclusive above", apitypes.CheckMaximalExclusive("T", 101, 100), false},
		{"element count", apitypes.CheckMaximalElementCount("L", 4, 3), false},
		{"element count min", apitypes.CheckMinimalElementCount("L", 1, 1), true},
		{"fqi feature", apitypes.CheckFullyQualifiedIdentifier("F", "org.silastandard/core/SiLAService/v1", "FeatureIdentifier"), true},
		{"fqi command", apitypes.CheckFullyQualifiedIdentifier("C", "org.silastandard/core/SiLAService/v1/Command/GetFeatureDefinition", "CommandIdentifier"), true},
		{"fqi digits and hyphens", apitypes.CheckFullyQualifiedIdentifier("F", "com.acme-labs/robotics2/Arm/v3", "FeatureIdentifier"), true},
		{"fqi capitals", apitypes.CheckFullyQualifiedIdentifier("P", "de.Example/Lab/Arm/v1/Property/Speed", "PropertyIdentifier"), true},
		{"fqi empty segment", apitypes.CheckFullyQualifiedIdentifier("F", "org.example//Arm/v1", "FeatureIdentifier"), false},
		{"fqi wrong kind", apitypes.CheckFullyQualifiedIdentifier("C", "org.silastandard/core/SiLAService/v1", "CommandIdentifier"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.valid {
				assert.Empty(t, tt.got)
			} else {
				assert.Len(t, tt.got, 1)
			}
		})
	}
}

func TestTimeBounds(t *testing.T) {
	bound := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, apitypes.CheckTimeMinimal("At", bound, bound, false))
	assert.NotEmpty(t, apitypes.CheckTimeMinimal("At", bound, bound, true))
	assert.NotEmpty(t, apitypes.CheckTimeMaximal("At", bound.Add(time.Second), bound, false))
}
