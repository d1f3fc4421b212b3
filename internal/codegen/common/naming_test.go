package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaming(t *testing.T) {
	tests := []struct {
		fn   func(string) string
		in   string
		want string
	}{
		{ToPascalCase, "fast-mode", "FastMode"},
		{ToPascalCase, "greeting_provider", "GreetingProvider"},
		{ToCamelCase, "StartYear", "startYear"},
		{ToSnakeCase, "GreetingProvider", "greeting_provider"},
		{ToSnakeCase, "XMLParser", "xml_parser"},
		{Words, "SetTargetTemperature", "Set Target Temperature"},
		{Words, "GetPHValue", "Get PH Value"},
		{Words, "Temperature", "Temperature"},
		{Identifier, "1mL", "Num1mL"},
		{Identifier, "on hold", "OnHold"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.fn(tt.in), tt.in)
	}
}

func TestEnumValueName(t *testing.T) {
	assert.Equal(t, "ModeFastMode", EnumValueName("Mode", "fast-mode"))
	assert.Equal(t, "ModeEmpty", EnumValueName("Mode", ""))
}

func TestFeatureVersion(t *testing.T) {
	assert.True(t, ValidFeatureVersion("1.0"))
	assert.False(t, ValidFeatureVersion("1"))
	assert.False(t, ValidFeatureVersion("v1.0"))
}

func TestGetVersion(t *testing.T) {
	tests := []struct {
		set     string
		want    string
		wantErr bool
	}{
		{set: "", want: "0.0.1-dev"},
		{set: "v1.4.2", want: "1.4.2"},
		{set: "1.4.2-dirty", want: "1.4.2-dirty"},
		{set: "nightly", wantErr: true},
	}
	saved := Version
	t.Cleanup(func() { Version = saved })
	for _, tt := range tests {
		Version = tt.set
		got, err := GetVersion()
		if tt.wantErr {
			assert.Error(t, err, tt.set)
			continue
		}
		assert.NoError(t, err, tt.set)
		assert.Equal(t, tt.want, got)
	}
}
