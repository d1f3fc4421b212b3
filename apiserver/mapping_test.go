package apiserver_test

import (
	"testing"

	"github.com/Alia5/featurec/apiserver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapResponse(t *testing.T) {
	type reading struct {
		Value float64
		Unit  string
	}
	tests := []struct {
		name    string
		expr    string
		result  any
		want    any
		wantErr string
	}{
		{name: "arithmetic", expr: "result * 2", result: 21, want: 42},
		{name: "field", expr: "result.Value", result: reading{Value: 1.5, Unit: "K"}, want: 1.5},
		{name: "string", expr: `result.Unit + "!"`, result: reading{Unit: "K"}, want: "K!"},
		{name: "type mismatch", expr: "result.Unit", result: reading{Unit: "K"}, want: 0, wantErr: "want int"},
		{name: "syntax", expr: "result +", result: 1, want: 0, wantErr: "response mapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got any
			var err error
			switch tt.want.(type) {
			case int:
				got, err = apiserver.MapResponse[int](tt.expr, tt.result)
			case float64:
				got, err = apiserver.MapResponse[float64](tt.expr, tt.result)
			case string:
				got, err = apiserver.MapResponse[string](tt.expr, tt.result)
			}
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapResponseCachesPrograms(t *testing.T) {
	for i := range 3 {
		got, err := apiserver.MapResponse[int]("result + 1", i)
		require.NoError(t, err)
		assert.Equal(t, i+1, got)
	}
}
