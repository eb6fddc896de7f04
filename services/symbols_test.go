package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"span-screener/models"
)

func TestSymbolResolver_Resolve(t *testing.T) {
	resolver := NewSymbolResolver(map[string]string{
		"BRK-B": "BRK.B",
		"brk/b": "brk.b",
	})

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "AAPL", want: "AAPL"},
		{input: "  msft ", want: "MSFT"},
		{input: "brk-b", want: "BRK.B"},
		{input: "BRK/B", want: "BRK.B"},
		{input: "BRK.B", want: "BRK.B"},
		{input: "", wantErr: true},
		{input: "   ", wantErr: true},
		{input: "1ABC", wantErr: true},
		{input: "AAPL; DROP", wantErr: true},
		{input: "TOOLONGSYMBOL", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := resolver.Resolve(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidSymbol)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSymbolResolver_Nil(t *testing.T) {
	var resolver *SymbolResolver
	got, err := resolver.Resolve("brk-b")
	require.NoError(t, err)
	assert.Equal(t, "BRK-B", got)
}
