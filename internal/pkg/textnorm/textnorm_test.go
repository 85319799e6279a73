package textnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "São Roque", want: "sao roque"},
		{in: "  PRESIDENTE MÉDICI ", want: "presidente medici"},
		{in: "Município de Itumbiara", want: "municipio de itumbiara"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, Fold(tt.in))
		})
	}
}
