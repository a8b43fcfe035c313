package deploy

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal valid PNG header keeps http.DetectContentType happy.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func baseParams(t *testing.T) TokenParams {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return TokenParams{
		Name:        "Test Token",
		Symbol:      "TEST",
		Decimals:    9,
		TotalSupply: 1000,
		Admin:       key.PublicKey().String(),
	}
}

func TestValidateAcceptsBaseParams(t *testing.T) {
	require.NoError(t, baseParams(t).Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TokenParams)
		want   string
	}{
		{"empty name", func(p *TokenParams) { p.Name = "" }, "token name"},
		{"name too long", func(p *TokenParams) { p.Name = strings.Repeat("x", 33) }, "token name"},
		{"empty symbol", func(p *TokenParams) { p.Symbol = "" }, "token symbol"},
		{"symbol too long", func(p *TokenParams) { p.Symbol = "ABCDEFGHIJK" }, "token symbol"},
		{"lowercase symbol", func(p *TokenParams) { p.Symbol = "abc" }, "A-Z"},
		{"symbol with punctuation", func(p *TokenParams) { p.Symbol = "AB-C" }, "A-Z"},
		{"decimals too high", func(p *TokenParams) { p.Decimals = 10 }, "decimals"},
		{"zero supply", func(p *TokenParams) { p.TotalSupply = 0 }, "supply"},
		{"bad admin", func(p *TokenParams) { p.Admin = "not-an-address" }, "admin"},
		{"long description", func(p *TokenParams) { p.Description = strings.Repeat("d", 501) }, "description"},
		{"oversized image", func(p *TokenParams) {
			p.Image = append(append([]byte{}, pngHeader...), make([]byte, maxImageBytes)...)
		}, "2 MiB"},
		{"bad image type", func(p *TokenParams) { p.Image = []byte("%PDF-1.4 not an image") }, "image type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := baseParams(t)
			tt.mutate(&params)

			err := params.Validate()
			var deployErr *DeployError
			require.ErrorAs(t, err, &deployErr)
			assert.Equal(t, ErrInvalidInput, deployErr.Code)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHasMetadata(t *testing.T) {
	params := baseParams(t)
	assert.False(t, params.HasMetadata())

	params.Description = "about this token"
	assert.True(t, params.HasMetadata())

	params = baseParams(t)
	params.Image = pngHeader
	params.ImageName = "logo.png"
	assert.True(t, params.HasMetadata())
}

func TestRawSupply(t *testing.T) {
	params := baseParams(t)
	params.TotalSupply = 21
	params.Decimals = 6

	raw, err := params.RawSupply()
	require.NoError(t, err)
	assert.Equal(t, uint64(21_000_000), raw)
}

func TestRawSupplyOverflow(t *testing.T) {
	params := baseParams(t)
	params.TotalSupply = 1 << 62
	params.Decimals = 9

	_, err := params.RawSupply()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflow")
}
