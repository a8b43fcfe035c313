// internal/deploy/params.go
package deploy

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/gagliardetto/solana-go"
)

const (
	maxNameLength        = 32
	maxSymbolLength      = 10
	maxDecimals          = 9
	maxDescriptionLength = 500
	maxImageBytes        = 2 << 20 // 2 MiB
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

var allowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/gif":  {},
	"image/webp": {},
}

// TokenParams is the immutable input of one deployment.
type TokenParams struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply uint64
	// Admin receives the minted supply and the mint authority.
	Admin string

	// Optional off-chain content. Attaching any of it routes the deployment
	// through the upload phase.
	Description string
	Image       []byte
	ImageName   string
}

// HasMetadata reports whether the deployment carries off-chain content.
func (p TokenParams) HasMetadata() bool {
	return len(p.Image) > 0 || p.Description != ""
}

// Validate checks the parameters without performing any I/O. Failures are
// INVALID_INPUT and never retryable.
func (p TokenParams) Validate() error {
	if p.Name == "" || len(p.Name) > maxNameLength {
		return newError(ErrInvalidInput,
			fmt.Sprintf("token name must be 1-%d characters", maxNameLength), nil)
	}
	if p.Symbol == "" || len(p.Symbol) > maxSymbolLength {
		return newError(ErrInvalidInput,
			fmt.Sprintf("token symbol must be 1-%d characters", maxSymbolLength), nil)
	}
	if !symbolPattern.MatchString(p.Symbol) {
		return newError(ErrInvalidInput, "token symbol must contain only A-Z and 0-9", nil)
	}
	if p.Decimals > maxDecimals {
		return newError(ErrInvalidInput,
			fmt.Sprintf("decimals must be at most %d", maxDecimals), nil)
	}
	if p.TotalSupply == 0 {
		return newError(ErrInvalidInput, "total supply must be positive", nil)
	}
	if _, err := solana.PublicKeyFromBase58(p.Admin); err != nil {
		return newError(ErrInvalidInput, "admin must be a valid base58 address", err)
	}
	if len(p.Description) > maxDescriptionLength {
		return newError(ErrInvalidInput,
			fmt.Sprintf("description must be at most %d characters", maxDescriptionLength), nil)
	}
	if len(p.Image) > 0 {
		if len(p.Image) > maxImageBytes {
			return newError(ErrInvalidInput, "image must be at most 2 MiB", nil)
		}
		contentType := http.DetectContentType(p.Image)
		if _, ok := allowedImageTypes[contentType]; !ok {
			return newError(ErrInvalidInput,
				fmt.Sprintf("unsupported image type %s", contentType), nil)
		}
	}
	return nil
}

// RawSupply returns the supply in base units (supply * 10^decimals).
func (p TokenParams) RawSupply() (uint64, error) {
	raw := p.TotalSupply
	for i := uint8(0); i < p.Decimals; i++ {
		next := raw * 10
		if next/10 != raw {
			return 0, newError(ErrInvalidInput, "total supply overflows at this decimal precision", nil)
		}
		raw = next
	}
	return raw, nil
}
