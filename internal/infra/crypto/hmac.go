package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"docseal/internal/domain"
)

const (
	SignatureScheme = "hmac-sha256"
	minSecretLength = 32
)

var placeholderSecrets = map[string]struct{}{
	"changeme":                 {},
	"change-me":                {},
	"secret":                   {},
	"default":                  {},
	"default-secret":           {},
	"default-secret-key":       {},
	"your-secret-key":          {},
	"your-secret-key-here":     {},
	"signing-secret":           {},
	"replace-me":               {},
	"default-signature-secret": {},
}

// HMACEngine signs and verifies document payloads with a shared secret.
type HMACEngine struct {
	secret []byte
}

// CheckSecret rejects secrets that are empty, short, or a known
// placeholder value.
func CheckSecret(secret string) error {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", domain.ErrInsecureSecret)
	}
	if _, ok := placeholderSecrets[strings.ToLower(trimmed)]; ok {
		return fmt.Errorf("%w: placeholder value", domain.ErrInsecureSecret)
	}
	if len(trimmed) < minSecretLength {
		return fmt.Errorf("%w: shorter than %d bytes", domain.ErrInsecureSecret, minSecretLength)
	}
	return nil
}

func NewHMACEngine(secret string) (*HMACEngine, error) {
	if err := CheckSecret(secret); err != nil {
		return nil, err
	}
	return &HMACEngine{secret: []byte(secret)}, nil
}

func (e *HMACEngine) Canonicalize(p domain.SignaturePayload) []byte {
	return CanonicalizePayload(p)
}

func (e *HMACEngine) Sign(p domain.SignaturePayload) string {
	return hex.EncodeToString(e.mac(p))
}

// Verify never returns early on a partial match; malformed signatures are
// simply invalid.
func (e *HMACEngine) Verify(p domain.SignaturePayload, signature string) bool {
	provided, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(provided) != sha256.Size {
		return false
	}
	return hmac.Equal(e.mac(p), provided)
}

func (e *HMACEngine) mac(p domain.SignaturePayload) []byte {
	mac := hmac.New(sha256.New, e.secret)
	_, _ = mac.Write(CanonicalizePayload(p))
	return mac.Sum(nil)
}
