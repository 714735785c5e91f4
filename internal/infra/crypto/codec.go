package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"docseal/internal/domain"
)

const (
	QueryData      = "data"
	QuerySignature = "signature"
)

// EncodePayload serializes the payload as JSON and encodes it as unpadded
// base64url so it can travel in a query string untouched.
func EncodePayload(p domain.SignaturePayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodePayload is the inverse of EncodePayload. Every failure wraps
// domain.ErrMalformedPayload.
func DecodePayload(encoded string) (domain.SignaturePayload, error) {
	encoded = strings.TrimRight(strings.TrimSpace(encoded), "=")
	if encoded == "" {
		return domain.SignaturePayload{}, fmt.Errorf("%w: empty", domain.ErrMalformedPayload)
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return domain.SignaturePayload{}, fmt.Errorf("%w: invalid base64: %v", domain.ErrMalformedPayload, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var p domain.SignaturePayload
	if err := dec.Decode(&p); err != nil {
		return domain.SignaturePayload{}, fmt.Errorf("%w: invalid json: %v", domain.ErrMalformedPayload, err)
	}
	if err := ensureEOF(dec); err != nil {
		return domain.SignaturePayload{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if p.DocumentID == "" || p.DocumentNumber == "" || p.Timestamp == "" {
		return domain.SignaturePayload{}, fmt.Errorf("%w: missing required field", domain.ErrMalformedPayload)
	}
	return p, nil
}

// BuildVerificationURL appends the encoded payload and signature to base.
func BuildVerificationURL(base, encoded, signature string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("invalid verification base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid verification base url: %q", base)
	}
	q := u.Query()
	q.Set(QueryData, encoded)
	q.Set(QuerySignature, signature)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseVerificationURL extracts the encoded payload and signature from a
// link produced by BuildVerificationURL.
func ParseVerificationURL(raw string) (encoded string, signature string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	q := u.Query()
	encoded, signature = q.Get(QueryData), q.Get(QuerySignature)
	if encoded == "" || signature == "" {
		return "", "", fmt.Errorf("%w: missing %s or %s", domain.ErrMalformedPayload, QueryData, QuerySignature)
	}
	return encoded, signature, nil
}

func ensureEOF(dec *json.Decoder) error {
	var extra any
	if err := dec.Decode(&extra); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return errors.New("invalid json: trailing data")
}
