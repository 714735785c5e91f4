package crypto

import (
	"bytes"

	"docseal/internal/domain"
)

// CanonicalVersion prefixes every canonical payload. Bump it, and keep the
// old encoder, if the field set below ever changes.
const CanonicalVersion = "docseal-sig-v1"

// CanonicalizePayload writes the signature payload fields in their fixed
// contract order, one `name=value` line each, with values JSON-escaped so
// that no field can smuggle a line break into its neighbour.
func CanonicalizePayload(p domain.SignaturePayload) []byte {
	fields := [...]struct {
		name  string
		value string
	}{
		{"documentId", p.DocumentID},
		{"documentNumber", p.DocumentNumber},
		{"issueDate", p.IssueDate},
		{"signerName", p.SignerName},
		{"signerRole", p.SignerRole},
		{"timestamp", p.Timestamp},
	}

	buf := &bytes.Buffer{}
	buf.WriteString(CanonicalVersion)
	for _, f := range fields {
		buf.WriteByte('\n')
		buf.WriteString(f.name)
		buf.WriteByte('=')
		writeString(buf, f.value)
	}
	return buf.Bytes()
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexLower[r>>4])
				buf.WriteByte(hexLower[r&0x0f])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

var hexLower = []byte("0123456789abcdef")
