package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"docseal/internal/domain"
	"docseal/internal/infra/crypto"
	"docseal/internal/logging"

	"go.uber.org/zap"
)

// PublicVerificationError is the only failure text returned to callers, so
// a bad signature cannot be told apart from an unknown document.
const PublicVerificationError = "document could not be verified"

const (
	reasonSignatureInvalid = "signature_invalid"
	reasonNotFound         = "not_found"
	reasonRecordMismatch   = "record_mismatch"
)

type VerifyDocument struct {
	Documents DocumentStore
	Engine    SignatureEngine
	Retry     RetryPolicy
	Logger    *zap.Logger
}

func NewVerifyDocument(documents DocumentStore, engine SignatureEngine, retry RetryPolicy, logger *zap.Logger) *VerifyDocument {
	return &VerifyDocument{
		Documents: documents,
		Engine:    engine,
		Retry:     retry,
		Logger:    logging.OrNop(logger),
	}
}

// Execute checks a verification link. Malformed input is an error wrapping
// domain.ErrMalformedPayload; a bad signature or unknown document is a
// result with Valid false. Each successful check bumps the document's
// verification count exactly once.
func (u *VerifyDocument) Execute(ctx context.Context, encoded, signature string) (domain.VerificationResult, error) {
	if u == nil || u.Documents == nil || u.Engine == nil {
		return domain.VerificationResult{}, errors.New("verify document is not configured")
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return domain.VerificationResult{}, fmt.Errorf("%w: missing signature", domain.ErrMalformedPayload)
	}
	payload, err := crypto.DecodePayload(encoded)
	if err != nil {
		return domain.VerificationResult{}, err
	}

	if !u.Engine.Verify(payload, signature) {
		return u.reject(payload, reasonSignatureInvalid), nil
	}

	doc, err := u.Documents.GetByNumber(ctx, payload.DocumentNumber)
	if errors.Is(err, domain.ErrNotFound) {
		return u.reject(payload, reasonNotFound), nil
	}
	if err != nil {
		return domain.VerificationResult{}, err
	}
	if !matchesRecord(doc, payload, signature) {
		return u.reject(payload, reasonRecordMismatch), nil
	}

	var count int64
	if _, err := u.Retry.Do(ctx, func() error {
		var err error
		count, err = u.Documents.IncrementVerificationCount(ctx, doc.ID)
		return err
	}); err != nil {
		return domain.VerificationResult{}, err
	}

	u.logger().Info("document verified",
		zap.String("document_id", doc.ID),
		zap.String("number", doc.Number),
		zap.Int64("verification_count", count))
	result := domain.VerificationResult{
		Valid:             true,
		DocumentNumber:    doc.Number,
		IssueDate:         doc.IssuedAt.UTC().Format(issueDateLayout),
		VerificationCount: &count,
	}
	if doc.SignedBy != nil {
		result.SignerName = *doc.SignedBy
	}
	return result, nil
}

// matchesRecord ties a valid signature to the stored record: the record
// must be signed with this exact signature and carry the payload's id.
func matchesRecord(doc domain.DocumentRecord, payload domain.SignaturePayload, signature string) bool {
	if !doc.Signed() || doc.ID != payload.DocumentID {
		return false
	}
	stored := strings.ToLower(*doc.Signature)
	presented := strings.ToLower(signature)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

func (u *VerifyDocument) reject(payload domain.SignaturePayload, reason string) domain.VerificationResult {
	u.logger().Info("verification rejected",
		zap.String("reason", reason),
		zap.String("number", payload.DocumentNumber))
	return domain.VerificationResult{Valid: false, Error: PublicVerificationError}
}

func (u *VerifyDocument) logger() *zap.Logger {
	return logging.OrNop(u.Logger)
}
