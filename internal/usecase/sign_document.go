package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docseal/internal/domain"
	"docseal/internal/infra/crypto"
	"docseal/internal/logging"

	"go.uber.org/zap"
)

const issueDateLayout = "2006-01-02"

type SignRequest struct {
	DocumentID string
	SignerName string
	SignerRole string
}

type SignResult struct {
	DocumentID      string
	DocumentNumber  string
	Signature       string
	EncodedPayload  string
	VerificationURL string
	SignedAt        time.Time
}

type SignDocument struct {
	Documents     DocumentStore
	Engine        SignatureEngine
	Policy        SigningPolicy
	VerifyBaseURL string
	Retry         RetryPolicy
	Logger        *zap.Logger
	Now           func() time.Time
}

func NewSignDocument(documents DocumentStore, engine SignatureEngine, policy SigningPolicy, verifyBaseURL string, retry RetryPolicy, logger *zap.Logger) *SignDocument {
	return &SignDocument{
		Documents:     documents,
		Engine:        engine,
		Policy:        policy,
		VerifyBaseURL: verifyBaseURL,
		Retry:         retry,
		Logger:        logging.OrNop(logger),
		Now:           time.Now,
	}
}

// Execute signs an approved, unsigned document and returns the link that
// verifies it. A nil Policy allows every signer role.
func (u *SignDocument) Execute(ctx context.Context, req SignRequest) (SignResult, error) {
	if u == nil || u.Documents == nil || u.Engine == nil {
		return SignResult{}, errors.New("sign document is not configured")
	}
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	req.SignerName = strings.TrimSpace(req.SignerName)
	req.SignerRole = strings.ToLower(strings.TrimSpace(req.SignerRole))
	if req.DocumentID == "" || req.SignerName == "" || req.SignerRole == "" {
		return SignResult{}, fmt.Errorf("%w: documentId, signerName and signerRole are required", domain.ErrValidation)
	}

	doc, err := u.Documents.GetByID(ctx, req.DocumentID)
	if err != nil {
		return SignResult{}, err
	}
	if doc.Signed() {
		return SignResult{}, domain.ErrAlreadySigned
	}
	if !doc.WorkflowStatus.ReadyToSign() {
		return SignResult{}, fmt.Errorf("%w: workflow status is %s", domain.ErrNotApproved, doc.WorkflowStatus)
	}
	if err := u.authorize(ctx, req, doc); err != nil {
		return SignResult{}, err
	}

	signedAt := u.now()
	payload := domain.SignaturePayload{
		DocumentID:     doc.ID,
		DocumentNumber: doc.Number,
		IssueDate:      doc.IssuedAt.UTC().Format(issueDateLayout),
		SignerName:     req.SignerName,
		SignerRole:     req.SignerRole,
		Timestamp:      signedAt.Format(time.RFC3339Nano),
	}
	signature := u.Engine.Sign(payload)
	encoded, err := crypto.EncodePayload(payload)
	if err != nil {
		return SignResult{}, err
	}
	link, err := crypto.BuildVerificationURL(u.VerifyBaseURL, encoded, signature)
	if err != nil {
		return SignResult{}, err
	}

	stamp := domain.SignatureStamp{
		Signature:  signature,
		SignedBy:   req.SignerName,
		SignerRole: req.SignerRole,
		SignedAt:   signedAt,
	}
	if _, err := u.Retry.Do(ctx, func() error {
		return u.Documents.MarkSigned(ctx, doc.ID, stamp)
	}); err != nil {
		return SignResult{}, err
	}

	u.logger().Info("document signed",
		zap.String("document_id", doc.ID),
		zap.String("number", doc.Number),
		zap.String("signer_role", req.SignerRole))
	return SignResult{
		DocumentID:      doc.ID,
		DocumentNumber:  doc.Number,
		Signature:       signature,
		EncodedPayload:  encoded,
		VerificationURL: link,
		SignedAt:        signedAt,
	}, nil
}

func (u *SignDocument) authorize(ctx context.Context, req SignRequest, doc domain.DocumentRecord) error {
	if u.Policy == nil {
		return nil
	}
	result, err := u.Policy.Evaluate(ctx, domain.SigningPolicyInput{
		SignerRole:  req.SignerRole,
		Scope:       doc.Scope,
		SubjectType: doc.SubjectType,
	})
	if err != nil {
		return fmt.Errorf("evaluate signing policy: %w", err)
	}
	if result.Allow {
		return nil
	}
	codes := make([]string, 0, len(result.Deny))
	for _, deny := range result.Deny {
		codes = append(codes, deny.Code)
	}
	u.logger().Warn("signing denied by policy",
		zap.String("document_id", doc.ID),
		zap.String("signer_role", req.SignerRole),
		zap.Strings("deny", codes))
	if len(codes) == 0 {
		return domain.ErrSigningForbidden
	}
	return fmt.Errorf("%w: %s", domain.ErrSigningForbidden, strings.Join(codes, ","))
}

func (u *SignDocument) now() time.Time {
	if u.Now != nil {
		return u.Now().UTC()
	}
	return time.Now().UTC()
}

func (u *SignDocument) logger() *zap.Logger {
	return logging.OrNop(u.Logger)
}
