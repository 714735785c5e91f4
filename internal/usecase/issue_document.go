package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docseal/internal/domain"
	"docseal/internal/infra/numbering"
	"docseal/internal/logging"

	"go.uber.org/zap"
)

type IssueRequest struct {
	TypeCode string
	OrgCode  string
	// OrgUnitID selects the prodi counter. Empty means fakultas.
	OrgUnitID   string
	Scope       domain.Scope
	Subject     string
	SubjectType domain.SubjectType
	IssuedAt    time.Time
}

type IssueDocument struct {
	Documents DocumentStore
	Counters  CounterStore
	Retry     RetryPolicy
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewIssueDocument(documents DocumentStore, counters CounterStore, retry RetryPolicy, logger *zap.Logger) *IssueDocument {
	return &IssueDocument{
		Documents: documents,
		Counters:  counters,
		Retry:     retry,
		Logger:    logging.OrNop(logger),
		Now:       time.Now,
	}
}

// GenerateNumber advances the counter for the key derived from scope,
// orgUnitID and date, and renders the resulting number. No document row is
// written; Execute is the transactional path used by the HTTP API.
func (u *IssueDocument) GenerateNumber(ctx context.Context, scope domain.Scope, orgUnitID, typeCode, orgCode string, date time.Time) (string, error) {
	if u == nil || u.Counters == nil {
		return "", errors.New("counter store is required")
	}
	date = date.UTC()
	key := domain.NewCounterKey(scope, orgUnitID, yearOf(date))
	if err := key.Validate(); err != nil {
		return "", err
	}
	if err := checkCodes(typeCode, orgCode, date); err != nil {
		return "", err
	}

	var seq int64
	attempts, err := u.Retry.Do(ctx, func() error {
		var err error
		seq, err = u.Counters.Increment(ctx, key)
		return err
	})
	if err != nil {
		u.logger().Warn("counter increment failed",
			zap.String("counter", key.String()),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return "", err
	}
	return numbering.FormatAt(seq, typeCode, orgCode, date)
}

// Execute issues a document: the counter advance and the insert commit
// together, so a failed insert never consumes a number.
func (u *IssueDocument) Execute(ctx context.Context, req IssueRequest) (domain.DocumentRecord, error) {
	if u == nil || u.Documents == nil {
		return domain.DocumentRecord{}, errors.New("document store is required")
	}
	req, err := u.normalize(req)
	if err != nil {
		return domain.DocumentRecord{}, err
	}
	key := domain.NewCounterKey(req.Scope, req.OrgUnitID, yearOf(req.IssuedAt))
	if err := key.Validate(); err != nil {
		return domain.DocumentRecord{}, err
	}

	var doc domain.DocumentRecord
	attempts, err := u.Retry.Do(ctx, func() error {
		var err error
		doc, err = u.Documents.Issue(ctx, key, func(seq int64) (domain.DocumentRecord, error) {
			number, err := numbering.FormatAt(seq, req.TypeCode, req.OrgCode, req.IssuedAt)
			if err != nil {
				return domain.DocumentRecord{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
			}
			return domain.DocumentRecord{
				Number:         number,
				SubjectType:    req.SubjectType,
				Scope:          key.Scope,
				OrgUnitID:      key.OrgUnitID,
				TypeCode:       req.TypeCode,
				OrgCode:        req.OrgCode,
				Subject:        req.Subject,
				IssuedAt:       req.IssuedAt,
				WorkflowStatus: domain.WorkflowSubmitted,
			}, nil
		})
		return err
	})
	if err != nil {
		u.logger().Warn("document issuance failed",
			zap.String("counter", key.String()),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return domain.DocumentRecord{}, err
	}
	u.logger().Info("document issued",
		zap.String("document_id", doc.ID),
		zap.String("number", doc.Number),
		zap.String("counter", key.String()),
		zap.Int("attempts", attempts))
	return doc, nil
}

func (u *IssueDocument) normalize(req IssueRequest) (IssueRequest, error) {
	req.TypeCode = strings.TrimSpace(req.TypeCode)
	req.OrgCode = strings.TrimSpace(req.OrgCode)
	req.OrgUnitID = strings.TrimSpace(req.OrgUnitID)
	req.Subject = strings.TrimSpace(req.Subject)

	if req.Scope == "" {
		req.Scope = domain.ScopeFakultas
		if req.OrgUnitID != "" {
			req.Scope = domain.ScopeProdi
		}
	}
	if req.SubjectType == "" {
		req.SubjectType = domain.SubjectLetter
	}
	if !req.SubjectType.Valid() {
		return req, fmt.Errorf("%w: unknown subject type %q", domain.ErrValidation, req.SubjectType)
	}
	if req.Subject == "" {
		return req, fmt.Errorf("%w: subject is required", domain.ErrValidation)
	}
	if req.IssuedAt.IsZero() {
		req.IssuedAt = u.now()
	}
	// The counter year, the number and the signed issue date all read the
	// UTC calendar date.
	req.IssuedAt = req.IssuedAt.UTC()
	if err := checkCodes(req.TypeCode, req.OrgCode, req.IssuedAt); err != nil {
		return req, err
	}
	return req, nil
}

func (u *IssueDocument) now() time.Time {
	if u.Now != nil {
		return u.Now().UTC()
	}
	return time.Now().UTC()
}

func (u *IssueDocument) logger() *zap.Logger {
	return logging.OrNop(u.Logger)
}

// checkCodes renders a throwaway number so bad codes or dates fail before
// the counter is touched.
func checkCodes(typeCode, orgCode string, date time.Time) error {
	if _, err := numbering.FormatAt(1, typeCode, orgCode, date); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func yearOf(t time.Time) string {
	return fmt.Sprintf("%04d", t.Year())
}
