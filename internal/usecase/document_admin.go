package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docseal/internal/domain"
	"docseal/internal/logging"

	"go.uber.org/zap"
)

// DocumentAdmin reads records and applies workflow transitions reported by
// the approval system.
type DocumentAdmin struct {
	Documents DocumentStore
	Logger    *zap.Logger
}

func NewDocumentAdmin(documents DocumentStore, logger *zap.Logger) *DocumentAdmin {
	return &DocumentAdmin{Documents: documents, Logger: logging.OrNop(logger)}
}

func (a *DocumentAdmin) Get(ctx context.Context, id string) (domain.DocumentRecord, error) {
	if a == nil || a.Documents == nil {
		return domain.DocumentRecord{}, errors.New("document store is required")
	}
	return a.Documents.GetByID(ctx, strings.TrimSpace(id))
}

func (a *DocumentAdmin) UpdateWorkflow(ctx context.Context, id, rawStatus string) error {
	if a == nil || a.Documents == nil {
		return errors.New("document store is required")
	}
	status, ok := domain.ParseWorkflowStatus(strings.ToLower(strings.TrimSpace(rawStatus)))
	if !ok {
		return fmt.Errorf("%w: unknown workflow status %q", domain.ErrValidation, rawStatus)
	}
	if err := a.Documents.SetWorkflowStatus(ctx, strings.TrimSpace(id), status); err != nil {
		return err
	}
	logging.OrNop(a.Logger).Info("workflow status updated",
		zap.String("document_id", id),
		zap.String("status", string(status)))
	return nil
}
