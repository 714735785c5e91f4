package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docseal/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepository struct {
	db       *gorm.DB
	counters *CounterRepository
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db, counters: NewCounterRepository(db)}
}

// maxNumberSkips bounds how far Issue walks past numbers that are already
// taken, e.g. after a counter reset.
const maxNumberSkips = 10000

const issueSavepoint = "issue_document"

// Issue advances the counter for key and inserts the document built from
// the new sequence value in one transaction. If build or the insert fails
// the counter advance is rolled back, so no number is consumed.
//
// When the rendered number already exists the counter keeps advancing until
// a free number is found. A build that renders the same number for every
// sequence can never succeed and fails with domain.ErrNumberCollision.
func (r *DocumentRepository) Issue(ctx context.Context, key domain.CounterKey, build func(seq int64) (domain.DocumentRecord, error)) (domain.DocumentRecord, error) {
	if r.db == nil {
		return domain.DocumentRecord{}, errDBUnavailable
	}
	var out domain.DocumentRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var previous string
		for skipped := 0; ; skipped++ {
			seq, err := r.counters.IncrementTx(ctx, tx, key)
			if err != nil {
				return err
			}
			doc, err := build(seq)
			if err != nil {
				return err
			}
			if skipped > 0 && doc.Number == previous {
				return fmt.Errorf("%w: %s", domain.ErrNumberCollision, doc.Number)
			}
			previous = doc.Number

			model, err := r.insertDocument(tx, doc)
			if err == nil {
				out = documentFromModel(model)
				return nil
			}
			if !isNumberCollision(err) {
				return err
			}
			if skipped+1 >= maxNumberSkips {
				return fmt.Errorf("%w: %s", domain.ErrNumberCollision, doc.Number)
			}
		}
	})
	if err != nil {
		return domain.DocumentRecord{}, classify(err)
	}
	return out, nil
}

// insertDocument writes doc under a savepoint so a failed insert leaves the
// surrounding transaction usable.
func (r *DocumentRepository) insertDocument(tx *gorm.DB, doc domain.DocumentRecord) (DocumentModel, error) {
	if doc.ID == "" {
		doc.ID = NewUUID()
	}
	model := documentToModel(doc)
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now

	if err := tx.SavePoint(issueSavepoint).Error; err != nil {
		return DocumentModel{}, err
	}
	if err := tx.Create(&model).Error; err != nil {
		if rbErr := tx.RollbackTo(issueSavepoint).Error; rbErr != nil {
			return DocumentModel{}, errors.Join(err, rbErr)
		}
		return DocumentModel{}, err
	}
	return model, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (domain.DocumentRecord, error) {
	if r.db == nil {
		return domain.DocumentRecord{}, errDBUnavailable
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.DocumentRecord{}, domain.ErrNotFound
	}
	return r.take(ctx, "id = ?", id)
}

func (r *DocumentRepository) GetByNumber(ctx context.Context, number string) (domain.DocumentRecord, error) {
	if r.db == nil {
		return domain.DocumentRecord{}, errDBUnavailable
	}
	if number == "" {
		return domain.DocumentRecord{}, domain.ErrNotFound
	}
	return r.take(ctx, "number = ?", number)
}

func (r *DocumentRepository) take(ctx context.Context, where string, arg any) (domain.DocumentRecord, error) {
	var model DocumentModel
	if err := r.db.WithContext(ctx).Where(where, arg).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DocumentRecord{}, domain.ErrNotFound
		}
		return domain.DocumentRecord{}, classify(err)
	}
	return documentFromModel(model), nil
}

func (r *DocumentRepository) SetWorkflowStatus(ctx context.Context, id string, status domain.WorkflowStatus) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&DocumentModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"workflow_status": string(status), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkSigned stores the signature fields once. The guard on signature IS
// NULL makes a second signer lose even when both read an unsigned record.
func (r *DocumentRepository) MarkSigned(ctx context.Context, id string, stamp domain.SignatureStamp) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&DocumentModel{}).
		Where("id = ? AND signature IS NULL", id).
		Updates(map[string]any{
			"signature":   stamp.Signature,
			"signed_by":   stamp.SignedBy,
			"signer_role": stamp.SignerRole,
			"signed_at":   stamp.SignedAt.UTC(),
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrAlreadySigned
}

// IncrementVerificationCount bumps the counter in a single statement and
// returns the value after the increment.
func (r *DocumentRepository) IncrementVerificationCount(ctx context.Context, id string) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	if _, err := uuid.Parse(id); err != nil {
		return 0, domain.ErrNotFound
	}
	var count int64
	res := r.db.WithContext(ctx).
		Raw(
			`UPDATE documents
			 SET verification_count = verification_count + 1
			 WHERE id = ?
			 RETURNING verification_count`,
			id,
		).Scan(&count)
	if res.Error != nil {
		return 0, classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrNotFound
	}
	return count, nil
}

func documentToModel(doc domain.DocumentRecord) DocumentModel {
	model := DocumentModel{
		ID:                doc.ID,
		Number:            doc.Number,
		SubjectType:       string(doc.SubjectType),
		Scope:             string(doc.Scope),
		OrgUnitID:         copyString(doc.OrgUnitID),
		TypeCode:          doc.TypeCode,
		OrgCode:           doc.OrgCode,
		Subject:           doc.Subject,
		IssuedAt:          doc.IssuedAt.UTC(),
		WorkflowStatus:    string(doc.WorkflowStatus),
		Signature:         copyString(doc.Signature),
		SignedBy:          copyString(doc.SignedBy),
		SignerRole:        copyString(doc.SignerRole),
		VerificationCount: doc.VerificationCount,
	}
	if doc.SignedAt != nil {
		signedAt := doc.SignedAt.UTC()
		model.SignedAt = &signedAt
	}
	return model
}

func documentFromModel(model DocumentModel) domain.DocumentRecord {
	doc := domain.DocumentRecord{
		ID:                model.ID,
		Number:            model.Number,
		SubjectType:       domain.SubjectType(model.SubjectType),
		Scope:             domain.Scope(model.Scope),
		OrgUnitID:         copyString(model.OrgUnitID),
		TypeCode:          model.TypeCode,
		OrgCode:           model.OrgCode,
		Subject:           model.Subject,
		IssuedAt:          model.IssuedAt.UTC(),
		WorkflowStatus:    domain.WorkflowStatus(model.WorkflowStatus),
		Signature:         copyString(model.Signature),
		SignedBy:          copyString(model.SignedBy),
		SignerRole:        copyString(model.SignerRole),
		VerificationCount: model.VerificationCount,
	}
	if model.SignedAt != nil {
		signedAt := model.SignedAt.UTC()
		doc.SignedAt = &signedAt
	}
	return doc
}
