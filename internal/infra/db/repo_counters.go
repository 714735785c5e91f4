package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docseal/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CounterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

func (r *CounterRepository) GetOrCreate(ctx context.Context, key domain.CounterKey) (domain.Counter, error) {
	if r.db == nil {
		return domain.Counter{}, errDBUnavailable
	}
	if err := key.Validate(); err != nil {
		return domain.Counter{}, err
	}
	now := time.Now().UTC()
	if err := r.db.WithContext(ctx).Exec(
		`INSERT INTO document_counters (scope, org_unit_id, year, value, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)
		 ON CONFLICT (scope, org_unit_id, year) DO NOTHING`,
		string(key.Scope), orgUnitColumn(key), key.Year, now, now,
	).Error; err != nil {
		return domain.Counter{}, classify(err)
	}
	var model CounterModel
	if err := r.db.WithContext(ctx).
		Where("scope = ? AND org_unit_id = ? AND year = ?", string(key.Scope), orgUnitColumn(key), key.Year).
		Take(&model).Error; err != nil {
		return domain.Counter{}, classify(err)
	}
	return counterFromModel(model), nil
}

// Increment advances the counter by one and returns the new value. The
// upsert is a single statement, so concurrent callers on the same key are
// serialized by the row lock and each observes a distinct value.
func (r *CounterRepository) Increment(ctx context.Context, key domain.CounterKey) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	return r.IncrementTx(ctx, r.db, key)
}

// IncrementTx runs the same upsert on tx so the caller can commit it
// together with other writes.
func (r *CounterRepository) IncrementTx(ctx context.Context, tx *gorm.DB, key domain.CounterKey) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	var value int64
	if err := tx.WithContext(ctx).
		Raw(
			`INSERT INTO document_counters (scope, org_unit_id, year, value, created_at, updated_at)
			 VALUES (?, ?, ?, 1, ?, ?)
			 ON CONFLICT (scope, org_unit_id, year)
			 DO UPDATE SET value = document_counters.value + 1, updated_at = EXCLUDED.updated_at
			 RETURNING value`,
			string(key.Scope), orgUnitColumn(key), key.Year, time.Now().UTC(), time.Now().UTC(),
		).Scan(&value).Error; err != nil {
		return 0, classify(err)
	}
	return value, nil
}

// PeekNext reports the value the next Increment would return. It reserves
// nothing.
func (r *CounterRepository) PeekNext(ctx context.Context, key domain.CounterKey) (int64, error) {
	current, err := r.Current(ctx, key)
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

// Current returns the stored value, or zero when the counter has never
// been used.
func (r *CounterRepository) Current(ctx context.Context, key domain.CounterKey) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	if err := key.Validate(); err != nil {
		return 0, err
	}
	var model CounterModel
	err := r.db.WithContext(ctx).
		Where("scope = ? AND org_unit_id = ? AND year = ?", string(key.Scope), orgUnitColumn(key), key.Year).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, classify(err)
	}
	return model.Value, nil
}

// Seed sets the counter to value, creating it if needed. Used to carry a
// sequence over from another system.
func (r *CounterRepository) Seed(ctx context.Context, key domain.CounterKey, value int64) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if err := key.Validate(); err != nil {
		return err
	}
	if value < 0 {
		return fmt.Errorf("%w: counter value must not be negative", domain.ErrValidation)
	}
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO document_counters (scope, org_unit_id, year, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (scope, org_unit_id, year)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		string(key.Scope), orgUnitColumn(key), key.Year, value, now, now,
	).Error
	return classify(err)
}

// Reset sets the counter back to zero and records who did it. Resetting a
// counter that was never used is ErrNotFound.
func (r *CounterRepository) Reset(ctx context.Context, key domain.CounterKey, actor, reason string) (domain.CounterReset, error) {
	if r.db == nil {
		return domain.CounterReset{}, errDBUnavailable
	}
	if err := key.Validate(); err != nil {
		return domain.CounterReset{}, err
	}
	reset := domain.CounterReset{
		ID:     NewUUID(),
		Key:    key,
		Actor:  actor,
		Reason: reason,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("scope = ? AND org_unit_id = ? AND year = ?", string(key.Scope), orgUnitColumn(key), key.Year)
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var model CounterModel
		if err := query.Take(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		now := time.Now().UTC()
		if err := tx.Model(&CounterModel{}).
			Where("id = ?", model.ID).
			Updates(map[string]any{"value": 0, "updated_at": now}).Error; err != nil {
			return err
		}
		reset.PreviousValue = model.Value
		return tx.Create(&CounterResetModel{
			ID:            reset.ID,
			Scope:         string(key.Scope),
			OrgUnitID:     orgUnitColumn(key),
			Year:          key.Year,
			PreviousValue: model.Value,
			Actor:         actor,
			Reason:        reason,
			ResetAt:       now,
		}).Error
	})
	if err != nil {
		return domain.CounterReset{}, classify(err)
	}
	return reset, nil
}

func counterFromModel(model CounterModel) domain.Counter {
	return domain.Counter{
		Key: domain.CounterKey{
			Scope:     domain.Scope(model.Scope),
			OrgUnitID: orgUnitPtr(model.OrgUnitID),
			Year:      model.Year,
		},
		Value: model.Value,
	}
}
