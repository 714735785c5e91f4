package db

import "time"

// CounterModel stores one numbering sequence. A fakultas-wide counter keeps
// an empty org_unit_id so the unique key also covers it; Postgres would
// treat NULLs as distinct.
type CounterModel struct {
	ID        int64     `gorm:"primaryKey"`
	Scope     string    `gorm:"not null;uniqueIndex:document_counters_key,priority:1"`
	OrgUnitID string    `gorm:"not null;default:'';uniqueIndex:document_counters_key,priority:2"`
	Year      string    `gorm:"not null;uniqueIndex:document_counters_key,priority:3"`
	Value     int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (CounterModel) TableName() string { return "document_counters" }

type CounterResetModel struct {
	ID            string    `gorm:"primaryKey"`
	Scope         string    `gorm:"not null"`
	OrgUnitID     string    `gorm:"not null"`
	Year          string    `gorm:"not null"`
	PreviousValue int64     `gorm:"not null"`
	Actor         string    `gorm:"not null"`
	Reason        string    `gorm:"not null"`
	ResetAt       time.Time `gorm:"not null"`
}

func (CounterResetModel) TableName() string { return "counter_resets" }

type DocumentModel struct {
	ID                string    `gorm:"primaryKey"`
	Number            string    `gorm:"uniqueIndex;not null"`
	SubjectType       string    `gorm:"not null"`
	Scope             string    `gorm:"not null"`
	OrgUnitID         *string   `gorm:"index"`
	TypeCode          string    `gorm:"not null"`
	OrgCode           string    `gorm:"not null"`
	Subject           string    `gorm:"not null"`
	IssuedAt          time.Time `gorm:"not null"`
	WorkflowStatus    string    `gorm:"not null"`
	Signature         *string
	SignedBy          *string
	SignerRole        *string
	SignedAt          *time.Time
	VerificationCount int64     `gorm:"not null;default:0"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (DocumentModel) TableName() string { return "documents" }
