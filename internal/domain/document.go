package domain

import "time"

type SubjectType string

const (
	SubjectLetter      SubjectType = "letter"
	SubjectCertificate SubjectType = "certificate"
)

func (s SubjectType) Valid() bool {
	return s == SubjectLetter || s == SubjectCertificate
}

// WorkflowStatus mirrors the external approval workflow. Only the
// approved and completed states make a document ready to sign.
type WorkflowStatus string

const (
	WorkflowSubmitted WorkflowStatus = "submitted"
	WorkflowInReview  WorkflowStatus = "in_review"
	WorkflowApproved  WorkflowStatus = "approved"
	WorkflowRejected  WorkflowStatus = "rejected"
	WorkflowCompleted WorkflowStatus = "completed"
)

func ParseWorkflowStatus(raw string) (WorkflowStatus, bool) {
	switch status := WorkflowStatus(raw); status {
	case WorkflowSubmitted, WorkflowInReview, WorkflowApproved, WorkflowRejected, WorkflowCompleted:
		return status, true
	}
	return "", false
}

func (s WorkflowStatus) ReadyToSign() bool {
	return s == WorkflowApproved || s == WorkflowCompleted
}

type DocumentRecord struct {
	ID                string
	Number            string
	SubjectType       SubjectType
	Scope             Scope
	OrgUnitID         *string
	TypeCode          string
	OrgCode           string
	Subject           string
	IssuedAt          time.Time
	WorkflowStatus    WorkflowStatus
	Signature         *string
	SignedBy          *string
	SignerRole        *string
	SignedAt          *time.Time
	VerificationCount int64
}

func (d DocumentRecord) Signed() bool {
	return d.Signature != nil
}

// SignatureStamp is the write-once set of signature fields.
type SignatureStamp struct {
	Signature  string
	SignedBy   string
	SignerRole string
	SignedAt   time.Time
}
