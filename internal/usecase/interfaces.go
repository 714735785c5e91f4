package usecase

import (
	"context"

	"docseal/internal/domain"
)

type CounterStore interface {
	GetOrCreate(ctx context.Context, key domain.CounterKey) (domain.Counter, error)
	Increment(ctx context.Context, key domain.CounterKey) (int64, error)
	PeekNext(ctx context.Context, key domain.CounterKey) (int64, error)
	Reset(ctx context.Context, key domain.CounterKey, actor, reason string) (domain.CounterReset, error)
}

type DocumentStore interface {
	// Issue advances the counter for key and stores the record returned by
	// build in one atomic step.
	Issue(ctx context.Context, key domain.CounterKey, build func(seq int64) (domain.DocumentRecord, error)) (domain.DocumentRecord, error)
	GetByID(ctx context.Context, id string) (domain.DocumentRecord, error)
	GetByNumber(ctx context.Context, number string) (domain.DocumentRecord, error)
	SetWorkflowStatus(ctx context.Context, id string, status domain.WorkflowStatus) error
	MarkSigned(ctx context.Context, id string, stamp domain.SignatureStamp) error
	IncrementVerificationCount(ctx context.Context, id string) (int64, error)
}

type SignatureEngine interface {
	Sign(payload domain.SignaturePayload) string
	Verify(payload domain.SignaturePayload, signature string) bool
}

type SigningPolicy interface {
	Evaluate(ctx context.Context, input domain.SigningPolicyInput) (domain.PolicyResult, error)
}
