package usecase

import (
	"context"
	"sync"
	"testing"

	"docseal/internal/domain"
	"docseal/internal/infra/crypto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "7f3c9a1e5b2d8f4a6c0e9b3d7a1f5c8e2b6d4a0f"

func newTestEngine(t *testing.T) *crypto.HMACEngine {
	t.Helper()
	engine, err := crypto.NewHMACEngine(testSecret)
	require.NoError(t, err)
	return engine
}

type memStore struct {
	mu        sync.Mutex
	counters  map[string]int64
	docs      map[string]domain.DocumentRecord
	byNumber  map[string]string
	conflicts int
	calls     int
}

func newMemStore() *memStore {
	return &memStore{
		counters: make(map[string]int64),
		docs:     make(map[string]domain.DocumentRecord),
		byNumber: make(map[string]string),
	}
}

func (s *memStore) seed(key domain.CounterKey, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key.String()] = value
}

func (s *memStore) value(key domain.CounterKey) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key.String()]
}

func (s *memStore) put(doc domain.DocumentRecord) domain.DocumentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	s.docs[doc.ID] = doc
	s.byNumber[doc.Number] = doc.ID
	return doc
}

func (s *memStore) takeConflict() bool {
	s.calls++
	if s.conflicts > 0 {
		s.conflicts--
		return true
	}
	return false
}

func (s *memStore) GetOrCreate(ctx context.Context, key domain.CounterKey) (domain.Counter, error) {
	if err := key.Validate(); err != nil {
		return domain.Counter{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	value := s.counters[key.String()]
	s.counters[key.String()] = value
	return domain.Counter{Key: key, Value: value}, nil
}

func (s *memStore) Increment(ctx context.Context, key domain.CounterKey) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.takeConflict() {
		return 0, domain.ErrConcurrencyConflict
	}
	s.counters[key.String()]++
	return s.counters[key.String()], nil
}

func (s *memStore) PeekNext(ctx context.Context, key domain.CounterKey) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key.String()] + 1, nil
}

func (s *memStore) Reset(ctx context.Context, key domain.CounterKey, actor, reason string) (domain.CounterReset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, ok := s.counters[key.String()]
	if !ok {
		return domain.CounterReset{}, domain.ErrNotFound
	}
	s.counters[key.String()] = 0
	return domain.CounterReset{ID: uuid.NewString(), Key: key, PreviousValue: previous, Actor: actor, Reason: reason}, nil
}

func (s *memStore) Issue(ctx context.Context, key domain.CounterKey, build func(seq int64) (domain.DocumentRecord, error)) (domain.DocumentRecord, error) {
	if err := key.Validate(); err != nil {
		return domain.DocumentRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.takeConflict() {
		return domain.DocumentRecord{}, domain.ErrConcurrencyConflict
	}
	seq := s.counters[key.String()]
	var doc domain.DocumentRecord
	for previous := ""; ; previous = doc.Number {
		seq++
		var err error
		doc, err = build(seq)
		if err != nil {
			return domain.DocumentRecord{}, err
		}
		if _, exists := s.byNumber[doc.Number]; !exists {
			break
		}
		if doc.Number == previous {
			return domain.DocumentRecord{}, domain.ErrNumberCollision
		}
	}
	doc.ID = uuid.NewString()
	s.counters[key.String()] = seq
	s.docs[doc.ID] = doc
	s.byNumber[doc.Number] = doc.ID
	return doc, nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (domain.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.DocumentRecord{}, domain.ErrNotFound
	}
	return doc, nil
}

func (s *memStore) GetByNumber(ctx context.Context, number string) (domain.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byNumber[number]
	if !ok {
		return domain.DocumentRecord{}, domain.ErrNotFound
	}
	return s.docs[id], nil
}

func (s *memStore) SetWorkflowStatus(ctx context.Context, id string, status domain.WorkflowStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.WorkflowStatus = status
	s.docs[id] = doc
	return nil
}

func (s *memStore) MarkSigned(ctx context.Context, id string, stamp domain.SignatureStamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if doc.Signed() {
		return domain.ErrAlreadySigned
	}
	signature, signedBy, role, signedAt := stamp.Signature, stamp.SignedBy, stamp.SignerRole, stamp.SignedAt
	doc.Signature = &signature
	doc.SignedBy = &signedBy
	doc.SignerRole = &role
	doc.SignedAt = &signedAt
	s.docs[id] = doc
	return nil
}

func (s *memStore) IncrementVerificationCount(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	doc.VerificationCount++
	s.docs[id] = doc
	return doc.VerificationCount, nil
}

type stubPolicy struct {
	result domain.PolicyResult
	err    error
	last   domain.SigningPolicyInput
}

func (p *stubPolicy) Evaluate(ctx context.Context, input domain.SigningPolicyInput) (domain.PolicyResult, error) {
	p.last = input
	return p.result, p.err
}
