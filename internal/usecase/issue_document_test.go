package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"docseal/internal/domain"
	"docseal/internal/infra/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newIssuer(store *memStore) *IssueDocument {
	u := NewIssueDocument(store, store, RetryPolicy{MaxAttempts: 3}, nil)
	u.Now = func() time.Time { return time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC) }
	return u
}

func TestIssueDocument_FakultasSeededCounter(t *testing.T) {
	store := newMemStore()
	store.seed(domain.NewCounterKey(domain.ScopeFakultas, "", "2025"), 145)
	u := newIssuer(store)

	doc, err := u.Execute(context.Background(), IssueRequest{
		TypeCode: "SK",
		OrgCode:  "FT",
		Subject:  "Surat keputusan dekan",
	})
	require.NoError(t, err)
	assert.Equal(t, "146/SK/FT/III/2025", doc.Number)
	assert.True(t, strings.HasPrefix(doc.Number, "146"))
	assert.Equal(t, domain.ScopeFakultas, doc.Scope)
	assert.Nil(t, doc.OrgUnitID)
	assert.Equal(t, domain.SubjectLetter, doc.SubjectType)
	assert.Equal(t, domain.WorkflowSubmitted, doc.WorkflowStatus)
	assert.NotEmpty(t, doc.ID)
}

func TestIssueDocument_ProdiScopeFromOrgUnit(t *testing.T) {
	store := newMemStore()
	u := newIssuer(store)
	issuedAt := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	doc, err := u.Execute(context.Background(), IssueRequest{
		TypeCode:    "SKA",
		OrgCode:     "IF",
		OrgUnitID:   "IF",
		Subject:     "Surat keterangan aktif",
		SubjectType: domain.SubjectCertificate,
		IssuedAt:    issuedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, "001/SKA/IF/XI/2025", doc.Number)
	assert.Equal(t, domain.ScopeProdi, doc.Scope)
	require.NotNil(t, doc.OrgUnitID)
	assert.Equal(t, "IF", *doc.OrgUnitID)
	assert.EqualValues(t, 1, store.value(domain.NewCounterKey(domain.ScopeProdi, "IF", "2025")))
}

func TestIssueDocument_Validation(t *testing.T) {
	store := newMemStore()
	u := newIssuer(store)
	ctx := context.Background()

	_, err := u.Execute(ctx, IssueRequest{TypeCode: "SK", OrgCode: "IF", Scope: domain.ScopeProdi, Subject: "x"})
	assert.ErrorIs(t, err, domain.ErrMissingOrgUnit)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = u.Execute(ctx, IssueRequest{TypeCode: "S/K", OrgCode: "IF", Subject: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = u.Execute(ctx, IssueRequest{TypeCode: "SK", OrgCode: "IF"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = u.Execute(ctx, IssueRequest{TypeCode: "SK", OrgCode: "IF", Subject: "x", SubjectType: "memo"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, 0, store.calls, "validation failures must not touch the counter")
}

func TestIssueDocument_RetriesConflicts(t *testing.T) {
	store := newMemStore()
	store.conflicts = 2
	u := newIssuer(store)

	doc, err := u.Execute(context.Background(), IssueRequest{TypeCode: "SK", OrgCode: "FT", Subject: "x"})
	require.NoError(t, err)
	assert.Equal(t, "001/SK/FT/III/2025", doc.Number)
	assert.Equal(t, 3, store.calls)
}

func TestIssueDocument_ConflictExhaustsRetries(t *testing.T) {
	store := newMemStore()
	store.conflicts = 5
	u := newIssuer(store)

	_, err := u.Execute(context.Background(), IssueRequest{TypeCode: "SK", OrgCode: "FT", Subject: "x"})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, 3, store.calls)
	assert.EqualValues(t, 0, store.value(domain.NewCounterKey(domain.ScopeFakultas, "", "2025")))
}

func TestIssueDocument_ConcurrentNumbersAreUnique(t *testing.T) {
	store := newMemStore()
	u := newIssuer(store)

	const workers = 50
	var mu sync.Mutex
	numbers := make(map[string]bool, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			doc, err := u.Execute(context.Background(), IssueRequest{TypeCode: "SK", OrgCode: "FT", Subject: "x"})
			if err != nil {
				return err
			}
			mu.Lock()
			numbers[doc.Number] = true
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, numbers, workers)
	assert.True(t, numbers["001/SK/FT/III/2025"])
	assert.True(t, numbers["050/SK/FT/III/2025"])
}

func TestIssueDocument_GenerateNumber(t *testing.T) {
	store := newMemStore()
	u := newIssuer(store)
	ctx := context.Background()
	date := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)

	number, err := u.GenerateNumber(ctx, domain.ScopeProdi, "IF", "SKA", "IF", date)
	require.NoError(t, err)
	assert.Equal(t, "001/SKA/IF/XI/2025", number)

	number, err = u.GenerateNumber(ctx, domain.ScopeProdi, "IF", "SKA", "IF", date)
	require.NoError(t, err)
	assert.Equal(t, "002/SKA/IF/XI/2025", number)

	_, err = u.GenerateNumber(ctx, domain.ScopeProdi, "", "SKA", "IF", date)
	assert.ErrorIs(t, err, domain.ErrMissingOrgUnit)
}

func TestIssueDocument_AfterCounterResetContinuesPastIssuedNumbers(t *testing.T) {
	store := newMemStore()
	u := newIssuer(store)
	ctx := context.Background()
	key := domain.NewCounterKey(domain.ScopeFakultas, "", "2025")
	req := IssueRequest{TypeCode: "SKA", OrgCode: "FT", Subject: "Surat keterangan"}

	for i := 0; i < 3; i++ {
		_, err := u.Execute(ctx, req)
		require.NoError(t, err)
	}
	_, err := store.Reset(ctx, key, "registrar", "letterhead change")
	require.NoError(t, err)

	for _, want := range []string{"004/SKA/FT/III/2025", "005/SKA/FT/III/2025", "006/SKA/FT/III/2025"} {
		doc, err := u.Execute(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, want, doc.Number)
	}
	assert.EqualValues(t, 6, store.value(key))
}

func TestIssueDocument_IssueDateFollowsNumberCalendar(t *testing.T) {
	store := newMemStore()
	u := newIssuer(store)
	ctx := context.Background()
	jakarta := time.FixedZone("WIB", 7*60*60)

	doc, err := u.Execute(ctx, IssueRequest{
		TypeCode: "SK",
		OrgCode:  "FT",
		Subject:  "Surat keputusan dekan",
		IssuedAt: time.Date(2026, 1, 1, 3, 0, 0, 0, jakarta),
	})
	require.NoError(t, err)
	assert.Equal(t, "001/SK/FT/XII/2025", doc.Number)
	assert.Equal(t, time.UTC, doc.IssuedAt.Location())
	assert.EqualValues(t, 1, store.value(domain.NewCounterKey(domain.ScopeFakultas, "", "2025")))
	assert.EqualValues(t, 0, store.value(domain.NewCounterKey(domain.ScopeFakultas, "", "2026")))

	require.NoError(t, store.SetWorkflowStatus(ctx, doc.ID, domain.WorkflowApproved))
	res, err := newSigner(t, store, nil).Execute(ctx, SignRequest{DocumentID: doc.ID, SignerName: "Dr. Ahmad", SignerRole: "dekan"})
	require.NoError(t, err)
	payload, err := crypto.DecodePayload(res.EncodedPayload)
	require.NoError(t, err)
	assert.Equal(t, "2025-12-31", payload.IssueDate)

	number, err := u.GenerateNumber(ctx, domain.ScopeFakultas, "", "SK", "FT", time.Date(2026, 1, 1, 3, 0, 0, 0, jakarta))
	require.NoError(t, err)
	assert.Equal(t, "002/SK/FT/XII/2025", number)
}
