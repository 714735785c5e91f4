package policyopa

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"docseal/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background())
	require.NoError(t, err)
	return engine
}

func denyCodes(deny []domain.PolicyDeny) []string {
	out := make([]string, 0, len(deny))
	for _, item := range deny {
		out = append(out, item.Code)
	}
	return out
}

func TestEngine_DefaultPolicy(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name  string
		input domain.SigningPolicyInput
		allow bool
		deny  []string
	}{
		{
			name:  "dekan signs fakultas letter",
			input: domain.SigningPolicyInput{SignerRole: "dekan", Scope: domain.ScopeFakultas, SubjectType: domain.SubjectLetter},
			allow: true,
		},
		{
			name:  "dekan signs prodi certificate",
			input: domain.SigningPolicyInput{SignerRole: "dekan", Scope: domain.ScopeProdi, SubjectType: domain.SubjectCertificate},
			allow: true,
		},
		{
			name:  "role is case insensitive",
			input: domain.SigningPolicyInput{SignerRole: " Dekan ", Scope: domain.ScopeProdi, SubjectType: domain.SubjectLetter},
			allow: true,
		},
		{
			name:  "wakil dekan signs fakultas",
			input: domain.SigningPolicyInput{SignerRole: "wakil_dekan", Scope: domain.ScopeFakultas, SubjectType: domain.SubjectLetter},
			allow: true,
		},
		{
			name:  "wakil dekan cannot sign prodi",
			input: domain.SigningPolicyInput{SignerRole: "wakil_dekan", Scope: domain.ScopeProdi, SubjectType: domain.SubjectLetter},
			deny:  []string{"SCOPE_NOT_ALLOWED"},
		},
		{
			name:  "kaprodi signs prodi",
			input: domain.SigningPolicyInput{SignerRole: "kaprodi", Scope: domain.ScopeProdi, SubjectType: domain.SubjectCertificate},
			allow: true,
		},
		{
			name:  "kaprodi cannot sign fakultas",
			input: domain.SigningPolicyInput{SignerRole: "kaprodi", Scope: domain.ScopeFakultas, SubjectType: domain.SubjectLetter},
			deny:  []string{"SCOPE_NOT_ALLOWED"},
		},
		{
			name:  "unknown role and subject",
			input: domain.SigningPolicyInput{SignerRole: "rektor", Scope: domain.ScopeFakultas, SubjectType: "memo"},
			deny:  []string{"ROLE_UNKNOWN", "SUBJECT_TYPE_UNKNOWN"},
		},
		{
			name:  "empty role",
			input: domain.SigningPolicyInput{Scope: domain.ScopeFakultas, SubjectType: domain.SubjectLetter},
			deny:  []string{"ROLE_UNKNOWN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.Evaluate(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.allow, out.Allow)
			if tt.allow {
				assert.Empty(t, out.Deny)
				return
			}
			assert.Equal(t, tt.deny, denyCodes(out.Deny))
		})
	}
}

func TestEngine_Deterministic(t *testing.T) {
	engine := newTestEngine(t)
	input := domain.SigningPolicyInput{SignerRole: "rektor", Scope: domain.ScopeProdi, SubjectType: "memo"}

	first, err := engine.Evaluate(context.Background(), input)
	require.NoError(t, err)
	second, err := engine.Evaluate(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, engine.PolicyHash())
}

func TestEngine_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.rego")
	policy := `package docseal.signing

result := {"allow": true, "deny": []}
`
	require.NoError(t, os.WriteFile(path, []byte(policy), 0o644))

	engine, err := NewEngineFromFile(context.Background(), path)
	require.NoError(t, err)
	out, err := engine.Evaluate(context.Background(), domain.SigningPolicyInput{SignerRole: "anyone"})
	require.NoError(t, err)
	assert.True(t, out.Allow)
	assert.NotEqual(t, newTestEngine(t).PolicyHash(), engine.PolicyHash())
}

func TestEngine_RejectsImpureBuiltins(t *testing.T) {
	for _, expr := range []string{
		"time.now_ns()",
		`http.send({"method": "get", "url": "https://example.com"})`,
		"rand.intn(10)",
	} {
		path := filepath.Join(t.TempDir(), "policy.rego")
		policy := `package docseal.signing
result := {"allow": true, "deny": []} {
  ` + expr + `
}`
		require.NoError(t, os.WriteFile(path, []byte(policy), 0o644))
		_, err := NewEngineFromFile(context.Background(), path)
		assert.Error(t, err, expr)
	}
}

func TestEngine_MissingFile(t *testing.T) {
	_, err := NewEngineFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.rego"))
	assert.Error(t, err)
}
