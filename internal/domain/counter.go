package domain

import (
	"fmt"
	"strings"
)

type Scope string

const (
	ScopeFakultas Scope = "fakultas"
	ScopeProdi    Scope = "prodi"
)

// ParseScope accepts the canonical lower-case names as well as the
// capitalized forms used by the administrative UI.
func ParseScope(raw string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ScopeFakultas):
		return ScopeFakultas, nil
	case string(ScopeProdi):
		return ScopeProdi, nil
	default:
		return "", fmt.Errorf("%w: unknown scope %q", ErrValidation, raw)
	}
}

// CounterKey identifies one sequence. OrgUnitID is nil iff Scope is
// ScopeFakultas.
type CounterKey struct {
	Scope     Scope
	OrgUnitID *string
	Year      string
}

func NewCounterKey(scope Scope, orgUnitID string, year string) CounterKey {
	key := CounterKey{Scope: scope, Year: strings.TrimSpace(year)}
	if unit := strings.TrimSpace(orgUnitID); unit != "" {
		key.OrgUnitID = &unit
	}
	return key
}

func (k CounterKey) OrgUnit() string {
	if k.OrgUnitID == nil {
		return ""
	}
	return *k.OrgUnitID
}

func (k CounterKey) Validate() error {
	switch k.Scope {
	case ScopeProdi:
		if k.OrgUnit() == "" {
			return fmt.Errorf("%w: %w", ErrValidation, ErrMissingOrgUnit)
		}
	case ScopeFakultas:
		if k.OrgUnitID != nil {
			return fmt.Errorf("%w: fakultas scope does not take an org unit", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrValidation, k.Scope)
	}
	if len(k.Year) != 4 {
		return fmt.Errorf("%w: year must have four digits", ErrValidation)
	}
	for _, r := range k.Year {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: year must have four digits", ErrValidation)
		}
	}
	return nil
}

func (k CounterKey) String() string {
	if k.OrgUnitID == nil {
		return fmt.Sprintf("%s/%s", k.Scope, k.Year)
	}
	return fmt.Sprintf("%s:%s/%s", k.Scope, *k.OrgUnitID, k.Year)
}

type Counter struct {
	Key   CounterKey
	Value int64
}

type CounterReset struct {
	ID            string
	Key           CounterKey
	PreviousValue int64
	Actor         string
	Reason        string
}
