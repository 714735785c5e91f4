package db

import (
	"errors"

	"docseal/internal/domain"

	"github.com/google/uuid"
)

var errDBUnavailable = errors.New("db unavailable")

func NewUUID() string {
	return uuid.NewString()
}

func orgUnitColumn(key domain.CounterKey) string {
	return key.OrgUnit()
}

func orgUnitPtr(value string) *string {
	if value == "" {
		return nil
	}
	v := value
	return &v
}

func copyString(in *string) *string {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}
