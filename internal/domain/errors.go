package domain

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrMissingOrgUnit      = errors.New("org unit is required for prodi scope")
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrSignatureInvalid    = errors.New("signature invalid")
	ErrNotFound            = errors.New("not found")
	ErrAlreadySigned       = errors.New("document already signed")
	ErrNotApproved         = errors.New("document not approved for signing")
	ErrSigningForbidden    = errors.New("signer not permitted")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrInsecureSecret      = errors.New("signing secret missing or insecure")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNumberCollision     = errors.New("document number already issued")
)
