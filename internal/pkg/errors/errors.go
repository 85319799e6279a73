package errors

import "errors"

var (
	ErrNotFound                 = errors.New("not found")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrInvalid                  = errors.New("invalid")
	ErrConflict                 = errors.New("conflict")
	ErrTooMany                  = errors.New("too many requests")
	ErrInternal                 = errors.New("internal")
	ErrUnrecognizedMunicipality = errors.New("unrecognized municipality")
	ErrExternalProvider         = errors.New("external provider failure")
	ErrMalformedInput           = errors.New("malformed input")
	ErrSchemaMismatch           = errors.New("schema mismatch")
	ErrExtractionFailed         = errors.New("table extraction failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsUnrecognizedMunicipality(err error) bool {
	return errors.Is(err, ErrUnrecognizedMunicipality)
}

func IsExternalProvider(err error) bool {
	return errors.Is(err, ErrExternalProvider)
}
