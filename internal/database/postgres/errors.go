package postgres

import "errors"

var (
	// ErrNoCredentials is returned when the token table holds no row yet.
	ErrNoCredentials = errors.New("no stored credentials")

	// ErrUnknownResource is returned for a resource type without a table mapping.
	ErrUnknownResource = errors.New("unknown resource type")
)
