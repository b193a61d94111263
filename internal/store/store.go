// Package store persists claims, evidence and contradictions in Postgres.
package store

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
