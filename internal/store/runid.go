package store

import "github.com/google/uuid"

// NewRunID creates a time-sortable UUIDv7 run identifier.
//
// UUIDv7 embeds a timestamp in the most significant bits, so listing runs
// by id also lists them by creation time.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}
