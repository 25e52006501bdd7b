package model

import "github.com/google/uuid"

// IDSource mints ids for new documents. Tests swap in a fixed source
// so generated ids are stable.
type IDSource interface {
	NewID() string
}

// UUIDSource mints UUIDv7 ids, which sort by creation time.
type UUIDSource struct{}

func (UUIDSource) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
