package store

import "errors"

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")

	// ErrSlotLocked means another booking attempt holds the per-slot create
	// lock; the caller should treat the slot as contended, not broken.
	ErrSlotLocked = errors.New("slot is locked by another operation")
)
