// Package service holds the reservation, gate-validation and payment
// coordination engines, wired together through the domain ports.
package service

import (
	"errors"

	"parkgate/internal/store"
)

// mapStoreErr translates the store's generic not-found into the caller-facing
// sentinel for the record type being looked up.
func mapStoreErr(err error, notFound error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	return err
}
