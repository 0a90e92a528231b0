// Package writeguard holds the deployment-level gate every mutating operation checks first.
package writeguard

import (
	"fmt"

	"backend-urbexqueens/internal/config"
	"backend-urbexqueens/internal/shared/apperr"
)

type Guard struct {
	reason string
}

// Open returns a guard that allows writes.
func Open() Guard {
	return Guard{}
}

// Closed returns a guard that blocks every write with the given reason.
func Closed(reason string) Guard {
	if reason == "" {
		reason = "writes disabled"
	}
	return Guard{reason: reason}
}

// FromConfig derives the gate from the loaded configuration.
func FromConfig(cfg config.Config) Guard {
	if !cfg.WritesEnabled {
		return Closed("WRITES_ENABLED is false")
	}
	if cfg.PlacesBackend == config.BackendFirestore && cfg.FirestoreProjectID == "" {
		return Closed("firestore backend selected without FIRESTORE_PROJECT_ID")
	}
	return Open()
}

// Check fails with apperr.ErrWriteBlocked when the gate is closed.
func (g Guard) Check() error {
	if g.reason != "" {
		return fmt.Errorf("%w: %s", apperr.ErrWriteBlocked, g.reason)
	}
	return nil
}

// CheckUser additionally rejects writes without an acting user.
func (g Guard) CheckUser(userID string) error {
	if err := g.Check(); err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("%w: missing user id", apperr.ErrWriteBlocked)
	}
	return nil
}
