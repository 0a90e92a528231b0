package db

import (
	"context"
	"errors"

	"backend-urbexqueens/internal/config"

	"cloud.google.com/go/firestore"
)

var newFirestoreFn = firestore.NewClient

// ConnectFirestore opens a client for the configured project. Credentials come
// from the environment (ADC or FIRESTORE_EMULATOR_HOST).
func ConnectFirestore(ctx context.Context, cfg config.Config) (*firestore.Client, error) {
	if cfg.FirestoreProjectID == "" {
		return nil, errors.New("firestore project id not configured")
	}
	return newFirestoreFn(ctx, cfg.FirestoreProjectID)
}
