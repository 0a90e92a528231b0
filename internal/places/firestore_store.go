package places

import (
	"context"
	"errors"

	"backend-urbexqueens/internal/placestate"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const userPlacesCollection = "userPlaces"

// FirestoreStore keeps one document per user in userPlaces/<uid> with the raw
// mapping under the places field.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) doc(userID string) *firestore.DocumentRef {
	return s.client.Collection(userPlacesCollection).Doc(userID)
}

func (s *FirestoreStore) Get(ctx context.Context, userID string) (placestate.Raw, error) {
	snap, err := s.doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return placestate.Raw{}, nil
		}
		return nil, err
	}
	return rawFromSnapshot(snap), nil
}

func (s *FirestoreStore) SetFlag(ctx context.Context, userID, placeID, field string, value bool) error {
	ref := s.doc(userID)
	_, err := ref.Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"places", placeID, field}, Value: value},
		{FieldPath: firestore.FieldPath{"places", placeID, "placeId"}, Value: placeID},
		{FieldPath: firestore.FieldPath{"places", placeID, "updatedAt"}, Value: firestore.ServerTimestamp},
	})
	if status.Code(err) != codes.NotFound {
		return err
	}

	_, err = ref.Set(ctx, map[string]interface{}{
		"places": map[string]interface{}{
			placeID: map[string]interface{}{
				field:       value,
				"placeId":   placeID,
				"updatedAt": firestore.ServerTimestamp,
			},
		},
	}, firestore.MergeAll)
	return err
}

func (s *FirestoreStore) Watch(ctx context.Context, userID string, fn func(placestate.Raw, error)) error {
	it := s.doc(userID).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
				return nil
			}
			fn(nil, err)
			return err
		}
		fn(rawFromSnapshot(snap), nil)
	}
}

func rawFromSnapshot(snap *firestore.DocumentSnapshot) placestate.Raw {
	if snap == nil || !snap.Exists() {
		return placestate.Raw{}
	}
	v, err := snap.DataAt("places")
	if err != nil {
		return placestate.Raw{}
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return placestate.Raw{}
	}
	return placestate.FromMap(m)
}
