package quota

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/roomforge/roomforge-backend/internal/apperr"
)

const usersCollection = "users"

// FirestoreStore keeps account documents in the users collection, one doc
// per Firebase UID.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) doc(userID string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(userID)
}

func (s *FirestoreStore) Get(ctx context.Context, userID string) (*Account, error) {
	snap, err := s.doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, apperr.NotFound("user %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user doc: %w", err)
	}

	var acct Account
	if err := snap.DataTo(&acct); err != nil {
		return nil, fmt.Errorf("decode user doc: %w", err)
	}
	return &acct, nil
}

// Set overwrites the whole document. Concurrent first-writes race, but both
// sides write identical defaults.
func (s *FirestoreStore) Set(ctx context.Context, userID string, acct *Account) error {
	_, err := s.doc(userID).Set(ctx, acct)
	return err
}

// Increment applies a single server-side increment so concurrent commits
// cannot lose updates.
func (s *FirestoreStore) Increment(ctx context.Context, userID, field string, count int64) error {
	_, err := s.doc(userID).Update(ctx, []firestore.Update{
		{Path: field, Value: firestore.Increment(count)},
	})
	if status.Code(err) == codes.NotFound {
		return apperr.NotFound("user %s", userID)
	}
	return err
}
