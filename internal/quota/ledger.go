package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roomforge/roomforge-backend/internal/apperr"
)

// Resource is a consumable counted against a per-user quota.
type Resource string

const (
	ResourceImage Resource = "image"
	ResourceModel Resource = "model"
)

// Quotas handed to every new account.
const (
	DefaultImagesQuota = 200
	DefaultModelsQuota = 100
)

// Account is the per-user usage document.
type Account struct {
	ImagesQuota int64     `firestore:"imagesQuota" json:"imagesQuota"`
	ImagesUsed  int64     `firestore:"imagesUsed" json:"imagesUsed"`
	ModelsQuota int64     `firestore:"modelsQuota" json:"modelsQuota"`
	ModelsUsed  int64     `firestore:"modelsUsed" json:"modelsUsed"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
	Email       string    `firestore:"email,omitempty" json:"email,omitempty"`
	IsAnonymous bool      `firestore:"isAnonymous" json:"isAnonymous"`
}

// Remaining returns quota minus usage for the given resource.
func (a *Account) Remaining(res Resource) int64 {
	switch res {
	case ResourceModel:
		return a.ModelsQuota - a.ModelsUsed
	default:
		return a.ImagesQuota - a.ImagesUsed
	}
}

// Store is the document-store surface the ledger needs. Increment must be a
// single atomic server-side increment, not a read-modify-write.
type Store interface {
	Get(ctx context.Context, userID string) (*Account, error)
	Set(ctx context.Context, userID string, acct *Account) error
	Increment(ctx context.Context, userID, field string, count int64) error
}

// Ledger tracks per-user image and model usage. Check and Commit are an
// advisory pair: there is no cross-request locking between them, so two
// concurrent requests can both pass Check before either Commits. Commit
// itself is a single atomic increment.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// EnsureAccount creates the account document with default quotas if it does
// not exist. Idempotent for sequential calls; concurrent first-calls may both
// write, which is harmless because the defaults are identical.
func (l *Ledger) EnsureAccount(ctx context.Context, userID, email string, isAnonymous bool) (*Account, error) {
	acct, err := l.store.Get(ctx, userID)
	if err == nil {
		return acct, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("get account: %w", err)
	}

	acct = &Account{
		ImagesQuota: DefaultImagesQuota,
		ModelsQuota: DefaultModelsQuota,
		CreatedAt:   time.Now().UTC(),
		Email:       email,
		IsAnonymous: isAnonymous,
	}
	if err := l.store.Set(ctx, userID, acct); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return acct, nil
}

// Get returns the full account document.
func (l *Ledger) Get(ctx context.Context, userID string) (*Account, error) {
	return l.store.Get(ctx, userID)
}

// Check returns the remaining count for the resource without mutating
// anything. Returns ErrQuotaExceeded when nothing remains.
func (l *Ledger) Check(ctx context.Context, userID string, res Resource) (int64, error) {
	acct, err := l.store.Get(ctx, userID)
	if err != nil {
		return 0, err
	}

	remaining := acct.Remaining(res)
	if remaining <= 0 {
		return 0, fmt.Errorf("%s quota: %w", res, apperr.ErrQuotaExceeded)
	}
	return remaining, nil
}

// Commit unconditionally increments usage by count. Never retried: an
// ambiguous failure followed by a retry would double-count.
func (l *Ledger) Commit(ctx context.Context, userID string, res Resource, count int64) error {
	field := "imagesUsed"
	if res == ResourceModel {
		field = "modelsUsed"
	}
	if err := l.store.Increment(ctx, userID, field, count); err != nil {
		return fmt.Errorf("commit %s usage: %w", res, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}
