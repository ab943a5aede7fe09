package repo

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-tweet-go/pkg/docstore"
)

const (
	fieldLoginID = "loginId"
	fieldEmail   = "email"
	fieldVersion = "version"
)

// UserRepo provides data access for the users collection over a docstore.Store.
// Lookups return docstore.ErrNotFound untouched; the service maps it.
type UserRepo struct {
	store docstore.Store
	coll  string
}

func NewUserRepo(store docstore.Store, coll string) *UserRepo {
	if coll == "" {
		coll = docstore.Users
	}
	return &UserRepo{store: store, coll: coll}
}

// EnsureIndexes creates the unique handle indexes (idempotent).
func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	return r.store.EnsureIndexes(ctx, r.coll, fieldLoginID, fieldEmail)
}

// List returns every user in store order.
func (r *UserRepo) List(ctx context.Context) ([]entity.User, error) {
	users := []entity.User{}
	if err := r.store.FindMany(ctx, r.coll, docstore.Filter{}, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetByHandle fetches the user whose loginId or email equals handle.
func (r *UserRepo) GetByHandle(ctx context.Context, handle string) (*entity.User, error) {
	f := docstore.Either(
		docstore.Cond{Field: fieldLoginID, Value: handle},
		docstore.Cond{Field: fieldEmail, Value: handle},
	)
	var u entity.User
	if err := r.store.FindOne(ctx, r.coll, f, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by identifier.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	if err := r.store.FindOne(ctx, r.coll, docstore.ByID(id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts u with version 1; the store assigns u.ID.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	u.Version = 1
	return r.store.InsertOne(ctx, r.coll, u)
}

// ReplaceIfVersion writes u only when the stored version still equals
// u.Version, bumping it on success. It reports false when another writer got
// there first (or the user is gone).
func (r *UserRepo) ReplaceIfVersion(ctx context.Context, u *entity.User) (bool, error) {
	expected := u.Version
	next := *u
	next.Version = expected + 1
	n, err := r.store.ReplaceOne(ctx, r.coll, docstore.ByID(u.ID).And(fieldVersion, expected), &next)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	u.Version = next.Version
	return true, nil
}
