package repo

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/post/entity"
	"github.com/ovaphlow/pitchfork/service-tweet-go/pkg/docstore"
)

const (
	fieldAuthor    = "authorLoginId"
	fieldCreatedAt = "createdAt"
	fieldVersion   = "version"
)

var newestFirst = &docstore.Sort{Field: fieldCreatedAt, Desc: true, Kind: docstore.SortTime}

// PostRepo provides data access for the posts collection.
type PostRepo struct {
	store docstore.Store
	coll  string
}

func NewPostRepo(store docstore.Store, coll string) *PostRepo {
	if coll == "" {
		coll = docstore.Posts
	}
	return &PostRepo{store: store, coll: coll}
}

// EnsureIndexes creates the collection if not exists. Posts carry no unique
// fields besides the id.
func (r *PostRepo) EnsureIndexes(ctx context.Context) error {
	return r.store.EnsureIndexes(ctx, r.coll)
}

// List returns all posts, newest first.
func (r *PostRepo) List(ctx context.Context) ([]entity.Post, error) {
	return r.find(ctx, docstore.Filter{})
}

// ListByAuthor returns the posts of one author, newest first.
func (r *PostRepo) ListByAuthor(ctx context.Context, loginID string) ([]entity.Post, error) {
	return r.find(ctx, docstore.Where(fieldAuthor, loginID))
}

func (r *PostRepo) find(ctx context.Context, f docstore.Filter) ([]entity.Post, error) {
	posts := []entity.Post{}
	if err := r.store.FindMany(ctx, r.coll, f, newestFirst, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostRepo) GetByID(ctx context.Context, id string) (*entity.Post, error) {
	var p entity.Post
	if err := r.store.FindOne(ctx, r.coll, docstore.ByID(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts p with version 1; the store assigns p.ID.
func (r *PostRepo) Create(ctx context.Context, p *entity.Post) error {
	p.Version = 1
	return r.store.InsertOne(ctx, r.coll, p)
}

// ReplaceIfVersion writes p only if the stored version equals p.Version and
// bumps it on success.
func (r *PostRepo) ReplaceIfVersion(ctx context.Context, p *entity.Post) (bool, error) {
	expected := p.Version
	next := *p
	next.Version = expected + 1
	n, err := r.store.ReplaceOne(ctx, r.coll, docstore.ByID(p.ID).And(fieldVersion, expected), &next)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	p.Version = next.Version
	return true, nil
}

// Delete removes the post and reports whether it existed.
func (r *PostRepo) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.store.DeleteOne(ctx, r.coll, docstore.ByID(id))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
