package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the MongoDB backend. The logical "id" field maps to "_id" and new
// identifiers are ObjectID hex strings.
type Mongo struct {
	db *mongo.Database
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (m *Mongo) EnsureIndexes(ctx context.Context, coll string, unique ...string) error {
	if len(unique) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(unique))
	for _, field := range unique {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: mongoField(field), Value: 1}},
			Options: options.Index().SetUnique(true),
		})
	}
	_, err := m.db.Collection(coll).Indexes().CreateMany(ctx, models)
	return err
}

func (m *Mongo) FindOne(ctx context.Context, coll string, f Filter, out any) error {
	err := m.db.Collection(coll).FindOne(ctx, mongoFilter(f)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (m *Mongo) FindMany(ctx context.Context, coll string, f Filter, s *Sort, out any) error {
	opts := options.Find()
	if s != nil {
		dir := 1
		if s.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: mongoField(s.Field), Value: dir}})
	}
	cur, err := m.db.Collection(coll).Find(ctx, mongoFilter(f), opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (m *Mongo) InsertOne(ctx context.Context, coll string, rec Record) error {
	rec.SetID(primitive.NewObjectID().Hex())
	if _, err := m.db.Collection(coll).InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (m *Mongo) ReplaceOne(ctx context.Context, coll string, f Filter, doc any) (int64, error) {
	res, err := m.db.Collection(coll).ReplaceOne(ctx, mongoFilter(f), doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return res.MatchedCount, nil
}

func (m *Mongo) DeleteOne(ctx context.Context, coll string, f Filter) (int64, error) {
	res, err := m.db.Collection(coll).DeleteOne(ctx, mongoFilter(f))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.db.Client().Disconnect(ctx)
}

func mongoField(field string) string {
	if field == FieldID {
		return "_id"
	}
	return field
}

func mongoFilter(f Filter) bson.D {
	out := bson.D{}
	for _, c := range f.All {
		out = append(out, bson.E{Key: mongoField(c.Field), Value: c.Value})
	}
	if len(f.Any) > 0 {
		alts := bson.A{}
		for _, c := range f.Any {
			alts = append(alts, bson.D{{Key: mongoField(c.Field), Value: c.Value}})
		}
		out = append(out, bson.E{Key: "$or", Value: alts})
	}
	return out
}
