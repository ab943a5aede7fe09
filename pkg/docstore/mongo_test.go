package docstore

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoFilter(t *testing.T) {
	tests := []struct {
		name string
		f    Filter
		want bson.D
	}{
		{"empty", Filter{}, bson.D{}},
		{"by id", ByID("42"), bson.D{{Key: "_id", Value: "42"}}},
		{
			"id and version", ByID("42").And("version", int64(3)),
			bson.D{{Key: "_id", Value: "42"}, {Key: "version", Value: int64(3)}},
		},
		{
			"handle", Either(Cond{"loginId", "alice"}, Cond{"email", "alice"}),
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "loginId", Value: "alice"}},
				bson.D{{Key: "email", Value: "alice"}},
			}}},
		},
		{
			"all and any", Filter{All: []Cond{{"version", int64(1)}}, Any: []Cond{{"id", "7"}}},
			bson.D{
				{Key: "version", Value: int64(1)},
				{Key: "$or", Value: bson.A{bson.D{{Key: "_id", Value: "7"}}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mongoFilter(tt.f); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("mongoFilter = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestMongoField(t *testing.T) {
	if got := mongoField(FieldID); got != "_id" {
		t.Fatalf("mongoField(id) = %q", got)
	}
	if got := mongoField("createdAt"); got != "createdAt" {
		t.Fatalf("mongoField(createdAt) = %q", got)
	}
}
