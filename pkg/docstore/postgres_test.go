package docstore

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lib/pq"
)

func TestWhereClause(t *testing.T) {
	tests := []struct {
		name     string
		f        Filter
		start    int
		wantSQL  string
		wantArgs []any
	}{
		{"empty", Filter{}, 1, "", nil},
		{"by id", ByID("42"), 1, " WHERE id = $1", []any{"42"}},
		{"id and version", ByID("42").And("version", int64(3)), 2, " WHERE id = $2 AND doc->>'version' = $3", []any{"42", "3"}},
		{
			"handle", Either(Cond{"loginId", "alice"}, Cond{"email", "alice"}), 1,
			" WHERE (doc->>'loginId' = $1 OR doc->>'email' = $2)", []any{"alice", "alice"},
		},
		{"bool", Where("loginStatus", true), 1, " WHERE doc->>'loginStatus' = $1", []any{"true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := whereClause(tt.f, tt.start)
			if err != nil {
				t.Fatalf("whereClause: %v", err)
			}
			if sql != tt.wantSQL {
				t.Fatalf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Fatalf("args = %#v, want %#v", args, tt.wantArgs)
			}
		})
	}
}

func TestWhereClauseRejectsInjection(t *testing.T) {
	if _, _, err := whereClause(Where("name'; DROP TABLE users; --", "x"), 1); err == nil {
		t.Fatal("expected identifier error")
	}
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		sort *Sort
		want string
	}{
		{nil, ""},
		{&Sort{Field: "createdAt", Desc: true, Kind: SortTime}, " ORDER BY (doc->>'createdAt')::timestamptz DESC"},
		{&Sort{Field: "likeCount", Kind: SortNumber}, " ORDER BY (doc->>'likeCount')::numeric ASC"},
		{&Sort{Field: "body"}, " ORDER BY doc->>'body' ASC"},
	}
	for _, tt := range tests {
		got, err := orderClause(tt.sort)
		if err != nil {
			t.Fatalf("orderClause: %v", err)
		}
		if got != tt.want {
			t.Errorf("orderClause(%+v) = %q, want %q", tt.sort, got, tt.want)
		}
	}
}

func TestMapPQError(t *testing.T) {
	if err := mapPQError(&pq.Error{Code: "23505"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("unique violation should map to ErrDuplicate, got %v", err)
	}
	other := &pq.Error{Code: "42P01"}
	if err := mapPQError(other); err != other {
		t.Fatalf("other errors pass through, got %v", err)
	}
}
