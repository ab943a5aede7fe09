package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-tweet-go/pkg/utilities"
)

type memCollection struct {
	docs   []map[string]any
	unique []string
}

// Memory is an in-process Store. Documents are kept in their JSON form so the
// field names match what the Postgres backend persists.
type Memory struct {
	mu    sync.RWMutex
	colls map[string]*memCollection
	newID func() string
}

// NewMemory returns an empty store. newID may be nil, in which case snowflake
// IDs are used.
func NewMemory(newID func() string) *Memory {
	if newID == nil {
		newID = utilities.NewSnowflakeID
	}
	return &Memory{colls: map[string]*memCollection{}, newID: newID}
}

func (m *Memory) collection(name string) *memCollection {
	c, ok := m.colls[name]
	if !ok {
		c = &memCollection{}
		m.colls[name] = c
	}
	return c
}

func (m *Memory) EnsureIndexes(_ context.Context, coll string, unique ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(coll)
	for _, f := range unique {
		found := false
		for _, u := range c.unique {
			if u == f {
				found = true
				break
			}
		}
		if !found {
			c.unique = append(c.unique, f)
		}
	}
	return nil
}

func (m *Memory) FindOne(_ context.Context, coll string, f Filter, out any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.collection(coll)
	for _, d := range c.docs {
		if matches(d, f) {
			return decodeDoc(d, out)
		}
	}
	return ErrNotFound
}

func (m *Memory) FindMany(_ context.Context, coll string, f Filter, s *Sort, out any) error {
	m.mu.RLock()
	c := m.collection(coll)
	found := make([]map[string]any, 0, len(c.docs))
	for _, d := range c.docs {
		if matches(d, f) {
			found = append(found, d)
		}
	}
	m.mu.RUnlock()

	if s != nil {
		sort.SliceStable(found, func(i, j int) bool {
			cmp := compareField(found[i][s.Field], found[j][s.Field], s.Kind)
			if s.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	return decodeDoc(found, out)
}

func (m *Memory) InsertOne(_ context.Context, coll string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.SetID(m.newID())
	doc, err := toDoc(rec)
	if err != nil {
		return err
	}
	c := m.collection(coll)
	if c.conflicts(doc, -1) {
		return ErrDuplicate
	}
	c.docs = append(c.docs, doc)
	return nil
}

func (m *Memory) ReplaceOne(_ context.Context, coll string, f Filter, doc any) (int64, error) {
	next, err := toDoc(doc)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(coll)
	for i, d := range c.docs {
		if !matches(d, f) {
			continue
		}
		// the identifier of a stored document never changes
		next[FieldID] = d[FieldID]
		if c.conflicts(next, i) {
			return 0, ErrDuplicate
		}
		c.docs[i] = next
		return 1, nil
	}
	return 0, nil
}

func (m *Memory) DeleteOne(_ context.Context, coll string, f Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(coll)
	for i, d := range c.docs {
		if matches(d, f) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *Memory) Close(context.Context) error { return nil }

// conflicts reports whether doc collides on a unique field with any document
// other than the one at index skip.
func (c *memCollection) conflicts(doc map[string]any, skip int) bool {
	for _, field := range c.unique {
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		for i, d := range c.docs {
			if i != skip && reflect.DeepEqual(d[field], v) {
				return true
			}
		}
	}
	return false
}

func matches(doc map[string]any, f Filter) bool {
	for _, c := range f.All {
		if !condHolds(doc, c) {
			return false
		}
	}
	if len(f.Any) == 0 {
		return true
	}
	for _, c := range f.Any {
		if condHolds(doc, c) {
			return true
		}
	}
	return false
}

func condHolds(doc map[string]any, c Cond) bool {
	want, err := normalize(c.Value)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(doc[c.Field], want)
}

// normalize round-trips v through JSON so filter values compare equal to
// stored document values.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func toDoc(v any) (map[string]any, error) {
	n, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	doc, ok := n.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("encode document: %T is not an object", v)
	}
	return doc, nil
}

func decodeDoc(v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func compareField(a, b any, kind SortKind) int {
	switch kind {
	case SortTime:
		ta, tb := asTime(a), asTime(b)
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		}
		return 0
	case SortNumber:
		fa, fb := asFloat(a), asFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	default:
		sa, sb := fmt.Sprint(a), fmt.Sprint(b)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	}
}

func asTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func asFloat(v any) float64 {
	n, ok := v.(json.Number)
	if !ok {
		return 0
	}
	f, _ := n.Float64()
	return f
}
