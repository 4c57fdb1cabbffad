// Package convert maps domain types to and from google.protobuf.Struct messages.
package convert

import (
	"fmt"
	"math"
	"time"

	u "github.com/gofrs/uuid/v5"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateLayout = "2006-01-02"

// fields is a decoded Struct with typed accessors.
type fields map[string]any

func fieldsOf(s *structpb.Struct) fields {
	if s == nil {
		return fields{}
	}
	return fields(s.AsMap())
}

func (f fields) has(k string) bool {
	v, ok := f[k]
	return ok && v != nil
}

func (f fields) str(k string) string {
	s, _ := f[k].(string)
	return s
}

func (f fields) boolean(k string) bool {
	b, _ := f[k].(bool)
	return b
}

func (f fields) num(k string) (int, error) {
	v, ok := f[k]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := v.(float64)
	if !ok || n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return 0, fmt.Errorf("field %q: not an integer", k)
	}
	return int(n), nil
}

func (f fields) int(k string) int {
	n, _ := f.num(k)
	return n
}

func (f fields) uuid(k string) (u.UUID, error) {
	id, err := u.FromString(f.str(k))
	if err != nil {
		return u.Nil, fmt.Errorf("field %q: %w", k, err)
	}
	return id, nil
}

func (f fields) time(k string) (time.Time, error) {
	s := f.str(k)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %q: %w", k, err)
	}
	return t, nil
}

func (f fields) sub(k string) fields {
	m, _ := f[k].(map[string]any)
	return fields(m)
}

func (f fields) list(k string) []fields {
	raw, _ := f[k].([]any)
	out := make([]fields, 0, len(raw))
	for _, v := range raw {
		m, _ := v.(map[string]any)
		out = append(out, fields(m))
	}
	return out
}

func stamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// toStruct wraps structpb.NewStruct, dropping nil values.
func toStruct(m map[string]any) (*structpb.Struct, error) {
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
	return structpb.NewStruct(m)
}

// Empty is the message used by requests and responses without fields.
func Empty() *structpb.Struct { return &structpb.Struct{Fields: map[string]*structpb.Value{}} }
