package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"go.trai.ch/tether/internal/core/domain"
)

const typenameKey = "__typename"

// Link is a field value referencing another record.
type Link struct {
	ID string
}

// Links is a list field value referencing other records. An empty ID is a null entry.
type Links []string

// record is one normalized object: scalar fields, links, and the epoch it was last written in.
type record struct {
	typename string
	fields   map[string]any
	epoch    uint64
}

func newRecord(epoch uint64) *record {
	return &record{
		fields: make(map[string]any),
		epoch:  epoch,
	}
}

// clone returns a copy of the record's fields, with links kept as-is.
func (r *record) clone() map[string]any {
	out := make(map[string]any, len(r.fields)+1)
	for k, v := range r.fields {
		out[k] = v
	}
	if r.typename != "" {
		out[typenameKey] = r.typename
	}
	return out
}

// storageKey identifies a field with its arguments, independent of the alias it was selected under.
func storageKey(field *ast.Field, vars domain.Variables) string {
	if len(field.Arguments) == 0 {
		return field.Name
	}

	args := make([]string, 0, len(field.Arguments))
	for _, arg := range field.Arguments {
		v, err := arg.Value.Value(vars)
		if err != nil {
			v = arg.Value.Raw
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			encoded = []byte(fmt.Sprint(v))
		}
		args = append(args, arg.Name+":"+string(encoded))
	}
	sort.Strings(args)

	return field.Name + "(" + strings.Join(args, ",") + ")"
}

// clientID generates the data ID of an object that has no id of its own.
func clientID(parentID, key string, index int) string {
	prefix := parentID
	if !strings.HasPrefix(prefix, "client:") {
		prefix = "client:" + prefix
	}
	if index < 0 {
		return prefix + ":" + key
	}
	return fmt.Sprintf("%s:%s:%d", prefix, key, index)
}

// objectID returns the object's own id when it has one.
func objectID(obj map[string]any) (string, bool) {
	switch id := obj["id"].(type) {
	case string:
		return id, id != ""
	case nil:
		return "", false
	default:
		return fmt.Sprint(id), true
	}
}

// typeMatches reports whether a fragment with the given type condition applies to a record with the
// given typename. Without a schema an abstract condition cannot be resolved, so a mismatch is treated
// as a lenient match by callers.
func typeMatches(condition, typename string) bool {
	return condition == "" || typename == "" || condition == typename
}
