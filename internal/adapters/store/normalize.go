package store

import (
	"github.com/vektah/gqlparser/v2/ast"
	"go.trai.ch/tether/internal/core/domain"
)

// normalizer writes a response tree into flat records.
type normalizer struct {
	records   map[string]*record
	fragments ast.FragmentDefinitionList
	vars      domain.Variables
	epoch     uint64
	updated   map[string]struct{}
}

func (n *normalizer) record(id string) *record {
	rec, ok := n.records[id]
	if !ok {
		rec = newRecord(n.epoch)
		n.records[id] = rec
	}
	rec.epoch = n.epoch
	n.updated[id] = struct{}{}
	return rec
}

func (n *normalizer) normalize(id string, set ast.SelectionSet, data map[string]any) {
	rec := n.record(id)
	if typename, ok := data[typenameKey].(string); ok && typename != "" {
		rec.typename = typename
	}
	n.selections(id, rec, set, data)
}

func (n *normalizer) selections(id string, rec *record, set ast.SelectionSet, data map[string]any) {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			n.field(id, rec, s, data)
		case *ast.InlineFragment:
			n.selections(id, rec, s.SelectionSet, data)
		case *ast.FragmentSpread:
			if def := n.fragments.ForName(s.Name); def != nil {
				n.selections(id, rec, def.SelectionSet, data)
			}
		}
	}
}

func (n *normalizer) field(id string, rec *record, field *ast.Field, data map[string]any) {
	responseKey := field.Alias
	if responseKey == "" {
		responseKey = field.Name
	}
	value, present := data[responseKey]
	if !present {
		return
	}
	if field.Name == typenameKey {
		if typename, ok := value.(string); ok {
			rec.typename = typename
		}
		return
	}

	key := storageKey(field, n.vars)
	if len(field.SelectionSet) == 0 {
		rec.fields[key] = value
		return
	}

	switch v := value.(type) {
	case nil:
		rec.fields[key] = nil
	case map[string]any:
		childID := n.childID(id, key, -1, v)
		n.normalize(childID, field.SelectionSet, v)
		rec.fields[key] = Link{ID: childID}
	case []any:
		links := make(Links, len(v))
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			childID := n.childID(id, key, i, obj)
			n.normalize(childID, field.SelectionSet, obj)
			links[i] = childID
		}
		rec.fields[key] = links
	default:
		rec.fields[key] = v
	}
}

func (n *normalizer) childID(parentID, key string, index int, obj map[string]any) string {
	if id, ok := objectID(obj); ok {
		return id
	}
	return clientID(parentID, key, index)
}
