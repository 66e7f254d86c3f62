package store

import (
	"github.com/vektah/gqlparser/v2/ast"
	"go.trai.ch/tether/internal/core/domain"
)

// reader denormalizes records along a selection set.
type reader struct {
	records   map[string]*record
	fragments ast.FragmentDefinitionList
	vars      domain.Variables
	seen      map[string]struct{}
	missing   bool
	// oldest is the smallest epoch among the records visited.
	oldest uint64
}

func newReader(records map[string]*record, sel domain.Selector) *reader {
	return &reader{
		records:   records,
		fragments: sel.Fragments,
		vars:      sel.Variables,
		seen:      make(map[string]struct{}),
		oldest:    ^uint64(0),
	}
}

func (r *reader) read(sel domain.Selector) domain.Snapshot {
	data := r.object(sel.DataID, sel.Selections)
	return domain.Snapshot{
		Selector:      sel,
		Data:          data,
		IsMissingData: r.missing,
		SeenRecords:   r.seen,
	}
}

func (r *reader) object(id string, set ast.SelectionSet) map[string]any {
	r.seen[id] = struct{}{}
	rec, ok := r.records[id]
	if !ok {
		r.missing = true
		return nil
	}
	if rec.epoch < r.oldest {
		r.oldest = rec.epoch
	}

	out := make(map[string]any)
	r.selections(rec, set, out, true)
	return out
}

func (r *reader) selections(rec *record, set ast.SelectionSet, out map[string]any, strict bool) {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			r.field(rec, s, out, strict)
		case *ast.InlineFragment:
			r.selections(rec, s.SelectionSet, out, strict && typeMatches(s.TypeCondition, rec.typename))
		case *ast.FragmentSpread:
			def := r.fragments.ForName(s.Name)
			if def == nil {
				r.missing = true
				continue
			}
			r.selections(rec, def.SelectionSet, out, strict && typeMatches(def.TypeCondition, rec.typename))
		}
	}
}

func (r *reader) field(rec *record, field *ast.Field, out map[string]any, strict bool) {
	responseKey := field.Alias
	if responseKey == "" {
		responseKey = field.Name
	}

	if field.Name == typenameKey {
		if rec.typename != "" {
			out[responseKey] = rec.typename
		} else if strict {
			r.missing = true
		}
		return
	}

	value, ok := rec.fields[storageKey(field, r.vars)]
	if !ok {
		if strict {
			r.missing = true
		}
		return
	}

	if len(field.SelectionSet) == 0 {
		out[responseKey] = value
		return
	}

	switch v := value.(type) {
	case Link:
		out[responseKey] = r.object(v.ID, field.SelectionSet)
	case Links:
		items := make([]any, len(v))
		for i, id := range v {
			if id == "" {
				continue
			}
			items[i] = r.object(id, field.SelectionSet)
		}
		out[responseKey] = items
	default:
		out[responseKey] = v
	}
}

// mark collects every record reachable from a selector into live.
func mark(records map[string]*record, sel domain.Selector, live map[string]struct{}) {
	m := &marker{records: records, fragments: sel.Fragments, vars: sel.Variables, live: live}
	m.object(sel.DataID, sel.Selections)
}

type marker struct {
	records   map[string]*record
	fragments ast.FragmentDefinitionList
	vars      domain.Variables
	live      map[string]struct{}
}

func (m *marker) object(id string, set ast.SelectionSet) {
	rec, ok := m.records[id]
	if !ok {
		return
	}
	m.live[id] = struct{}{}
	m.selections(rec, set)
}

func (m *marker) selections(rec *record, set ast.SelectionSet) {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			if len(s.SelectionSet) == 0 {
				continue
			}
			switch v := rec.fields[storageKey(s, m.vars)].(type) {
			case Link:
				m.object(v.ID, s.SelectionSet)
			case Links:
				for _, id := range v {
					if id != "" {
						m.object(id, s.SelectionSet)
					}
				}
			}
		case *ast.InlineFragment:
			m.selections(rec, s.SelectionSet)
		case *ast.FragmentSpread:
			if def := m.fragments.ForName(s.Name); def != nil {
				m.selections(rec, def.SelectionSet)
			}
		}
	}
}
