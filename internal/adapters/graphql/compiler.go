// Package graphql compiles GraphQL query text into request descriptors.
package graphql

import (
	"errors"
	"sync"

	"github.com/jellydator/ttlcache/v3"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/zerr"
)

// DefaultCapacity bounds the number of requests a Compiler keeps.
const DefaultCapacity = 1024

// Compiler parses query documents and memoizes the resulting requests by request ID, so the same
// text yields the same *domain.Request while it stays among the most recently used.
type Compiler struct {
	mu       sync.Mutex
	requests *ttlcache.Cache[string, *domain.Request]
}

// NewCompiler creates an empty Compiler keeping at most DefaultCapacity requests.
func NewCompiler() *Compiler {
	return NewCompilerWithCapacity(DefaultCapacity)
}

// NewCompilerWithCapacity creates an empty Compiler keeping at most capacity requests.
func NewCompilerWithCapacity(capacity uint64) *Compiler {
	return &Compiler{
		requests: ttlcache.New[string, *domain.Request](
			ttlcache.WithCapacity[string, *domain.Request](capacity),
		),
	}
}

// Compile parses source and selects the query operation called name. When the document holds a
// single operation, name may be empty or differ from the operation's own name.
func (c *Compiler) Compile(name, source string) (*domain.Request, error) {
	id := domain.GenerateRequestID(name, source)

	c.mu.Lock()
	defer c.mu.Unlock()

	if item := c.requests.Get(id); item != nil {
		return item.Value(), nil
	}

	req, err := Compile(name, source)
	if err != nil {
		return nil, err
	}
	c.requests.Set(id, req, ttlcache.DefaultTTL)
	return req, nil
}

// Compile parses source without memoization.
func Compile(name, source string) (*domain.Request, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrInvalidQuery, err), "query", name)
	}

	op := selectOperation(doc, name)
	if op == nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidQuery, "operation not found"), "query", name)
	}
	if op.Operation != ast.Query {
		return nil, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrInvalidQuery, "only query operations are supported"), "query", name),
			"operation", string(op.Operation),
		)
	}
	if err := checkFragments(doc, op.SelectionSet); err != nil {
		return nil, zerr.With(err, "query", name)
	}

	if name == "" {
		name = op.Name
	}

	return &domain.Request{
		ID:        domain.GenerateRequestID(name, source),
		Name:      name,
		Source:    source,
		Document:  doc,
		Operation: op,
	}, nil
}

func selectOperation(doc *ast.QueryDocument, name string) *ast.OperationDefinition {
	if op := doc.Operations.ForName(name); op != nil {
		return op
	}
	if len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	return nil
}

// checkFragments ensures every fragment spread reachable from set names a fragment defined in doc.
func checkFragments(doc *ast.QueryDocument, set ast.SelectionSet) error {
	visited := make(map[string]bool)

	var walk func(ast.SelectionSet) error
	walk = func(set ast.SelectionSet) error {
		for _, sel := range set {
			switch s := sel.(type) {
			case *ast.Field:
				if err := walk(s.SelectionSet); err != nil {
					return err
				}
			case *ast.InlineFragment:
				if err := walk(s.SelectionSet); err != nil {
					return err
				}
			case *ast.FragmentSpread:
				if visited[s.Name] {
					continue
				}
				visited[s.Name] = true
				def := doc.Fragments.ForName(s.Name)
				if def == nil {
					return zerr.With(zerr.Wrap(domain.ErrInvalidQuery, "unknown fragment"), "fragment", s.Name)
				}
				if err := walk(def.SelectionSet); err != nil {
					return err
				}
			}
		}
		return nil
	}

	return walk(set)
}
