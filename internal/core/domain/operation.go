package domain

import (
	"encoding/json"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"go.trai.ch/zerr"
)

// RootID is the data ID of the store's root record.
const RootID = "client:root"

// Variables holds the values bound to a request's variable definitions.
type Variables map[string]any

// Request is a compiled request descriptor.
type Request struct {
	// ID identifies the request text: the operation name plus a digest of the source.
	ID        string
	Name      string
	Source    string
	Document  *ast.QueryDocument
	Operation *ast.OperationDefinition
}

// Selector describes a region of the normalized store to read.
type Selector struct {
	DataID     string
	Selections ast.SelectionSet
	Fragments  ast.FragmentDefinitionList
	Variables  Variables
	Owner      Identity
}

// OperationDescriptor binds a request to its variables. It is immutable once created.
type OperationDescriptor struct {
	Request   *Request
	Variables Variables
	Identity  Identity
	Root      Selector
}

// Name returns the operation name, for diagnostics.
func (o OperationDescriptor) Name() string {
	if o.Request == nil {
		return ""
	}
	return o.Request.Name
}

// NewOperationDescriptor binds vars to req. Only declared variables are kept and declared defaults
// fill in missing values, so structurally equal inputs always produce the same identity.
func NewOperationDescriptor(req *Request, vars Variables) (OperationDescriptor, error) {
	if req == nil || req.Operation == nil {
		return OperationDescriptor{}, zerr.Wrap(ErrInvalidQuery, "request has no operation")
	}

	bound, err := operationVariables(req.Operation, vars)
	if err != nil {
		return OperationDescriptor{}, err
	}

	identity, err := operationIdentity(req, bound)
	if err != nil {
		return OperationDescriptor{}, err
	}

	var fragments ast.FragmentDefinitionList
	if req.Document != nil {
		fragments = req.Document.Fragments
	}

	return OperationDescriptor{
		Request:   req,
		Variables: bound,
		Identity:  identity,
		Root: Selector{
			DataID:     RootID,
			Selections: req.Operation.SelectionSet,
			Fragments:  fragments,
			Variables:  bound,
			Owner:      identity,
		},
	}, nil
}

func operationVariables(op *ast.OperationDefinition, vars Variables) (Variables, error) {
	bound := make(Variables, len(op.VariableDefinitions))
	for _, def := range op.VariableDefinitions {
		if v, ok := vars[def.Variable]; ok {
			bound[def.Variable] = v
			continue
		}
		if def.DefaultValue == nil {
			bound[def.Variable] = nil
			continue
		}
		v, err := def.DefaultValue.Value(nil)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "invalid default value"), "variable", def.Variable)
		}
		bound[def.Variable] = v
	}
	return bound, nil
}

func operationIdentity(req *Request, vars Variables) (Identity, error) {
	// encoding/json sorts map keys, which makes the serialization canonical.
	encoded, err := json.Marshal(vars)
	if err != nil {
		return Identity{}, zerr.With(zerr.Wrap(err, "failed to serialize variables"), "operation", req.Name)
	}

	var builder strings.Builder
	builder.WriteString(req.ID)
	builder.WriteString(":")
	builder.Write(encoded)
	return NewIdentity(builder.String()), nil
}
