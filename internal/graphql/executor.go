package graphql

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"

	gqlgen "github.com/99designs/gqlgen/graphql"
	"github.com/goccy/go-json"
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
	"golang.org/x/sync/errgroup"
)

//go:embed schema.graphqls
var schemaSDL string

var schema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: schemaSDL})

// Schema returns the parsed schema served by the executor.
func Schema() *ast.Schema {
	return schema
}

// Executor runs GraphQL queries against a Resolver. Top-level fields are
// resolved concurrently; a failing field is reported in the errors list and
// resolves to null without failing its siblings.
type Executor struct {
	resolver *Resolver
}

// NewExecutor creates an executor for resolver.
func NewExecutor(resolver *Resolver) *Executor {
	return &Executor{resolver: resolver}
}

// Execute parses, validates and runs params. A response without data means
// the request never reached the resolvers.
func (e *Executor) Execute(ctx context.Context, params *gqlgen.RawParams) *gqlgen.Response {
	doc, errs := gqlparser.LoadQuery(schema, params.Query)
	if len(errs) > 0 {
		return &gqlgen.Response{Errors: errs}
	}

	op := doc.Operations.ForName(params.OperationName)
	if op == nil {
		switch {
		case len(doc.Operations) == 0:
			return errorResponse(gqlerror.Errorf("no operation provided"))
		case params.OperationName == "":
			return errorResponse(gqlerror.Errorf("operationName is required when the document has several operations"))
		}
		return errorResponse(gqlerror.Errorf("operation %s not found", params.OperationName))
	}
	if op.Operation != ast.Query {
		return errorResponse(gqlerror.Errorf("%s operations are not supported", op.Operation))
	}

	vars, err := validator.VariableValues(schema, op, params.Variables)
	if err != nil {
		return errorResponse(asGQLError(err))
	}

	fields := collectFields(op.SelectionSet, vars)
	values := make([]any, len(fields))
	fieldErrs := make([]*gqlerror.Error, len(fields))

	var g errgroup.Group
	for i, field := range fields {
		g.Go(func() error {
			v, err := e.resolveField(ctx, field, vars)
			if err != nil {
				fieldErrs[i] = fieldError(field, err)
				return nil
			}
			values[i] = complete(field.SelectionSet, vars, v)
			return nil
		})
	}
	_ = g.Wait()

	data := newObject()
	resp := &gqlgen.Response{}
	for i, field := range fields {
		data.set(field.Alias, values[i])
		if fieldErrs[i] != nil {
			resp.Errors = append(resp.Errors, fieldErrs[i])
		}
	}

	body, err := json.Marshal(data)
	if err != nil {
		return errorResponse(gqlerror.Errorf("failed to encode response: %v", err))
	}
	resp.Data = body
	return resp
}

func (e *Executor) resolveField(ctx context.Context, field *ast.Field, vars map[string]any) (any, error) {
	r := e.resolver
	args := field.ArgumentMap(vars)

	switch field.Name {
	case "__typename":
		return "Query", nil
	case "health":
		return r.Health(ctx)
	case "shipmentStatus":
		return r.ShipmentStatus(ctx, stringArg(args, "trackingCode"), stringArg(args, "language"))
	case "findCity":
		return r.FindCity(ctx, stringArg(args, "postcode"), stringArg(args, "country"))
	case "shippingMethods":
		return r.ShippingMethods(ctx)
	case "additionalServices":
		return r.AdditionalServices(ctx)
	case "pickupPoints":
		return r.PickupPoints(ctx, pickupPointsArgs(args))
	case "pickupPoint":
		return r.PickupPoint(ctx, stringArg(args, "id"), stringArg(args, "service"))
	case "estimate":
		return r.Estimate(ctx, mapArg(args, "shipment"))
	default:
		return nil, fmt.Errorf("field %s is not resolvable", field.Name)
	}
}

// collectFields flattens sel into its fields, expanding fragments and
// honoring @skip and @include.
func collectFields(sel ast.SelectionSet, vars map[string]any) []*ast.Field {
	var fields []*ast.Field
	for _, s := range sel {
		switch s := s.(type) {
		case *ast.Field:
			if included(s.Directives, vars) {
				fields = append(fields, s)
			}
		case *ast.InlineFragment:
			if included(s.Directives, vars) {
				fields = append(fields, collectFields(s.SelectionSet, vars)...)
			}
		case *ast.FragmentSpread:
			if included(s.Directives, vars) && s.Definition != nil {
				fields = append(fields, collectFields(s.Definition.SelectionSet, vars)...)
			}
		}
	}
	return fields
}

func included(directives ast.DirectiveList, vars map[string]any) bool {
	if d := directives.ForName("skip"); d != nil && d.ArgumentMap(vars)["if"] == true {
		return false
	}
	if d := directives.ForName("include"); d != nil && d.ArgumentMap(vars)["if"] == false {
		return false
	}
	return true
}

// complete shapes a resolved value to the fields selected from it. Objects
// are maps keyed by schema field name.
func complete(sel ast.SelectionSet, vars map[string]any, v any) any {
	if len(sel) == 0 {
		return v
	}

	switch v := v.(type) {
	case []map[string]any:
		if v == nil {
			return nil
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = complete(sel, vars, item)
		}
		return out
	case map[string]any:
		if v == nil {
			return nil
		}
		obj := newObject()
		for _, f := range collectFields(sel, vars) {
			if f.Name == "__typename" {
				if f.ObjectDefinition != nil {
					obj.set(f.Alias, f.ObjectDefinition.Name)
				}
				continue
			}
			obj.set(f.Alias, complete(f.SelectionSet, vars, v[f.Name]))
		}
		return obj
	default:
		return v
	}
}

func fieldError(field *ast.Field, err error) *gqlerror.Error {
	gqlErr := &gqlerror.Error{
		Message:    err.Error(),
		Path:       ast.Path{ast.PathName(field.Alias)},
		Extensions: map[string]any{"kind": pakettikauppa.ErrorKind(err)},
	}
	if field.Position != nil {
		gqlErr.Locations = []gqlerror.Location{{Line: field.Position.Line, Column: field.Position.Column}}
	}
	if code, ok := pakettikauppa.RemoteCode(err); ok {
		var remoteErr *pakettikauppa.RemoteError
		if errors.As(err, &remoteErr) {
			gqlErr.Message = remoteErr.Message
		}
		gqlErr.Extensions["code"] = code
	}
	return gqlErr
}

func asGQLError(err error) *gqlerror.Error {
	var gqlErr *gqlerror.Error
	if errors.As(err, &gqlErr) {
		return gqlErr
	}
	return gqlerror.Errorf("%s", err.Error())
}

func errorResponse(err *gqlerror.Error) *gqlgen.Response {
	return &gqlgen.Response{Errors: gqlerror.List{err}}
}

// object is a JSON object that keeps its keys in selection order.
type object struct {
	keys   []string
	values map[string]any
}

func newObject() *object {
	return &object{values: map[string]any{}}
}

func (o *object) set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(o.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
