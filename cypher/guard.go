package cypher

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/cel-go/cel"
)

// Built-in policy names accepted by PolicyExpression.
const (
	PolicyOff      = ""
	PolicySchema   = "schema"
	PolicyReadOnly = "read-only"
)

// SchemaPolicy allows a statement only when every label and relationship type
// it names is present in the introspected schema. With no schema it allows
// everything, since there is nothing to compare against.
const SchemaPolicy = `!schema_known || (labels.all(l, l in schema_labels) && relationships.all(r, r in schema_relationships))`

// ReadOnlyPolicy rejects statements containing write clauses.
const ReadOnlyPolicy = `!query.matches('(?i)\\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|LOAD\\s+CSV)\\b')`

// PolicyExpression resolves a configured policy to a CEL expression. Built-in
// names map to the constants above; anything else is taken as a raw
// expression. The empty string disables the guard.
func PolicyExpression(policy string) string {
	switch strings.TrimSpace(policy) {
	case PolicyOff:
		return ""
	case PolicySchema:
		return SchemaPolicy
	case PolicyReadOnly:
		return ReadOnlyPolicy
	default:
		return policy
	}
}

// Vocabulary is the set of labels and relationship types a store is known to hold.
type Vocabulary struct {
	Labels            []string
	RelationshipTypes []string
}

// Known reports whether the vocabulary carries any information.
func (v Vocabulary) Known() bool {
	return len(v.Labels) > 0 || len(v.RelationshipTypes) > 0
}

// RejectionError reports a statement refused by the guard policy.
type RejectionError struct {
	Policy     string
	References References
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("query rejected by policy (labels: %s; relationship types: %s)",
		strings.Join(e.References.Labels, ", "),
		strings.Join(e.References.RelationshipTypes, ", "))
}

// Guard evaluates a boolean CEL policy against a statement before it runs.
//
// The policy sees these variables:
//
//	query                 string        the statement text
//	labels                list(string)  labels named in node patterns
//	relationships         list(string)  types named in relationship patterns
//	schema_labels         list(string)  labels in the introspected schema
//	schema_relationships  list(string)  relationship types in the schema
//	schema_known          bool          whether introspection produced anything
type Guard struct {
	expr    string
	program cel.Program
}

// NewGuard compiles expr. It fails when the expression does not type-check
// or does not produce a bool.
func NewGuard(expr string) (*Guard, error) {
	env, err := cel.NewEnv(
		cel.Variable("query", cel.StringType),
		cel.Variable("labels", cel.ListType(cel.StringType)),
		cel.Variable("relationships", cel.ListType(cel.StringType)),
		cel.Variable("schema_labels", cel.ListType(cel.StringType)),
		cel.Variable("schema_relationships", cel.ListType(cel.StringType)),
		cel.Variable("schema_known", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("create policy environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile policy %q: %w", expr, iss.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("policy %q must evaluate to bool, got %v", expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build policy program: %w", err)
	}

	return &Guard{expr: expr, program: program}, nil
}

// Expression returns the compiled policy source.
func (g *Guard) Expression() string {
	return g.expr
}

// Check returns nil when the policy allows query, a *RejectionError when it
// refuses it, and a plain error when evaluation itself fails.
func (g *Guard) Check(query string, vocab Vocabulary) error {
	refs := ScanReferences(query)

	out, _, err := g.program.Eval(map[string]any{
		"query":                query,
		"labels":               nonNil(refs.Labels),
		"relationships":        nonNil(refs.RelationshipTypes),
		"schema_labels":        nonNil(vocab.Labels),
		"schema_relationships": nonNil(vocab.RelationshipTypes),
		"schema_known":         vocab.Known(),
	})
	if err != nil {
		return fmt.Errorf("evaluate policy: %w", err)
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return fmt.Errorf("policy returned %T, want bool", out.Value())
	}
	if !allowed {
		return &RejectionError{Policy: g.expr, References: refs}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
