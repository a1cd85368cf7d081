// Package conditions compiles edge-condition expressions into executable
// predicates. Expressions are JavaScript, evaluated against the run context,
// so serialized templates can describe conditions as plain strings and bind
// them back at reconstruction time.
package conditions

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"

	"github.com/podplay/taskgraph/pkg/domain"
)

// Compile parses an expression once and returns a condition that evaluates it
// per traversal. The expression sees three globals: `context` (the run's
// value bag), `nodeResults`, and `lastNodeResult`. An expression that fails
// to evaluate is treated as not matching.
func Compile(expression string) (domain.EdgeCondition, error) {
	program, err := goja.Compile("condition", expression, true)
	if err != nil {
		return nil, fmt.Errorf("compiling condition %q: %w", expression, err)
	}

	return func(run *domain.ExecutionContext) bool {
		vm := goja.New()

		if err := vm.Set("context", run.Values); err != nil {
			log.Error().Err(err).Msg("Failed to bind context into condition vm")
			return false
		}

		if err := vm.Set("nodeResults", run.NodeResults); err != nil {
			log.Error().Err(err).Msg("Failed to bind nodeResults into condition vm")
			return false
		}

		if err := vm.Set("lastNodeResult", run.LastNodeResult); err != nil {
			log.Error().Err(err).Msg("Failed to bind lastNodeResult into condition vm")
			return false
		}

		value, err := vm.RunProgram(program)
		if err != nil {
			log.Warn().Err(err).Str("expression", expression).Msg("Condition evaluation failed, treating as no match")
			return false
		}

		return value.ToBoolean()
	}, nil
}

// MustCompile is Compile for statically known expressions, such as the
// built-in template bindings.
func MustCompile(expression string) domain.EdgeCondition {
	condition, err := Compile(expression)
	if err != nil {
		panic(err)
	}
	return condition
}

// MetadataKeyExpression is the edge metadata key carrying a serialized
// condition expression.
const MetadataKeyExpression = "expression"

// BindingsFromTemplate compiles the expression metadata of a template's
// conditional edges into capability bindings. Edges without an expression, or
// with one that fails to compile, are left unbound and fall back to the
// always-true default; compile failures are logged.
func BindingsFromTemplate(template domain.GraphTemplate) domain.CapabilityBindings {
	bindings := domain.CapabilityBindings{
		Conditions: map[string]domain.EdgeCondition{},
	}

	for _, edge := range template.Edges {
		if !edge.HasCondition {
			continue
		}

		expression, ok := edge.Metadata[MetadataKeyExpression].(string)
		if !ok || expression == "" {
			continue
		}

		condition, err := Compile(expression)
		if err != nil {
			log.Error().Err(err).
				Str("template_id", template.ID).
				Str("from", edge.From).
				Str("to", edge.To).
				Msg("Failed to compile edge condition expression")
			continue
		}

		bindings.Conditions[domain.ConditionBindingKey(edge.From, edge.To)] = condition
	}

	return bindings
}
