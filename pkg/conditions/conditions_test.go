package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podplay/taskgraph/pkg/domain"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		setup      func(run *domain.ExecutionContext)
		expected   bool
	}{
		{
			name:       "context value strict equality",
			expression: "context.ok === true",
			setup: func(run *domain.ExecutionContext) {
				run.Set("ok", true)
			},
			expected: true,
		},
		{
			name:       "context value absent",
			expression: "context.ok === true",
			setup:      func(run *domain.ExecutionContext) {},
			expected:   false,
		},
		{
			name:       "numeric comparison",
			expression: "context.retries < 3",
			setup: func(run *domain.ExecutionContext) {
				run.Set("retries", 1)
			},
			expected: true,
		},
		{
			name:       "node result lookup",
			expression: "nodeResults.build === 'passed'",
			setup: func(run *domain.ExecutionContext) {
				run.RecordNodeResult("build", "passed")
			},
			expected: true,
		},
		{
			name:       "last node result",
			expression: "lastNodeResult !== null && lastNodeResult !== undefined",
			setup: func(run *domain.ExecutionContext) {
				run.RecordNodeResult("lint", map[string]any{"warnings": 0})
			},
			expected: true,
		},
		{
			name:       "runtime error treated as no match",
			expression: "context.missing.deep === 1",
			setup:      func(run *domain.ExecutionContext) {},
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			condition, err := Compile(tt.expression)
			require.NoError(t, err)

			run := domain.NewExecutionContext("graph-1", "exec-1")
			tt.setup(run)

			assert.Equal(t, tt.expected, condition(run))
		})
	}
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile("context.ok ===")
	require.Error(t, err)
}

func TestBindingsFromTemplate(t *testing.T) {
	template := domain.GraphTemplate{
		ID: "shape",
		Edges: []domain.TemplateEdge{
			{From: "a", To: "b", HasCondition: false},
			{
				From: "b", To: "c", HasCondition: true,
				Metadata: map[string]any{MetadataKeyExpression: "context.ok === true"},
			},
			{From: "c", To: "d", HasCondition: true},
			{
				From: "d", To: "e", HasCondition: true,
				Metadata: map[string]any{MetadataKeyExpression: "context.ok ==="},
			},
		},
	}

	bindings := BindingsFromTemplate(template)

	// Only the edge with a well-formed expression gets a binding; the bare
	// conditional edge and the broken expression fall back to the default.
	require.Len(t, bindings.Conditions, 1)

	condition := bindings.Conditions[domain.ConditionBindingKey("b", "c")]
	require.NotNil(t, condition)

	run := domain.NewExecutionContext("g", "e")
	assert.False(t, condition(run))

	run.Set("ok", true)
	assert.True(t, condition(run))
}

func TestCompiledConditionIsReusable(t *testing.T) {
	condition, err := Compile("context.count > 0")
	require.NoError(t, err)

	first := domain.NewExecutionContext("g", "e1")
	first.Set("count", 2)
	assert.True(t, condition(first))

	second := domain.NewExecutionContext("g", "e2")
	second.Set("count", 0)
	assert.False(t, condition(second))
}
