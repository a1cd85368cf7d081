package domain

import "context"

// FlowStore persists recorded flows. Implementations must treat saves to an
// existing id as last-writer-wins overwrites; DeleteFlow reports whether the
// flow existed rather than failing on absence.
type FlowStore interface {
	SaveFlow(ctx context.Context, flow Flow) error
	GetFlow(ctx context.Context, id string) (Flow, error)
	ListFlows(ctx context.Context) ([]Flow, error)
	DeleteFlow(ctx context.Context, id string) (bool, error)
}

// TemplateStore persists reusable graph templates with the same save-one /
// load-all contract as FlowStore.
type TemplateStore interface {
	SaveTemplate(ctx context.Context, template GraphTemplate) error
	GetTemplate(ctx context.Context, id string) (GraphTemplate, error)
	ListTemplates(ctx context.Context) ([]GraphTemplate, error)
	DeleteTemplate(ctx context.Context, id string) (bool, error)
}
