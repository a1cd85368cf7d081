package registry

import (
	"context"
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/podplay/taskgraph/pkg/domain"
)

// GraphRegistry owns the live graphs of a session and the durable template
// collection behind them. Live graphs are in-memory only; templates go
// through the injected TemplateStore. Lookups return (value, ok) and deletes
// return a bool so an interactive session never crashes on a stale id.
type GraphRegistry struct {
	graphs    map[string]*domain.Graph
	templates domain.TemplateStore
	mutex     sync.RWMutex
}

type GraphRegistryDeps struct {
	TemplateStore domain.TemplateStore
}

func NewGraphRegistry(deps GraphRegistryDeps) *GraphRegistry {
	return &GraphRegistry{
		graphs:    map[string]*domain.Graph{},
		templates: deps.TemplateStore,
	}
}

// LoadTemplates pulls the template collection from durable storage. When the
// store is empty the built-in default set is seeded and persisted, so a fresh
// installation always has reusable shapes available.
func (r *GraphRegistry) LoadTemplates(ctx context.Context) error {
	templates, err := r.templates.ListTemplates(ctx)
	if err != nil {
		return err
	}

	if len(templates) > 0 {
		log.Info().Msgf("Loaded %d graph templates", len(templates))
		return nil
	}

	defaults, err := DefaultTemplates()
	if err != nil {
		return err
	}

	for _, template := range defaults {
		if err := r.templates.SaveTemplate(ctx, template); err != nil {
			log.Error().Err(err).Str("template_id", template.ID).Msg("Failed to seed default template")
			continue
		}
	}

	log.Info().Msgf("Seeded %d default graph templates", len(defaults))

	return nil
}

// CreateGraph registers a new empty graph under a generated id.
func (r *GraphRegistry) CreateGraph(name string, metadata map[string]any) *domain.Graph {
	graph := domain.NewGraph(xid.New().String(), name, metadata)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.graphs[graph.ID] = graph

	return graph
}

func (r *GraphRegistry) GetGraph(id string) (*domain.Graph, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	graph, ok := r.graphs[id]

	return graph, ok
}

// Graphs returns the live graphs. Order is unspecified.
func (r *GraphRegistry) Graphs() []*domain.Graph {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	graphs := make([]*domain.Graph, 0, len(r.graphs))
	for _, graph := range r.graphs {
		graphs = append(graphs, graph)
	}

	return graphs
}

// DeleteGraph removes a live graph. Deleting an absent id returns false, it
// never fails.
func (r *GraphRegistry) DeleteGraph(id string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.graphs[id]; !ok {
		return false
	}

	delete(r.graphs, id)

	return true
}

// SaveGraphTemplate serializes a live graph into the template store under a
// generated template id. It returns false when the graph is absent or the
// store rejects the save; persistence failures are logged, not raised.
func (r *GraphRegistry) SaveGraphTemplate(ctx context.Context, graphID, name string) (string, bool) {
	graph, ok := r.GetGraph(graphID)
	if !ok {
		return "", false
	}

	template := graph.ToTemplate()
	template.ID = xid.New().String()
	template.Name = name

	if err := r.templates.SaveTemplate(ctx, template); err != nil {
		log.Error().Err(err).Str("graph_id", graphID).Msg("Failed to save graph template")
		return "", false
	}

	log.Info().Str("template_id", template.ID).Msgf("Saved graph %s as template %q", graphID, name)

	return template.ID, true
}

// CreateGraphFromTemplate reconstructs an executable graph from a stored
// template, registers it as a live graph under a fresh id, and returns it.
// An unknown template id returns (nil, false).
func (r *GraphRegistry) CreateGraphFromTemplate(ctx context.Context, templateID string, bindings domain.CapabilityBindings) (*domain.Graph, bool) {
	template, err := r.templates.GetTemplate(ctx, templateID)
	if err != nil {
		log.Debug().Err(err).Str("template_id", templateID).Msg("Template lookup failed")
		return nil, false
	}

	graph, err := FromTemplate(template, bindings)
	if err != nil {
		log.Error().Err(err).Str("template_id", templateID).Msg("Failed to reconstruct graph from template")
		return nil, false
	}

	graph.ID = xid.New().String()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.graphs[graph.ID] = graph

	return graph, true
}

// ListTemplates exposes the durable template collection.
func (r *GraphRegistry) ListTemplates(ctx context.Context) ([]domain.GraphTemplate, error) {
	return r.templates.ListTemplates(ctx)
}

// DeleteTemplate removes a stored template, reporting whether it existed.
func (r *GraphRegistry) DeleteTemplate(ctx context.Context, id string) bool {
	existed, err := r.templates.DeleteTemplate(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("template_id", id).Msg("Failed to delete template")
		return false
	}

	return existed
}
