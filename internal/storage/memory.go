package storage

import (
	"context"
	"sync"

	"github.com/podplay/taskgraph/pkg/domain"
)

// MemoryStore keeps flows and templates in process memory. It backs tests and
// sessions running without a configured data directory.
type MemoryStore struct {
	flows     map[string]domain.Flow
	templates map[string]domain.GraphTemplate
	mutex     sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flows:     map[string]domain.Flow{},
		templates: map[string]domain.GraphTemplate{},
	}
}

func (s *MemoryStore) SaveFlow(ctx context.Context, flow domain.Flow) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.flows[flow.ID] = flow

	return nil
}

func (s *MemoryStore) GetFlow(ctx context.Context, id string) (domain.Flow, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	flow, ok := s.flows[id]
	if !ok {
		return domain.Flow{}, domain.ErrFlowNotFound
	}

	return flow, nil
}

func (s *MemoryStore) ListFlows(ctx context.Context) ([]domain.Flow, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	flows := make([]domain.Flow, 0, len(s.flows))
	for _, flow := range s.flows {
		flows = append(flows, flow)
	}

	return flows, nil
}

func (s *MemoryStore) DeleteFlow(ctx context.Context, id string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.flows[id]; !ok {
		return false, nil
	}

	delete(s.flows, id)

	return true, nil
}

func (s *MemoryStore) SaveTemplate(ctx context.Context, template domain.GraphTemplate) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.templates[template.ID] = template

	return nil
}

func (s *MemoryStore) GetTemplate(ctx context.Context, id string) (domain.GraphTemplate, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	template, ok := s.templates[id]
	if !ok {
		return domain.GraphTemplate{}, domain.ErrTemplateNotFound
	}

	return template, nil
}

func (s *MemoryStore) ListTemplates(ctx context.Context) ([]domain.GraphTemplate, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	templates := make([]domain.GraphTemplate, 0, len(s.templates))
	for _, template := range s.templates {
		templates = append(templates, template)
	}

	return templates, nil
}

func (s *MemoryStore) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.templates[id]; !ok {
		return false, nil
	}

	delete(s.templates, id)

	return true, nil
}
