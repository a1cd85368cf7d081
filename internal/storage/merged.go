package storage

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/podplay/taskgraph/pkg/domain"
)

// MergedFlowStore layers an optional remote store over a local one. Saves go
// to both (remote best-effort); reads prefer the remote copy; load-all merges
// both collections with the remote winning on id collision. This is
// last-writer-wins and can lose concurrent local edits.
type MergedFlowStore struct {
	local  domain.FlowStore
	remote domain.FlowStore
}

func NewMergedFlowStore(local, remote domain.FlowStore) *MergedFlowStore {
	return &MergedFlowStore{local: local, remote: remote}
}

func (s *MergedFlowStore) SaveFlow(ctx context.Context, flow domain.Flow) error {
	if err := s.local.SaveFlow(ctx, flow); err != nil {
		return err
	}

	if s.remote != nil {
		if err := s.remote.SaveFlow(ctx, flow); err != nil {
			log.Error().Err(err).Str("flow_id", flow.ID).Msg("Failed to save flow to remote store")
		}
	}

	return nil
}

func (s *MergedFlowStore) GetFlow(ctx context.Context, id string) (domain.Flow, error) {
	if s.remote != nil {
		flow, err := s.remote.GetFlow(ctx, id)
		if err == nil {
			return flow, nil
		}
	}

	return s.local.GetFlow(ctx, id)
}

func (s *MergedFlowStore) ListFlows(ctx context.Context) ([]domain.Flow, error) {
	local, err := s.local.ListFlows(ctx)
	if err != nil {
		return nil, err
	}

	if s.remote == nil {
		return local, nil
	}

	remote, err := s.remote.ListFlows(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list flows from remote store, serving local only")
		return local, nil
	}

	return mergeByID(local, remote, func(f domain.Flow) string { return f.ID }), nil
}

func (s *MergedFlowStore) DeleteFlow(ctx context.Context, id string) (bool, error) {
	existed, err := s.local.DeleteFlow(ctx, id)
	if err != nil {
		return false, err
	}

	if s.remote != nil {
		remoteExisted, err := s.remote.DeleteFlow(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("flow_id", id).Msg("Failed to delete flow from remote store")
		}
		existed = existed || remoteExisted
	}

	return existed, nil
}

// MergedTemplateStore applies the same local/remote layering to templates.
type MergedTemplateStore struct {
	local  domain.TemplateStore
	remote domain.TemplateStore
}

func NewMergedTemplateStore(local, remote domain.TemplateStore) *MergedTemplateStore {
	return &MergedTemplateStore{local: local, remote: remote}
}

func (s *MergedTemplateStore) SaveTemplate(ctx context.Context, template domain.GraphTemplate) error {
	if err := s.local.SaveTemplate(ctx, template); err != nil {
		return err
	}

	if s.remote != nil {
		if err := s.remote.SaveTemplate(ctx, template); err != nil {
			log.Error().Err(err).Str("template_id", template.ID).Msg("Failed to save template to remote store")
		}
	}

	return nil
}

func (s *MergedTemplateStore) GetTemplate(ctx context.Context, id string) (domain.GraphTemplate, error) {
	if s.remote != nil {
		template, err := s.remote.GetTemplate(ctx, id)
		if err == nil {
			return template, nil
		}
	}

	return s.local.GetTemplate(ctx, id)
}

func (s *MergedTemplateStore) ListTemplates(ctx context.Context) ([]domain.GraphTemplate, error) {
	local, err := s.local.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}

	if s.remote == nil {
		return local, nil
	}

	remote, err := s.remote.ListTemplates(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list templates from remote store, serving local only")
		return local, nil
	}

	return mergeByID(local, remote, func(t domain.GraphTemplate) string { return t.ID }), nil
}

func (s *MergedTemplateStore) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	existed, err := s.local.DeleteTemplate(ctx, id)
	if err != nil {
		return false, err
	}

	if s.remote != nil {
		remoteExisted, err := s.remote.DeleteTemplate(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("template_id", id).Msg("Failed to delete template from remote store")
		}
		existed = existed || remoteExisted
	}

	return existed, nil
}

// mergeByID overlays remote entries onto local ones. Local order is kept for
// ids present locally; remote-only entries append in remote order.
func mergeByID[T any](local, remote []T, id func(T) string) []T {
	remoteByID := make(map[string]T, len(remote))
	for _, entry := range remote {
		remoteByID[id(entry)] = entry
	}

	merged := make([]T, 0, len(local)+len(remote))
	seen := map[string]struct{}{}

	for _, entry := range local {
		entryID := id(entry)
		seen[entryID] = struct{}{}

		if remoteEntry, ok := remoteByID[entryID]; ok {
			merged = append(merged, remoteEntry)
			continue
		}

		merged = append(merged, entry)
	}

	for _, entry := range remote {
		if _, ok := seen[id(entry)]; ok {
			continue
		}
		merged = append(merged, entry)
	}

	return merged
}
