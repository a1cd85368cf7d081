package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/podplay/taskgraph/pkg/domain"
)

// RedisStore is the remote flow/template store backed by Redis hashes: one
// hash per collection, one field per document id.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

type RedisStoreDeps struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

func NewRedisStore(deps RedisStoreDeps) *RedisStore {
	keyPrefix := deps.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "taskgraph"
	}

	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     deps.Addr,
			Password: deps.Password,
			DB:       deps.DB,
		}),
		keyPrefix: keyPrefix,
	}
}

func (s *RedisStore) flowsKey() string {
	return s.keyPrefix + ":flows"
}

func (s *RedisStore) templatesKey() string {
	return s.keyPrefix + ":templates"
}

func (s *RedisStore) SaveFlow(ctx context.Context, flow domain.Flow) error {
	return s.saveDocument(ctx, s.flowsKey(), flow.ID, flow)
}

func (s *RedisStore) GetFlow(ctx context.Context, id string) (domain.Flow, error) {
	raw, err := s.client.HGet(ctx, s.flowsKey(), id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Flow{}, domain.ErrFlowNotFound
		}
		return domain.Flow{}, fmt.Errorf("getting flow %s: %w", id, err)
	}

	if err := ValidateFlowDocument(raw); err != nil {
		return domain.Flow{}, fmt.Errorf("flow %s: %w", id, err)
	}

	var flow domain.Flow
	if err := json.Unmarshal(raw, &flow); err != nil {
		return domain.Flow{}, fmt.Errorf("decoding flow %s: %w", id, err)
	}

	return flow, nil
}

func (s *RedisStore) ListFlows(ctx context.Context) ([]domain.Flow, error) {
	raws, err := s.client.HGetAll(ctx, s.flowsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing flows: %w", err)
	}

	flows := []domain.Flow{}

	for _, raw := range raws {
		if err := ValidateFlowDocument([]byte(raw)); err != nil {
			continue
		}

		var flow domain.Flow
		if err := json.Unmarshal([]byte(raw), &flow); err != nil {
			continue
		}

		flows = append(flows, flow)
	}

	return flows, nil
}

func (s *RedisStore) DeleteFlow(ctx context.Context, id string) (bool, error) {
	deleted, err := s.client.HDel(ctx, s.flowsKey(), id).Result()
	if err != nil {
		return false, fmt.Errorf("deleting flow %s: %w", id, err)
	}

	return deleted > 0, nil
}

func (s *RedisStore) SaveTemplate(ctx context.Context, template domain.GraphTemplate) error {
	return s.saveDocument(ctx, s.templatesKey(), template.ID, template)
}

func (s *RedisStore) GetTemplate(ctx context.Context, id string) (domain.GraphTemplate, error) {
	raw, err := s.client.HGet(ctx, s.templatesKey(), id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.GraphTemplate{}, domain.ErrTemplateNotFound
		}
		return domain.GraphTemplate{}, fmt.Errorf("getting template %s: %w", id, err)
	}

	if err := ValidateTemplateDocument(raw); err != nil {
		return domain.GraphTemplate{}, fmt.Errorf("template %s: %w", id, err)
	}

	var template domain.GraphTemplate
	if err := json.Unmarshal(raw, &template); err != nil {
		return domain.GraphTemplate{}, fmt.Errorf("decoding template %s: %w", id, err)
	}

	return template, nil
}

func (s *RedisStore) ListTemplates(ctx context.Context) ([]domain.GraphTemplate, error) {
	raws, err := s.client.HGetAll(ctx, s.templatesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	templates := []domain.GraphTemplate{}

	for _, raw := range raws {
		if err := ValidateTemplateDocument([]byte(raw)); err != nil {
			continue
		}

		var template domain.GraphTemplate
		if err := json.Unmarshal([]byte(raw), &template); err != nil {
			continue
		}

		templates = append(templates, template)
	}

	return templates, nil
}

func (s *RedisStore) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	deleted, err := s.client.HDel(ctx, s.templatesKey(), id).Result()
	if err != nil {
		return false, fmt.Errorf("deleting template %s: %w", id, err)
	}

	return deleted > 0, nil
}

func (s *RedisStore) saveDocument(ctx context.Context, key, id string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", id, err)
	}

	if err := s.client.HSet(ctx, key, id, raw).Err(); err != nil {
		return fmt.Errorf("saving document %s: %w", id, err)
	}

	return nil
}
