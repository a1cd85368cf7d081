package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/podplay/taskgraph/pkg/domain"
)

const (
	flowsDir     = "flows"
	templatesDir = "templates"
)

// FileStore persists flows and templates as one JSON document per id under a
// base directory. Documents are schema-validated on load; a document that
// fails validation is skipped with a logged error rather than failing the
// whole load, so one corrupt file cannot take the session down.
type FileStore struct {
	fs      afero.Fs
	baseDir string
}

type FileStoreDeps struct {
	Fs      afero.Fs
	BaseDir string
}

func NewFileStore(deps FileStoreDeps) (*FileStore, error) {
	fs := deps.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	store := &FileStore{
		fs:      fs,
		baseDir: deps.BaseDir,
	}

	for _, dir := range []string{flowsDir, templatesDir} {
		if err := fs.MkdirAll(filepath.Join(deps.BaseDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
		}
	}

	return store, nil
}

func (s *FileStore) SaveFlow(ctx context.Context, flow domain.Flow) error {
	return s.writeDocument(flowsDir, flow.ID, flow)
}

func (s *FileStore) GetFlow(ctx context.Context, id string) (domain.Flow, error) {
	raw, err := s.readDocument(flowsDir, id)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Flow{}, domain.ErrFlowNotFound
		}
		return domain.Flow{}, err
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

func (s *FileStore) ListFlows(ctx context.Context) ([]domain.Flow, error) {
	documents, err := s.listDocuments(flowsDir)
	if err != nil {
		return nil, err
	}

	flows := []domain.Flow{}

	for name, raw := range documents {
		if err := ValidateFlowDocument(raw); err != nil {
			log.Error().Err(err).Str("file", name).Msg("Skipping invalid flow document")
			continue
		}

		var flow domain.Flow
		if err := json.Unmarshal(raw, &flow); err != nil {
			log.Error().Err(err).Str("file", name).Msg("Skipping undecodable flow document")
			continue
		}

		flows = append(flows, flow)
	}

	return flows, nil
}

func (s *FileStore) DeleteFlow(ctx context.Context, id string) (bool, error) {
	return s.deleteDocument(flowsDir, id)
}

func (s *FileStore) SaveTemplate(ctx context.Context, template domain.GraphTemplate) error {
	return s.writeDocument(templatesDir, template.ID, template)
}

func (s *FileStore) GetTemplate(ctx context.Context, id string) (domain.GraphTemplate, error) {
	raw, err := s.readDocument(templatesDir, id)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.GraphTemplate{}, domain.ErrTemplateNotFound
		}
		return domain.GraphTemplate{}, err
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

func (s *FileStore) ListTemplates(ctx context.Context) ([]domain.GraphTemplate, error) {
	documents, err := s.listDocuments(templatesDir)
	if err != nil {
		return nil, err
	}

	templates := []domain.GraphTemplate{}

	for name, raw := range documents {
		if err := ValidateTemplateDocument(raw); err != nil {
			log.Error().Err(err).Str("file", name).Msg("Skipping invalid template document")
			continue
		}

		var template domain.GraphTemplate
		if err := json.Unmarshal(raw, &template); err != nil {
			log.Error().Err(err).Str("file", name).Msg("Skipping undecodable template document")
			continue
		}

		templates = append(templates, template)
	}

	return templates, nil
}

func (s *FileStore) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	return s.deleteDocument(templatesDir, id)
}

func (s *FileStore) documentPath(dir, id string) string {
	return filepath.Join(s.baseDir, dir, id+".json")
}

func (s *FileStore) writeDocument(dir, id string, document any) error {
	raw, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", id, err)
	}

	return afero.WriteFile(s.fs, s.documentPath(dir, id), raw, 0o644)
}

func (s *FileStore) readDocument(dir, id string) ([]byte, error) {
	return afero.ReadFile(s.fs, s.documentPath(dir, id))
}

func (s *FileStore) listDocuments(dir string) (map[string][]byte, error) {
	entries, err := afero.ReadDir(s.fs, filepath.Join(s.baseDir, dir))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	documents := map[string][]byte{}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		raw, err := afero.ReadFile(s.fs, filepath.Join(s.baseDir, dir, entry.Name()))
		if err != nil {
			log.Error().Err(err).Str("file", entry.Name()).Msg("Skipping unreadable document")
			continue
		}

		documents[entry.Name()] = raw
	}

	return documents, nil
}

func (s *FileStore) deleteDocument(dir, id string) (bool, error) {
	path := s.documentPath(dir, id)

	if _, err := s.fs.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if err := s.fs.Remove(path); err != nil {
		return false, err
	}

	return true, nil
}
