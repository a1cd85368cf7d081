package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/podplay/taskgraph/pkg/domain"
)

const (
	mongoFlowsCollection     = "flows"
	mongoTemplatesCollection = "templates"
)

// mongoDocument wraps a serialized flow or template. Documents keep their
// JSON wire shape so the schema validation used by the file store applies
// unchanged on load.
type mongoDocument struct {
	ID        string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore is the remote flow/template store backed by MongoDB. During
// store merges the remote copy wins on id collision.
type MongoStore struct {
	flows     *mongo.Collection
	templates *mongo.Collection
}

type MongoStoreDeps struct {
	Context      context.Context
	URI          string
	DatabaseName string
}

func NewMongoStore(deps MongoStoreDeps) (*MongoStore, error) {
	client, err := mongo.Connect(deps.Context, options.Client().ApplyURI(deps.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	database := client.Database(deps.DatabaseName)

	return &MongoStore{
		flows:     database.Collection(mongoFlowsCollection),
		templates: database.Collection(mongoTemplatesCollection),
	}, nil
}

func (s *MongoStore) SaveFlow(ctx context.Context, flow domain.Flow) error {
	return upsertMongoDocument(ctx, s.flows, flow.ID, flow)
}

func (s *MongoStore) GetFlow(ctx context.Context, id string) (domain.Flow, error) {
	raw, err := getMongoDocument(ctx, s.flows, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
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

func (s *MongoStore) ListFlows(ctx context.Context) ([]domain.Flow, error) {
	raws, err := listMongoDocuments(ctx, s.flows)
	if err != nil {
		return nil, err
	}

	flows := []domain.Flow{}

	for _, raw := range raws {
		if err := ValidateFlowDocument(raw); err != nil {
			continue
		}

		var flow domain.Flow
		if err := json.Unmarshal(raw, &flow); err != nil {
			continue
		}

		flows = append(flows, flow)
	}

	return flows, nil
}

func (s *MongoStore) DeleteFlow(ctx context.Context, id string) (bool, error) {
	return deleteMongoDocument(ctx, s.flows, id)
}

func (s *MongoStore) SaveTemplate(ctx context.Context, template domain.GraphTemplate) error {
	return upsertMongoDocument(ctx, s.templates, template.ID, template)
}

func (s *MongoStore) GetTemplate(ctx context.Context, id string) (domain.GraphTemplate, error) {
	raw, err := getMongoDocument(ctx, s.templates, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
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

func (s *MongoStore) ListTemplates(ctx context.Context) ([]domain.GraphTemplate, error) {
	raws, err := listMongoDocuments(ctx, s.templates)
	if err != nil {
		return nil, err
	}

	templates := []domain.GraphTemplate{}

	for _, raw := range raws {
		if err := ValidateTemplateDocument(raw); err != nil {
			continue
		}

		var template domain.GraphTemplate
		if err := json.Unmarshal(raw, &template); err != nil {
			continue
		}

		templates = append(templates, template)
	}

	return templates, nil
}

func (s *MongoStore) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	return deleteMongoDocument(ctx, s.templates, id)
}

func upsertMongoDocument(ctx context.Context, collection *mongo.Collection, id string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", id, err)
	}

	document := mongoDocument{
		ID:        id,
		Data:      raw,
		UpdatedAt: time.Now(),
	}

	_, err = collection.ReplaceOne(ctx, bson.M{"_id": id}, document, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", id, err)
	}

	return nil
}

func getMongoDocument(ctx context.Context, collection *mongo.Collection, id string) ([]byte, error) {
	var document mongoDocument
	if err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&document); err != nil {
		return nil, err
	}

	return document.Data, nil
}

func listMongoDocuments(ctx context.Context, collection *mongo.Collection) ([][]byte, error) {
	cursor, err := collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer cursor.Close(ctx)

	raws := [][]byte{}

	for cursor.Next(ctx) {
		var document mongoDocument
		if err := cursor.Decode(&document); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}

		raws = append(raws, document.Data)
	}

	return raws, cursor.Err()
}

func deleteMongoDocument(ctx context.Context, collection *mongo.Collection, id string) (bool, error) {
	result, err := collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}

	return result.DeletedCount > 0, nil
}
