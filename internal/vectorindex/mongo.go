package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"pdf-chat-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoNamespaceNotFound = 26
	mongoNamespaceExists   = 48
)

// MongoBackend stores chunks in a MongoDB Atlas collection with a vectorSearch index.
type MongoBackend struct {
	db         *mongo.Database
	collection string
}

func NewMongoBackend(db *mongo.Database, collection string) *MongoBackend {
	return &MongoBackend{db: db, collection: collection}
}

func (b *MongoBackend) Name() string { return "mongo" }

func (b *MongoBackend) coll() *mongo.Collection {
	return b.db.Collection(b.collection)
}

func isCommandError(err error, code int32) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == code
}

func (b *MongoBackend) searchIndexes(ctx context.Context, name string) ([]bson.M, error) {
	cursor, err := b.coll().SearchIndexes().List(ctx, options.SearchIndexes().SetName(name))
	if err != nil {
		if isCommandError(err, mongoNamespaceNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (b *MongoBackend) IndexExists(ctx context.Context, spec IndexSpec) (bool, error) {
	docs, err := b.searchIndexes(ctx, spec.Name)
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

func (b *MongoBackend) CreateIndex(ctx context.Context, spec IndexSpec) error {
	// Search indexes can only be defined on an existing collection.
	if err := b.db.CreateCollection(ctx, b.collection); err != nil && !isCommandError(err, mongoNamespaceExists) {
		return fmt.Errorf("create collection %s: %w", b.collection, err)
	}

	model := mongo.SearchIndexModel{
		Definition: bson.D{
			{Key: "fields", Value: bson.A{
				bson.D{
					{Key: "type", Value: "vector"},
					{Key: "path", Value: "vector"},
					{Key: "numDimensions", Value: spec.Dimension},
					{Key: "similarity", Value: spec.Metric},
				},
			}},
		},
		Options: options.SearchIndexes().SetName(spec.Name).SetType("vectorSearch"),
	}

	if _, err := b.coll().SearchIndexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create search index %s: %w", spec.Name, err)
	}
	return nil
}

// IndexReady reports the Atlas "queryable" flag of the search index.
func (b *MongoBackend) IndexReady(ctx context.Context, spec IndexSpec) (bool, error) {
	docs, err := b.searchIndexes(ctx, spec.Name)
	if err != nil {
		return false, err
	}
	for _, doc := range docs {
		if status, _ := doc["status"].(string); status == "FAILED" {
			return false, fmt.Errorf("search index %s failed to build", spec.Name)
		}
		if queryable, _ := doc["queryable"].(bool); queryable {
			return true, nil
		}
	}
	return false, nil
}

func (b *MongoBackend) Upsert(ctx context.Context, spec IndexSpec, records []models.EmbeddedChunk) error {
	if len(records) == 0 {
		return nil
	}

	batch := make([]mongo.WriteModel, 0, len(records))
	for _, r := range records {
		batch = append(batch, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"chunk_id": r.ID}).
			SetUpdate(bson.M{"$set": r}).
			SetUpsert(true))
	}

	_, err := b.coll().BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false))
	return err
}

type mongoMatch struct {
	models.Chunk `bson:",inline"`
	Score        float64 `bson:"score"`
}

func (b *MongoBackend) Search(ctx context.Context, spec IndexSpec, vector []float32, k int) ([]Match, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: spec.Name},
			{Key: "path", Value: "vector"},
			{Key: "queryVector", Value: vector},
			{Key: "numCandidates", Value: k * 20},
			{Key: "limit", Value: k},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "vector", Value: 0},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}

	cursor, err := b.coll().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []mongoMatch
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	matches := make([]Match, len(rows))
	for i, row := range rows {
		matches[i] = Match{Chunk: row.Chunk, Score: row.Score}
	}
	return matches, nil
}

func (b *MongoBackend) Count(ctx context.Context, spec IndexSpec) (int64, error) {
	return b.coll().CountDocuments(ctx, bson.D{})
}

func (b *MongoBackend) Reset(ctx context.Context, spec IndexSpec) error {
	_, err := b.coll().DeleteMany(ctx, bson.D{})
	return err
}
