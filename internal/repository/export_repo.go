package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vigilore/internal/model"
)

type ExportRepository interface {
	Save(ctx context.Context, export *model.InterviewExport) error
	Load(ctx context.Context, sessionID string) (*model.InterviewExport, error)
	Delete(ctx context.Context, sessionID string) error
}

type exportRepository struct {
	collection *mongo.Collection
}

func NewExportRepository(client *mongo.Client, database string) ExportRepository {
	db := client.Database(database)
	return &exportRepository{
		collection: db.Collection("exports"),
	}
}

// Save upserts the export keyed by its session id; re-exporting a session
// replaces the earlier bundle.
func (r *exportRepository) Save(ctx context.Context, export *model.InterviewExport) error {
	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"sessionMetadata._id": export.SessionMetadata.SessionID}
	_, err := r.collection.ReplaceOne(ctx, filter, export, opts)
	return err
}

func (r *exportRepository) Load(ctx context.Context, sessionID string) (*model.InterviewExport, error) {
	var export model.InterviewExport
	err := r.collection.FindOne(ctx, bson.M{"sessionMetadata._id": sessionID}).Decode(&export)
	if err != nil {
		return nil, err
	}
	return &export, nil
}

func (r *exportRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"sessionMetadata._id": sessionID})
	return err
}
