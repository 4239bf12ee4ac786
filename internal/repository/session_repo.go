package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vigilore/internal/model"
)

type SessionRepository interface {
	Save(ctx context.Context, session *model.InterviewSession) error
	Load(ctx context.Context, sessionID string) (*model.InterviewSession, error)
	ListByStatus(ctx context.Context, status model.SessionStatus) ([]*model.InterviewSession, error)
	ListBySite(ctx context.Context, siteName string) ([]*model.InterviewSession, error)
	Delete(ctx context.Context, sessionID string) error
}

type sessionRepository struct {
	collection *mongo.Collection
}

func NewSessionRepository(client *mongo.Client, database string) SessionRepository {
	db := client.Database(database)
	return &sessionRepository{
		collection: db.Collection("sessions"),
	}
}

// Save upserts the full session document keyed by session id
func (r *sessionRepository) Save(ctx context.Context, session *model.InterviewSession) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.SessionID}, session, opts)
	return err
}

func (r *sessionRepository) Load(ctx context.Context, sessionID string) (*model.InterviewSession, error) {
	var session model.InterviewSession
	err := r.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) ListByStatus(ctx context.Context, status model.SessionStatus) ([]*model.InterviewSession, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"status": status})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.InterviewSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionRepository) ListBySite(ctx context.Context, siteName string) ([]*model.InterviewSession, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"siteName": siteName})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.InterviewSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (r *sessionRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": sessionID})
	return err
}
