package persistence

import (
	"context"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// AttemptArchive copies publish attempts into a Mongo collection for long-term history.
type AttemptArchive struct {
	collection *mongo.Collection
}

func NewAttemptArchive(client *mongo.Client, database string) repository.IAttemptArchive {
	return &AttemptArchive{collection: client.Database(database).Collection("publish_attempts")}
}

func (a *AttemptArchive) Archive(ctx context.Context, attempts []*model.PublishAttempt) error {
	if len(attempts) == 0 {
		return nil
	}
	docs := make([]any, 0, len(attempts))
	for _, at := range attempts {
		docs = append(docs, at)
	}
	_, err := a.collection.InsertMany(ctx, docs)
	return err
}
