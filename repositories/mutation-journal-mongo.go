package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"siramm-project/web-service/logging"
	"siramm-project/web-service/models"
)

// MongoJournal persists the journal so failed writes survive a restart.
type MongoJournal struct {
	collection *mongo.Collection
}

type mutationDocument struct {
	ID         string     `bson:"_id"`
	View       string     `bson:"view"`
	TaskID     int        `bson:"task_id"`
	Kind       string     `bson:"kind"`
	StartedAt  time.Time  `bson:"started_at"`
	ResolvedAt *time.Time `bson:"resolved_at,omitempty"`
	Outcome    string     `bson:"outcome"`
	Error      string     `bson:"error,omitempty"`
}

func NewMongoJournal(collection *mongo.Collection) *MongoJournal {
	return &MongoJournal{collection: collection}
}

// ConnectMongoJournal connects, pings and prepares the collection. The returned
// func disconnects the client.
func ConnectMongoJournal(ctx context.Context, uri, dbName, collectionName string) (*MongoJournal, func(context.Context) error, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Connected to MongoDB, using collection %s/%s", dbName, collectionName)

	journal := NewMongoJournal(client.Database(dbName).Collection(collectionName))
	if err := journal.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return journal, client.Disconnect, nil
}

func (j *MongoJournal) EnsureIndexes(ctx context.Context) error {
	_, err := j.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "started_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create index on started_at: %w", err)
	}
	return nil
}

func (j *MongoJournal) Record(ctx context.Context, m models.PendingMutation) error {
	doc := toDocument(m)
	_, err := j.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to record mutation %s: %w", doc.ID, err)
	}
	return nil
}

func (j *MongoJournal) Resolve(ctx context.Context, id uuid.UUID, outcome models.MutationOutcome, errMsg string) error {
	if outcome == models.OutcomeSucceeded {
		res, err := j.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
		if err != nil {
			return fmt.Errorf("failed to resolve mutation %s: %w", id, err)
		}
		if res.DeletedCount == 0 {
			return models.ErrNotFound
		}
		return nil
	}

	update := bson.M{"$set": bson.M{
		"outcome":     string(outcome),
		"error":       errMsg,
		"resolved_at": time.Now().UTC(),
	}}
	res, err := j.collection.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return fmt.Errorf("failed to resolve mutation %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (j *MongoJournal) List(ctx context.Context) ([]models.PendingMutation, error) {
	cursor, err := j.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list mutations: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mutationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode mutations: %w", err)
	}

	out := make([]models.PendingMutation, 0, len(docs))
	for _, d := range docs {
		m, err := d.toMutation()
		if err != nil {
			logging.Logger.Warnf("Event ID: MUTATION_DECODE_FAILED, Description: skipping journal entry %s: %v", d.ID, err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func toDocument(m models.PendingMutation) mutationDocument {
	return mutationDocument{
		ID:         m.ID.String(),
		View:       m.View,
		TaskID:     m.TaskID,
		Kind:       string(m.Kind),
		StartedAt:  m.StartedAt,
		ResolvedAt: m.ResolvedAt,
		Outcome:    string(m.Outcome),
		Error:      m.Error,
	}
}

func (d mutationDocument) toMutation() (models.PendingMutation, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.PendingMutation{}, err
	}
	return models.PendingMutation{
		ID:         id,
		View:       d.View,
		TaskID:     d.TaskID,
		Kind:       models.MutationKind(d.Kind),
		StartedAt:  d.StartedAt,
		ResolvedAt: d.ResolvedAt,
		Outcome:    models.MutationOutcome(d.Outcome),
		Error:      d.Error,
	}, nil
}
