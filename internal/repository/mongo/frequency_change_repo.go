package mongo

import (
	"context"
	"errors"
	"time"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const frequencyChangeCollectionName = "frequency_changes"

type mongoFrequencyChangeRepository struct {
	collection *mongo.Collection
}

func NewMongoFrequencyChangeRepository(db *mongo.Database) repository.FrequencyChangeRepository {
	return &mongoFrequencyChangeRepository{
		collection: db.Collection(frequencyChangeCollectionName),
	}
}

func (r *mongoFrequencyChangeRepository) Create(ctx context.Context, rec *domain.FrequencyChangeRecord) (primitive.ObjectID, error) {
	rec.ID = primitive.NewObjectID()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, rec); err != nil {
		return primitive.NilObjectID, err
	}
	return rec.ID, nil
}

func (r *mongoFrequencyChangeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.FrequencyChangeRecord, error) {
	var rec domain.FrequencyChangeRecord
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *mongoFrequencyChangeRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.FrequencyChangeRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domain.FrequencyChangeRecord
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoFrequencyChangeRepository) CancelPending(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"userId": userID, "status": domain.ChangePending},
		bson.M{"$set": bson.M{"status": domain.ChangeCancelled}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// MarkProcessed only matches pending records, so exactly one concurrent caller wins.
func (r *mongoFrequencyChangeRepository) MarkProcessed(ctx context.Context, id primitive.ObjectID, decision domain.FrequencyDecision, at time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": domain.ChangePending},
		bson.M{"$set": bson.M{"status": domain.ChangeProcessed, "decision": decision, "processedAt": at}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrStateChanged
	}
	return nil
}

func (r *mongoFrequencyChangeRepository) MarkCancelled(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": domain.ChangePending},
		bson.M{"$set": bson.M{"status": domain.ChangeCancelled}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrStateChanged
	}
	return nil
}

func (r *mongoFrequencyChangeRepository) HasKeepCurrent(ctx context.Context, mesocycleID primitive.ObjectID) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{
		"mesocycleId": mesocycleID,
		"status":      domain.ChangeProcessed,
		"decision":    domain.DecisionKeepCurrent,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func EnsureFrequencyChangeIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "mesocycleId", Value: 1}, {Key: "decision", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
