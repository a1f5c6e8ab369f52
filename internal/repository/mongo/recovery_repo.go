package mongo

import (
	"context"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const recoveryCollectionName = "muscle_recovery"

type mongoRecoveryRepository struct {
	collection *mongo.Collection
}

func NewMongoRecoveryRepository(db *mongo.Database) repository.RecoveryRepository {
	return &mongoRecoveryRepository{
		collection: db.Collection(recoveryCollectionName),
	}
}

// Upsert writes one record per (user, muscle group) in a single bulk request.
func (r *mongoRecoveryRepository) Upsert(ctx context.Context, records []domain.MuscleRecoveryRecord) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"userId": rec.UserID, "muscleGroup": rec.MuscleGroup}).
			SetUpdate(bson.M{
				"$set": bson.M{
					"lastTrained":   rec.LastTrained,
					"status":        rec.Status,
					"nextAvailable": rec.NextAvailable,
					"updatedAt":     rec.UpdatedAt,
				},
			}).
			SetUpsert(true))
	}
	_, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

func (r *mongoRecoveryRepository) GetByUser(ctx context.Context, userID primitive.ObjectID, groups []domain.MuscleGroup) ([]domain.MuscleRecoveryRecord, error) {
	filter := bson.M{"userId": userID, "muscleGroup": bson.M{"$in": groups}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domain.MuscleRecoveryRecord
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func EnsureRecoveryIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "muscleGroup", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
