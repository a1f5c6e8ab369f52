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

type mongoDailyPlanRepository struct {
	collection *mongo.Collection
}

func NewMongoDailyPlanRepository(db *mongo.Database) repository.DailyPlanRepository {
	return &mongoDailyPlanRepository{
		collection: db.Collection(dailyPlanCollectionName),
	}
}

func (r *mongoDailyPlanRepository) GetByUserAndDate(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.DailyPlan, error) {
	var p domain.DailyPlan
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "date": domain.DateOnly(date)}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *mongoDailyPlanRepository) MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "completed": false},
		bson.M{"$set": bson.M{"completed": true, "completedAt": at}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrStateChanged
	}
	return nil
}

func (r *mongoDailyPlanRepository) CountCompleted(ctx context.Context, userID primitive.ObjectID, from, to time.Time) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"userId":    userID,
		"completed": true,
		"date":      bson.M{"$gte": domain.DateOnly(from), "$lt": domain.DateOnly(to)},
	})
}

func EnsureDailyPlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
