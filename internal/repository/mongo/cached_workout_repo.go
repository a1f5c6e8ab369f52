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

const (
	cachedWorkoutCollectionName = "cached_workouts"
	dailyPlanCollectionName     = "daily_plans"
)

type mongoCachedWorkoutRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	plans      *mongo.Collection
}

func NewMongoCachedWorkoutRepository(db *mongo.Database) repository.CachedWorkoutRepository {
	return &mongoCachedWorkoutRepository{
		client:     db.Client(),
		collection: db.Collection(cachedWorkoutCollectionName),
		plans:      db.Collection(dailyPlanCollectionName),
	}
}

// InsertIfAbsent relies on the partial unique index: losing the insert race means
// another entry already exists, which is then returned.
func (r *mongoCachedWorkoutRepository) InsertIfAbsent(ctx context.Context, w *domain.CachedWorkout) (*domain.CachedWorkout, error) {
	w.ID = primitive.NewObjectID()
	w.TargetDate = domain.DateOnly(w.TargetDate)
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, w); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return r.GetUnconsumed(ctx, w.UserID, w.TargetDate)
		}
		return nil, err
	}
	return w, nil
}

func (r *mongoCachedWorkoutRepository) GetUnconsumed(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.CachedWorkout, error) {
	var w domain.CachedWorkout
	filter := bson.M{"userId": userID, "targetDate": domain.DateOnly(date), "consumed": false}
	if err := r.collection.FindOne(ctx, filter).Decode(&w); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *mongoCachedWorkoutRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.CachedWorkout, error) {
	filter := bson.M{
		"userId":     userID,
		"targetDate": bson.M{"$gte": domain.DateOnly(from), "$lt": domain.DateOnly(to)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "targetDate", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domain.CachedWorkout
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceWindow swaps the unconsumed entries from `from` onwards inside one transaction.
func (r *mongoCachedWorkoutRepository) ReplaceWindow(ctx context.Context, userID primitive.ObjectID, from time.Time, entries []domain.CachedWorkout) error {
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(entries))
	for i := range entries {
		w := entries[i]
		w.ID = primitive.NewObjectID()
		w.UserID = userID
		w.TargetDate = domain.DateOnly(w.TargetDate)
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		docs = append(docs, w)
	}

	return withTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		filter := bson.M{"userId": userID, "consumed": false, "targetDate": bson.M{"$gte": domain.DateOnly(from)}}
		if _, err := r.collection.DeleteMany(sc, filter); err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}
		_, err := r.collection.InsertMany(sc, docs)
		return err
	})
}

func (r *mongoCachedWorkoutRepository) DeleteUnconsumedBefore(ctx context.Context, userID primitive.ObjectID, before time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"userId":     userID,
		"consumed":   false,
		"targetDate": bson.M{"$lt": domain.DateOnly(before)},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// Transfer consumes the cached entry and inserts the daily plan in one transaction.
// A plan that already exists for the date is returned as is.
func (r *mongoCachedWorkoutRepository) Transfer(ctx context.Context, cachedID primitive.ObjectID, plan *domain.DailyPlan) (*domain.DailyPlan, error) {
	date := domain.DateOnly(plan.Date)
	if existing, err := r.findPlan(ctx, plan.UserID, date); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	plan.ID = primitive.NewObjectID()
	plan.Date = date
	plan.CachedWorkoutID = cachedID
	plan.CreatedAt = now

	err := withTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		result, err := r.collection.UpdateOne(sc,
			bson.M{"_id": cachedID, "consumed": false},
			bson.M{"$set": bson.M{"consumed": true, "consumedAt": now}},
		)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return repository.ErrStateChanged
		}
		_, err = r.plans.InsertOne(sc, plan)
		return err
	})
	if err == nil {
		return plan, nil
	}
	// Lost a race with a concurrent transfer for the same day.
	if mongo.IsDuplicateKeyError(err) || errors.Is(err, repository.ErrStateChanged) {
		if existing, findErr := r.findPlan(ctx, plan.UserID, date); findErr == nil {
			return existing, nil
		}
	}
	return nil, err
}

func (r *mongoCachedWorkoutRepository) findPlan(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.DailyPlan, error) {
	var p domain.DailyPlan
	if err := r.plans.FindOne(ctx, bson.M{"userId": userID, "date": date}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// EnsureCachedWorkoutIndexes allows any number of consumed entries per day but
// only one unconsumed one.
func EnsureCachedWorkoutIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "targetDate", Value: 1}},
			Options: options.Index().
				SetName("one_unconsumed_per_day").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"consumed": false}),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
