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

const splitAssignmentCollectionName = "split_assignments"

type mongoSplitAssignmentRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoSplitAssignmentRepository(db *mongo.Database) repository.SplitAssignmentRepository {
	return &mongoSplitAssignmentRepository{
		client:     db.Client(),
		collection: db.Collection(splitAssignmentCollectionName),
	}
}

// ReplaceForUser deletes the user's weekly map and inserts the new one in a transaction,
// so readers never see a half-written week.
func (r *mongoSplitAssignmentRepository) ReplaceForUser(ctx context.Context, userID primitive.ObjectID, assignments []domain.SplitAssignment) error {
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(assignments))
	for i := range assignments {
		a := assignments[i]
		a.ID = primitive.NewObjectID()
		a.UserID = userID
		a.CreatedAt = now
		docs = append(docs, a)
	}

	err := withTransaction(ctx, r.client, func(sc mongo.SessionContext) error {
		if _, err := r.collection.DeleteMany(sc, bson.M{"userId": userID}); err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}
		_, err := r.collection.InsertMany(sc, docs)
		return err
	})
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *mongoSplitAssignmentRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.SplitAssignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "weekday", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domain.SplitAssignment
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoSplitAssignmentRepository) GetByUserAndWeekday(ctx context.Context, userID primitive.ObjectID, weekday domain.Weekday) (*domain.SplitAssignment, error) {
	var a domain.SplitAssignment
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "weekday": weekday}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListUserIDs returns every user that has a weekly map, for the cache warm-up job.
func (r *mongoSplitAssignmentRepository) ListUserIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	raw, err := r.collection.Distinct(ctx, "userId", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// EnsureSplitAssignmentIndexes enforces one assignment per (user, weekday).
func EnsureSplitAssignmentIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "weekday", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
