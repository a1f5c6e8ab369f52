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

const mesocycleCollectionName = "mesocycles"

type mongoMesocycleRepository struct {
	collection *mongo.Collection
}

func NewMongoMesocycleRepository(db *mongo.Database) repository.MesocycleRepository {
	return &mongoMesocycleRepository{
		collection: db.Collection(mesocycleCollectionName),
	}
}

// Create inserts a mesocycle. The partial unique index on active rows turns a
// second active mesocycle into ErrDuplicate.
func (r *mongoMesocycleRepository) Create(ctx context.Context, m *domain.Mesocycle) (primitive.ObjectID, error) {
	m.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return m.ID, nil
}

func (r *mongoMesocycleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Mesocycle, error) {
	var m domain.Mesocycle
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetByUserAndStatus returns the newest mesocycle of the user in that status.
func (r *mongoMesocycleRepository) GetByUserAndStatus(ctx context.Context, userID primitive.ObjectID, status domain.MesocycleStatus) (*domain.Mesocycle, error) {
	var m domain.Mesocycle
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "status": status}, opts).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *mongoMesocycleRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Mesocycle, error) {
	return r.find(ctx, bson.M{"userId": userID})
}

func (r *mongoMesocycleRepository) ListActive(ctx context.Context) ([]domain.Mesocycle, error) {
	return r.find(ctx, bson.M{"status": domain.MesocycleActive})
}

func (r *mongoMesocycleRepository) find(ctx context.Context, filter bson.M) ([]domain.Mesocycle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domain.Mesocycle
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition is a compare-and-swap on status.
func (r *mongoMesocycleRepository) Transition(ctx context.Context, id primitive.ObjectID, from, to domain.MesocycleStatus, at time.Time) error {
	set := bson.M{"status": to, "updatedAt": at}
	if to == domain.MesocycleCompleted {
		set["completedAt"] = at
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
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

// EnsureMesocycleIndexes creates the indexes for the mesocycles collection.
func EnsureMesocycleIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// at most one active mesocycle per user
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().
				SetName("one_active_per_user").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.MesocycleActive}),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
