package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Connecting is lazy; ping so a bad URI fails at startup.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes every collection relies on. The unique partial
// indexes carry the storage-level invariants (one active mesocycle per user, one
// unconsumed cache entry per user and date), so failure here is fatal.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		name   string
		ensure func(context.Context, *mongo.Collection) error
	}{
		{userCollectionName, EnsureUserIndexes},
		{exerciseCollectionName, EnsureExerciseIndexes},
		{mesocycleCollectionName, EnsureMesocycleIndexes},
		{splitAssignmentCollectionName, EnsureSplitAssignmentIndexes},
		{recoveryCollectionName, EnsureRecoveryIndexes},
		{frequencyChangeCollectionName, EnsureFrequencyChangeIndexes},
		{cachedWorkoutCollectionName, EnsureCachedWorkoutIndexes},
		{dailyPlanCollectionName, EnsureDailyPlanIndexes},
	}
	for _, step := range steps {
		if err := step.ensure(ctx, db.Collection(step.name)); err != nil {
			return fmt.Errorf("ensure indexes for %s: %w", step.name, err)
		}
	}
	return nil
}

// withTransaction runs fn inside a multi-document transaction. Requires a replica set.
func withTransaction(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) error) error {
	session, err := client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
