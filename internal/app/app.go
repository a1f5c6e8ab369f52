// Package app wires configuration, storage backends and services into one
// container shared by the HTTP server and the batch worker.
package app

import (
	"context"
	"fmt"
	"time"

	"alcyxob/fitness-planner/internal/catalog"
	"alcyxob/fitness-planner/internal/config"
	"alcyxob/fitness-planner/internal/generator"
	"alcyxob/fitness-planner/internal/lock"
	"alcyxob/fitness-planner/internal/logger"
	"alcyxob/fitness-planner/internal/repository"
	"alcyxob/fitness-planner/internal/repository/memory"
	"alcyxob/fitness-planner/internal/repository/mongo"
	"alcyxob/fitness-planner/internal/service"
	"alcyxob/fitness-planner/internal/storage"
)

// lockTTL bounds how long a crashed holder can keep a user's redis lock.
const lockTTL = 2 * time.Minute

type repositories struct {
	users       repository.UserRepository
	exercises   repository.ExerciseRepository
	mesocycles  repository.MesocycleRepository
	assignments repository.SplitAssignmentRepository
	recovery    repository.RecoveryRepository
	changes     repository.FrequencyChangeRepository
	cached      repository.CachedWorkoutRepository
	plans       repository.DailyPlanRepository
}

// App holds every long-lived dependency of a process.
type App struct {
	Config  config.Config
	Log     *logger.Logger
	Catalog *catalog.Catalog
	Storage storage.FileStorage // nil when no bucket is configured

	Auth        service.AuthService
	Users       service.UserService
	Exercises   service.ExerciseService
	Recovery    service.RecoveryTracker
	Splits      service.SplitService
	Mesocycles  service.MesocycleService
	Frequencies service.FrequencyService
	Cache       service.WorkoutCacheService

	closers []func() error
}

// New connects the configured backends and builds the service graph.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if cfg.S3.BucketName != "" {
		fileStorage, err := storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		a.Storage = fileStorage
	}

	cat, err := a.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	a.Catalog = cat

	repos, err := a.openRepositories(ctx)
	if err != nil {
		return nil, err
	}

	locker, err := a.newLocker()
	if err != nil {
		return nil, err
	}

	var provider generator.ContentProvider = generator.Disabled{}
	if cfg.Generator.APIKey != "" {
		provider = generator.NewChatClient(cfg.Generator, log)
	} else {
		log.Warn("Generator API key not set, workouts will be built from the exercise bank")
	}

	p := cfg.Periodization
	clock := service.SystemClock
	filter := service.NewSafetyFilter(cat)

	a.Auth = service.NewAuthService(repos.users, cfg.JWT.Secret, cfg.JWT.Expiration, clock, log)
	a.Exercises = service.NewExerciseService(repos.exercises, log)
	a.Recovery = service.NewRecoveryTracker(repos.recovery, p.DefaultRecoveryHours, clock, log)
	a.Cache = service.NewWorkoutCacheService(
		repos.users, repos.assignments, repos.cached, repos.plans,
		a.Exercises, a.Recovery, filter, provider, locker,
		service.CacheSettings{
			LookaheadDays:     p.CacheLookaheadDays,
			Concurrency:       p.GenerationConcurrency,
			GenerationTimeout: cfg.Generator.Timeout,
		},
		clock, log,
	)
	a.Splits = service.NewSplitService(cat, filter, repos.users, repos.assignments, repos.mesocycles, a.Cache, locker, p.DefaultRecoveryHours, log)
	a.Mesocycles = service.NewMesocycleService(repos.mesocycles, repos.users, repos.plans, a.Splits, locker, p.DefaultDurationWeeks, clock, log)
	a.Frequencies = service.NewFrequencyService(repos.changes, repos.users, repos.mesocycles, a.Mesocycles, a.Cache, locker, clock, log)
	a.Users = service.NewUserService(repos.users, repos.assignments, a.Frequencies, a.Splits, filter, locker, log)

	if _, err := a.Exercises.SeedBank(ctx, cat.Exercises()); err != nil {
		return nil, fmt.Errorf("seed exercise bank: %w", err)
	}

	ok = true
	return a, nil
}

func (a *App) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	switch a.Config.Catalog.Source {
	case "", "embedded":
		cat, err := catalog.Embedded()
		if err != nil {
			return nil, fmt.Errorf("load embedded catalog: %w", err)
		}
		a.Log.Info("Split catalog loaded", "source", "embedded", "version", cat.Version())
		return cat, nil
	case "s3":
		if a.Storage == nil {
			return nil, fmt.Errorf("catalog source s3 requires s3.bucket_name")
		}
		cat, err := catalog.FromStorage(ctx, a.Storage, a.Config.Catalog.S3Key)
		if err != nil {
			return nil, err
		}
		a.Log.Info("Split catalog loaded", "source", "s3", "key", a.Config.Catalog.S3Key, "version", cat.Version())
		return cat, nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", a.Config.Catalog.Source)
	}
}

func (a *App) openRepositories(ctx context.Context) (*repositories, error) {
	switch a.Config.Database.Driver {
	case "memory":
		a.Log.Warn("Using in-memory storage, state is lost on restart")
		store := memory.NewStore()
		return &repositories{
			users:       store.Users(),
			exercises:   store.Exercises(),
			mesocycles:  store.Mesocycles(),
			assignments: store.Assignments(),
			recovery:    store.Recovery(),
			changes:     store.FrequencyChanges(),
			cached:      store.CachedWorkouts(),
			plans:       store.DailyPlans(),
		}, nil
	case "", "mongo":
		client, err := mongo.ConnectDB(a.Config.Database.URI)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		a.closers = append(a.closers, func() error {
			a.Log.Info("Disconnecting MongoDB...")
			return mongo.DisconnectDB(client)
		})
		db := client.Database(a.Config.Database.Name)

		idxCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(idxCtx, db); err != nil {
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		a.Log.Info("Database connection established", "database", a.Config.Database.Name)

		return &repositories{
			users:       mongo.NewMongoUserRepository(db),
			exercises:   mongo.NewMongoExerciseRepository(db),
			mesocycles:  mongo.NewMongoMesocycleRepository(db),
			assignments: mongo.NewMongoSplitAssignmentRepository(db),
			recovery:    mongo.NewMongoRecoveryRepository(db),
			changes:     mongo.NewMongoFrequencyChangeRepository(db),
			cached:      mongo.NewMongoCachedWorkoutRepository(db),
			plans:       mongo.NewMongoDailyPlanRepository(db),
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", a.Config.Database.Driver)
	}
}

// newLocker uses redis when configured so the server and worker share locks.
func (a *App) newLocker() (lock.Locker, error) {
	wait := a.Config.Periodization.LockWait
	if a.Config.Redis.Addr == "" {
		a.Log.Info("Redis not configured, using in-process user locks")
		return lock.NewKeyedMutex(wait), nil
	}
	rdb, err := lock.NewRedisClient(a.Config.Redis)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rdb.Close)
	a.Log.Info("Using redis user locks", "addr", a.Config.Redis.Addr)
	return lock.NewRedisLocker(rdb, wait, lockTTL, a.Log), nil
}

// Close releases backends in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Error("Failed to close backend", "error", err)
		}
	}
	a.closers = nil
}
