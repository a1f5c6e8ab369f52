package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"alcyxob/fitness-planner/internal/catalog"
	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/generator"
	"alcyxob/fitness-planner/internal/lock"
	"alcyxob/fitness-planner/internal/logger"
	"alcyxob/fitness-planner/internal/repository/memory"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// monday is the reference "today" for the service tests.
var monday = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	err      error
	block    bool
	requests []generator.Request
	// onGenerate runs on every call, outside the provider's lock.
	onGenerate func()
}

func (p *fakeProvider) Generate(ctx context.Context, req generator.Request) (*domain.WorkoutContent, error) {
	p.mu.Lock()
	p.calls++
	p.requests = append(p.requests, req)
	err, block, hook := p.err, p.block, p.onGenerate
	p.mu.Unlock()

	if hook != nil {
		hook()
	}

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &domain.WorkoutContent{
		Title:     req.SplitName,
		Exercises: []domain.WorkoutExercise{{Name: "Generated Move", Sets: 3, Reps: "10"}},
	}, nil
}

func (p *fakeProvider) set(err error, block bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err, p.block = err, block
}

func (p *fakeProvider) setHook(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onGenerate = fn
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type engine struct {
	store       *memory.Store
	clock       *testClock
	catalog     *catalog.Catalog
	filter      SafetyFilter
	recovery    RecoveryTracker
	exercises   ExerciseService
	cache       WorkoutCacheService
	splits      SplitService
	mesocycles  MesocycleService
	frequencies FrequencyService
	users       UserService
	provider    *fakeProvider
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	cat, err := catalog.Embedded()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return newEngineWithCatalog(t, cat)
}

func newEngineWithCatalog(t *testing.T, cat *catalog.Catalog) *engine {
	t.Helper()
	log := logger.NewNop()
	store := memory.NewStore()
	clock := &testClock{now: monday}
	locker := lock.NewKeyedMutex(time.Second)
	provider := &fakeProvider{}

	e := &engine{store: store, clock: clock, catalog: cat, provider: provider}
	e.filter = NewSafetyFilter(cat)
	e.recovery = NewRecoveryTracker(store.Recovery(), 48, clock.Now, log)
	e.exercises = NewExerciseService(store.Exercises(), log)
	e.cache = NewWorkoutCacheService(
		store.Users(), store.Assignments(), store.CachedWorkouts(), store.DailyPlans(),
		e.exercises, e.recovery, e.filter, provider, locker,
		CacheSettings{LookaheadDays: 7, Concurrency: 2, GenerationTimeout: 50 * time.Millisecond},
		clock.Now, log,
	)
	e.splits = NewSplitService(cat, e.filter, store.Users(), store.Assignments(), store.Mesocycles(), e.cache, locker, 48, log)
	e.mesocycles = NewMesocycleService(store.Mesocycles(), store.Users(), store.DailyPlans(), e.splits, locker, 6, clock.Now, log)
	e.frequencies = NewFrequencyService(store.FrequencyChanges(), store.Users(), store.Mesocycles(), e.mesocycles, e.cache, locker, clock.Now, log)
	e.users = NewUserService(store.Users(), store.Assignments(), e.frequencies, e.splits, e.filter, locker, log)

	if _, err := e.exercises.SeedBank(context.Background(), cat.Exercises()); err != nil {
		t.Fatalf("seed bank: %v", err)
	}
	return e
}

func (e *engine) newUser(t *testing.T, frequency int, limitations ...domain.Limitation) primitive.ObjectID {
	t.Helper()
	u := &domain.User{
		Name:  "Test User",
		Email: primitive.NewObjectID().Hex() + "@example.com",
		Role:  domain.RoleUser,
		Preferences: domain.Preferences{
			WeeklyFrequency: frequency,
			Limitations:     limitations,
		},
	}
	id, err := e.store.Users().Create(context.Background(), u)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func (e *engine) activeCount(t *testing.T, userID primitive.ObjectID) int {
	t.Helper()
	list, err := e.store.Mesocycles().ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("list mesocycles: %v", err)
	}
	n := 0
	for _, m := range list {
		if m.Status == domain.MesocycleActive {
			n++
		}
	}
	return n
}
