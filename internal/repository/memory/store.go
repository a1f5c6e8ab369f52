// Package memory implements every repository in process memory. It backs the
// database.driver=memory mode and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"alcyxob/fitness-planner/internal/domain"
	"alcyxob/fitness-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds all collections behind one lock, so multi-collection writes are atomic.
type Store struct {
	mu          sync.RWMutex
	users       map[primitive.ObjectID]domain.User
	mesocycles  map[primitive.ObjectID]domain.Mesocycle
	assignments map[primitive.ObjectID][]domain.SplitAssignment
	recovery    map[primitive.ObjectID]map[domain.MuscleGroup]domain.MuscleRecoveryRecord
	changes     map[primitive.ObjectID]domain.FrequencyChangeRecord
	cached      map[primitive.ObjectID]domain.CachedWorkout
	plans       map[primitive.ObjectID]domain.DailyPlan
	exercises   []domain.Exercise
}

func NewStore() *Store {
	return &Store{
		users:       make(map[primitive.ObjectID]domain.User),
		mesocycles:  make(map[primitive.ObjectID]domain.Mesocycle),
		assignments: make(map[primitive.ObjectID][]domain.SplitAssignment),
		recovery:    make(map[primitive.ObjectID]map[domain.MuscleGroup]domain.MuscleRecoveryRecord),
		changes:     make(map[primitive.ObjectID]domain.FrequencyChangeRecord),
		cached:      make(map[primitive.ObjectID]domain.CachedWorkout),
		plans:       make(map[primitive.ObjectID]domain.DailyPlan),
	}
}

func (s *Store) Users() repository.UserRepository                       { return userRepo{s} }
func (s *Store) Mesocycles() repository.MesocycleRepository             { return mesocycleRepo{s} }
func (s *Store) Assignments() repository.SplitAssignmentRepository      { return assignmentRepo{s} }
func (s *Store) Recovery() repository.RecoveryRepository                { return recoveryRepo{s} }
func (s *Store) FrequencyChanges() repository.FrequencyChangeRepository { return changeRepo{s} }
func (s *Store) CachedWorkouts() repository.CachedWorkoutRepository     { return cachedRepo{s} }
func (s *Store) DailyPlans() repository.DailyPlanRepository             { return planRepo{s} }
func (s *Store) Exercises() repository.ExerciseRepository               { return exerciseRepo{s} }

// --- users ---

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return user.ID, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, profile domain.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Profile = profile
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return nil
}

func (r userRepo) UpdatePreferences(ctx context.Context, id primitive.ObjectID, prefs domain.Preferences) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Preferences = prefs
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return nil
}

// --- mesocycles ---

type mesocycleRepo struct{ s *Store }

func (r mesocycleRepo) Create(ctx context.Context, m *domain.Mesocycle) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.Status == domain.MesocycleActive {
		for _, existing := range r.s.mesocycles {
			if existing.UserID == m.UserID && existing.Status == domain.MesocycleActive {
				return primitive.NilObjectID, repository.ErrDuplicate
			}
		}
	}
	m.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	r.s.mesocycles[m.ID] = *m
	return m.ID, nil
}

func (r mesocycleRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Mesocycle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.mesocycles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r mesocycleRepo) GetByUserAndStatus(ctx context.Context, userID primitive.ObjectID, status domain.MesocycleStatus) (*domain.Mesocycle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found *domain.Mesocycle
	for _, m := range r.s.mesocycles {
		if m.UserID != userID || m.Status != status {
			continue
		}
		if found == nil || m.CreatedAt.After(found.CreatedAt) {
			m := m
			found = &m
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r mesocycleRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Mesocycle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Mesocycle
	for _, m := range r.s.mesocycles {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sortMesocycles(out)
	return out, nil
}

func (r mesocycleRepo) ListActive(ctx context.Context) ([]domain.Mesocycle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Mesocycle
	for _, m := range r.s.mesocycles {
		if m.Status == domain.MesocycleActive {
			out = append(out, m)
		}
	}
	sortMesocycles(out)
	return out, nil
}

// newest first; ObjectIDs break ties between rows created in the same instant
func sortMesocycles(ms []domain.Mesocycle) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.After(ms[j].CreatedAt)
		}
		return ms[i].ID.Hex() > ms[j].ID.Hex()
	})
}

func (r mesocycleRepo) Transition(ctx context.Context, id primitive.ObjectID, from, to domain.MesocycleStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mesocycles[id]
	if !ok {
		return repository.ErrNotFound
	}
	if m.Status != from {
		return repository.ErrStateChanged
	}
	if to == domain.MesocycleActive {
		for otherID, other := range r.s.mesocycles {
			if otherID != id && other.UserID == m.UserID && other.Status == domain.MesocycleActive {
				return repository.ErrDuplicate
			}
		}
	}
	m.Status = to
	m.UpdatedAt = at
	if to == domain.MesocycleCompleted {
		completed := at
		m.CompletedAt = &completed
	}
	r.s.mesocycles[id] = m
	return nil
}

// --- split assignments ---

type assignmentRepo struct{ s *Store }

func (r assignmentRepo) ReplaceForUser(ctx context.Context, userID primitive.ObjectID, assignments []domain.SplitAssignment) error {
	seen := make(map[domain.Weekday]bool, len(assignments))
	rows := make([]domain.SplitAssignment, 0, len(assignments))
	now := time.Now().UTC()
	for _, a := range assignments {
		if seen[a.Weekday] {
			return repository.ErrDuplicate
		}
		seen[a.Weekday] = true
		a.ID = primitive.NewObjectID()
		a.UserID = userID
		a.CreatedAt = now
		rows = append(rows, a)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Weekday < rows[j].Weekday })

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(rows) == 0 {
		delete(r.s.assignments, userID)
		return nil
	}
	r.s.assignments[userID] = rows
	return nil
}

func (r assignmentRepo) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.SplitAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := r.s.assignments[userID]
	out := make([]domain.SplitAssignment, len(rows))
	copy(out, rows)
	return out, nil
}

func (r assignmentRepo) GetByUserAndWeekday(ctx context.Context, userID primitive.ObjectID, weekday domain.Weekday) (*domain.SplitAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.assignments[userID] {
		if a.Weekday == weekday {
			a := a
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r assignmentRepo) ListUserIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]primitive.ObjectID, 0, len(r.s.assignments))
	for id := range r.s.assignments {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out, nil
}

// --- recovery ---

type recoveryRepo struct{ s *Store }

func (r recoveryRepo) Upsert(ctx context.Context, records []domain.MuscleRecoveryRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range records {
		byGroup, ok := r.s.recovery[rec.UserID]
		if !ok {
			byGroup = make(map[domain.MuscleGroup]domain.MuscleRecoveryRecord)
			r.s.recovery[rec.UserID] = byGroup
		}
		if existing, ok := byGroup[rec.MuscleGroup]; ok {
			rec.ID = existing.ID
		} else {
			rec.ID = primitive.NewObjectID()
		}
		byGroup[rec.MuscleGroup] = rec
	}
	return nil
}

func (r recoveryRepo) GetByUser(ctx context.Context, userID primitive.ObjectID, groups []domain.MuscleGroup) ([]domain.MuscleRecoveryRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	byGroup := r.s.recovery[userID]
	var out []domain.MuscleRecoveryRecord
	for _, g := range groups {
		if rec, ok := byGroup[g]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// --- frequency changes ---

type changeRepo struct{ s *Store }

func (r changeRepo) Create(ctx context.Context, rec *domain.FrequencyChangeRecord) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec.ID = primitive.NewObjectID()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.s.changes[rec.ID] = *rec
	return rec.ID, nil
}

func (r changeRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.FrequencyChangeRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.changes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (r changeRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.FrequencyChangeRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.FrequencyChangeRecord
	for _, rec := range r.s.changes {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (r changeRepo) CancelPending(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, rec := range r.s.changes {
		if rec.UserID == userID && rec.Status == domain.ChangePending {
			rec.Status = domain.ChangeCancelled
			r.s.changes[id] = rec
			n++
		}
	}
	return n, nil
}

func (r changeRepo) MarkCancelled(ctx context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.changes[id]
	if !ok {
		return repository.ErrNotFound
	}
	if rec.Status != domain.ChangePending {
		return repository.ErrStateChanged
	}
	rec.Status = domain.ChangeCancelled
	r.s.changes[id] = rec
	return nil
}

func (r changeRepo) MarkProcessed(ctx context.Context, id primitive.ObjectID, decision domain.FrequencyDecision, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.changes[id]
	if !ok {
		return repository.ErrNotFound
	}
	if rec.Status != domain.ChangePending {
		return repository.ErrStateChanged
	}
	rec.Status = domain.ChangeProcessed
	rec.Decision = decision
	rec.ProcessedAt = &at
	r.s.changes[id] = rec
	return nil
}

func (r changeRepo) HasKeepCurrent(ctx context.Context, mesocycleID primitive.ObjectID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rec := range r.s.changes {
		if rec.MesocycleID != nil && *rec.MesocycleID == mesocycleID &&
			rec.Status == domain.ChangeProcessed && rec.Decision == domain.DecisionKeepCurrent {
			return true, nil
		}
	}
	return false, nil
}

// --- cached workouts and daily plans ---

type cachedRepo struct{ s *Store }

func (r cachedRepo) InsertIfAbsent(ctx context.Context, w *domain.CachedWorkout) (*domain.CachedWorkout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	date := domain.DateOnly(w.TargetDate)
	for _, existing := range r.s.cached {
		if existing.UserID == w.UserID && !existing.Consumed && existing.TargetDate.Equal(date) {
			return &existing, nil
		}
	}
	w.ID = primitive.NewObjectID()
	w.TargetDate = date
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	r.s.cached[w.ID] = *w
	return w, nil
}

func (r cachedRepo) GetUnconsumed(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.CachedWorkout, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	date = domain.DateOnly(date)
	for _, w := range r.s.cached {
		if w.UserID == userID && !w.Consumed && w.TargetDate.Equal(date) {
			return &w, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r cachedRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.CachedWorkout, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	var out []domain.CachedWorkout
	for _, w := range r.s.cached {
		if w.UserID == userID && !w.TargetDate.Before(from) && w.TargetDate.Before(to) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetDate.Before(out[j].TargetDate) })
	return out, nil
}

func (r cachedRepo) ReplaceWindow(ctx context.Context, userID primitive.ObjectID, from time.Time, entries []domain.CachedWorkout) error {
	from = domain.DateOnly(from)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, w := range r.s.cached {
		if w.UserID == userID && !w.Consumed && !w.TargetDate.Before(from) {
			delete(r.s.cached, id)
		}
	}
	now := time.Now().UTC()
	for _, w := range entries {
		w.ID = primitive.NewObjectID()
		w.UserID = userID
		w.TargetDate = domain.DateOnly(w.TargetDate)
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		r.s.cached[w.ID] = w
	}
	return nil
}

func (r cachedRepo) DeleteUnconsumedBefore(ctx context.Context, userID primitive.ObjectID, before time.Time) (int64, error) {
	before = domain.DateOnly(before)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, w := range r.s.cached {
		if w.UserID == userID && !w.Consumed && w.TargetDate.Before(before) {
			delete(r.s.cached, id)
			n++
		}
	}
	return n, nil
}

func (r cachedRepo) Transfer(ctx context.Context, cachedID primitive.ObjectID, plan *domain.DailyPlan) (*domain.DailyPlan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	date := domain.DateOnly(plan.Date)
	for _, existing := range r.s.plans {
		if existing.UserID == plan.UserID && existing.Date.Equal(date) {
			return &existing, nil
		}
	}
	w, ok := r.s.cached[cachedID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if w.Consumed {
		return nil, repository.ErrStateChanged
	}
	now := time.Now().UTC()
	w.Consumed = true
	w.ConsumedAt = &now
	r.s.cached[cachedID] = w

	plan.ID = primitive.NewObjectID()
	plan.Date = date
	plan.CachedWorkoutID = cachedID
	plan.CreatedAt = now
	r.s.plans[plan.ID] = *plan
	return plan, nil
}

type planRepo struct{ s *Store }

func (r planRepo) GetByUserAndDate(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.DailyPlan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	date = domain.DateOnly(date)
	for _, p := range r.s.plans {
		if p.UserID == userID && p.Date.Equal(date) {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r planRepo) MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Completed {
		return repository.ErrStateChanged
	}
	p.Completed = true
	p.CompletedAt = &at
	r.s.plans[id] = p
	return nil
}

func (r planRepo) CountCompleted(ctx context.Context, userID primitive.ObjectID, from, to time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	var n int64
	for _, p := range r.s.plans {
		if p.UserID == userID && p.Completed && !p.Date.Before(from) && p.Date.Before(to) {
			n++
		}
	}
	return n, nil
}

// --- exercises ---

type exerciseRepo struct{ s *Store }

func (r exerciseRepo) Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	exercise.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	exercise.CreatedAt, exercise.UpdatedAt = now, now
	r.s.exercises = append(r.s.exercises, *exercise)
	return exercise.ID, nil
}

func (r exerciseRepo) GetByMuscleGroups(ctx context.Context, groups []domain.MuscleGroup) ([]domain.Exercise, error) {
	want := make(map[domain.MuscleGroup]bool, len(groups))
	for _, g := range groups {
		want[g] = true
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Exercise
	for _, e := range r.s.exercises {
		if want[e.MuscleGroup] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r exerciseRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.exercises)), nil
}
