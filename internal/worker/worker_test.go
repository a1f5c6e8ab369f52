package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"alcyxob/fitness-planner/internal/logger"
	"alcyxob/fitness-planner/internal/service"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeCache struct{ rec *recorder }

func (f fakeCache) WarmAll(ctx context.Context) (*service.WarmResult, error) {
	f.rec.add("warm")
	return &service.WarmResult{Users: 2, Regenerated: 2}, nil
}

type fakeSweeper struct {
	rec     *recorder
	flagged int
	err     error
}

func (f fakeSweeper) DetectIncompatible(ctx context.Context, userID *primitive.ObjectID) ([]service.IncompatibleMesocycle, error) {
	f.rec.add("detect")
	if f.err != nil {
		return nil, f.err
	}
	return make([]service.IncompatibleMesocycle, f.flagged), nil
}

func (f fakeSweeper) MigrateAll(ctx context.Context, userID *primitive.ObjectID) (*service.SweepResult, error) {
	f.rec.add("migrate")
	return &service.SweepResult{Migrated: f.flagged}, nil
}

type fakeObjects struct {
	keys map[string][]byte
}

func (f *fakeObjects) PutObject(ctx context.Context, objectKey string, contentType string, body []byte) error {
	if f.keys == nil {
		f.keys = make(map[string][]byte)
	}
	f.keys[objectKey] = body
	return nil
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSweep(t *testing.T) {
	tests := []struct {
		name    string
		flagged int
		dryRun  bool
		want    []string
	}{
		{"migrates flagged", 2, false, []string{"detect", "migrate"}},
		{"dry run only detects", 2, true, []string{"detect"}},
		{"nothing flagged", 0, false, []string{"detect"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			r := NewRunner(fakeCache{rec}, fakeSweeper{rec: rec, flagged: tt.flagged}, nil, logger.NewNop())
			report, err := r.Sweep(context.Background(), nil, tt.dryRun)
			if err != nil {
				t.Fatalf("sweep: %v", err)
			}
			if got := rec.snapshot(); !equal(got, tt.want) {
				t.Errorf("expected calls %v, got %v", tt.want, got)
			}
			if len(report.Flagged) != tt.flagged {
				t.Errorf("expected %d flagged, got %d", tt.flagged, len(report.Flagged))
			}
			if migrated := report.Result != nil; migrated != (len(tt.want) == 2) {
				t.Errorf("unexpected result %+v", report.Result)
			}
		})
	}
}

func TestRunDailySweepsThenWarms(t *testing.T) {
	rec := &recorder{}
	r := NewRunner(fakeCache{rec}, fakeSweeper{rec: rec, flagged: 1}, nil, logger.NewNop())
	if err := r.RunDaily(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got, want := rec.snapshot(), []string{"detect", "migrate", "warm"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRunDailyWarmsAfterFailedSweep(t *testing.T) {
	rec := &recorder{}
	r := NewRunner(fakeCache{rec}, fakeSweeper{rec: rec, err: errors.New("mongo down")}, nil, logger.NewNop())
	if err := r.RunDaily(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got, want := rec.snapshot(), []string{"detect", "warm"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	r := NewRunner(fakeCache{&recorder{}}, fakeSweeper{rec: &recorder{}}, nil, logger.NewNop())
	if err := r.Schedule(context.Background(), "every day at three"); err == nil {
		t.Fatal("expected an error for an invalid spec")
	}
}

func TestScheduleFires(t *testing.T) {
	rec := &recorder{}
	r := NewRunner(fakeCache{rec}, fakeSweeper{rec: rec}, nil, logger.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	if err := r.Schedule(ctx, "* * * * * *"); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	warmed := 0
	for _, call := range rec.snapshot() {
		if call == "warm" {
			warmed++
		}
	}
	if warmed == 0 {
		t.Error("expected at least one run within the window")
	}
}

func TestPublishCatalog(t *testing.T) {
	data, err := os.ReadFile("../catalog/catalog.yaml")
	if err != nil {
		t.Fatalf("read catalog: %v", err)
	}
	objects := &fakeObjects{}
	r := NewRunner(fakeCache{&recorder{}}, fakeSweeper{rec: &recorder{}}, objects, logger.NewNop())

	cat, err := r.PublishCatalog(context.Background(), data, "catalog/v2.yaml")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(cat.All()) == 0 {
		t.Error("expected splits in the published catalog")
	}
	if _, ok := objects.keys["catalog/v2.yaml"]; !ok {
		t.Error("catalog was not uploaded")
	}

	if _, err := r.PublishCatalog(context.Background(), []byte("splits: [{id: x}]"), "catalog/bad.yaml"); err == nil {
		t.Error("expected invalid catalog to be rejected")
	}
	if _, ok := objects.keys["catalog/bad.yaml"]; ok {
		t.Error("invalid catalog must not be uploaded")
	}
}

func TestPublishCatalogWithoutStorage(t *testing.T) {
	r := NewRunner(fakeCache{&recorder{}}, fakeSweeper{rec: &recorder{}}, nil, logger.NewNop())
	if _, err := r.PublishCatalog(context.Background(), []byte("version: 1"), "k"); err == nil {
		t.Error("expected an error without object storage")
	}
}
