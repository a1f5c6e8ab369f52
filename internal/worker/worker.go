// Package worker runs the cross-user batch jobs: migration sweeps, cache
// warm-up and catalog publishing. The engine owns no timers; these jobs are
// triggered by the worker CLI, by cron, or by the admin HTTP endpoints.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"alcyxob/fitness-planner/internal/catalog"
	"alcyxob/fitness-planner/internal/logger"
	"alcyxob/fitness-planner/internal/service"

	"github.com/robfig/cron"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const catalogContentType = "application/yaml"

type CacheWarmer interface {
	WarmAll(ctx context.Context) (*service.WarmResult, error)
}

type Sweeper interface {
	DetectIncompatible(ctx context.Context, userID *primitive.ObjectID) ([]service.IncompatibleMesocycle, error)
	MigrateAll(ctx context.Context, userID *primitive.ObjectID) (*service.SweepResult, error)
}

// ObjectWriter is the slice of object storage catalog publishing needs.
type ObjectWriter interface {
	PutObject(ctx context.Context, objectKey string, contentType string, body []byte) error
}

type SweepReport struct {
	Flagged []service.IncompatibleMesocycle `json:"flagged"`
	Result  *service.SweepResult            `json:"result,omitempty"` // nil on a dry run
}

type Runner struct {
	cache   CacheWarmer
	sweeper Sweeper
	objects ObjectWriter // nil when no bucket is configured
	log     *logger.Logger
	running int32
}

func NewRunner(cache CacheWarmer, sweeper Sweeper, objects ObjectWriter, log *logger.Logger) *Runner {
	return &Runner{
		cache:   cache,
		sweeper: sweeper,
		objects: objects,
		log:     log.With("service", "Worker"),
	}
}

func (r *Runner) WarmCache(ctx context.Context) (*service.WarmResult, error) {
	res, err := r.cache.WarmAll(ctx)
	if err != nil {
		return res, fmt.Errorf("warm cache: %w", err)
	}
	r.log.Info("Cache warm-up finished", "users", res.Users, "regenerated", res.Regenerated, "failed", res.Failed)
	return res, nil
}

// Sweep flags incompatible mesocycles and, unless dryRun, migrates them.
// A nil userID sweeps every user.
func (r *Runner) Sweep(ctx context.Context, userID *primitive.ObjectID, dryRun bool) (*SweepReport, error) {
	flagged, err := r.sweeper.DetectIncompatible(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("detect incompatible mesocycles: %w", err)
	}
	report := &SweepReport{Flagged: flagged}
	if dryRun || len(flagged) == 0 {
		r.log.Info("Sweep finished", "flagged", len(flagged), "dry_run", dryRun)
		return report, nil
	}

	if report.Result, err = r.sweeper.MigrateAll(ctx, userID); err != nil {
		return report, fmt.Errorf("migrate mesocycles: %w", err)
	}
	r.log.Info("Sweep finished",
		"flagged", len(flagged),
		"migrated", report.Result.Migrated,
		"failures", len(report.Result.Failures),
	)
	return report, nil
}

// RunDaily sweeps first so the warm-up sees the migrated schedules.
func (r *Runner) RunDaily(ctx context.Context) error {
	if _, err := r.Sweep(ctx, nil, false); err != nil {
		r.log.Error("Daily sweep failed", "error", err)
	}
	_, err := r.WarmCache(ctx)
	return err
}

// Schedule runs RunDaily on a cron spec with a seconds field until ctx is done.
// A run that is still going when the next one fires makes the next one a no-op.
func (r *Runner) Schedule(ctx context.Context, spec string) error {
	c := cron.New()
	err := c.AddFunc(spec, func() {
		if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
			r.log.Warn("Previous daily run still in progress, skipping")
			return
		}
		defer atomic.StoreInt32(&r.running, 0)
		if err := r.RunDaily(ctx); err != nil {
			r.log.Error("Daily run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	r.log.Info("Worker scheduled", "spec", spec)
	c.Start()
	<-ctx.Done()
	c.Stop()
	r.log.Info("Worker schedule stopped")
	return nil
}

// PublishCatalog validates a catalog document and uploads it as the revision
// servers load with catalog.source=s3.
func (r *Runner) PublishCatalog(ctx context.Context, data []byte, key string) (*catalog.Catalog, error) {
	if r.objects == nil {
		return nil, fmt.Errorf("publish catalog: no object storage configured")
	}
	cat, err := catalog.Load(data)
	if err != nil {
		return nil, err
	}
	if err := r.objects.PutObject(ctx, key, catalogContentType, data); err != nil {
		return nil, fmt.Errorf("upload catalog: %w", err)
	}
	r.log.Info("Catalog published", "key", key, "version", cat.Version(), "splits", len(cat.All()))
	return cat, nil
}
