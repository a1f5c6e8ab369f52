package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"alcyxob/fitness-planner/internal/domain"
)

func TestEmbeddedCatalogLoads(t *testing.T) {
	c, err := Embedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	if c.Version() < 1 {
		t.Errorf("expected positive version, got %d", c.Version())
	}
	for _, typ := range []domain.SplitType{domain.SplitFullBody, domain.SplitUpperLower, domain.SplitPushPullLegs, domain.SplitBodyPart} {
		if len(c.ByType(typ)) == 0 {
			t.Errorf("expected splits of type %s", typ)
		}
	}
	ppl := c.ByType(domain.SplitPushPullLegs)
	if len(ppl) != 3 || ppl[0].ID != "push" || ppl[1].ID != "pull" || ppl[2].ID != "legs" {
		t.Errorf("unexpected push/pull/legs order: %+v", ppl)
	}
	if len(c.Exercises()) == 0 {
		t.Error("expected exercise bank seed")
	}
}

func TestExcludedUnion(t *testing.T) {
	c, err := Embedded()
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	ex := c.Excluded([]domain.Limitation{domain.LimitationKnee})
	for _, g := range []domain.MuscleGroup{domain.MuscleLegs, domain.MuscleGlutes, domain.MuscleCalves} {
		if !ex[g] {
			t.Errorf("knee_issues should exclude %s", g)
		}
	}
	if ex[domain.MuscleChest] {
		t.Error("knee_issues should not exclude chest")
	}
	if len(c.Excluded([]domain.Limitation{domain.LimitationHeart})) != 0 {
		t.Error("heart_condition should not exclude muscle groups structurally")
	}
	if c.Advisory(domain.LimitationHeart) == "" {
		t.Error("heart_condition should carry an intensity advisory")
	}
}

func TestLoadRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown muscle group",
			doc: `splits:
  - {id: x, name: X, type: full_body, muscle_groups: [wings], recovery_hours: 48}`,
			want: "unknown muscle group",
		},
		{
			name: "duplicate id",
			doc: `splits:
  - {id: x, name: X, type: full_body, muscle_groups: [chest], recovery_hours: 48}
  - {id: x, name: Y, type: full_body, muscle_groups: [back], recovery_hours: 48}`,
			want: "duplicate split id",
		},
		{
			name: "unknown limitation",
			doc: `limitations:
  - {tag: bad_knees, excludes: [legs]}`,
			want: "unknown limitation tag",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

type fakeReader struct {
	data []byte
	err  error
}

func (f fakeReader) GetObject(ctx context.Context, key string) ([]byte, error) {
	return f.data, f.err
}

func TestFromStorage(t *testing.T) {
	if _, err := FromStorage(context.Background(), fakeReader{data: embeddedCatalog}, "catalog.yaml"); err != nil {
		t.Fatalf("expected catalog from storage, got %v", err)
	}
	_, err := FromStorage(context.Background(), fakeReader{err: errors.New("boom")}, "catalog.yaml")
	if err == nil {
		t.Fatal("expected storage error to propagate")
	}
}
