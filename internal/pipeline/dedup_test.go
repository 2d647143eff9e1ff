package pipeline

import (
	"reflect"
	"testing"

	"github.com/codeatlas/codeatlas/internal/models"
)

func normalized(kind models.EntityKind, name, source, file string, line int) models.NormalizedEntity {
	return models.NormalizedEntity{
		RawEntity: models.RawEntity{
			Kind:     kind,
			Name:     name,
			Source:   source,
			FilePath: file,
			Line:     line,
		},
		Occurrences: 1,
	}
}

func TestMerge_CollapsesByIdentity(t *testing.T) {
	dedup := NewDeduplicator()

	entities := []models.NormalizedEntity{
		normalized(models.KindImport, "express", "express", "src/app.ts", 1),
		normalized(models.KindFunction, "getUser", "", "src/users.ts", 10),
		normalized(models.KindImport, "express", "express", "src/server.ts", 2),
		normalized(models.KindImport, "express", "express", "src/routes.ts", 3),
	}

	merged := dedup.Merge(entities)

	if len(merged) != 2 {
		t.Fatalf("merged to %d entities, want 2", len(merged))
	}

	express := merged[0]
	if express.Name != "express" {
		t.Fatalf("first merged entity is %s, want express (first seen order)", express.Name)
	}
	if express.Occurrences != 3 {
		t.Errorf("occurrences = %d, want 3", express.Occurrences)
	}

	wantProvenance := []string{"src/server.ts:2", "src/routes.ts:3"}
	if !reflect.DeepEqual(express.MergedFrom, wantProvenance) {
		t.Errorf("merged_from = %v, want %v", express.MergedFrom, wantProvenance)
	}

	if merged[1].Name != "getUser" || merged[1].Occurrences != 1 {
		t.Errorf("unexpected second entity: %+v", merged[1])
	}
}

func TestMerge_DistinctSourcesStaySeparate(t *testing.T) {
	dedup := NewDeduplicator()

	merged := dedup.Merge([]models.NormalizedEntity{
		normalized(models.KindImport, "Router", "express", "src/a.ts", 1),
		normalized(models.KindImport, "Router", "@angular/router", "src/b.ts", 1),
	})

	if len(merged) != 2 {
		t.Fatalf("merged to %d entities, want 2", len(merged))
	}
	for _, e := range merged {
		if e.Occurrences != 1 {
			t.Errorf("%s@%s occurrences = %d, want 1", e.Name, e.Source, e.Occurrences)
		}
	}
}

func TestMerge_UnionsSpecifiersSorted(t *testing.T) {
	dedup := NewDeduplicator()

	a := normalized(models.KindImport, "express", "express", "src/a.ts", 1)
	a.Specifiers = []string{"Router", "json"}
	b := normalized(models.KindImport, "express", "express", "src/b.ts", 1)
	b.Specifiers = []string{"Request", "Router"}

	merged := dedup.Merge([]models.NormalizedEntity{a, b})

	want := []string{"Request", "Router", "json"}
	if !reflect.DeepEqual(merged[0].Specifiers, want) {
		t.Errorf("specifiers = %v, want %v", merged[0].Specifiers, want)
	}
}

func TestMerge_KeepsHighestRelevance(t *testing.T) {
	dedup := NewDeduplicator()

	a := normalized(models.KindFunction, "getUser", "", "src/a.ts", 1)
	a.RelevanceScore = 0.6
	b := normalized(models.KindFunction, "getUser", "", "src/b.ts", 5)
	b.RelevanceScore = 0.8

	merged := dedup.Merge([]models.NormalizedEntity{a, b})

	if merged[0].RelevanceScore != 0.8 {
		t.Errorf("relevance = %v, want 0.8", merged[0].RelevanceScore)
	}
}

func TestMerge_TotalOccurrencesPreserved(t *testing.T) {
	dedup := NewDeduplicator()

	entities := []models.NormalizedEntity{
		normalized(models.KindCall, "fetch", "", "src/a.ts", 1),
		normalized(models.KindCall, "fetch", "", "src/a.ts", 9),
		normalized(models.KindFunction, "getUser", "", "src/a.ts", 3),
		normalized(models.KindCall, "fetch", "", "src/b.ts", 2),
	}

	merged := dedup.Merge(entities)

	total := 0
	for _, e := range merged {
		total += e.Occurrences
	}
	if total != len(entities) {
		t.Errorf("total occurrences = %d, want %d", total, len(entities))
	}
}
