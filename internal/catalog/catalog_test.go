package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ashureev/selfexplain/internal/domain"
)

func TestLoadMissingFilePersistsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "concepts.json")
	cat, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cat.Len() == 0 {
		t.Fatal("expected default concepts")
	}

	// Defaults must be written back so the next startup reads them from disk.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected persisted catalog file: %v", err)
	}
	var f conceptFile
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("persisted catalog is not valid JSON: %v", err)
	}
	if len(f.Concepts) != cat.Len() {
		t.Fatalf("persisted %d concepts, catalog has %d", len(f.Concepts), cat.Len())
	}
}

func TestLoadReadsExistingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "concepts.json")
	content := `{"concepts": [{"name": "Correlation", "golden_answer": "Correlation measures strength and direction between two variables."}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cat.Len() != 1 {
		t.Fatalf("expected 1 concept, got %d", cat.Len())
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	cat, err := New([]domain.Concept{
		{Name: "Correlation", ReferenceAnswer: "ref"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, name := range []string{"Correlation", "correlation", " CORRELATION "} {
		c, err := cat.Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q) failed: %v", name, err)
		}
		if c.Name != "Correlation" {
			t.Fatalf("Lookup(%q) = %q", name, c.Name)
		}
	}

	if _, err := cat.Lookup("Regression"); err == nil {
		t.Fatal("expected error for unknown concept")
	}
}

func TestNextFollowsCatalogOrder(t *testing.T) {
	t.Parallel()

	cat, err := New([]domain.Concept{
		{Name: "A", ReferenceAnswer: "a"},
		{Name: "B", ReferenceAnswer: "b"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	next, ok := cat.Next("a")
	if !ok || next.Name != "B" {
		t.Fatalf("Next(A) = %q, ok=%v", next.Name, ok)
	}
	if _, ok := cat.Next("B"); ok {
		t.Fatal("expected no concept after the last one")
	}
}

func TestNewRejectsDuplicatesAndEmptyFields(t *testing.T) {
	t.Parallel()

	if _, err := New([]domain.Concept{
		{Name: "A", ReferenceAnswer: "a"},
		{Name: "a", ReferenceAnswer: "b"},
	}); err == nil {
		t.Fatal("expected duplicate name error")
	}

	if _, err := New([]domain.Concept{{Name: "A"}}); err == nil {
		t.Fatal("expected error for missing golden answer")
	}
}
