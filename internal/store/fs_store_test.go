package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/distortfit/internal/sdp"
)

func testDoc(id string) *ResultDoc {
	return &ResultDoc{
		ID:     id,
		N:      3,
		Status: sdp.StatusOptimal,
		D:      1.0,
		G: []float64{
			1, 0.5,
			0.5, 1,
		},
		Delta: []float64{
			0, 1, 1,
			1, 0, 1,
			1, 1, 0,
		},
		Backend:        "projection",
		ElapsedSeconds: 0.05,
		Timestamp:      time.Now().UTC(),
	}
}

func TestFSStoreSaveLoad(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	doc := testDoc("result-1")
	if err := fs.SaveResult(doc.ID, doc); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	loaded, err := fs.LoadResult(doc.ID)
	if err != nil {
		t.Fatalf("LoadResult failed: %v", err)
	}
	if loaded.ID != doc.ID || loaded.N != doc.N || loaded.Status != doc.Status {
		t.Errorf("Loaded document mismatch: got %+v", loaded)
	}
	if loaded.D != doc.D || loaded.Backend != doc.Backend {
		t.Errorf("Loaded payload mismatch: got %+v", loaded)
	}
	if len(loaded.G) != 4 || len(loaded.Delta) != 9 {
		t.Errorf("Matrix lengths not preserved: G=%d Delta=%d", len(loaded.G), len(loaded.Delta))
	}
}

func TestFSStoreLoadNotFound(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	_, err = fs.LoadResult("no-such-id")
	if err == nil {
		t.Fatal("Expected error for missing result")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	var nfe *NotFoundError
	if !errors.As(err, &nfe) || nfe.ID != "no-such-id" {
		t.Errorf("Expected NotFoundError with id, got %v", err)
	}
}

func TestFSStoreSaveRejectsInvalid(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	if err := fs.SaveResult("", testDoc("x")); err == nil {
		t.Error("Expected error for empty id")
	}
	if err := fs.SaveResult("x", nil); err == nil {
		t.Error("Expected error for nil document")
	}

	doc := testDoc("bad")
	doc.N = 0
	if err := fs.SaveResult("bad", doc); err == nil {
		t.Error("Expected error for invalid document")
	}
}

func TestFSStoreList(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	infos, err := fs.ListResults()
	if err != nil {
		t.Fatalf("ListResults on empty store failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected empty listing, got %d entries", len(infos))
	}

	for _, id := range []string{"a", "b", "c"} {
		if err := fs.SaveResult(id, testDoc(id)); err != nil {
			t.Fatalf("SaveResult(%s) failed: %v", id, err)
		}
	}

	infos, err = fs.ListResults()
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(infos))
	}
	for _, info := range infos {
		if info.Status != sdp.StatusOptimal || info.N != 3 {
			t.Errorf("Unexpected listing entry: %+v", info)
		}
	}
}

func TestFSStoreListSkipsCorrupt(t *testing.T) {
	base := t.TempDir()
	fs, err := NewFSStore(base)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	if err := fs.SaveResult("good", testDoc("good")); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	corrupt := filepath.Join(base, "results", "corrupt")
	if err := os.MkdirAll(corrupt, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(corrupt, "result.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	infos, err := fs.ListResults()
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "good" {
		t.Errorf("Expected only the readable entry, got %+v", infos)
	}
}

func TestFSStoreDelete(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	if err := fs.SaveResult("gone", testDoc("gone")); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	if err := fs.DeleteResult("gone"); err != nil {
		t.Fatalf("DeleteResult failed: %v", err)
	}
	if _, err := fs.LoadResult("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	if err := fs.DeleteResult("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for double delete, got %v", err)
	}
}

func TestResultDocValidate(t *testing.T) {
	doc := testDoc("ok")
	if err := doc.Validate(); err != nil {
		t.Errorf("Valid document rejected: %v", err)
	}

	bad := testDoc("ok")
	bad.G = []float64{1, 2, 3}
	err := bad.Validate()
	if err == nil {
		t.Fatal("Expected error for mismatched Gram length")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "G" {
		t.Errorf("Expected ValidationError on G, got %v", err)
	}

	bad = testDoc("ok")
	bad.Timestamp = time.Time{}
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for zero timestamp")
	}

	// Non-optimal documents skip the payload checks.
	nonOpt := testDoc("failed")
	nonOpt.Status = sdp.StatusInfeasible
	nonOpt.D = 0
	nonOpt.G = nil
	nonOpt.Delta = nil
	if err := nonOpt.Validate(); err != nil {
		t.Errorf("Non-optimal document rejected: %v", err)
	}
}
