package checkpoint

import (
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"
)

func TestSaveLoad(tst *testing.T) {
	db, err := bolt.Open(filepath.Join(tst.TempDir(), "cp.db"), 0600, nil)
	if err != nil {
		tst.Fatal("Error opening database:", err)
	}
	defer db.Close()

	s := NewIO(db, []byte("run"), 0)
	if data, err := s.Load(); err != nil || data != nil {
		tst.Fatal("Expected no checkpoint, got", data, err)
	}

	saved := &Data{Attempt: 7, NegLogLike: -12.5, X: []float64{0.3, 1.01, 0.99}}
	if err := s.Save(saved); err != nil {
		tst.Fatal("Error saving checkpoint:", err)
	}

	data, err := s.Load()
	if err != nil {
		tst.Fatal("Error loading checkpoint:", err)
	}
	if data == nil {
		tst.Fatal("Missing checkpoint")
	}
	if data.Attempt != 7 || data.NegLogLike != -12.5 || len(data.X) != 3 {
		tst.Error("Checkpoint mismatch:", data)
	}
	if data.Final {
		tst.Error("Unexpected final flag")
	}
}

func TestNilDB(tst *testing.T) {
	s := NewIO(nil, []byte("run"), 0)
	if err := s.Save(&Data{Attempt: 1, X: []float64{1}}); err != nil {
		tst.Error("Save with nil db must be a no-op, got", err)
	}
	if data, err := s.Load(); err != nil || data != nil {
		tst.Error("Load with nil db must be a no-op, got", data, err)
	}
}
