package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "fits.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveGet(t *testing.T) {
	s := openTemp(t)
	e := &Entry{
		Gene:       "EGFR",
		Parameters: map[string]float64{"A": 2, "B": 1},
		Score:      0.01,
		Payload:    json.RawMessage(`{"trace":[]}`),
		Final:      true,
	}
	if err := s.Save(e); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get("EGFR")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("entry not found")
	}
	if got.Parameters["A"] != 2 || got.Score != 0.01 || !got.Final {
		t.Errorf("roundtrip: %+v", got)
	}
	if got.Saved.IsZero() {
		t.Error("save time not set")
	}
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)
	got, err := s.Get("ABSENT")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("unexpected entry: %+v", got)
	}
	if s.Final("ABSENT") {
		t.Error("missing gene reported final")
	}
}

func TestResumeState(t *testing.T) {
	s := openTemp(t)
	if err := s.Save(&Entry{Gene: "MAPK1", Final: false}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(&Entry{Gene: "EGFR", Final: true}); err != nil {
		t.Fatal(err)
	}
	if s.Final("MAPK1") {
		t.Error("unfinished fit reported final")
	}
	if !s.Final("EGFR") {
		t.Error("finished fit not reported final")
	}
	genes, err := s.Genes()
	if err != nil {
		t.Fatal(err)
	}
	if len(genes) != 2 {
		t.Errorf("genes: %v", genes)
	}
}

func TestOverwrite(t *testing.T) {
	s := openTemp(t)
	if err := s.Save(&Entry{Gene: "EGFR", Score: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(&Entry{Gene: "EGFR", Score: 0.5, Final: true}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get("EGFR")
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != 0.5 || !got.Final {
		t.Errorf("overwrite: %+v", got)
	}
}

func TestNilStore(t *testing.T) {
	var s *Store
	if err := s.Save(&Entry{Gene: "X"}); err != nil {
		t.Error(err)
	}
	if e, err := s.Get("X"); err != nil || e != nil {
		t.Errorf("nil store get: %v %v", e, err)
	}
	if err := s.Close(); err != nil {
		t.Error(err)
	}
}
