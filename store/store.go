// Package store persists per-gene fit results in a bolt database so
// interrupted runs can resume without refitting finished genes.
package store

import (
	"encoding/json"
	"time"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"
)

// log is the global logging variable.
var log = logging.MustGetLogger("store")

// FITS is the bucket holding one entry per gene.
var FITS = []byte("fits")

// Entry wraps a stored fit with its run state.
type Entry struct {
	Gene       string
	Parameters map[string]float64
	Score      float64
	Payload    json.RawMessage
	Final      bool
	Saved      time.Time
}

// Store reads and writes fit entries.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores an entry under its gene name.
func (s *Store) Save(e *Entry) error {
	if s == nil || s.db == nil {
		return nil
	}
	e.Saved = time.Now()
	data, err := json.Marshal(e)
	if err != nil {
		log.Error("Error serializing fit entry", err)
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(FITS)
		if err != nil {
			return err
		}
		return b.Put([]byte(e.Gene), data)
	})
	if err != nil {
		log.Error("Error saving fit entry", err)
	}
	return err
}

// Get returns the stored entry for a gene, nil if absent.
func (s *Store) Get(gene string) (*Entry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(FITS)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(gene))
		if v != nil {
			data = append(data, v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, err
	}
	var e *Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e != nil && e.Final {
		log.Noticef("Found finished fit for %s (score=%v)", e.Gene, e.Score)
	}
	return e, nil
}

// Genes lists all stored gene names.
func (s *Store) Genes() ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var genes []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(FITS)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			genes = append(genes, string(k))
			return nil
		})
	})
	return genes, err
}

// Final reports whether the gene has a finished fit, for resume.
func (s *Store) Final(gene string) bool {
	e, err := s.Get(gene)
	return err == nil && e != nil && e.Final
}
