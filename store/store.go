// Package store persists lessons and session analyses in a local BadgerDB.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"parlo/lesson"
	"parlo/log"
)

const (
	lessonPrefix   = "lesson:"
	analysisPrefix = "analysis:"
)

// Store is a BadgerDB-backed record store. Values are JSON.
type Store struct {
	db *badger.DB
}

// Options configures Open.
type Options struct {
	// Dir is the directory for data files. Required unless InMemory.
	Dir string

	// InMemory runs badger without disk persistence, for tests.
	InMemory bool
}

func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, fmt.Errorf("store: data directory is required")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) WriteLesson(_ context.Context, l *lesson.Lesson) error {
	return s.write(lessonPrefix+l.ID, l)
}

func (s *Store) WriteAnalysis(_ context.Context, a *lesson.Analysis) error {
	return s.write(analysisPrefix+a.ID, a)
}

func (s *Store) write(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Lesson returns one lesson by ID, or nil when absent.
func (s *Store) Lesson(_ context.Context, id string) (*lesson.Lesson, error) {
	var l lesson.Lesson
	found, err := s.read(lessonPrefix+id, &l)
	if err != nil || !found {
		return nil, err
	}
	return &l, nil
}

func (s *Store) read(key string, v any) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, v)
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return true, nil
}

// DeleteLesson removes one lesson. Deleting an absent ID is not an error.
func (s *Store) DeleteLesson(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(lessonPrefix + id))
	})
	if err == badger.ErrKeyNotFound {
		return nil
	}
	return err
}

// ReadAll returns every stored lesson and analysis, newest first.
func (s *Store) ReadAll(_ context.Context) ([]lesson.Lesson, []lesson.Analysis, error) {
	var (
		lessons  []lesson.Lesson
		analyses []lesson.Analysis
	)
	err := s.db.View(func(txn *badger.Txn) error {
		if err := scan(txn, lessonPrefix, &lessons); err != nil {
			return err
		}
		return scan(txn, analysisPrefix, &analyses)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("read store: %w", err)
	}
	sort.Slice(lessons, func(i, j int) bool {
		return lessons[i].CreatedAt.After(lessons[j].CreatedAt)
	})
	sort.Slice(analyses, func(i, j int) bool {
		return analyses[i].CreatedAt.After(analyses[j].CreatedAt)
	})
	return lessons, analyses, nil
}

func scan[T any](txn *badger.Txn, prefix string, out *[]T) error {
	p := []byte(prefix)
	iterOpts := badger.DefaultIteratorOptions
	iterOpts.Prefix = p
	it := txn.NewIterator(iterOpts)
	defer it.Close()

	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		data, err := it.Item().ValueCopy(nil)
		if err != nil {
			return err
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			// A corrupt record should not hide the rest.
			log.Warnf("store: skipping corrupt record %s: %v", it.Item().Key(), err)
			continue
		}
		*out = append(*out, v)
	}
	return nil
}

// ClearAll deletes every stored record.
func (s *Store) ClearAll(_ context.Context) error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}

// badgerLogger routes badger's own output into the diagnostics log and
// drops its chatty info and debug levels.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...interface{})   { log.Errorf("badger: "+f, v...) }
func (badgerLogger) Warningf(f string, v ...interface{}) { log.Warnf("badger: "+f, v...) }
func (badgerLogger) Infof(string, ...interface{})        {}
func (badgerLogger) Debugf(string, ...interface{})       {}
