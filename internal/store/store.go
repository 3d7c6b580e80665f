// Package store persists the last session snapshot and a play history so
// screens have a value to show before the backend answers.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jiemo/player/internal/media"
	"go.etcd.io/bbolt"
)

var (
	sessionBucket = []byte("session")
	historyBucket = []byte("history")
	snapshotKey   = []byte("snapshot")
)

// Snapshot is the persisted view of the session connection
type Snapshot struct {
	NowPlaying media.Metadata   `json:"now_playing"`
	Repeat     media.RepeatMode `json:"repeat"`
	SavedAt    time.Time        `json:"saved_at"`
}

// HistoryEntry is one played item
type HistoryEntry struct {
	Metadata media.Metadata `json:"metadata"`
	PlayedAt time.Time      `json:"played_at"`
}

// Store is a bbolt-backed snapshot and history store
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the store at dbPath
func Open(dbPath string) (*Store, error) {
	options := &bbolt.Options{Timeout: 1 * time.Second}
	db, err := bbolt.Open(dbPath, 0600, options)
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, fmt.Errorf("%s is in use by another jiemo process: %w", dbPath, err)
	}
	if err != nil {
		return nil, fmt.Errorf("could not open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{sessionBucket, historyBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces the stored snapshot
func (s *Store) SaveSnapshot(snap Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}
	value, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("error serializing snapshot: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put(snapshotKey, value)
	})
}

// LoadSnapshot returns the stored snapshot; ok is false if none was saved
func (s *Store) LoadSnapshot() (snap Snapshot, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(sessionBucket).Get(snapshotKey)
		if v == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(v, &snap)
	})
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("error deserializing snapshot: %w", err)
	}
	return snap, ok, nil
}

// historyKeyLayout is fixed width so keys sort in time order
const historyKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"

func historyKey(t time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", t.UTC().Format(historyKeyLayout), id))
}

// AddToHistory records an item as played. An earlier entry for the same
// item is dropped so each item appears once, at its latest play.
func (s *Store) AddToHistory(md media.Metadata, playedAt time.Time) error {
	if md.ID == "" {
		return nil
	}

	entry := HistoryEntry{Metadata: md, PlayedAt: playedAt}
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("error serializing history entry: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(historyBucket)

		// Keys are "<timestamp>:<id>"; find any older key for this id
		var stale [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var old HistoryEntry
			if err := json.Unmarshal(v, &old); err != nil {
				return err
			}
			if old.Metadata.ID == md.ID {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}

		return b.Put(historyKey(playedAt, md.ID), value)
	})
}

// History returns up to limit entries, most recent first
func (s *Store) History(limit int) ([]HistoryEntry, error) {
	var entries []HistoryEntry

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(historyBucket).Cursor()
		for k, v := c.Last(); k != nil && (limit <= 0 || len(entries) < limit); k, v = c.Prev() {
			var entry HistoryEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("error deserializing history entry: %w", err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}
