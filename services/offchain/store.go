// Package offchain holds node-local state for the offchain workers: poll
// cursors and time-bounded locks so that a worker never runs twice at once.
package offchain

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketLocks   = []byte("locks")
	bucketCursors = []byte("cursors")

	// ErrNotHeld is returned when releasing a lock owned by someone else.
	ErrNotHeld = errors.New("offchain: lock not held")
)

// Store persists worker locks and cursors in a bbolt file.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

type lockRecord struct {
	Holder  string    `json:"holder"`
	Expires time.Time `json:"expires"`
}

// Open opens (and initialises) the store at path.
func Open(path string, options *bolt.Options) (*Store, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketLocks, bucketCursors} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying file.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// TryLock acquires name for holder until ttl elapses. It reports false when
// another holder owns an unexpired lock.
func (s *Store) TryLock(name, holder string, ttl time.Duration) (bool, error) {
	acquired := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketLocks)
		now := s.now()
		if raw := bucket.Get([]byte(name)); raw != nil {
			var rec lockRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			if rec.Holder != holder && now.Before(rec.Expires) {
				return nil
			}
		}
		payload, err := json.Marshal(lockRecord{Holder: holder, Expires: now.Add(ttl)})
		if err != nil {
			return err
		}
		acquired = true
		return bucket.Put([]byte(name), payload)
	})
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// Unlock releases name if holder owns it.
func (s *Store) Unlock(name, holder string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketLocks)
		raw := bucket.Get([]byte(name))
		if raw == nil {
			return nil
		}
		var rec lockRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		if rec.Holder != holder {
			return ErrNotHeld
		}
		return bucket.Delete([]byte(name))
	})
}

// Cursor returns the stored position for name.
func (s *Store) Cursor(name string) (uint64, bool, error) {
	var (
		value uint64
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketCursors).Get([]byte(name))
		if len(raw) != 8 {
			return nil
		}
		value = binary.BigEndian.Uint64(raw)
		found = true
		return nil
	})
	return value, found, err
}

// SetCursor stores the position for name.
func (s *Store) SetCursor(name string, value uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], value)
		return tx.Bucket(bucketCursors).Put([]byte(name), buf[:])
	})
}
