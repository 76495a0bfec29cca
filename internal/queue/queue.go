// Package queue is the ordered log of mutations that could not reach
// the server. Replay order is strictly FIFO: a later update may target
// an id minted by an earlier queued create, so order is a correctness
// requirement, not a nicety.
package queue

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corralhq/corral/internal/domain"
)

var bucketPending = []byte("pending")

// Queue is an append-only FIFO of pending changes, durable across
// process restarts. Entries are removed individually on confirmed
// replay and only then.
type Queue struct {
	db     *bolt.DB
	logger *slog.Logger

	mu   sync.Mutex
	mem  []memEntry // memory-only mode
	next uint64
}

type memEntry struct {
	seq    uint64
	change domain.PendingChange
}

// Open opens (or creates) the queue database under dir. An empty dir
// yields a memory-only queue with no persistence.
func Open(dir string, logger *slog.Logger) (*Queue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{logger: logger, next: 1}

	if dir == "" {
		return q, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(filepath.Join(dir, "pending.db"), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open queue db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPending)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	q.db = db
	return q, nil
}

func (q *Queue) Close() error {
	if q.db != nil {
		return q.db.Close()
	}
	return nil
}

// Enqueue appends a change. Sequence keys are big-endian, so bucket
// iteration order is enqueue order.
func (q *Queue) Enqueue(change domain.PendingChange) error {
	if q.db == nil {
		q.mu.Lock()
		q.mem = append(q.mem, memEntry{seq: q.next, change: change})
		q.next++
		q.mu.Unlock()
		return nil
	}

	return q.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPending)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(change)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

// Snapshot returns all pending changes in enqueue order.
func (q *Queue) Snapshot() []domain.PendingChange {
	if q.db == nil {
		q.mu.Lock()
		defer q.mu.Unlock()
		out := make([]domain.PendingChange, 0, len(q.mem))
		for _, e := range q.mem {
			out = append(out, e.change)
		}
		return out
	}

	var out []domain.PendingChange
	q.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPending).ForEach(func(_, v []byte) error {
			var change domain.PendingChange
			if err := json.Unmarshal(v, &change); err != nil {
				q.logger.Warn("skipping corrupt pending change", "error", err)
				return nil
			}
			out = append(out, change)
			return nil
		})
	})
	return out
}

// Len reports the number of queued changes.
func (q *Queue) Len() int {
	if q.db == nil {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.mem)
	}

	n := 0
	q.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketPending).Stats().KeyN
		return nil
	})
	return n
}

// Remove deletes the change with the given id after a confirmed
// replay. Unknown ids are a no-op.
func (q *Queue) Remove(changeID string) error {
	if q.db == nil {
		q.mu.Lock()
		defer q.mu.Unlock()
		for i, e := range q.mem {
			if e.change.ID == changeID {
				q.mem = append(q.mem[:i:i], q.mem[i+1:]...)
				return nil
			}
		}
		return nil
	}

	return q.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPending)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var change domain.PendingChange
			if err := json.Unmarshal(v, &change); err != nil {
				continue
			}
			if change.ID == changeID {
				return b.Delete(k)
			}
		}
		return nil
	})
}

// RewriteTempID replaces every reference to tempID with realID in all
// still-queued changes, preserving their order and keys. Called by the
// sync engine after the creating change replays successfully.
func (q *Queue) RewriteTempID(tempID, realID string) error {
	if q.db == nil {
		q.mu.Lock()
		defer q.mu.Unlock()
		for i := range q.mem {
			if q.mem[i].change.ReferencesTempID(tempID) {
				q.mem[i].change = q.mem[i].change.RewriteTempID(tempID, realID)
			}
		}
		return nil
	}

	return q.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPending)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var change domain.PendingChange
			if err := json.Unmarshal(v, &change); err != nil {
				continue
			}
			if !change.ReferencesTempID(tempID) {
				continue
			}
			data, err := json.Marshal(change.RewriteTempID(tempID, realID))
			if err != nil {
				return err
			}
			if err := b.Put(k, data); err != nil {
				return err
			}
		}
		return nil
	})
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
