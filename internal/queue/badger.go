package queue

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"
)

const (
	messagePrefix            = "queue/msg/"
	sequenceKey              = "queue/seq"
	defaultSequenceBandwidth = 100
	maxConflictRetries       = 5
)

// badgerLogger adapts zap to badger's Logger interface.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any)   { l.logger.Errorf(msg, items...) }
func (l *badgerLogger) Warningf(msg string, items ...any) { l.logger.Warnf(msg, items...) }
func (l *badgerLogger) Infof(msg string, items ...any)    { l.logger.Debugf(msg, items...) }
func (l *badgerLogger) Debugf(msg string, items ...any)   { l.logger.Debugf(msg, items...) }

// BadgerQueue stores messages in BadgerDB under keys ordered by a monotonic sequence.
type BadgerQueue struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *zap.Logger
}

// OpenBadgerQueue opens a queue stored at path. An empty path keeps the queue in memory.
func OpenBadgerQueue(path string, logger *zap.Logger) (*BadgerQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("create queue dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &badgerLogger{logger: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	seq, err := db.GetSequence([]byte(sequenceKey), defaultSequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("queue sequence: %w", err)
	}
	return &BadgerQueue{db: db, seq: seq, logger: logger.With(zap.String("component", "queue"))}, nil
}

func messageKey(n uint64) []byte {
	key := make([]byte, len(messagePrefix)+8)
	copy(key, messagePrefix)
	binary.BigEndian.PutUint64(key[len(messagePrefix):], n)
	return key
}

// Send appends msg to the queue.
func (q *BadgerQueue) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	n, err := q.seq.Next()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	return q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(n), data)
	})
}

// Receive removes and returns the oldest message, or nil when the queue is empty.
func (q *BadgerQueue) Receive(ctx context.Context) (*Message, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := q.pop()
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		return msg, err
	}
}

// pop removes and decodes the head message. Undecodable messages at the head are
// deleted in the same transaction so they cannot block the queue.
func (q *BadgerQueue) pop() (*Message, error) {
	var msg *Message
	err := q.db.Update(func(txn *badger.Txn) error {
		var drop [][]byte
		head, err := q.scanHead(txn, &drop)
		if err != nil {
			return err
		}
		for _, key := range drop {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		if head == nil {
			return nil
		}
		msg = head.msg
		return txn.Delete(head.key)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

type queued struct {
	key []byte
	msg *Message
}

func (q *BadgerQueue) scanHead(txn *badger.Txn, drop *[][]byte) (*queued, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(messagePrefix)
	opts.PrefetchSize = 1
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		var m Message
		var decodeErr error
		if err := item.Value(func(val []byte) error {
			decodeErr = json.Unmarshal(val, &m)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("read message: %w", err)
		}
		if decodeErr != nil {
			q.logger.Error("dropping undecodable message", zap.ByteString("key", key), zap.Error(decodeErr))
			*drop = append(*drop, key)
			continue
		}
		return &queued{key: key, msg: &m}, nil
	}
	return nil, nil
}

// Len returns the number of queued messages.
func (q *BadgerQueue) Len(ctx context.Context) (int, error) {
	n := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(messagePrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close releases the sequence and closes the database.
func (q *BadgerQueue) Close() error {
	if err := q.seq.Release(); err != nil {
		q.db.Close()
		return err
	}
	return q.db.Close()
}
