package queue

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemQueue(t *testing.T) *BadgerQueue {
	t.Helper()
	q, err := OpenBadgerQueue("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestBadgerQueue_FIFO(t *testing.T) {
	q := newMemQueue(t)
	ctx := context.Background()

	for _, c := range []string{"0", "200", "400"} {
		require.NoError(t, q.Send(ctx, NewMessage(c)))
	}
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var got []string
	for {
		msg, err := q.Receive(ctx)
		require.NoError(t, err)
		if msg == nil {
			break
		}
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, 1, msg.Attempt)
		got = append(got, msg.Cursor)
	}
	assert.Equal(t, []string{"0", "200", "400"}, got)

	n, err = q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// corruptHead overwrites the oldest queued message with bytes that are not JSON.
func corruptHead(t *testing.T, q *BadgerQueue) {
	t.Helper()
	require.NoError(t, q.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(messagePrefix)
		it := txn.NewIterator(opts)
		it.Rewind()
		require.True(t, it.Valid())
		key := it.Item().KeyCopy(nil)
		it.Close()
		return txn.Set(key, []byte("{not json"))
	}))
}

func TestBadgerQueue_SkipsUndecodableMessage(t *testing.T) {
	q := newMemQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Send(ctx, NewMessage("0")))
	require.NoError(t, q.Send(ctx, NewMessage("10")))
	corruptHead(t, q)

	msg, err := q.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "10", msg.Cursor)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "the undecodable message should be removed")

	msg, err = q.Receive(ctx)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestBadgerQueue_OnlyUndecodableMessage(t *testing.T) {
	q := newMemQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Send(ctx, NewMessage("0")))
	corruptHead(t, q)

	msg, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Nil(t, msg)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBadgerQueue_ReceiveEmpty(t *testing.T) {
	q := newMemQueue(t)
	msg, err := q.Receive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestBadgerQueue_Durable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue")
	ctx := context.Background()

	q, err := OpenBadgerQueue(path, nil)
	require.NoError(t, err)
	require.NoError(t, q.Send(ctx, NewMessage("10")))
	require.NoError(t, q.Close())

	reopened, err := OpenBadgerQueue(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Send(ctx, NewMessage("20")))

	first, err := reopened.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "10", first.Cursor)

	second, err := reopened.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "20", second.Cursor)
}
