package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx records Exec calls. Only Exec is implemented; the embedded
// interface covers the rest of pgx.Tx.
type fakeTx struct {
	pgx.Tx
	execs []string
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func txContext(fake *fakeTx) context.Context {
	return context.WithValue(context.Background(), txKey{}, &Tx{Tx: fake})
}

func TestNestedCallJoinsOpenTransaction(t *testing.T) {
	m := &TxManager{}
	fake := &fakeTx{}

	ran := false
	err := m.RunInTransaction(txContext(fake), func(ctx context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Empty(t, fake.execs)
}

func TestNestedSavepointReleasedOnSuccess(t *testing.T) {
	m := &TxManager{}
	fake := &fakeTx{}
	opts := DefaultTxOptions()
	opts.UseSavepoint = true

	err := m.RunInTransactionWithOptions(txContext(fake), opts, func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, err)
	require.Len(t, fake.execs, 2)
	require.True(t, strings.HasPrefix(fake.execs[0], "SAVEPOINT sp_"))
	name := strings.TrimPrefix(fake.execs[0], "SAVEPOINT ")
	assert.Equal(t, "RELEASE SAVEPOINT "+name, fake.execs[1])
}

func TestNestedSavepointRollsBackOnError(t *testing.T) {
	m := &TxManager{}
	fake := &fakeTx{}
	opts := DefaultTxOptions()
	opts.UseSavepoint = true

	boom := errors.New("inner scope failed")
	err := m.RunInTransactionWithOptions(txContext(fake), opts, func(ctx context.Context) error {
		return boom
	})

	require.ErrorIs(t, err, boom)
	require.Len(t, fake.execs, 2)
	require.True(t, strings.HasPrefix(fake.execs[0], "SAVEPOINT sp_"))
	name := strings.TrimPrefix(fake.execs[0], "SAVEPOINT ")
	assert.Equal(t, "ROLLBACK TO SAVEPOINT "+name, fake.execs[1])
}
