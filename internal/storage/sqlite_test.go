package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tripledger/internal/core"
	"tripledger/internal/storage"
	"tripledger/internal/storage/storagetest"
)

func openSQLite(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return openSQLite(t) })
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := storage.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.NoError(t, storage.RunMigrations(path))
	_, err = os.Stat(path)
	require.NoError(t, err)

	s, err = storage.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))
}

func TestSQLiteRejectsUnknownKind(t *testing.T) {
	s := openSQLite(t)
	_, err := s.UpsertInstrument(context.Background(), core.PaymentInstrument{ID: "x", TripID: "t", Name: "x", Kind: "voucher", CurrencyCode: "EUR"})
	require.Error(t, err)
}
