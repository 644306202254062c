//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
	"github.com/aussiebroadwan/adminauth/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/adminauth/internal/auth/store/drivers/sqldb"
	"github.com/aussiebroadwan/adminauth/pkg/idx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a throwaway PostgreSQL and returns a migrated store.
func setupPostgres(t *testing.T) *sqldb.Store {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "adminauth",
				"POSTGRES_PASSWORD": "adminauth",
				"POSTGRES_DB":       "adminauth",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://adminauth:adminauth@%s:%s/adminauth?sslmode=disable", host, port.Port())
	s, err := postgres.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.ApplyMigrations(), "migrations are idempotent")
	return s
}

func TestPostgresRotationIsAtomic(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	a := domain.Account{
		ID: idx.New().String(), Email: "pg@example.com", PasswordHash: "$argon2id$stub",
		DisplayName: "PG", Role: domain.RoleAdmin, Active: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.Accounts().Create(ctx, a))
	require.ErrorIs(t, s.Accounts().Create(ctx, a), store.ErrAlreadyExists)

	rt := domain.RefreshToken{
		ID: idx.New().String(), AccountID: a.ID, ChainID: "chain", TokenHash: "hash",
		AMR: []string{"pwd"}, ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}
	require.NoError(t, s.RefreshTokens().Create(ctx, rt))

	// Real row locks, unlike the single-connection SQLite pool.
	const callers = 16
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := idx.New().String()
			err := s.WithTx(ctx, func(tx store.Tx) error {
				ok, err := tx.RefreshTokens().RevokeIfActive(ctx, rt.ID, domain.RevokeRotated, next, now)
				if err != nil {
					return err
				}
				if !ok {
					return store.ErrNotFound
				}
				return tx.RefreshTokens().Create(ctx, domain.RefreshToken{
					ID: next, AccountID: a.ID, ChainID: "chain", TokenHash: next,
					ExpiresAt: now.Add(time.Hour), CreatedAt: now,
				})
			})
			if err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())

	n, err := s.RefreshTokens().RevokeChain(ctx, "chain", domain.RevokeReuseDetected, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n, "only the single successor was still active")
}
