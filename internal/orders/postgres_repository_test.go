package orders

import (
	"context"
	"testing"
	"time"

	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *PostgresRepository {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewPostgresRepository(creds)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.RunMigrations(creds))
	// a second run is a no-op
	require.NoError(t, repo.RunMigrations(creds))

	return repo
}

func TestPostgresRepository_CreateAndGet(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	order := newTestOrder("ORD-1717236000000-9F86D081", "user-123", created)
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.Get(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "user-123", got.Owner)
	assert.Equal(t, "Lahore", got.Customer.City)
	assert.True(t, got.Total.Equal(order.Total))
	assert.True(t, got.Tax.Equal(order.Tax))
	assert.Equal(t, domain.PaymentCreditCard, got.PaymentMethod)
	assert.Equal(t, domain.OrderStatusConfirmed, got.Status)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.True(t, got.EstimatedDelivery.Equal(created.Add(72*time.Hour)))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Designer Evening Gown", got.Items[0].Name)
	assert.True(t, got.Items[0].LineTotal.Equal(order.Items[0].LineTotal))
}

func TestPostgresRepository_DuplicateID(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestOrder("ORD-1", "user-123", time.Now().UTC())))
	err := repo.Create(ctx, newTestOrder("ORD-1", "user-123", time.Now().UTC()))
	assert.ErrorIs(t, err, ErrOrderExists)
}

func TestPostgresRepository_GetMissing(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Get(context.Background(), "ORD-404")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgresRepository_ListAndUpdateStatus(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTestOrder("ORD-1", "user-123", base)))
	require.NoError(t, repo.Create(ctx, newTestOrder("ORD-2", "user-123", base.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, newTestOrder("ORD-3", "user-999", base)))

	list, err := repo.ListByOwner(ctx, "user-123")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ORD-2", list[0].OrderID)

	updated, err := repo.UpdateStatus(ctx, "ORD-1", domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, updated.Status)

	_, err = repo.UpdateStatus(ctx, "ORD-1", domain.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	got, err := repo.Get(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)
}
