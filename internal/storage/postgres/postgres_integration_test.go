//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "store",
				"POSTGRES_PASSWORD": "store",
				"POSTGRES_DB":       "store",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() { _ = pg.Terminate(context.Background()) }()

	host, err := pg.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://store:store@%s:%s/store?sslmode=disable", host, port.Port())
	pool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	if err := RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	// Migrations are idempotent.
	if err := RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrations again: %v", err)
	}

	return m.Run()
}

// --- Helpers ---

func seedProducts(t *testing.T) *ProductRepository {
	t.Helper()
	repo := NewProductRepository(pool)
	_, err := repo.Upsert(context.Background(), []product.Product{
		{ID: "P1", Name: "Mug", Price: decimal.NewFromInt(500), Stock: 10, Category: "kitchen"},
		{ID: "P2", Name: "T-shirt", Price: decimal.RequireFromString("450.50"), Stock: 3, Category: "apparel"},
	})
	require.NoError(t, err)
	return repo
}

func newOrder(status order.Status) *order.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &order.Order{
		ID:           uuid.NewString(),
		TrackingID:   order.NewTrackingID(),
		Status:       status,
		CustomerName: "Rahim",
		Phone:        "01712345678",
		District:     "Dhaka",
		Thana:        "Mirpur",
		Address:      "Road 1",
		Items: []order.Item{{
			ProductID:     "P1",
			Name:          "Mug",
			UnitPrice:     decimal.NewFromInt(500),
			Quantity:      2,
			Customization: &cart.Customization{CustomText: "Hi", UploadedImageRefs: []string{"img/1.png"}},
		}},
		Subtotal:       decimal.NewFromInt(1000),
		DeliveryFee:    decimal.NewFromInt(60),
		Total:          decimal.NewFromInt(1060),
		AdvancePayment: decimal.NewFromInt(530),
		PaymentInfo:    order.PaymentInfo{Method: order.PaymentBkash, TransactionRef: "TX1"},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// --- Tests ---

func TestProductRepository(t *testing.T) {
	repo := seedProducts(t)
	ctx := context.Background()

	p, err := repo.GetByID(ctx, "P2")
	require.NoError(t, err)
	assert.Equal(t, "T-shirt", p.Name)
	assert.True(t, decimal.RequireFromString("450.5").Equal(p.Price))
	assert.Equal(t, 3, p.Stock)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, product.ErrNotFound)

	got, err := repo.GetByIDs(ctx, []string{"P1", "P2", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 2)
}

func TestOrderRepository_RoundTrip(t *testing.T) {
	seedProducts(t)
	repo := NewOrderRepository(pool)
	ctx := context.Background()
	o := newOrder(order.StatusPending)

	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByTrackingID(ctx, o.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.True(t, o.Total.Equal(got.Total))
	assert.True(t, o.AdvancePayment.Equal(got.AdvancePayment))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Hi", got.Items[0].Customization.CustomText)
	assert.Equal(t, o.PaymentInfo, got.PaymentInfo)
	assert.Empty(t, got.Notes)

	dup := newOrder(order.StatusPending)
	dup.TrackingID = o.TrackingID
	require.ErrorIs(t, repo.Create(ctx, dup), order.ErrDuplicateTrackingID)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	repo := NewOrderRepository(pool)
	ctx := context.Background()
	o := newOrder(order.StatusPending)
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, got.Status)

	_, err = repo.UpdateStatus(ctx, o.ID, order.StatusPending, order.StatusCancelled)
	require.ErrorIs(t, err, order.ErrStatusConflict)

	_, err = repo.UpdateStatus(ctx, "missing", order.StatusPending, order.StatusConfirmed)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_ConcurrentTransitions(t *testing.T) {
	repo := NewOrderRepository(pool)
	ctx := context.Background()
	o := newOrder(order.StatusShipped)
	require.NoError(t, repo.Create(ctx, o))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []order.Status
	)
	for _, to := range []order.Status{order.StatusDelivered, order.StatusCancelled} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.UpdateStatus(ctx, o.ID, order.StatusShipped, to); err == nil {
				mu.Lock()
				succeeded = append(succeeded, to)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, succeeded, 1, "exactly one writer wins")
}

func TestOrderRepository_AppendNoteAndList(t *testing.T) {
	repo := NewOrderRepository(pool)
	ctx := context.Background()
	o := newOrder(order.StatusProcessing)
	require.NoError(t, repo.Create(ctx, o))

	_, err := repo.AppendNote(ctx, o.ID, order.Note{Text: "first", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	got, err := repo.AppendNote(ctx, o.ID, order.Note{Text: "second", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.Len(t, got.Notes, 2)
	assert.Equal(t, "first", got.Notes[0].Text)
	assert.Equal(t, "second", got.Notes[1].Text)

	list, err := repo.List(ctx, order.Filter{Status: order.StatusProcessing, Limit: 100})
	require.NoError(t, err)
	var found bool
	for _, l := range list {
		assert.Equal(t, order.StatusProcessing, l.Status)
		found = found || l.ID == o.ID
	}
	assert.True(t, found)
}

func TestAPIKeyRepository(t *testing.T) {
	repo := NewAPIKeyRepository(pool)
	ctx := context.Background()
	pepper := []byte("pepper")

	require.NoError(t, repo.Create(ctx, auth.APIKeyInfo{
		KeyHash: auth.Hash(pepper, "staff-key"),
		Name:    "staff",
		Scopes:  []string{auth.ScopeOrders},
	}))

	info, err := repo.FindByHash(ctx, auth.Hash(pepper, "staff-key"))
	require.NoError(t, err)
	assert.Equal(t, "staff", info.Name)
	assert.True(t, info.Allows(auth.ScopeOrders))

	_, err = repo.FindByHash(ctx, auth.Hash(pepper, "other"))
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}
