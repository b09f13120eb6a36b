package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	"github.com/muhammadjehanzaib/sultan-store/internal/repository"
)

// --- Mock InventoryRepository ---

type mockInventoryRepo struct {
	mock.Mock
}

func (m *mockInventoryRepo) inv(args mock.Arguments) (*domain.Inventory, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inventory), args.Error(1)
}

func (m *mockInventoryRepo) Get(ctx context.Context, productID string) (*domain.Inventory, error) {
	return m.inv(m.Called(ctx, productID))
}

func (m *mockInventoryRepo) GetOrCreate(ctx context.Context, productID string, defaultThreshold int) (*domain.Inventory, error) {
	return m.inv(m.Called(ctx, productID, defaultThreshold))
}

func (m *mockInventoryRepo) Lock(ctx context.Context, productID string, defaultThreshold int) (*domain.Inventory, error) {
	return m.inv(m.Called(ctx, productID, defaultThreshold))
}

func (m *mockInventoryRepo) ApplyDelta(ctx context.Context, productID string, delta int, policy domain.StockPolicy) (*domain.Inventory, error) {
	return m.inv(m.Called(ctx, productID, delta, policy))
}

func (m *mockInventoryRepo) SetAbsolute(ctx context.Context, productID string, stock int) (*domain.Inventory, error) {
	return m.inv(m.Called(ctx, productID, stock))
}

func (m *mockInventoryRepo) SetThreshold(ctx context.Context, productID string, threshold int) (*domain.Inventory, error) {
	return m.inv(m.Called(ctx, productID, threshold))
}

func (m *mockInventoryRepo) ListLowStock(ctx context.Context, page, perPage int) ([]domain.Inventory, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]domain.Inventory), args.Int(1), args.Error(2)
}

// --- Mock VariantRepository ---

type mockVariantRepo struct {
	mock.Mock
}

func (m *mockVariantRepo) variant(args mock.Arguments) (*domain.Variant, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *mockVariantRepo) GetByID(ctx context.Context, variantID string) (*domain.Variant, error) {
	return m.variant(m.Called(ctx, variantID))
}

func (m *mockVariantRepo) Lock(ctx context.Context, variantID string) (*domain.Variant, error) {
	return m.variant(m.Called(ctx, variantID))
}

func (m *mockVariantRepo) ApplyDelta(ctx context.Context, variantID string, delta int, policy domain.StockPolicy) (*domain.Variant, error) {
	return m.variant(m.Called(ctx, variantID, delta, policy))
}

func (m *mockVariantRepo) ToggleAvailability(ctx context.Context, variantID string) (*domain.Variant, error) {
	return m.variant(m.Called(ctx, variantID))
}

func (m *mockVariantRepo) ListByProduct(ctx context.Context, productID string) ([]domain.Variant, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Variant), args.Error(1)
}

func (m *mockVariantRepo) FindBySelection(ctx context.Context, productID string, selection domain.AttributeSelection) (*domain.Variant, error) {
	return m.variant(m.Called(ctx, productID, selection))
}

func (m *mockVariantRepo) CountByProduct(ctx context.Context, productID string) (int, error) {
	args := m.Called(ctx, productID)
	return args.Int(0), args.Error(1)
}

func (m *mockVariantRepo) ListProductIDsWithVariants(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockVariantRepo) ListStockAlerts(ctx context.Context, defaultThreshold int) ([]domain.VariantAlert, error) {
	args := m.Called(ctx, defaultThreshold)
	return args.Get(0).([]domain.VariantAlert), args.Error(1)
}

// --- Mock LedgerRepository ---

type mockLedgerRepo struct {
	mock.Mock
}

func (m *mockLedgerRepo) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockLedgerRepo) ListByProduct(ctx context.Context, productID string, variantID *string, limit int) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, productID, variantID, limit)
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

// --- Mock ProductRepository ---

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) Get(ctx context.Context, productID string) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

// --- Mock OrderRepository ---

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, order *domain.Order) (bool, error) {
	args := m.Called(ctx, order)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

// --- Mock Store ---

// mockStore runs WithinTx callbacks against itself and counts how many
// transactions (or savepoints) ended in rollback.
type mockStore struct {
	inventory *mockInventoryRepo
	variants  *mockVariantRepo
	ledger    *mockLedgerRepo
	products  *mockProductRepo
	orders    *mockOrderRepo

	mu        sync.Mutex
	begins    int
	rollbacks int
}

func newMockStore() *mockStore {
	return &mockStore{
		inventory: new(mockInventoryRepo),
		variants:  new(mockVariantRepo),
		ledger:    new(mockLedgerRepo),
		products:  new(mockProductRepo),
		orders:    new(mockOrderRepo),
	}
}

func (m *mockStore) Inventory() repository.InventoryRepository { return m.inventory }
func (m *mockStore) Variants() repository.VariantRepository   { return m.variants }
func (m *mockStore) Ledger() repository.LedgerRepository       { return m.ledger }
func (m *mockStore) Products() repository.ProductRepository   { return m.products }
func (m *mockStore) Orders() repository.OrderRepository       { return m.orders }

func (m *mockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	m.mu.Lock()
	m.begins++
	m.mu.Unlock()
	if err := fn(ctx, m); err != nil {
		m.mu.Lock()
		m.rollbacks++
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *mockStore) assertExpectations(t mock.TestingT) {
	m.inventory.AssertExpectations(t)
	m.variants.AssertExpectations(t)
	m.ledger.AssertExpectations(t)
	m.products.AssertExpectations(t)
	m.orders.AssertExpectations(t)
}

// --- Recording publisher ---

type published struct {
	kind      string
	productID string
	variantID string
	change    int
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishInventoryUpdated(_ context.Context, inv *domain.Inventory, change int, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{kind: "updated", productID: inv.ProductID, change: change})
	return nil
}

func (p *recordingPublisher) PublishLowStock(_ context.Context, inv *domain.Inventory) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{kind: "low_stock", productID: inv.ProductID})
	return nil
}

func (p *recordingPublisher) PublishVariantUpdated(_ context.Context, v *domain.Variant) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{kind: "variant_updated", productID: v.ProductID, variantID: v.ID})
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.kind)
	}
	return out
}

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(store *mockStore, opts Options) (*InventoryService, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewInventoryService(store, pub, newTestLogger(), opts), pub
}

func ledgerEntry(productID string, change int, reason string) any {
	return mock.MatchedBy(func(e *domain.LedgerEntry) bool {
		return e.ProductID == productID && e.Change == change && e.Reason == reason
	})
}

func variantLedgerEntry(productID, variantID string, change int, reason string) any {
	return mock.MatchedBy(func(e *domain.LedgerEntry) bool {
		return e.ProductID == productID && e.VariantID != nil && *e.VariantID == variantID &&
			e.Change == change && e.Reason == reason
	})
}

func inventory(productID string, stock, threshold int) *domain.Inventory {
	return &domain.Inventory{ProductID: productID, Stock: stock, StockThreshold: threshold}
}

func variant(id, productID string, qty int) *domain.Variant {
	return &domain.Variant{ID: id, ProductID: productID, SKU: "SKU-" + id, StockQuantity: qty, InStock: qty > 0}
}
