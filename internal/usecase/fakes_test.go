package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/geocheapest/marketplace/internal/domain"
)

type fakeProductRepo struct {
	mu         sync.Mutex
	products   map[uuid.UUID]domain.Product
	createHook func(*domain.Product) error
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[uuid.UUID]domain.Product)}
}

func (r *fakeProductRepo) add(p domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

func (r *fakeProductRepo) find(match func(domain.Product) bool) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if match(p) {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.find(func(p domain.Product) bool { return p.ID == id })
}

func (r *fakeProductRepo) FindByUPC(ctx context.Context, upc string) (*domain.Product, error) {
	return r.find(func(p domain.Product) bool { return p.UPC == upc })
}

func (r *fakeProductRepo) FindByMarketplaceID(ctx context.Context, mid string) (*domain.Product, error) {
	return r.find(func(p domain.Product) bool { return p.MarketplaceID == mid })
}

func (r *fakeProductRepo) FindByNormalizedName(ctx context.Context, n string) (*domain.Product, error) {
	return r.find(func(p domain.Product) bool { return p.NormalizedName == n })
}

// Create enforces the same identifier uniqueness the partial indexes give
// the real repository.
func (r *fakeProductRepo) Create(ctx context.Context, p *domain.Product) error {
	if r.createHook != nil {
		if err := r.createHook(p); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.products {
		if (p.UPC != "" && existing.UPC == p.UPC) ||
			(p.MarketplaceID != "" && existing.MarketplaceID == p.MarketplaceID) ||
			(p.NormalizedName != "" && existing.NormalizedName == p.NormalizedName) {
			return gorm.ErrDuplicatedKey
		}
	}
	r.products[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.products[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Product
	for _, p := range r.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeProductRepo) IncrementSales(ctx context.Context, id uuid.UUID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.TotalSales += qty
	r.products[id] = p
	return nil
}

type fakeListingRepo struct {
	mu       sync.Mutex
	listings map[string]domain.Listing
	err      error
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: make(map[string]domain.Listing)}
}

func (r *fakeListingRepo) add(l domain.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[l.ID] = l
}

func (r *fakeListingRepo) Get(ctx context.Context, id string) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (r *fakeListingRepo) ByProduct(ctx context.Context, productID uuid.UUID, source domain.ListingSource, status domain.ListingStatus) ([]domain.Listing, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Listing
	for _, l := range r.listings {
		if l.ProductID == productID && l.Source == source && l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeListingRepo) BySource(ctx context.Context, source domain.ListingSource, status domain.ListingStatus) ([]domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Listing
	for _, l := range r.listings {
		if l.Source == source && l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeListingRepo) Put(ctx context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[l.ID] = *l
	return nil
}

func (r *fakeListingRepo) UpdateQuantityBySourceItem(ctx context.Context, source domain.ListingSource, sourceItemID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.listings {
		if l.Source == source && l.SourceItemID == sourceItemID {
			l.Quantity = quantity
			l.InStock = quantity > 0
			r.listings[id] = l
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeListingRepo) MarkDeletedBySourceItem(ctx context.Context, source domain.ListingSource, sourceItemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.listings {
		if l.Source == source && l.SourceItemID == sourceItemID {
			l.Status = domain.ListingDeleted
			r.listings[id] = l
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeStoreRepo struct {
	stores map[string]domain.Store
}

func newFakeStoreRepo(stores ...domain.Store) *fakeStoreRepo {
	r := &fakeStoreRepo{stores: make(map[string]domain.Store)}
	for _, s := range stores {
		r.stores[s.ID] = s
	}
	return r
}

func (r *fakeStoreRepo) FindByID(ctx context.Context, id string) (*domain.Store, error) {
	s, ok := r.stores[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *fakeStoreRepo) ListActive(ctx context.Context) ([]domain.Store, error) {
	var out []domain.Store
	for _, s := range r.stores {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeStoreRepo) Save(ctx context.Context, s *domain.Store) error {
	r.stores[s.ID] = *s
	return nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) FindByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentRef == ref {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) Update(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *o
	cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	return nil
}

type fakePayoutRepo struct {
	mu        sync.Mutex
	payouts   []domain.Payout
	statusLog []domain.PayoutStatus
}

func newFakePayoutRepo() *fakePayoutRepo { return &fakePayoutRepo{} }

func (r *fakePayoutRepo) ByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Payout
	for _, p := range r.payouts {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePayoutRepo) Create(ctx context.Context, p *domain.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payouts = append(r.payouts, *p)
	return nil
}

func (r *fakePayoutRepo) Update(ctx context.Context, p *domain.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusLog = append(r.statusLog, p.Status)
	for i := range r.payouts {
		if r.payouts[i].ID == p.ID {
			r.payouts[i] = *p
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeShipping struct {
	flat    map[string]string
	quoteFn func(origin domain.Store, parcel domain.Parcel) (decimal.Decimal, error)
}

func (s *fakeShipping) Quote(ctx context.Context, origin domain.Store, dest domain.Address, parcel domain.Parcel) (decimal.Decimal, error) {
	if s.quoteFn != nil {
		return s.quoteFn(origin, parcel)
	}
	raw, ok := s.flat[origin.ID]
	if !ok {
		return decimal.Zero, fmt.Errorf("no quote for store %s", origin.ID)
	}
	return decimal.RequireFromString(raw), nil
}

type fakePayments struct {
	mu          sync.Mutex
	fee         decimal.Decimal
	feeErr      error
	transferErr error
	transfers   []string
	reversals   []string
	refunds     []string
	checkoutRef string
	checkoutURL string
}

func (p *fakePayments) ChargeMultiVendorCart(ctx context.Context, req domain.ChargeRequest) (string, string, error) {
	ref := p.checkoutRef
	if ref == "" {
		ref = "pi_test_" + req.OrderID.String()[:8]
	}
	return ref, p.checkoutURL, nil
}

func (p *fakePayments) FeeForPayment(ctx context.Context, paymentRef string) (decimal.Decimal, error) {
	if p.feeErr != nil {
		return decimal.Zero, p.feeErr
	}
	return p.fee, nil
}

func (p *fakePayments) Transfer(ctx context.Context, connectAccount string, amount decimal.Decimal, currency string, orderID uuid.UUID) (string, error) {
	if p.transferErr != nil {
		return "", p.transferErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ref := fmt.Sprintf("tr_%s_%d", connectAccount, len(p.transfers))
	p.transfers = append(p.transfers, ref)
	return ref, nil
}

func (p *fakePayments) ReverseTransfer(ctx context.Context, transferRef string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reversals = append(p.reversals, transferRef)
	return nil
}

func (p *fakePayments) Refund(ctx context.Context, paymentRef string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunds = append(p.refunds, paymentRef)
	return nil
}

type fakeStorefront struct {
	mu      sync.Mutex
	pages   [][]domain.VendorListing
	calls   int
	started chan struct{}
	release chan struct{}
}

func (s *fakeStorefront) FetchListings(ctx context.Context, store domain.Store, cursor string) ([]domain.VendorListing, string, error) {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	page := s.calls
	s.calls++
	s.mu.Unlock()
	if page >= len(s.pages) {
		return nil, "", nil
	}
	next := ""
	if page < len(s.pages)-1 {
		next = fmt.Sprintf("cursor-%d", page+1)
	}
	return s.pages[page], next, nil
}

type fakeMarketplace struct {
	items map[string]*domain.MarketplaceListing
}

func (m *fakeMarketplace) ItemDetails(ctx context.Context, itemID string) (*domain.MarketplaceListing, error) {
	item, ok := m.items[itemID]
	if !ok {
		return nil, domain.ErrUpstreamUnavailable
	}
	return item, nil
}

func (m *fakeMarketplace) ScrapeProduct(ctx context.Context, pageURL string) (*domain.MarketplaceListing, error) {
	item, ok := m.items[pageURL]
	if !ok {
		return nil, domain.ErrUpstreamUnavailable
	}
	return item, nil
}

type fakeLedger struct{}

func (fakeLedger) Export(order domain.Order, payouts []domain.Payout) ([]byte, error) {
	return []byte("ledger"), nil
}
