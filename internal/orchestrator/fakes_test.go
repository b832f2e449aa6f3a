package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/storefront-platform/storefront/internal/domain"
)

type fakeCommerce struct {
	mu        sync.Mutex
	sales     []domain.Sale
	purchases []domain.PurchaseOrder
	err       error
	lines     bool // echo persisted sale lines with product names
	seq       int
	ctxErrs   []error
}

func (f *fakeCommerce) CreateSale(ctx context.Context, sale domain.Sale) (*domain.PersistedTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.err != nil {
		return nil, f.err
	}
	f.sales = append(f.sales, sale)
	f.seq++

	persisted := &domain.PersistedTransaction{
		ID:          fmt.Sprintf("S-%d", f.seq),
		Kind:        domain.KindSale,
		BranchID:    sale.BranchID,
		TotalAmount: sale.Total(),
	}
	if f.lines {
		for _, l := range sale.Lines {
			persisted.Lines = append(persisted.Lines, domain.PersistedLine{
				ProductID:   l.ProductID,
				ProductName: "Product " + l.ProductID,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
			})
		}
	}
	return persisted, nil
}

func (f *fakeCommerce) CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (*domain.PersistedTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.err != nil {
		return nil, f.err
	}
	f.purchases = append(f.purchases, po)
	f.seq++
	return &domain.PersistedTransaction{
		ID:          fmt.Sprintf("P-%d", f.seq),
		Kind:        domain.KindPurchaseOrder,
		BranchID:    po.BranchID,
		TotalAmount: po.Quantity.Mul(po.UnitPrice),
	}, nil
}

func (f *fakeCommerce) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ctxErrs)
}

type fakeInventory struct {
	mu     sync.Mutex
	posted []domain.InventoryDelta
	failAt map[int]error // by attempt index
	seq    int
}

func (f *fakeInventory) PostMovement(_ context.Context, delta domain.InventoryDelta) (*domain.MovementRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt := len(f.posted)
	f.posted = append(f.posted, delta)
	if err := f.failAt[attempt]; err != nil {
		return nil, err
	}
	f.seq++
	return &domain.MovementRecord{
		ID:              fmt.Sprintf("mv-%d", f.seq),
		SupplyItemID:    delta.SupplyItemID,
		BranchID:        delta.BranchID,
		Direction:       delta.Direction,
		Quantity:        delta.Quantity,
		OriginReference: delta.OriginReference,
	}, nil
}

func (f *fakeInventory) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posted)
}

type fakeCatalog struct {
	products map[string]*domain.Product
	errs     map[string]error
	lookups  []string
}

func (f *fakeCatalog) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	f.lookups = append(f.lookups, productID)
	if err := f.errs[productID]; err != nil {
		return nil, err
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, &domain.RemoteError{Kind: domain.KindRejected, Service: "catalog", Operation: "GetProduct", StatusCode: 404, Detail: "product not found"}
	}
	return p, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	results []*domain.WorkflowResult
}

func (p *recordingPublisher) PublishResult(_ context.Context, result *domain.WorkflowResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, result)
}
