package workflow

import (
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/erp_backend/models"
)

// NOTE: These tests are intentionally DB-free. They validate the intended
// dispatcher semantics:
// - at-least-once claiming is safe because posting is keyed per outbox row
// - per-tenant serialization prevents racey interleavings inside the engine
//
// Full DB integration coverage lives in the models flow test
// (INTEGRATION_TESTS gated).

type fakePoster struct {
	muByTenant map[int]*sync.Mutex
	mu         sync.Mutex
	posted     map[int]bool
	calls      int
}

func newFakePoster() *fakePoster {
	return &fakePoster{
		muByTenant: map[int]*sync.Mutex{},
		posted:     map[int]bool{},
	}
}

func (p *fakePoster) post(tenantId, outboxId int, fn func()) {
	// Serialize per tenant (AcquireTenantPostingLock).
	p.mu.Lock()
	tm := p.muByTenant[tenantId]
	if tm == nil {
		tm = &sync.Mutex{}
		p.muByTenant[tenantId] = tm
	}
	p.mu.Unlock()

	tm.Lock()
	defer tm.Unlock()

	// Deduplicate per outbox row (status flip to SUCCEEDED commits with the
	// voucher).
	p.mu.Lock()
	if p.posted[outboxId] {
		p.mu.Unlock()
		return
	}
	p.posted[outboxId] = true
	p.mu.Unlock()

	fn()

	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
}

func TestDuplicateClaimPostsOnce(t *testing.T) {
	p := newFakePoster()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.post(1, 42, func() {})
		}()
	}
	wg.Wait()

	if p.calls != 1 {
		t.Fatalf("expected exactly 1 posting call, got %d", p.calls)
	}
}

func TestDistinctRowsAllPost(t *testing.T) {
	p := newFakePoster()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		outboxId := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.post(1, outboxId, func() {})
		}()
	}
	wg.Wait()

	if p.calls != 10 {
		t.Fatalf("expected 10 posting calls, got %d", p.calls)
	}
}

func TestDispatcherDefaults(t *testing.T) {
	d := NewOutboxDispatcher(nil, nil)
	if d.DispatcherID == "" {
		t.Fatal("dispatcher id must be set")
	}
	if d.BatchSize <= 0 {
		t.Fatalf("batch size = %d", d.BatchSize)
	}
	if d.MaxAttempts != models.OutboxMaxAttempts {
		t.Fatalf("max attempts = %d, want %d", d.MaxAttempts, models.OutboxMaxAttempts)
	}
	// A nil DB must be a no-op, not a panic.
	d.dispatchOnce(nil)
}
