package whatsapp

import (
	"context"
	"log/slog"
	"sync"
)

// TenantChannel is the registry entry for one tenant. Entries are
// created lazily on first access and live for the process lifetime;
// only their fields transition. All mutation goes through the manager.
type TenantChannel struct {
	TenantID int64
	Status   Status
	QR       string // PNG data URL, awaiting-pairing only
	Driver   Driver // exclusive handle, nil while disconnected

	// task marks an in-flight bring-up so a forced re-init can cancel
	// and await it before constructing a replacement driver.
	task *initTask
}

type initTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Subscriber receives every status change for a tenant, in transition
// order. The QR argument is the pairing image when one is displayed.
type Subscriber func(status Status, qr string)

type subscription struct {
	id int64
	fn Subscriber
}

// Registry is the process-wide table of tenant channel state and status
// subscribers. It is plain storage: the manager owns every mutation,
// external callers only read snapshots. Tenants never share entries, so
// one tenant's failure cannot touch another's state.
type Registry struct {
	mu      sync.Mutex
	tenants map[int64]*TenantChannel
	subs    map[int64][]subscription
	nextSub int64
}

func NewRegistry() *Registry {
	return &Registry{
		tenants: make(map[int64]*TenantChannel),
		subs:    make(map[int64][]subscription),
	}
}

// Update runs fn on the tenant's entry under the registry lock,
// creating a disconnected entry on first access. fn must not block.
func (r *Registry) Update(tenantID int64, fn func(ch *TenantChannel)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.getOrCreate(tenantID))
}

func (r *Registry) getOrCreate(tenantID int64) *TenantChannel {
	ch, ok := r.tenants[tenantID]
	if !ok {
		ch = &TenantChannel{TenantID: tenantID, Status: StatusDisconnected}
		r.tenants[tenantID] = ch
	}
	return ch
}

// Snapshot returns the tenant's current status and pairing image.
// Side-effect free: an unseen tenant reads as disconnected without an
// entry being created.
func (r *Registry) Snapshot(tenantID int64) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.tenants[tenantID]
	if !ok {
		return Snapshot{Status: StatusDisconnected}
	}
	return Snapshot{Status: ch.Status, QR: ch.QR}
}

// Subscribe registers fn for the tenant's status changes and returns an
// unsubscribe func.
func (r *Registry) Subscribe(tenantID int64, fn Subscriber) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSub++
	id := r.nextSub
	r.subs[tenantID] = append(r.subs[tenantID], subscription{id: id, fn: fn})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		list := r.subs[tenantID]
		for i, s := range list {
			if s.id == id {
				r.subs[tenantID] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Notify invokes every subscriber registered for the tenant, in
// registration order. A panicking subscriber is logged and skipped so it
// cannot starve the remaining subscribers.
func (r *Registry) Notify(tenantID int64, status Status, qr string) {
	r.mu.Lock()
	list := make([]subscription, len(r.subs[tenantID]))
	copy(list, r.subs[tenantID])
	r.mu.Unlock()

	for _, s := range list {
		invoke(tenantID, s, status, qr)
	}
}

func invoke(tenantID int64, s subscription, status Status, qr string) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("status subscriber panicked", "tenant", tenantID, "panic", rec)
		}
	}()
	s.fn(status, qr)
}
