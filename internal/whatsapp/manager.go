package whatsapp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Options tunes the session manager.
type Options struct {
	// ConnectTimeout bounds one bring-up attempt. A handshake that hangs
	// past it is recovered by the next connect request, which forcibly
	// re-initializes the channel.
	ConnectTimeout time.Duration
	// SendsPerMinute paces outbound messages per tenant. WhatsApp is
	// quick to flag accounts that burst.
	SendsPerMinute int
}

const (
	defaultConnectTimeout = 60 * time.Second
	defaultSendsPerMinute = 20
	sendBurst             = 5
)

// Manager is the operations layer over the registry: it owns every
// state mutation, drives the per-tenant driver clients and folds their
// events into the state machine. Operations on different tenants are
// fully independent; operations on the same tenant may interleave
// across blocking driver calls, so state is re-checked after each one.
type Manager struct {
	reg       *Registry
	newDriver DriverFactory
	renderQR  func(code string) (string, error)

	connectTimeout time.Duration
	sendRate       rate.Limit

	limMu    sync.Mutex
	limiters map[int64]*rate.Limiter
}

func NewManager(reg *Registry, factory DriverFactory, opts Options) *Manager {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.SendsPerMinute <= 0 {
		opts.SendsPerMinute = defaultSendsPerMinute
	}
	return &Manager{
		reg:            reg,
		newDriver:      factory,
		renderQR:       renderQRDataURL,
		connectTimeout: opts.ConnectTimeout,
		sendRate:       rate.Every(time.Minute / time.Duration(opts.SendsPerMinute)),
		limiters:       make(map[int64]*rate.Limiter),
	}
}

// Status returns the tenant's current snapshot.
func (m *Manager) Status(tenantID int64) Snapshot {
	return m.reg.Snapshot(tenantID)
}

// Subscribe registers fn for the tenant's status changes.
func (m *Manager) Subscribe(tenantID int64, fn Subscriber) (unsubscribe func()) {
	return m.reg.Subscribe(tenantID, fn)
}

// Initialize brings the tenant's channel up. No-op when a session is
// already connected or showing a pairing code. A channel stuck in
// connecting is torn down first and re-armed, so there is never more
// than one live client per tenant. The error return is for the caller's
// log only; callers fire Initialize asynchronously.
func (m *Manager) Initialize(ctx context.Context, tenantID int64) error {
	log := slog.With("tenant", tenantID)

	initCtx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	task := &initTask{cancel: cancel, done: make(chan struct{})}

	var (
		active     bool
		prevTask   *initTask
		prevDriver Driver
	)
	m.reg.Update(tenantID, func(ch *TenantChannel) {
		switch ch.Status {
		case StatusConnected, StatusAwaitingPairing:
			active = true
			return
		}
		// Claim the channel atomically with grabbing whatever a prior
		// initialize left behind.
		prevTask, prevDriver = ch.task, ch.Driver
		ch.task, ch.Driver = task, nil
		ch.Status = StatusConnecting
		ch.QR = ""
	})
	if active {
		cancel()
		log.Info("initialize skipped, session already active")
		return nil
	}
	if prevTask != nil {
		log.Warn("cancelling in-flight bring-up before re-init")
		prevTask.cancel()
		<-prevTask.done
	}
	if prevDriver != nil {
		log.Warn("destroying stuck client before re-init")
		prevDriver.Destroy()
	}

	m.reg.Notify(tenantID, StatusConnecting, "")
	log.Info("initializing whatsapp client")

	driver, err := m.newDriver(tenantID)
	if err != nil {
		m.release(tenantID, task, nil)
		close(task.done)
		cancel()
		log.Error("client construction failed", "error", err)
		return err
	}

	var superseded bool
	m.reg.Update(tenantID, func(ch *TenantChannel) {
		if ch.task != task {
			superseded = true
			return
		}
		ch.Driver = driver
	})
	if superseded {
		driver.Destroy()
		close(task.done)
		cancel()
		return nil
	}

	go m.pump(tenantID, driver)

	err = driver.Start(initCtx)
	close(task.done)
	cancel()
	if err != nil {
		m.release(tenantID, task, driver)
		driver.Destroy()
		log.Error("bring-up failed", "error", err)
		return err
	}

	m.reg.Update(tenantID, func(ch *TenantChannel) {
		if ch.task == task {
			ch.task = nil
		}
	})
	return nil
}

// release forces the channel back to disconnected after a failed
// bring-up, provided this attempt still owns the entry.
func (m *Manager) release(tenantID int64, task *initTask, driver Driver) {
	var owned bool
	m.reg.Update(tenantID, func(ch *TenantChannel) {
		if ch.task != task && (driver == nil || ch.Driver != driver) {
			return
		}
		if ch.task == task {
			ch.task = nil
		}
		if driver != nil && ch.Driver == driver {
			ch.Driver = nil
		}
		ch.Status = StatusDisconnected
		ch.QR = ""
		owned = true
	})
	if owned {
		m.reg.Notify(tenantID, StatusDisconnected, "")
	}
}

// Disconnect invalidates the tenant's session and tears the client
// down. No-op when nothing is held. Never fails the caller: logout and
// teardown errors are logged and swallowed.
func (m *Manager) Disconnect(ctx context.Context, tenantID int64) {
	log := slog.With("tenant", tenantID)

	var (
		d    Driver
		task *initTask
	)
	m.reg.Update(tenantID, func(ch *TenantChannel) {
		d, task = ch.Driver, ch.task
		ch.Driver, ch.task = nil, nil
	})
	if d == nil && task == nil {
		log.Info("no client to disconnect")
		return
	}
	if task != nil {
		task.cancel()
		<-task.done
	}
	if d != nil {
		if err := d.Logout(ctx); err != nil {
			log.Warn("logout failed", "error", err)
		}
		d.Destroy()
	}

	var changed bool
	m.reg.Update(tenantID, func(ch *TenantChannel) {
		if ch.Status != StatusDisconnected {
			ch.Status = StatusDisconnected
			ch.QR = ""
			changed = true
		}
	})
	if changed {
		m.reg.Notify(tenantID, StatusDisconnected, "")
	}
	log.Info("disconnected")
}

// SendMessage normalizes the phone number and delivers body over the
// tenant's channel. Single attempt; every failure mode is logged and
// reported as false, never as an error.
func (m *Manager) SendMessage(ctx context.Context, tenantID int64, phone, body string) bool {
	log := slog.With("tenant", tenantID)

	var (
		st Status
		d  Driver
	)
	m.reg.Update(tenantID, func(ch *TenantChannel) {
		st, d = ch.Status, ch.Driver
	})
	if st != StatusConnected || d == nil {
		log.Error("send rejected, channel not connected", "status", st)
		return false
	}

	if err := m.limiter(tenantID).Wait(ctx); err != nil {
		log.Warn("send cancelled while pacing", "error", err)
		return false
	}

	digits := NormalizePhone(phone)
	addr := WireAddress(digits)

	resolved, registered, err := d.ResolveNumber(ctx, digits)
	switch {
	case err != nil:
		// Lookup failure is not a negative result; fall back to the
		// manually built address and attempt delivery anyway.
		log.Warn("number lookup failed, attempting direct send", "addr", addr, "error", err)
	case !registered:
		log.Error("number not registered on whatsapp", "number", digits)
		return false
	default:
		addr = resolved
	}

	// The lookup yielded; the channel may have dropped meanwhile.
	if m.reg.Snapshot(tenantID).Status != StatusConnected {
		log.Error("channel dropped before send", "addr", addr)
		return false
	}

	if err := d.SendText(ctx, addr, body); err != nil {
		log.Error("send failed", "addr", addr, "error", err)
		return false
	}
	log.Info("message sent", "addr", addr)
	return true
}

func (m *Manager) limiter(tenantID int64) *rate.Limiter {
	m.limMu.Lock()
	defer m.limMu.Unlock()
	l, ok := m.limiters[tenantID]
	if !ok {
		l = rate.NewLimiter(m.sendRate, sendBurst)
		m.limiters[tenantID] = l
	}
	return l
}

// pump consumes driver events until the driver is destroyed.
func (m *Manager) pump(tenantID int64, d Driver) {
	for ev := range d.Events() {
		m.handleEvent(tenantID, d, ev)
	}
}

// handleEvent folds one driver event into the tenant's state machine
// and applies the resulting effects. Events from a driver that is no
// longer the registry's handle are stale and dropped.
func (m *Manager) handleEvent(tenantID int64, d Driver, ev DriverEvent) {
	log := slog.With("tenant", tenantID, "event", ev.Kind.String())

	var qrImage string
	if ev.Kind == EventPairingCode {
		img, err := m.renderQR(ev.Code)
		if err != nil {
			log.Error("pairing code render failed", "error", err)
			return
		}
		qrImage = img
	}

	var (
		applied bool
		eff     Effects
		status  Status
		qr      string
		drop    Driver
	)
	m.reg.Update(tenantID, func(ch *TenantChannel) {
		if ch.Driver != d {
			return // stale driver
		}
		next, effects, ok := Transition(ch.Status, ev.Kind)
		if !ok {
			return
		}
		ch.Status = next
		if effects.SetQR {
			ch.QR = qrImage
		}
		if effects.ClearQR {
			ch.QR = ""
		}
		if effects.DropDriver {
			drop = ch.Driver
			ch.Driver = nil
		}
		applied, eff, status, qr = true, effects, next, ch.QR
	})
	if !applied {
		log.Debug("event ignored")
		return
	}

	if ev.Err != nil {
		log.Warn("session event", "status", status, "error", ev.Err)
	} else {
		log.Info("session event", "status", status)
	}
	if drop != nil {
		drop.Destroy()
	}
	if eff.Notify {
		m.reg.Notify(tenantID, status, qr)
	}
}
