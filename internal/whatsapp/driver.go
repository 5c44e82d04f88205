package whatsapp

import "context"

// EventKind identifies a lifecycle event emitted by a driver.
type EventKind int

const (
	// EventPairingCode carries a fresh pairing code to be scanned.
	// WhatsApp rotates codes every ~20s until one is scanned.
	EventPairingCode EventKind = iota
	// EventAuthenticated fires once the device pairing is accepted.
	EventAuthenticated
	// EventReady fires when the session is fully usable.
	EventReady
	// EventAuthFailure fires when stored credentials are rejected or the
	// pairing handshake fails terminally.
	EventAuthFailure
	// EventDisconnected fires when the session drops, including remote
	// logout from the phone.
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventPairingCode:
		return "pairing-code"
	case EventAuthenticated:
		return "authenticated"
	case EventReady:
		return "ready"
	case EventAuthFailure:
		return "auth-failure"
	case EventDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// DriverEvent is one lifecycle event from the underlying client.
type DriverEvent struct {
	Kind EventKind
	Code string // raw pairing code, EventPairingCode only
	Err  error  // optional failure detail
}

// Driver is the messaging client the session manager drives. The real
// implementation wraps a whatsmeow client bound to a tenant-scoped
// credential store; tests substitute a fake.
type Driver interface {
	// Start brings the session up. It returns once the transport is
	// established; authentication progress arrives via Events.
	Start(ctx context.Context) error
	// Logout invalidates the remote session so the next Start requires
	// a fresh pairing.
	Logout(ctx context.Context) error
	// Destroy tears the client down and releases its resources. Safe to
	// call more than once. The Events channel is closed afterwards.
	Destroy()
	// SendText delivers a plain text message to a wire address.
	SendText(ctx context.Context, addr, body string) error
	// ResolveNumber checks whether a digit string is registered on the
	// network and returns its canonical wire address.
	ResolveNumber(ctx context.Context, digits string) (addr string, registered bool, err error)
	// Events streams lifecycle events until Destroy.
	Events() <-chan DriverEvent
}

// DriverFactory constructs a fresh driver for a tenant. Called once per
// Initialize; the manager guarantees at most one live driver per tenant.
type DriverFactory func(tenantID int64) (Driver, error)
