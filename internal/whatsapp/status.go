// Package whatsapp implements the per-tenant WhatsApp session manager:
// one outbound notification channel per tenant, multiplexed inside a
// single process. Each tenant owns an independent connection state
// machine driven by the events of an underlying whatsmeow client.
package whatsapp

// Status is the connection state of a tenant's channel.
type Status string

const (
	StatusDisconnected    Status = "disconnected"
	StatusConnecting      Status = "connecting"
	StatusAwaitingPairing Status = "awaiting-pairing"
	StatusConnected       Status = "connected"
)

// Snapshot is the caller-facing view of a tenant's channel. QR is a PNG
// data URL and is only set while the channel awaits pairing.
type Snapshot struct {
	Status Status `json:"status"`
	QR     string `json:"qr,omitempty"`
}
