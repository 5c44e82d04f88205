package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	_ "modernc.org/sqlite"
)

// NewMeowFactory returns a DriverFactory producing whatsmeow clients.
// Each tenant gets its own sqlite credential store under dataDir, so a
// previously paired tenant reconnects without showing a new QR code.
func NewMeowFactory(dataDir string) DriverFactory {
	return func(tenantID int64) (Driver, error) {
		dir := filepath.Join(dataDir, "wa")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create credential dir: %w", err)
		}
		return &meowDriver{
			tenantID: tenantID,
			dbPath:   filepath.Join(dir, fmt.Sprintf("tenant_%d.db", tenantID)),
			events:   make(chan DriverEvent, 16),
		}, nil
	}
}

// meowDriver adapts one whatsmeow client to the Driver contract.
type meowDriver struct {
	tenantID int64
	dbPath   string

	container *sqlstore.Container
	client    *whatsmeow.Client

	mu     sync.Mutex
	closed bool
	events chan DriverEvent
}

func (d *meowDriver) Events() <-chan DriverEvent { return d.events }

func (d *meowDriver) Start(ctx context.Context) error {
	dsn := "file:" + d.dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)"
	container, err := sqlstore.New(ctx, "sqlite", dsn, waLog.Noop)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		container.Close()
		return fmt.Errorf("load device: %w", err)
	}

	client := whatsmeow.NewClient(device, waLog.Noop)
	// Recovery is caller-triggered via a fresh connect request, never a
	// background reconnect loop.
	client.EnableAutoReconnect = false
	client.AddEventHandler(d.translate)

	d.container = container
	d.client = client

	if client.Store.ID == nil {
		// Never paired (or credentials wiped): pairing codes arrive on
		// the QR channel, which must be armed before Connect.
		qrChan, err := client.GetQRChannel(ctx)
		if err != nil {
			container.Close()
			return fmt.Errorf("arm pairing channel: %w", err)
		}
		go d.pumpQR(qrChan)
	}

	if err := client.Connect(); err != nil {
		container.Close()
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// translate maps whatsmeow events onto the driver event vocabulary.
func (d *meowDriver) translate(evt any) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		d.emit(DriverEvent{Kind: EventAuthenticated})
	case *events.Connected:
		d.emit(DriverEvent{Kind: EventReady})
	case *events.ConnectFailure:
		d.emit(DriverEvent{Kind: EventAuthFailure, Err: fmt.Errorf("connect failure: %s", e.Reason)})
	case *events.ClientOutdated:
		d.emit(DriverEvent{Kind: EventAuthFailure, Err: fmt.Errorf("client version rejected")})
	case *events.LoggedOut:
		// Remote logout from the phone.
		d.emit(DriverEvent{Kind: EventDisconnected, Err: fmt.Errorf("logged out: %s", e.Reason)})
	case *events.StreamReplaced:
		d.emit(DriverEvent{Kind: EventDisconnected, Err: fmt.Errorf("stream replaced by another session")})
	case *events.Disconnected:
		d.emit(DriverEvent{Kind: EventDisconnected})
	}
}

func (d *meowDriver) pumpQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			d.emit(DriverEvent{Kind: EventPairingCode, Code: item.Code})
		case whatsmeow.QRChannelSuccess.Event:
			// PairSuccess arrives through the event handler.
		case whatsmeow.QRChannelEventError:
			d.emit(DriverEvent{Kind: EventAuthFailure, Err: item.Error})
		default:
			// timeout, scanned-without-multidevice, outdated client
			d.emit(DriverEvent{Kind: EventAuthFailure, Err: fmt.Errorf("pairing ended: %s", item.Event)})
		}
	}
}

func (d *meowDriver) Logout(ctx context.Context) error {
	if d.client == nil {
		return nil
	}
	return d.client.Logout(ctx)
}

func (d *meowDriver) Destroy() {
	if d.client != nil {
		d.client.RemoveEventHandlers()
		d.client.Disconnect()
	}
	if d.container != nil {
		d.container.Close()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
}

func (d *meowDriver) SendText(ctx context.Context, addr, body string) error {
	jid, err := types.ParseJID(addr)
	if err != nil {
		return fmt.Errorf("parse address %q: %w", addr, err)
	}
	_, err = d.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(body),
	})
	return err
}

func (d *meowDriver) ResolveNumber(ctx context.Context, digits string) (string, bool, error) {
	resp, err := d.client.IsOnWhatsApp(ctx, []string{"+" + digits})
	if err != nil {
		return "", false, err
	}
	if len(resp) == 0 {
		return "", false, fmt.Errorf("empty lookup response for %s", digits)
	}
	if !resp[0].IsIn {
		return "", false, nil
	}
	return resp[0].JID.String(), true, nil
}

// emit hands an event to the manager's pump. Events race teardown, so
// the channel is guarded rather than relying on drivers never emitting
// after Destroy.
func (d *meowDriver) emit(ev DriverEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.events <- ev:
	default:
		slog.Warn("driver event dropped", "tenant", d.tenantID, "event", ev.Kind.String())
	}
}
