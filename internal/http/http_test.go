package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/imovelware/vendazap/internal/store"
	"github.com/imovelware/vendazap/internal/whatsapp"
)

// stubDriver connects instantly and records sends.
type stubDriver struct {
	mu     sync.Mutex
	events chan whatsapp.DriverEvent
	closed bool
	sent   []string
	sentTo []string
}

func (d *stubDriver) Start(context.Context) error {
	d.events <- whatsapp.DriverEvent{Kind: whatsapp.EventReady}
	return nil
}

func (d *stubDriver) Logout(context.Context) error { return nil }

func (d *stubDriver) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
}

func (d *stubDriver) SendText(_ context.Context, addr, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sentTo = append(d.sentTo, addr)
	d.sent = append(d.sent, body)
	return nil
}

func (d *stubDriver) ResolveNumber(_ context.Context, digits string) (string, bool, error) {
	return whatsapp.WireAddress(digits), true, nil
}

func (d *stubDriver) Events() <-chan whatsapp.DriverEvent { return d.events }

func (d *stubDriver) sentCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type testEnv struct {
	server *Server
	mux    *http.ServeMux
	store  *store.Store
	mgr    *whatsapp.Manager
	driver *stubDriver
	tenant *store.Tenant
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	driver := &stubDriver{events: make(chan whatsapp.DriverEvent, 16)}
	mgr := whatsapp.NewManager(whatsapp.NewRegistry(),
		func(int64) (whatsapp.Driver, error) { return driver, nil },
		whatsapp.Options{SendsPerMinute: 100000})

	tenant, err := st.CreateTenant(context.Background(), "agencia", "Agência")
	if err != nil {
		t.Fatal(err)
	}

	srv := NewServer(mgr, st, token)
	return &testEnv{server: srv, mux: srv.Routes(), store: st, mgr: mgr, driver: driver, tenant: tenant}
}

func (e *testEnv) request(method, path, tenant string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if tenant != "" {
		req.Header.Set("X-Tenant", tenant)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) connectTenant(t *testing.T) {
	t.Helper()
	if err := e.mgr.Initialize(context.Background(), e.tenant.ID); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.mgr.Status(e.tenant.ID).Status == whatsapp.StatusConnected {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("tenant never connected")
}

func TestStatusUnknownTenant(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.request(http.MethodGet, "/api/whatsapp/status", "nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStatusMissingTenantHeader(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.request(http.MethodGet, "/api/whatsapp/status", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	e := newTestEnv(t, "s3cret")

	rec := e.request(http.MethodGet, "/api/whatsapp/status", "agencia", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without token status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/whatsapp/status", nil)
	req.Header.Set("X-Tenant", "agencia")
	req.Header.Set("Authorization", "Bearer s3cret")
	rec2 := httptest.NewRecorder()
	e.mux.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Errorf("with token status = %d, want 200", rec2.Code)
	}
}

func TestStatusDefaultsDisconnected(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.request(http.MethodGet, "/api/whatsapp/status", "agencia", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap whatsapp.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Status != whatsapp.StatusDisconnected || snap.QR != "" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestConnectRespondsImmediately(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.request(http.MethodPost, "/api/whatsapp/connect", "agencia", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// Bring-up continues in the background.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.mgr.Status(e.tenant.ID).Status == whatsapp.StatusConnected {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("channel never came up after connect request")
}

func TestCreateDealNotifiesParticipants(t *testing.T) {
	e := newTestEnv(t, "")
	e.connectTenant(t)

	broker := &store.Broker{
		TenantID: e.tenant.ID, Name: "Ana Souza",
		Phone: "47999998888", CommissionPct: 3, Active: true,
	}
	if err := e.store.CreateBroker(context.Background(), broker); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(createDealRequest{
		PropertyTitle: "Apartamento Centro 302",
		Value:         500000,
		SaleDate:      "2026-08-14",
		BrokerIDs:     []string{broker.ID},
	})
	rec := e.request(http.MethodPost, "/api/deals", "agencia", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.driver.sentCount() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	if len(e.driver.sentTo) != 1 || e.driver.sentTo[0] != "5547999998888@s.whatsapp.net" {
		t.Fatalf("sent to %v", e.driver.sentTo)
	}
	if want := "Olá, Ana!"; !bytes.Contains([]byte(e.driver.sent[0]), []byte(want)) {
		t.Errorf("notification missing greeting %q", want)
	}
}

func TestSendEndpoint(t *testing.T) {
	e := newTestEnv(t, "")
	e.connectTenant(t)

	body, _ := json.Marshal(map[string]string{
		"phone":   "47 99999-8888",
		"message": "mensagem de teste",
	})
	rec := e.request(http.MethodPost, "/api/whatsapp/send", "agencia", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Delivered bool `json:"delivered"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Delivered {
		t.Fatal("delivered = false")
	}
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	if len(e.driver.sentTo) != 1 || e.driver.sentTo[0] != "5547999998888@s.whatsapp.net" {
		t.Fatalf("sent to %v", e.driver.sentTo)
	}
}

func TestSendEndpointRejectsEmptyBody(t *testing.T) {
	e := newTestEnv(t, "")
	rec := e.request(http.MethodPost, "/api/whatsapp/send", "agencia", []byte(`{}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateDealRejectsUnknownBrokers(t *testing.T) {
	e := newTestEnv(t, "")
	body, _ := json.Marshal(createDealRequest{
		PropertyTitle: "Casa",
		Value:         1000,
		SaleDate:      "2026-08-14",
		BrokerIDs:     []string{"missing"},
	})
	rec := e.request(http.MethodPost, "/api/deals", "agencia", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
