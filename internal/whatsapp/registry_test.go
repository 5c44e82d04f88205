package whatsapp

import "testing"

func TestSnapshotUnseenTenant(t *testing.T) {
	r := NewRegistry()
	snap := r.Snapshot(42)
	if snap.Status != StatusDisconnected {
		t.Errorf("unseen tenant status = %s, want disconnected", snap.Status)
	}
	if snap.QR != "" {
		t.Errorf("unseen tenant qr = %q, want empty", snap.QR)
	}
	// Reads must not materialize the tenant.
	if len(r.tenants) != 0 {
		t.Errorf("snapshot created %d registry entries", len(r.tenants))
	}
}

func TestTenantIsolation(t *testing.T) {
	r := NewRegistry()
	r.Update(1, func(ch *TenantChannel) {
		ch.Status = StatusConnected
	})
	r.Update(2, func(ch *TenantChannel) {
		ch.Status = StatusAwaitingPairing
		ch.QR = "data:image/png;base64,xxx"
	})

	if got := r.Snapshot(1); got.Status != StatusConnected || got.QR != "" {
		t.Errorf("tenant 1 = %+v, want connected with no qr", got)
	}
	if got := r.Snapshot(2); got.Status != StatusAwaitingPairing || got.QR == "" {
		t.Errorf("tenant 2 = %+v, want awaiting-pairing with qr", got)
	}

	var calls int
	r.Subscribe(1, func(Status, string) { calls++ })
	r.Notify(2, StatusDisconnected, "")
	if calls != 0 {
		t.Errorf("tenant 1 subscriber received tenant 2 notification")
	}
}

func TestNotifyOrderAndUnsubscribe(t *testing.T) {
	r := NewRegistry()
	var order []string
	unsubA := r.Subscribe(7, func(Status, string) { order = append(order, "a") })
	r.Subscribe(7, func(Status, string) { order = append(order, "b") })

	r.Notify(7, StatusConnecting, "")
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("notification order = %v, want [a b]", order)
	}

	unsubA()
	r.Notify(7, StatusConnected, "")
	if len(order) != 3 || order[2] != "b" {
		t.Errorf("after unsubscribe order = %v, want [a b b]", order)
	}
}

func TestNotifySubscriberPanicIsolated(t *testing.T) {
	r := NewRegistry()
	var got []Status
	r.Subscribe(3, func(Status, string) { panic("boom") })
	r.Subscribe(3, func(s Status, _ string) { got = append(got, s) })

	r.Notify(3, StatusConnected, "")
	if len(got) != 1 || got[0] != StatusConnected {
		t.Errorf("second subscriber got %v, want [connected]", got)
	}
}

func TestNotifyPassesPairingImage(t *testing.T) {
	r := NewRegistry()
	var gotQR string
	r.Subscribe(9, func(_ Status, qr string) { gotQR = qr })
	r.Notify(9, StatusAwaitingPairing, "data:image/png;base64,abc")
	if gotQR != "data:image/png;base64,abc" {
		t.Errorf("subscriber qr = %q", gotQR)
	}
}
