package whatsapp

import "testing"

func TestTransition(t *testing.T) {
	tests := []struct {
		name string
		cur  Status
		ev   EventKind
		next Status
		eff  Effects
		ok   bool
	}{
		{"pairing code while connecting", StatusConnecting, EventPairingCode,
			StatusAwaitingPairing, Effects{SetQR: true, Notify: true}, true},
		{"pairing code rotation", StatusAwaitingPairing, EventPairingCode,
			StatusAwaitingPairing, Effects{SetQR: true, Notify: true}, true},
		{"pairing code while disconnected ignored", StatusDisconnected, EventPairingCode,
			StatusDisconnected, Effects{}, false},
		{"pairing code while connected ignored", StatusConnected, EventPairingCode,
			StatusConnected, Effects{}, false},

		{"ready from connecting", StatusConnecting, EventReady,
			StatusConnected, Effects{ClearQR: true, Notify: true}, true},
		{"ready from awaiting pairing", StatusAwaitingPairing, EventReady,
			StatusConnected, Effects{ClearQR: true, Notify: true}, true},
		{"ready while disconnected ignored", StatusDisconnected, EventReady,
			StatusDisconnected, Effects{}, false},

		{"authenticated keeps state", StatusAwaitingPairing, EventAuthenticated,
			StatusAwaitingPairing, Effects{}, true},

		{"auth failure while connecting", StatusConnecting, EventAuthFailure,
			StatusDisconnected, Effects{ClearQR: true, DropDriver: true, Notify: true}, true},
		{"auth failure while disconnected ignored", StatusDisconnected, EventAuthFailure,
			StatusDisconnected, Effects{}, false},

		{"disconnect from connected", StatusConnected, EventDisconnected,
			StatusDisconnected, Effects{ClearQR: true, DropDriver: true, Notify: true}, true},
		{"disconnect from awaiting pairing", StatusAwaitingPairing, EventDisconnected,
			StatusDisconnected, Effects{ClearQR: true, DropDriver: true, Notify: true}, true},
		{"disconnect from connecting", StatusConnecting, EventDisconnected,
			StatusDisconnected, Effects{ClearQR: true, DropDriver: true, Notify: true}, true},
		{"disconnect while disconnected ignored", StatusDisconnected, EventDisconnected,
			StatusDisconnected, Effects{}, false},
	}

	for _, tt := range tests {
		next, eff, ok := Transition(tt.cur, tt.ev)
		if next != tt.next || eff != tt.eff || ok != tt.ok {
			t.Errorf("%s: Transition(%s, %s) = (%s, %+v, %v), want (%s, %+v, %v)",
				tt.name, tt.cur, tt.ev, next, eff, ok, tt.next, tt.eff, tt.ok)
		}
	}
}
