package whatsapp

// Effects is the side-effect list produced by a state transition. The
// manager applies it against the registry entry; keeping the transition
// itself pure makes the machine testable without a driver.
type Effects struct {
	SetQR      bool // store the freshly rendered pairing image
	ClearQR    bool // drop any stored pairing image
	DropDriver bool // release the driver handle
	Notify     bool // broadcast the new status to subscribers
}

// Transition folds a driver event into the state machine. ok is false
// when the event does not apply in the current state (stale or
// out-of-order events are ignored, not errors).
func Transition(cur Status, ev EventKind) (next Status, eff Effects, ok bool) {
	switch ev {
	case EventPairingCode:
		// First code moves connecting → awaiting-pairing; later codes
		// are rotations and only refresh the stored image.
		if cur == StatusConnecting || cur == StatusAwaitingPairing {
			return StatusAwaitingPairing, Effects{SetQR: true, Notify: true}, true
		}
	case EventAuthenticated:
		// Credentials accepted; the session is not usable until ready.
		if cur == StatusConnecting || cur == StatusAwaitingPairing {
			return cur, Effects{}, true
		}
	case EventReady:
		if cur == StatusConnecting || cur == StatusAwaitingPairing {
			return StatusConnected, Effects{ClearQR: true, Notify: true}, true
		}
	case EventAuthFailure:
		if cur != StatusDisconnected {
			return StatusDisconnected, Effects{ClearQR: true, DropDriver: true, Notify: true}, true
		}
	case EventDisconnected:
		if cur != StatusDisconnected {
			return StatusDisconnected, Effects{ClearQR: true, DropDriver: true, Notify: true}, true
		}
	}
	return cur, Effects{}, false
}
