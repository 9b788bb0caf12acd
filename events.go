package baasic

// Event types delivered to Subscribe channels.
const (
	// EventTokenExpired fires when the session token expires or is
	// cleared, locally or in another context sharing the backend.
	EventTokenExpired = "tokenExpired"
	// EventUserChange fires when the session user changes; the event
	// carries the current user snapshot.
	EventUserChange = "userChange"
)

// Event is one session notification.
type Event struct {
	Type string
	// User is the session user snapshot for EventUserChange, nil
	// otherwise.
	User map[string]any
}

// Subscribe returns a channel of session events and an unsubscribe
// function. The channel is buffered; a subscriber that stops draining
// loses events rather than stalling the session.
func (a *App) Subscribe() (<-chan Event, func()) {
	a.muListeners.Lock()
	defer a.muListeners.Unlock()

	ch := make(chan Event, 10)
	if a.closed {
		close(ch)
		return ch, func() {}
	}

	id := a.nextID
	a.nextID++
	a.listeners[id] = ch

	unsub := func() {
		a.muListeners.Lock()
		defer a.muListeners.Unlock()

		if c, ok := a.listeners[id]; ok {
			delete(a.listeners, id)
			close(c)
		}
	}
	return ch, unsub
}

func (a *App) emit(event Event) {
	a.muListeners.Lock()
	defer a.muListeners.Unlock()

	for _, ch := range a.listeners {
		select {
		case ch <- event:
		default:
		}
	}
}
