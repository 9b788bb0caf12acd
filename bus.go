package baasic

import (
	"encoding/json"
	"fmt"
)

// BusKey is the single storage slot all contexts sharing a backend use to
// exchange session messages.
const BusKey = "baasic-message-bus"

// Bus message types.
const (
	MessageTokenExpired = "tokenExpired"
	MessageUserChanged  = "userChanged"
)

// busMessage is the ephemeral payload written to the bus key. Source names
// the publishing instance; the write itself is the signal, the value never
// stays in the store.
type busMessage struct {
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
}

// publish announces a session change to every context watching the
// backend. The slot is cleared before and after the write, so the bus key
// is empty whenever no publish is in flight.
func (a *App) publish(messageType string) error {
	payload, err := json.Marshal(busMessage{Type: messageType, Source: a.instanceID})
	if err != nil {
		return fmt.Errorf("encode bus message: %w", err)
	}

	if err := a.backend.RemoveItem(BusKey); err != nil {
		return fmt.Errorf("clear bus slot: %w", err)
	}
	if err := a.backend.SetItem(BusKey, string(payload)); err != nil {
		return fmt.Errorf("write bus message: %w", err)
	}
	if err := a.backend.RemoveItem(BusKey); err != nil {
		return fmt.Errorf("clear bus slot: %w", err)
	}
	return nil
}

func (a *App) startBus() {
	ch, unsub := a.backend.Watch()
	a.busUnsub = unsub

	go func() {
		for change := range ch {
			if change.Key != BusKey || change.NewValue == "" {
				continue
			}

			var msg busMessage
			if err := json.Unmarshal([]byte(change.NewValue), &msg); err != nil {
				// Not a bus message; some other writer used the slot.
				continue
			}
			if msg.Source == a.instanceID {
				continue
			}
			a.handleBusMessage(msg)
		}
	}()
}

func (a *App) handleBusMessage(msg busMessage) {
	switch msg.Type {
	case MessageUserChanged:
		// Another context replaced the session user; drop the local
		// snapshot so the next read hits the store.
		a.muUser.Lock()
		a.user = nil
		a.userLoaded = false
		a.muUser.Unlock()
		a.perms.Reset()
		a.emit(Event{Type: EventUserChange, User: a.User()})
	case MessageTokenExpired:
		// Suppress the expiry callback while clearing on behalf of a
		// remote context; re-publishing the announcement would bounce it
		// between instances, and this handler emits the local event
		// itself, exactly once.
		a.remoteClear.Store(true)
		err := a.tokens.Store(nil)
		a.remoteClear.Store(false)
		if err != nil {
			a.logger.Warn("clear token on bus expiry failed", "error", err)
		}
		a.perms.Reset()
		a.emit(Event{Type: EventTokenExpired})
	default:
		a.logger.Debug("ignoring unknown bus message", "type", msg.Type)
	}
}
