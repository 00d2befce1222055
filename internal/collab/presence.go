package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// PresenceManager tracks live cursor and selection state per connected
// client. Keyed by clientID, not userID: the same user editing in two
// tabs has two independent cursors.
type PresenceManager struct {
	mu      sync.RWMutex
	entries map[string]*PresencePayload // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{entries: make(map[string]*PresencePayload)}
}

func (pm *PresenceManager) Update(clientID string, p *PresencePayload) {
	pm.mu.Lock()
	pm.entries[clientID] = p
	pm.mu.Unlock()
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	delete(pm.entries, clientID)
	pm.mu.Unlock()
}

// Snapshot copies the current presence map.
func (pm *PresenceManager) Snapshot() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make(map[string]*PresencePayload, len(pm.entries))
	for id, p := range pm.entries {
		out[id] = p
	}
	return out
}

// StateMessage builds the full presence state sent to a joining client.
func (pm *PresenceManager) StateMessage() *Message {
	payload, err := json.Marshal(PresenceStatePayload{Presences: pm.Snapshot()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{Type: TypePresenceState, Payload: payload}
}
