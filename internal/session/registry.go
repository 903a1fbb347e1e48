package session

import (
	"strings"
	"sync"
)

// Player is the host's view of a connected player. Slot addresses the player
// within the current session, SteamID is the stable identity.
type Player struct {
	Name    string
	SteamID string
	UserID  int
	Slot    int
}

// Registry tracks players currently connected to the server. The host feeds
// connect/disconnect events; flows only read.
type Registry struct {
	mutex   sync.RWMutex
	bySlot  map[int]Player
	mapName string
}

func NewRegistry() *Registry {
	return &Registry{bySlot: map[int]Player{}}
}

func (r *Registry) Connect(player Player) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.bySlot[player.Slot] = player
}

func (r *Registry) Disconnect(slot int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.bySlot, slot)
}

// SetMapName records the map the server switched to. The host calls this on
// every map change.
func (r *Registry) SetMapName(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.mapName = name
}

func (r *Registry) MapName() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.mapName
}

func (r *Registry) BySlot(slot int) (Player, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	player, ok := r.bySlot[slot]
	return player, ok
}

func (r *Registry) BySteamID(steamID string) (Player, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, player := range r.bySlot {
		if player.SteamID == steamID {
			return player, true
		}
	}
	return Player{}, false
}

// FindByName matches a connected player by exact name first, then by unique
// case-insensitive prefix. Ambiguous prefixes match nothing.
func (r *Registry) FindByName(name string) (Player, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var (
		match   Player
		matches int
	)
	lowered := strings.ToLower(name)
	for _, player := range r.bySlot {
		if player.Name == name {
			return player, true
		}
		if strings.HasPrefix(strings.ToLower(player.Name), lowered) {
			match = player
			matches++
		}
	}
	if matches == 1 {
		return match, true
	}
	return Player{}, false
}
