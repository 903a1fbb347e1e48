package event

import (
	log "github.com/sirupsen/logrus"

	"github.com/onemack/calladmin/internal/session"
)

const defaultQueueSize = 1024

type Kind string

const (
	KindPlayerConnect    Kind = "player_connect"
	KindPlayerDisconnect Kind = "player_disconnect"
	KindMapChange        Kind = "map_change"
	KindPlayerCommand    Kind = "player_command"
)

// Event is one host notification. Player is set for connect events, Slot for
// disconnects and commands, Map for map changes, Command and Args for player
// commands.
type Event struct {
	Kind    Kind
	Player  session.Player
	Slot    int
	Map     string
	Command string
	Args    []string
}

// Bus decouples the host's event callbacks from the worker applying them.
// Publish never blocks the host; a saturated queue drops the event.
type Bus struct {
	q chan Event
}

func NewBus(size int) *Bus {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Bus{q: make(chan Event, size)}
}

func (b *Bus) Publish(e Event) {
	select {
	case b.q <- e:
	default:
		log.WithField("context", "event").WithField("kind", e.Kind).Warn("event queue saturated, dropping")
	}
}

func (b *Bus) events() <-chan Event {
	return b.q
}
