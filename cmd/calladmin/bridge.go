package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/onemack/calladmin/internal/event"
	"github.com/onemack/calladmin/internal/policy/permissions"
	"github.com/onemack/calladmin/internal/session"
)

// hostBridge is the game server integration: a line protocol where the server
// side feeds session events and player commands, and enforcement console
// commands plus outcome notices flow back out.
//
//	connect <slot> <userid> <steamid> <name...>
//	disconnect <slot>
//	map <name>
//	grant <steamid> <permission>
//	cmd <slot> <command> [args...]
//
// Outbound lines are "exec <console command>" and "chat <slot> <notice>".
type hostBridge struct {
	bus *event.Bus

	outMutex sync.Mutex
	out      io.Writer

	permMutex sync.RWMutex
	perms     map[string][]string
}

func newHostBridge(bus *event.Bus, out io.Writer) *hostBridge {
	return &hostBridge{
		bus:   bus,
		out:   out,
		perms: map[string][]string{},
	}
}

func (b *hostBridge) HasPermission(steamID, permission string) bool {
	b.permMutex.RLock()
	defer b.permMutex.RUnlock()
	return permissions.Satisfies(b.perms[steamID], permission)
}

func (b *hostBridge) grant(steamID, permission string) {
	b.permMutex.Lock()
	defer b.permMutex.Unlock()
	b.perms[steamID] = append(b.perms[steamID], permission)
}

func (b *hostBridge) ExecuteCommand(command string) {
	b.writeLine("exec " + command)
}

func (b *hostBridge) PrintToChat(slot int, message string) {
	b.writeLine(fmt.Sprintf("chat %d %s", slot, message))
}

func (b *hostBridge) writeLine(line string) {
	b.outMutex.Lock()
	defer b.outMutex.Unlock()
	if _, err := fmt.Fprintln(b.out, line); err != nil {
		log.WithError(err).WithField("context", "bridge").Error("cant write to host")
	}
}

// handleLine parses one inbound host line. Session events and player commands
// both land on the event bus, which the worker drains in publish order, so a
// command never overtakes the connect that preceded it.
func (b *hostBridge) handleLine(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	entry := log.WithField("context", "bridge").WithField("line", line)

	switch fields[0] {
	case "connect":
		if len(fields) < 5 {
			entry.Warn("malformed connect")
			return
		}
		slot, slotErr := strconv.Atoi(fields[1])
		userID, userErr := strconv.Atoi(fields[2])
		if slotErr != nil || userErr != nil {
			entry.Warn("malformed connect")
			return
		}
		b.bus.Publish(event.Event{Kind: event.KindPlayerConnect, Player: session.Player{
			Slot:    slot,
			UserID:  userID,
			SteamID: fields[3],
			Name:    strings.Join(fields[4:], " "),
		}})
	case "disconnect":
		if len(fields) != 2 {
			entry.Warn("malformed disconnect")
			return
		}
		slot, err := strconv.Atoi(fields[1])
		if err != nil {
			entry.Warn("malformed disconnect")
			return
		}
		b.bus.Publish(event.Event{Kind: event.KindPlayerDisconnect, Slot: slot})
	case "map":
		if len(fields) != 2 {
			entry.Warn("malformed map change")
			return
		}
		b.bus.Publish(event.Event{Kind: event.KindMapChange, Map: fields[1]})
	case "grant":
		if len(fields) != 3 {
			entry.Warn("malformed grant")
			return
		}
		b.grant(fields[1], fields[2])
	case "cmd":
		if len(fields) < 3 {
			entry.Warn("malformed command")
			return
		}
		slot, err := strconv.Atoi(fields[1])
		if err != nil {
			entry.Warn("malformed command")
			return
		}
		b.bus.Publish(event.Event{Kind: event.KindPlayerCommand, Slot: slot, Command: fields[2], Args: fields[3:]})
	default:
		entry.Warn("unknown host line")
	}
}
