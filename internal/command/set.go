// Package command provides the server's fallback handler for slash
// commands the chat registry does not implement itself.
package command

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wireline/chatrelay/internal/chat"
)

// RegistryView is the read-only state a built-in command may consult. It
// is satisfied by chat.View; like the handler itself, it is only valid
// while the registry lock is held.
type RegistryView interface {
	Nicknames() []string
	ActiveChannels() []string
}

// Func executes one named command and returns the response text. An empty
// response queues nothing to the issuer.
type Func func(from chat.ConnectionID, args string) string

// Set is a named-command table. Registration and lookup are safe for
// concurrent use.
type Set struct {
	mu       sync.RWMutex
	commands map[string]Func
}

// NewSet returns an empty command set.
func NewSet() *Set {
	return &Set{commands: make(map[string]Func)}
}

// Register adds or replaces a command.
func (s *Set) Register(name string, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[name] = fn
}

// Names returns the registered command names, sorted.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handler adapts the set to the registry's handler contract. Unknown names
// get the generic error response.
func (s *Set) Handler() chat.CommandHandler {
	return func(from chat.ConnectionID, command, args string) string {
		s.mu.RLock()
		fn, ok := s.commands[command]
		s.mu.RUnlock()

		if !ok {
			return fmt.Sprintf("No such command %s", command)
		}
		return fn(from, args)
	}
}

// Builtins returns a set preloaded with the standard server commands. All
// of them are read-only over the view; commands must never call back into
// registry operations that take the lock.
func Builtins(view RegistryView) *Set {
	s := NewSet()

	s.Register("who", func(chat.ConnectionID, string) string {
		nicks := view.Nicknames()
		if len(nicks) == 0 {
			return "Nobody is connected"
		}
		return "Connected: " + strings.Join(nicks, ", ")
	})

	s.Register("channels", func(chat.ConnectionID, string) string {
		channels := view.ActiveChannels()
		if len(channels) == 0 {
			return "No active channels"
		}
		return "Active channels: " + strings.Join(channels, ", ")
	})

	s.Register("help", func(chat.ConnectionID, string) string {
		return "Commands: /" + strings.Join(s.Names(), ", /")
	})

	return s
}
