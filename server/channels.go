package server

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"host-bridge/middleware"
)

// channelTable maps channel names to handlers. Lookups happen on every request
// while attach/detach may run concurrently.
type channelTable struct {
	handlers *xsync.MapOf[string, middleware.HandlerFunc]
}

func newChannelTable() *channelTable {
	return &channelTable{handlers: xsync.NewMapOf[string, middleware.HandlerFunc]()}
}

// set stores h and reports whether the channel was not attached before.
func (t *channelTable) set(name string, h middleware.HandlerFunc) bool {
	_, loaded := t.handlers.LoadAndStore(name, h)
	return !loaded
}

func (t *channelTable) remove(name string) {
	t.handlers.Delete(name)
}

func (t *channelTable) get(name string) (middleware.HandlerFunc, bool) {
	return t.handlers.Load(name)
}

func (t *channelTable) names() []string {
	names := make([]string, 0, t.handlers.Size())
	t.handlers.Range(func(name string, _ middleware.HandlerFunc) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
