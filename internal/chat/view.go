package chat

import "sort"

// View is a read-only window onto registry state for code that runs inside
// a command handler invocation. The handler executes while the registry
// lock is already held, so View reads state directly without locking; it
// must never be used outside that call and must never escape it.
type View struct {
	r *Registry
}

// HandlerView returns the view to hand to a command handler at install
// time. See View for the usage constraint.
func (r *Registry) HandlerView() View {
	return View{r: r}
}

// Nicknames returns the nicknames of all connected clients, sorted.
func (v View) Nicknames() []string {
	names := make([]string, 0, len(v.r.nicks))
	for nick := range v.r.nicks {
		names = append(names, nick)
	}
	sort.Strings(names)
	return names
}

// ActiveChannels returns the names of non-empty channels, sorted.
func (v View) ActiveChannels() []string {
	names := v.r.activeChannelsLocked()
	sort.Strings(names)
	return names
}
