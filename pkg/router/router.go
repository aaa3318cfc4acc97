package router

// Router is the navigation collaborator.
type Router interface {
	// Query returns the current location's query mapping. Reading it while a
	// vango watcher is evaluating subscribes that watcher to navigations.
	// Callers must not mutate the returned map.
	Query() Query

	// Replace replaces the current location's query with q. It never pushes
	// a history entry and is safe to call with an unchanged mapping.
	Replace(q Query)
}

// NavigationKind classifies a navigation.
type NavigationKind int

const (
	// NavigationPush added a history entry.
	NavigationPush NavigationKind = iota + 1

	// NavigationReplace swapped the current history entry.
	NavigationReplace

	// NavigationPop moved through existing history (Back/Forward).
	NavigationPop
)

// String returns a human-readable name for the navigation kind.
func (k NavigationKind) String() string {
	switch k {
	case NavigationPush:
		return "push"
	case NavigationReplace:
		return "replace"
	case NavigationPop:
		return "pop"
	default:
		return "unknown"
	}
}

// NavigationEvent describes a completed navigation.
type NavigationEvent struct {
	Kind NavigationKind
	From Location
	To   Location
}
