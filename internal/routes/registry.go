// Package routes holds the planned-route registry handed to the API layer,
// replacing process-wide state with an owned container.
package routes

import (
	"errors"
	"sync"

	"github.com/asafarditi/Battlator/internal/planner"
)

// ErrNotFound reports an unknown route id.
var ErrNotFound = errors.New("route not found")

// Registry maps route ids to the routes of the most recent planning call.
type Registry struct {
	mu     sync.RWMutex
	routes map[string]*planner.Route
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{routes: map[string]*planner.Route{}}
}

// Replace swaps the registry contents for the routes of a fresh plan.
func (r *Registry) Replace(routes []planner.Route) {
	next := make(map[string]*planner.Route, len(routes))
	for i := range routes {
		next[routes[i].ID] = &routes[i]
	}
	r.mu.Lock()
	r.routes = next
	r.mu.Unlock()
}

// Get looks a route up by id.
func (r *Registry) Get(id string) (*planner.Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.routes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return route, nil
}

// Len returns the number of stored routes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}
