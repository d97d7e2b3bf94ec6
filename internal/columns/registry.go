// Package columns maps column-type identifiers to the behaviour that turns a
// task's value for that column into searchable plain text.
package columns

import (
	"sync"
)

// Renderer extracts a plain-text representation of a column value.
// Implementations must accept any value shape (including nil) without panicking
// and return "" for values they do not understand.
type Renderer interface {
	RenderText(value any) string
}

// RendererFunc adapts an ordinary function to the Renderer interface.
type RendererFunc func(value any) string

// RenderText calls f(value).
func (f RendererFunc) RenderText(value any) string {
	return f(value)
}

// Lookup resolves a column-type identifier to its renderer.
type Lookup interface {
	Lookup(columnID string) (Renderer, bool)
}

// Registry is a concurrency-safe set of renderers keyed by column-type id.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[string]Renderer)}
}

// Register adds or replaces the renderer for a column-type id.
func (r *Registry) Register(columnID string, renderer Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[columnID] = renderer
}

// Lookup returns the renderer registered for columnID.
func (r *Registry) Lookup(columnID string) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.renderers[columnID]
	return renderer, ok
}

// IDs returns the registered column-type ids in no particular order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.renderers))
	for id := range r.renderers {
		ids = append(ids, id)
	}
	return ids
}

// Render renders value with the renderer for columnID.
// Unknown column types and nil values render to "".
func Render(l Lookup, columnID string, value any) string {
	if l == nil || value == nil {
		return ""
	}
	renderer, ok := l.Lookup(columnID)
	if !ok || renderer == nil {
		return ""
	}
	return renderer.RenderText(value)
}

// Render is a convenience wrapper around the package-level Render.
func (r *Registry) Render(columnID string, value any) string {
	return Render(r, columnID, value)
}

// Default returns a registry holding every built-in column type.
func Default() *Registry {
	r := NewRegistry()
	r.Register(TypeStatus, RendererFunc(renderLabel))
	r.Register(TypePriority, RendererFunc(renderLabel))
	r.Register(TypeText, NewTextRenderer())
	r.Register(TypeDate, RendererFunc(renderDate))
	r.Register(TypeMembers, RendererFunc(renderMembers))
	r.Register(TypeNumber, RendererFunc(renderNumber))
	r.Register(TypeTags, RendererFunc(renderTags))
	r.Register(TypeTimeline, RendererFunc(renderTimeline))
	return r
}
