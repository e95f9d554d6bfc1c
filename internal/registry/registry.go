// Package registry keeps the latest analysis result per stylesheet and
// broadcasts change events to watchers. The watch command and any embedding
// host subscribe here instead of polling the coordinator.
package registry

import (
	"sync"
	"time"

	"github.com/conneroisu/xsltlens/internal/types"
)

// AnalysisRegistry manages analysis results keyed by file path.
type AnalysisRegistry struct {
	results  map[string]*types.FileAnalysis
	mutex    sync.RWMutex
	watchers []chan AnalysisEvent
}

// EventType represents the type of registry event.
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

// String returns the string representation of the EventType.
func (e EventType) String() string {
	switch e {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// AnalysisEvent represents a change in the analysis registry.
type AnalysisEvent struct {
	Type      EventType
	Analysis  *types.FileAnalysis
	Timestamp time.Time
}

// NewAnalysisRegistry creates a new analysis registry.
func NewAnalysisRegistry() *AnalysisRegistry {
	return &AnalysisRegistry{
		results:  make(map[string]*types.FileAnalysis),
		watchers: make([]chan AnalysisEvent, 0),
	}
}

// Register adds or updates the analysis result for a file.
func (r *AnalysisRegistry) Register(analysis *types.FileAnalysis) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	if _, exists := r.results[analysis.FilePath]; exists {
		eventType = EventTypeUpdated
	}

	r.results[analysis.FilePath] = analysis

	r.notify(AnalysisEvent{
		Type:      eventType,
		Analysis:  analysis,
		Timestamp: time.Now(),
	})
}

// Get retrieves the analysis result for a file path.
func (r *AnalysisRegistry) Get(path string) (*types.FileAnalysis, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	analysis, exists := r.results[path]
	return analysis, exists
}

// GetAll returns all registered analysis results.
func (r *AnalysisRegistry) GetAll() map[string]*types.FileAnalysis {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make(map[string]*types.FileAnalysis, len(r.results))
	for path, analysis := range r.results {
		result[path] = analysis
	}
	return result
}

// Hash returns the content hash of the named template in the registered
// analysis for path, or "" when unknown. Hosts compare hashes across runs to
// tell which templates actually changed.
func (r *AnalysisRegistry) Hash(path, templateKey string) string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	analysis, exists := r.results[path]
	if !exists || analysis.Stylesheet == nil {
		return ""
	}
	if tmpl := analysis.Stylesheet.Template(templateKey); tmpl != nil {
		return tmpl.Hash
	}
	return ""
}

// Remove removes the analysis result for a file path.
func (r *AnalysisRegistry) Remove(path string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	analysis, exists := r.results[path]
	if !exists {
		return
	}

	delete(r.results, path)

	r.notify(AnalysisEvent{
		Type:      EventTypeRemoved,
		Analysis:  analysis,
		Timestamp: time.Now(),
	})
}

// Watch returns a channel that receives analysis events.
func (r *AnalysisRegistry) Watch() <-chan AnalysisEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan AnalysisEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it.
func (r *AnalysisRegistry) UnWatch(ch <-chan AnalysisEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered results.
func (r *AnalysisRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.results)
}

// notify broadcasts an event to all watchers. Callers must hold the mutex.
func (r *AnalysisRegistry) notify(event AnalysisEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}
