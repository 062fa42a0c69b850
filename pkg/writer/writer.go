// Package writer provides the streaming result writers the pipeline's
// terminal stage emits rows through, and the name-keyed format registry
// they are resolved from.
//
// Lifecycle, strictly sequential and exactly once per execution: Begin is
// called once before any row, WriteRow once per result row in row order,
// and Finish exactly once after the last row, on every exit path, including
// errors and cancellation, so the sink is always released.
package writer

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/leapstack-labs/queryflow/pkg/core"
)

// Writer serializes one result set incrementally to a sink.
type Writer interface {
	// Begin writes the format's preamble (header row, opening tokens) and
	// commits it, so partial output is useful even if the execution fails.
	Begin(meta *core.ResultMetadata) error

	// WriteRow appends exactly one record. Work per call is bounded and
	// proportional to the row; the first row (index 0) takes no leading
	// separator.
	WriteRow(row core.Row, index int) error

	// Finish writes trailing tokens and any metadata not emitted by Begin,
	// then releases the sink. Safe to call after a partial row sequence.
	Finish(meta *core.ResultMetadata) error
}

// Factory creates a writer over the given sink. If the sink implements
// io.Closer, Finish closes it.
type Factory func(sink io.Writer) Writer

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a writer factory to the registry.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates a writer for the given format name over sink.
func New(name string, sink io.Writer) (Writer, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownFormatError{Format: name, Available: List()}
	}
	return factory(sink), nil
}

// List returns all registered format names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a format name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownFormatError is returned when an unknown output format is requested.
type UnknownFormatError struct {
	Format    string
	Available []string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown output format %q (available: %v)", e.Format, e.Available)
}

// releaseSink closes the sink when it is closable.
func releaseSink(sink io.Writer) error {
	if c, ok := sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// formatValue renders a single cell for text formats.
func formatValue(v any, null string) string {
	if v == nil {
		return null
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// sortedKeys returns the map's keys in stable order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
