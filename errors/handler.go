package errors

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// UnitError ties a failure to the translation unit (usually a file) it came from
type UnitError struct {
	Unit string
	Err  error
}

// Error implements the error interface
func (u UnitError) Error() string {
	return fmt.Sprintf("%s: %v", u.Unit, u.Err)
}

// Unwrap returns the underlying error
func (u UnitError) Unwrap() error {
	return u.Err
}

// Collector gathers the failures of a batch run. It is safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	items []UnitError
	total int
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Add records the outcome of one unit; a nil error counts as a success
func (c *Collector) Add(unit string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	if err != nil {
		c.items = append(c.items, UnitError{Unit: unit, Err: err})
	}
}

// Len returns the number of failed units
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Errors returns the recorded failures in insertion order
func (c *Collector) Errors() []UnitError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]UnitError(nil), c.items...)
}

// ByKind counts failures per error kind; errors that are not CompileErrors count as SYSTEM
func (c *Collector) ByKind() map[ErrorKind]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[ErrorKind]int)
	for _, item := range c.items {
		kind := KindOf(item.Err)
		if kind == "" {
			kind = KindSystem
		}
		counts[kind]++
	}
	return counts
}

// Err returns nil when nothing failed, otherwise a summary error
func (c *Collector) Err() error {
	if c.Len() == 0 {
		return nil
	}

	counts := c.ByKind()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[ErrorKind(k)]))
	}

	c.mu.Lock()
	failed, total := len(c.items), c.total
	c.mu.Unlock()
	return NewSystemError("BATCH_FAILED", fmt.Sprintf("%d of %d units failed", failed, total)).
		WithContext("kinds", strings.Join(parts, " "))
}
