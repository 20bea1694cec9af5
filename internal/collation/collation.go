// Package collation provides locale-aware string comparison for ordering
// columns declared with a collation name, adapted from the teacher's
// pkg/utils/collation.go CollationEngine down to the comparisons the
// ordering comparator actually needs (no charset/byte-length bookkeeping).
package collation

import (
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Info describes one registered collation.
type Info struct {
	Name            string
	Tag             language.Tag
	CaseInsensitive bool
}

// Engine maps collation names to golang.org/x/text/collate configurations.
// Collator instances are created per-call because *collate.Collator is not
// goroutine-safe, matching the teacher's per-call-instantiation comment.
type Engine struct {
	mu       sync.RWMutex
	registry map[string]*Info
}

var (
	global     *Engine
	globalOnce sync.Once
)

// Global returns the process-wide Engine singleton.
func Global() *Engine {
	globalOnce.Do(func() { global = New() })
	return global
}

// New creates an Engine pre-populated with the collations the ordering
// comparator is allowed to reference.
func New() *Engine {
	e := &Engine{registry: make(map[string]*Info)}
	e.register(&Info{Name: "binary"})
	e.register(&Info{Name: "utf8mb4_bin"})
	e.register(&Info{Name: "utf8mb4_general_ci", Tag: language.Und, CaseInsensitive: true})
	e.register(&Info{Name: "utf8mb4_unicode_ci", Tag: language.Und, CaseInsensitive: true})
	e.register(&Info{Name: "en_US", Tag: language.AmericanEnglish, CaseInsensitive: true})
	e.register(&Info{Name: "zh_CN", Tag: language.Chinese, CaseInsensitive: false})
	return e
}

func (e *Engine) register(info *Info) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry[info.Name] = info
}

// Compare compares a and b under the named collation. An unknown or empty
// name falls back to plain byte-wise comparison so a mistyped collation
// name degrades gracefully instead of panicking mid-cascade.
func (e *Engine) Compare(a, b, name string) int {
	if name == "" {
		return strings.Compare(a, b)
	}
	e.mu.RLock()
	info, ok := e.registry[name]
	e.mu.RUnlock()
	if !ok || info.Name == "binary" || info.Name == "utf8mb4_bin" {
		return strings.Compare(a, b)
	}
	if info.CaseInsensitive {
		opts := []collate.Option{collate.IgnoreCase}
		c := collate.New(info.Tag, opts...)
		return c.CompareString(a, b)
	}
	c := collate.New(info.Tag)
	return c.CompareString(a, b)
}

// Compare is a package-level convenience over the global Engine.
func Compare(a, b, name string) int {
	return Global().Compare(a, b, name)
}
