// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package alloc provides the process-wide allocation counters the RHI
// routes every GPU-object creation/destruction through. It is the Go
// analogue of the original's DefaultMemoryResource: Go's GC manages the
// underlying bytes, so there is nothing to actually allocate here, but the
// balance invariant spec.md §8 property 1 demands ("allocation count
// equals free count at process end") is exactly the bookkeeping this
// package exists to provide.
package alloc

import (
	"fmt"
	"sync/atomic"
)

// Counters tracks allocation/free counts and bytes for one resource class
// (e.g. "buffer", "texture", "descriptor-pool"). The zero value is ready
// to use.
type Counters struct {
	allocs     atomic.Int64
	frees      atomic.Int64
	allocBytes atomic.Int64
	freeBytes  atomic.Int64
}

// Alloc records the creation of an object of the given byte size. size
// may be 0 for objects without a meaningful byte footprint (e.g. a
// Semaphore).
func (c *Counters) Alloc(size int64) {
	c.allocs.Add(1)
	c.allocBytes.Add(size)
}

// Free records the destruction of an object previously passed to Alloc.
// Calling Free more times than Alloc is a caller bug; Balanced will report
// it as a negative outstanding count.
func (c *Counters) Free(size int64) {
	c.frees.Add(1)
	c.freeBytes.Add(size)
}

// Outstanding returns the number of allocations with no matching free.
func (c *Counters) Outstanding() int64 { return c.allocs.Load() - c.frees.Load() }

// OutstandingBytes returns the byte count of allocations with no matching
// free.
func (c *Counters) OutstandingBytes() int64 { return c.allocBytes.Load() - c.freeBytes.Load() }

// Balanced reports whether every allocation has a matching free. It is
// the check spec.md §8 property 1 describes.
func (c *Counters) Balanced() bool { return c.Outstanding() == 0 && c.OutstandingBytes() == 0 }

// registry is the process-wide set of named Counters, one per resource
// class, mirroring the original's single global DefaultMemoryResource but
// split by kind so a leak report can name what leaked.
var registry = map[string]*Counters{}

// For returns (creating if necessary) the Counters for a named resource
// class. The backends in this module call it at every Alloc/Free site,
// so each call looks the class up in the registry map.
func For(kind string) *Counters {
	if c, ok := registry[kind]; ok {
		return c
	}
	c := &Counters{}
	registry[kind] = c
	return c
}

// LeakReport describes one resource class with outstanding allocations.
type LeakReport struct {
	Kind        string
	Outstanding int64
	Bytes       int64
}

// Leaks returns a LeakReport for every registered resource class that is
// not balanced. An application calls this after tearing down its Backend
// to verify §8 property 1 held for the whole process lifetime.
func Leaks() []LeakReport {
	var out []LeakReport
	for kind, c := range registry {
		if !c.Balanced() {
			out = append(out, LeakReport{kind, c.Outstanding(), c.OutstandingBytes()})
		}
	}
	return out
}

// CheckBalance returns an error describing every leaking resource class,
// or nil if the process is balanced.
func CheckBalance() error {
	leaks := Leaks()
	if len(leaks) == 0 {
		return nil
	}
	return fmt.Errorf("alloc: %d resource kind(s) leaked: %v", len(leaks), leaks)
}
