package dedup

import (
	"github.com/dolthub/swiss"
)

const initialCapacity = 1024

// Deduplicator canonicalizes repeated strings, so that memory holding
// symbol and module names grows with the number of distinct values rather
// than with the number of samples referring to them.
// It is not safe for concurrent use.
type Deduplicator struct {
	seen *swiss.Map[string, string]
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		seen: swiss.NewMap[string, string](initialCapacity),
	}
}

// Dedup returns the stored instance equal to s, storing s on first sight.
func (d *Deduplicator) Dedup(s string) string {
	if v, ok := d.seen.Get(s); ok {
		return v
	}
	d.seen.Put(s, s)

	return s
}

// Len returns the number of distinct strings stored.
func (d *Deduplicator) Len() int {
	return d.seen.Count()
}
