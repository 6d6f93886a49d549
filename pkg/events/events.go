package events

import (
	"github.com/maxgio92/xperfasm/pkg/multiset"
)

const (
	// KernelAddr is the address samples are recorded under when their real
	// address overflows a signed 64-bit value, as kernel-space addresses do.
	KernelAddr uint64 = 0

	// KernelLabel is the symbol bound to KernelAddr.
	KernelLabel = "<kernel>"

	// SampledProfile is the xperf event kind carrying instruction pointer
	// samples.
	SampledProfile = "SampledProfile"
)

// DefaultEventNames is the set of events aggregated when none is configured.
var DefaultEventNames = []string{SampledProfile}

// Stats describes how the lines of a text trace were consumed.
type Stats struct {
	Lines     uint64 `json:"lines"`
	Matched   uint64 `json:"matched"`
	Skipped   uint64 `json:"skipped"`
	Malformed uint64 `json:"malformed"`
	Kernel    uint64 `json:"kernel"`
}

// Events is the result of aggregating a text trace: per event kind, the
// multiset of sampled addresses, plus the symbol and module bound to each
// address.
// Every address present in a multiset has a symbol in Methods.
type Events struct {
	TracedEvents []string
	Events       map[string]*multiset.Multiset
	Methods      map[uint64]string
	Libs         map[uint64]string
	Stats        Stats
}

// NewEvents returns an empty result holding one empty multiset for each
// of the traced events.
func NewEvents(tracedEvents []string) *Events {
	e := &Events{
		TracedEvents: tracedEvents,
		Events:       make(map[string]*multiset.Multiset, len(tracedEvents)),
		Methods:      make(map[uint64]string),
		Libs:         make(map[uint64]string),
	}
	for _, name := range tracedEvents {
		e.Events[name] = multiset.New()
	}
	e.Methods[KernelAddr] = KernelLabel

	return e
}

// Get returns the multiset of the named event, or nil if it is not traced.
func (e *Events) Get(event string) *multiset.Multiset {
	return e.Events[event]
}

// Total returns the number of samples recorded for the named event.
func (e *Events) Total(event string) uint64 {
	if m := e.Events[event]; m != nil {
		return m.Size()
	}
	return 0
}

// Symbol returns the symbol bound to addr.
func (e *Events) Symbol(addr uint64) string {
	return e.Methods[addr]
}

// Module returns the module bound to addr.
func (e *Events) Module(addr uint64) string {
	return e.Libs[addr]
}

// IsEmpty reports whether no sample was recorded for any event.
func (e *Events) IsEmpty() bool {
	for _, m := range e.Events {
		if m.Len() > 0 {
			return false
		}
	}
	return true
}
