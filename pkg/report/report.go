package report

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/maxgio92/xperfasm/internal/output"
	"github.com/maxgio92/xperfasm/pkg/events"
)

// HotSpot is a sampled address with its share of the event samples.
type HotSpot struct {
	Addr    string  `json:"addr"`
	Count   uint64  `json:"count"`
	Percent float64 `json:"percent"`
	Module  string  `json:"module"`
	Symbol  string  `json:"symbol"`
}

type EventReport struct {
	Event    string    `json:"event"`
	Total    uint64    `json:"total"`
	HotSpots []HotSpot `json:"hot_spots"`
}

type Report struct {
	Profiler string        `json:"profiler"`
	PID      int           `json:"pid"`
	SkipSec  float64       `json:"skip_sec"`
	Events   []EventReport `json:"events"`
	Stats    events.Stats  `json:"stats"`
}

type Option func(*Report)

func NewReport(opts ...Option) *Report {
	report := new(Report)
	for _, opt := range opts {
		opt(report)
	}

	return report
}

func WithProfiler(label string) Option {
	return func(o *Report) {
		o.Profiler = label
	}
}

func WithPID(pid int) Option {
	return func(o *Report) {
		o.PID = pid
	}
}

func WithSkip(skipSec float64) Option {
	return func(o *Report) {
		o.SkipSec = skipSec
	}
}

// WithEvents reports the topN hottest addresses of each traced event.
// A non-positive topN reports all of them.
func WithEvents(res *events.Events, topN int) Option {
	return func(o *Report) {
		o.Stats = res.Stats
		o.Events = make([]EventReport, 0, len(res.TracedEvents))
		for _, name := range res.TracedEvents {
			o.Events = append(o.Events, EventReport{
				Event:    name,
				Total:    res.Total(name),
				HotSpots: Hot(res, name, topN),
			})
		}
	}
}

// Hot returns the topN hottest addresses of event, by descending count
// and then ascending address, so that truncation is reproducible.
func Hot(res *events.Events, event string, topN int) []HotSpot {
	m := res.Get(event)
	if m == nil {
		return nil
	}
	total := m.Size()

	type entry struct {
		addr, count uint64
	}
	entries := make([]entry, 0, m.Len())
	for addr, count := range m.All() {
		entries = append(entries, entry{addr, count})
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		return cmp.Compare(b.count, a.count)
	})
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}

	hot := make([]HotSpot, 0, len(entries))
	for _, e := range entries {
		hot = append(hot, HotSpot{
			Addr:    fmt.Sprintf("%#x", e.addr),
			Count:   e.count,
			Percent: float64(e.count) / float64(total) * 100,
			Module:  res.Module(e.addr),
			Symbol:  res.Symbol(e.addr),
		})
	}

	return hot
}

// WriteReport writes the report as JSON.
func (r *Report) WriteReport(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// WriteTable writes the hot spots of each event as a text table.
func (r *Report) WriteTable(w io.Writer) error {
	for _, ev := range r.Events {
		if _, err := fmt.Fprintf(w, "\n%s: %s samples\n", ev.Event, output.PrettySamples(ev.Total)); err != nil {
			return err
		}
		if len(ev.HotSpots) == 0 {
			continue
		}
		rows := make([][]string, 0, len(ev.HotSpots))
		for _, h := range ev.HotSpots {
			rows = append(rows, []string{
				fmt.Sprintf("%6.2f%%", h.Percent),
				output.ProgressBar(int(h.Percent), 10),
				output.PrettySamples(h.Count),
				h.Addr,
				h.Module,
				h.Symbol,
			})
		}
		output.Table(w, []string{"Share", "", "Samples", "Address", "Module", "Symbol"}, rows)
	}

	return nil
}
