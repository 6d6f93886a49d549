package report

import (
	"io"

	"github.com/google/pprof/profile"
	"github.com/pkg/errors"

	"github.com/maxgio92/xperfasm/pkg/events"
)

// WritePprof writes the samples of event as a gzipped pprof profile, with
// one location per sampled address.
func WritePprof(w io.Writer, res *events.Events, event string) error {
	m := res.Get(event)
	if m == nil {
		return errors.Errorf("event %s is not traced", event)
	}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: event, Unit: "count"},
		Period:     1,
		Sample:     make([]*profile.Sample, 0, m.Len()),
		Location:   make([]*profile.Location, 0, m.Len()),
	}

	mappings := make(map[string]*profile.Mapping)
	type funcKey struct{ module, symbol string }
	functions := make(map[funcKey]*profile.Function)

	for addr, count := range m.All() {
		module, symbol := res.Module(addr), res.Symbol(addr)

		mapping, ok := mappings[module]
		if !ok {
			mapping = &profile.Mapping{
				ID:           uint64(len(p.Mapping) + 1),
				File:         module,
				HasFunctions: true,
			}
			mappings[module] = mapping
			p.Mapping = append(p.Mapping, mapping)
		}

		key := funcKey{module, symbol}
		fn, ok := functions[key]
		if !ok {
			fn = &profile.Function{
				ID:         uint64(len(p.Function) + 1),
				Name:       symbol,
				SystemName: symbol,
				Filename:   module,
			}
			functions[key] = fn
			p.Function = append(p.Function, fn)
		}

		loc := &profile.Location{
			ID:      uint64(len(p.Location) + 1),
			Address: addr,
			Mapping: mapping,
			Line:    []profile.Line{{Function: fn}},
		}
		p.Location = append(p.Location, loc)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{int64(count)},
		})
	}

	if err := p.CheckValid(); err != nil {
		return errors.Wrap(err, "invalid profile")
	}

	return p.Write(w)
}
