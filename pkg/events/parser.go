package events

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/xperfasm/internal/utils"
	"github.com/maxgio92/xperfasm/pkg/dedup"
)

// Field positions in a dumper text trace line:
// EventName, TimeStamp, Process Name ( PID), ThreadID, PrgrmCtr, CPU, ThreadStartImage!Function, Image!Function
const (
	fieldEvent = iota
	fieldTimestamp
	fieldProcess
	_
	fieldAddress
	_
	_
	fieldImageFunc

	minFields
)

// ticksPerSecond converts dumper timestamps to seconds.
const ticksPerSecond = 1000000

// Parser aggregates the samples of a single process out of a text trace.
type Parser struct {
	*ParserOptions
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		ParserOptions: &ParserOptions{
			eventNames: DefaultEventNames,
			logger:     log.Nop(),
		},
	}
	for _, f := range opts {
		f(p)
	}

	return p
}

func (p *Parser) validate() error {
	if p.pid == "" {
		return ErrPIDEmpty
	}
	if len(p.eventNames) == 0 {
		return ErrEventNamesEmpty
	}

	return nil
}

// ParseFile aggregates the text trace at path. When the trace cannot be
// read, the returned error wraps ErrTraceRead and the returned Events is
// empty but usable.
func (p *Parser) ParseFile(path string) (*Events, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return NewEvents(p.eventNames), fmt.Errorf("%w %s: %w", ErrTraceRead, path, err)
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse aggregates the text trace read from r.
func (p *Parser) Parse(r io.Reader) (*Events, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	res := NewEvents(p.eventNames)
	dd := dedup.NewDeduplicator()

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			res.Stats.Lines++
			p.parseLine(line, res, dd)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			p.logger.Warn().Err(err).Uint64("line", res.Stats.Lines).Msg("failed to read text trace")
			return NewEvents(p.eventNames), fmt.Errorf("%w: %w", ErrTraceRead, err)
		}
	}

	// The sentinel is always bound, also when no sample used it.
	res.Methods[KernelAddr] = KernelLabel

	p.logger.Debug().
		Str("pid", p.pid).
		Float64("skip_sec", p.skipSec).
		Uint64("lines", res.Stats.Lines).
		Uint64("matched", res.Stats.Matched).
		Uint64("skipped", res.Stats.Skipped).
		Uint64("malformed", res.Stats.Malformed).
		Uint64("kernel", res.Stats.Kernel).
		Int("symbols", dd.Len()).
		Msg("text trace parsed")

	return res, nil
}

func (p *Parser) parseLine(line string, res *Events, dd *dedup.Deduplicator) {
	fields := utils.TrimFields(strings.Split(strings.TrimSpace(line), ","))

	// Only configured events are aggregated.
	evs, ok := res.Events[fields[fieldEvent]]
	if !ok {
		res.Stats.Skipped++
		return
	}
	if len(fields) < minFields {
		p.malformed(res, line, "too few fields")
		return
	}

	// Check PID.
	proc := fields[fieldProcess]
	open := strings.Index(proc, "(")
	closing := strings.Index(proc, ")")
	if open == -1 || closing == -1 || closing < open {
		// Probably the header.
		res.Stats.Skipped++
		return
	}
	if strings.TrimSpace(proc[open+1:closing]) != p.pid {
		res.Stats.Skipped++
		return
	}

	// Check timestamp.
	ticks, err := strconv.ParseUint(fields[fieldTimestamp], 10, 64)
	if err != nil {
		p.malformed(res, line, "invalid timestamp")
		return
	}
	if float64(ticks)/ticksPerSecond < p.skipSec {
		res.Stats.Skipped++
		return
	}

	imageFunc := fields[fieldImageFunc]
	sep := strings.IndexByte(imageFunc, '!')
	if sep == -1 {
		p.malformed(res, line, "missing module separator")
		return
	}
	lib, symbol := imageFunc[:sep], imageFunc[sep+1:]

	addrStr := strings.TrimPrefix(fields[fieldAddress], "0x")
	if addrStr == "" || addrStr[0] == '-' || addrStr[0] == '+' {
		p.malformed(res, line, "invalid address")
		return
	}
	addr, err := strconv.ParseInt(addrStr, 16, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			// Kernel addresses like ffffffff810c1b00 overflow int64:
			// keep the sample, lose the address.
			evs.Add(KernelAddr)
			res.Stats.Matched++
			res.Stats.Kernel++
			return
		}
		p.malformed(res, line, "invalid address")
		return
	}

	evs.Add(uint64(addr))
	res.Methods[uint64(addr)] = dd.Dedup(symbol)
	res.Libs[uint64(addr)] = dd.Dedup(lib)
	res.Stats.Matched++
}

func (p *Parser) malformed(res *Events, line, reason string) {
	res.Stats.Malformed++
	p.logger.Trace().Str("reason", reason).Str("line", strings.TrimSpace(line)).Msg("skipping malformed line")
}
