package store

import (
	"sort"
	"sync"

	"WaveSentinel/internal/model"
)

// Positions maps symbols to their open InstrumentRecord. Records are
// replaced whole on every write, so readers always see a complete record.
//
// Safe for concurrent use.
type Positions struct {
	mu      sync.RWMutex
	records map[string]*model.InstrumentRecord
	seq     uint64
}

// NewPositions creates an empty position map.
func NewPositions() *Positions {
	return &Positions{records: make(map[string]*model.InstrumentRecord)}
}

// Get returns a copy of the record for symbol, or nil when flat.
func (p *Positions) Get(symbol string) *model.InstrumentRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.records[symbol]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// Put stores a copy of rec. A symbol seen for the first time gets the next
// entry sequence number; an existing entry keeps its sequence.
func (p *Positions) Put(rec model.InstrumentRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.records[rec.Symbol]; ok {
		rec.Seq = old.Seq
	} else {
		p.seq++
		rec.Seq = p.seq
	}
	p.records[rec.Symbol] = &rec
}

// Delete removes the record for symbol. It reports whether one existed.
func (p *Positions) Delete(symbol string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.records[symbol]; !ok {
		return false
	}
	delete(p.records, symbol)
	return true
}

// Len returns the number of open positions.
func (p *Positions) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}

// Snapshot returns copies of all open records in entry order.
func (p *Positions) Snapshot() []model.InstrumentRecord {
	p.mu.RLock()
	out := make([]model.InstrumentRecord, 0, len(p.records))
	for _, rec := range p.records {
		out = append(out, *rec)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// ActiveSignals returns the BUY events of all open positions in entry order.
func (p *Positions) ActiveSignals() []model.ActiveSignal {
	recs := p.Snapshot()
	out := make([]model.ActiveSignal, len(recs))
	for i, rec := range recs {
		out[i] = rec.Entry
	}
	return out
}
