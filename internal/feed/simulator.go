package feed

import (
	"math/rand/v2"
	"sync"

	"github.com/medops/opsdesk/internal/escalation"
)

// Simulator advances hospital and stock levels by random steps and reports
// the alerts raised by each step.
type Simulator struct {
	mu        sync.Mutex
	hospitals []Hospital
	stock     []StockItem

	bedDelta   func(IGDStatus) int
	stockDelta func(StockStatus) int
}

// NewSimulator creates a simulator over copies of the given sources.
func NewSimulator(seed uint64, hospitals []Hospital, stock []StockItem) *Simulator {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	return &Simulator{
		hospitals:  append([]Hospital(nil), hospitals...),
		stock:      append([]StockItem(nil), stock...),
		bedDelta:   func(s IGDStatus) int { return randomBedDelta(rng, s) },
		stockDelta: func(s StockStatus) int { return randomStockDelta(rng, s) },
	}
}

func randomBedDelta(rng *rand.Rand, status IGDStatus) int {
	switch status {
	case IGDKritis:
		return rng.IntN(5) - 4
	case IGDSibuk:
		return rng.IntN(6) - 4
	default:
		return rng.IntN(7) - 3
	}
}

func randomStockDelta(rng *rand.Rand, status StockStatus) int {
	if rng.Float64() < 0.05 {
		return rng.IntN(20) + 10
	}
	if status == StockKritis {
		return -(rng.IntN(4) + 1)
	}
	return -rng.IntN(3)
}

// Step advances every source once and returns the alerts to ingest.
func (s *Simulator) Step() []escalation.IngestInput {
	s.mu.Lock()
	defer s.mu.Unlock()

	var alerts []escalation.IngestInput

	for i, prev := range s.hospitals {
		next := prev
		next.BedsAvailable = clamp(prev.BedsAvailable+s.bedDelta(prev.IGD), 0, prev.BedsTotal)
		next.IGD = IGDStatusFor(next.BedsAvailable, next.BedsTotal)
		s.hospitals[i] = next

		if alert, ok := HospitalAlert(prev, next); ok {
			alerts = append(alerts, alert)
		}
	}

	for i, prev := range s.stock {
		next := prev
		next.Stock = max(prev.Stock+s.stockDelta(prev.Status), 0)
		next.Status = StockStatusFor(next.Stock, next.Threshold)
		s.stock[i] = next

		if alert, ok := StockAlert(prev, next); ok {
			alerts = append(alerts, alert)
		}
	}

	return alerts
}

// Hospitals returns the current hospital levels.
func (s *Simulator) Hospitals() []Hospital {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Hospital(nil), s.hospitals...)
}

// Stock returns the current stock levels.
func (s *Simulator) Stock() []StockItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StockItem(nil), s.stock...)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
