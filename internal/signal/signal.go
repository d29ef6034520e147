package signal

import (
	"math/rand"
	"sync"
	"time"

	"rsi-trade-ledger-go/internal/ledger"

	"github.com/shopspring/decimal"
)

// Source provides one signal snapshot per trade intent. The ledger
// treats the values as opaque; implementations decide where they come
// from.
type Source interface {
	Snapshot(pair string) (ledger.Snapshot, error)
}

// basePrices are the reference prices the mock source jitters around.
var basePrices = map[string]float64{
	"BTCUSDT": 45000.0,
	"ETHUSDT": 2500.0,
	"BNBUSDT": 300.0,
}

const defaultBasePrice = 100.0

// MockSource generates simulated RSI and price readings, standing in
// for a real market-data feed.
type MockSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// ensure MockSource implements the interface
var _ Source = (*MockSource)(nil)

// NewMockSource creates a mock signal source seeded from the clock.
func NewMockSource() *MockSource {
	return &MockSource{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Snapshot returns an RSI value in [10, 90] and the pair's reference
// price with up to ±2% variation, both rounded to two decimal places.
func (s *MockSource) Snapshot(pair string) (ledger.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rsi := 10 + s.rng.Float64()*80

	base, ok := basePrices[pair]
	if !ok {
		base = defaultBasePrice
	}
	variation := (s.rng.Float64() - 0.5) * 0.04
	price := base * (1 + variation)

	return ledger.Snapshot{
		RSI:   float64(int(rsi*100)) / 100,
		Price: decimal.NewFromFloat(price).Round(2),
	}, nil
}
