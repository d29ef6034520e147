package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"rsi-trade-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func fingerprintIntent() TradeIntent {
	return TradeIntent{
		Pair:      "BTCUSDT",
		Side:      models.SideBuy,
		Quantity:  decimal.RequireFromString("0.01"),
		RequestID: "req-1",
	}
}

func TestFingerprint_CanonicalFormat(t *testing.T) {
	// The canonical tuple is pinned here on purpose: changing the field
	// list or encoding changes the identity of every request in flight.
	sum := sha256.Sum256([]byte("pair:BTCUSDT|quantity:0.01|request_id:req-1|side:BUY"))
	expected := hex.EncodeToString(sum[:])

	assert.Equal(t, expected, Fingerprint(fingerprintIntent()))
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint(fingerprintIntent())
	b := Fingerprint(fingerprintIntent())
	assert.Equal(t, a, b)
}

func TestFingerprint_CaseInsensitivePairAndSide(t *testing.T) {
	intent := fingerprintIntent()
	intent.Pair = "btcusdt"
	intent.Side = "buy"
	assert.Equal(t, Fingerprint(fingerprintIntent()), Fingerprint(intent))
}

func TestFingerprint_SensitiveToEveryField(t *testing.T) {
	base := Fingerprint(fingerprintIntent())

	mutations := map[string]func(*TradeIntent){
		"pair":       func(i *TradeIntent) { i.Pair = "ETHUSDT" },
		"side":       func(i *TradeIntent) { i.Side = models.SideSell },
		"quantity":   func(i *TradeIntent) { i.Quantity = decimal.RequireFromString("0.02") },
		"request_id": func(i *TradeIntent) { i.RequestID = "req-2" },
	}

	for field, mutate := range mutations {
		intent := fingerprintIntent()
		mutate(&intent)
		assert.NotEqual(t, base, Fingerprint(intent), "changing %s must change the fingerprint", field)
	}
}

func TestFingerprint_IgnoresNonSemanticFields(t *testing.T) {
	// Sequence number, client ref and the signal snapshot are not part
	// of the request's economic identity: a retry carries a fresh
	// snapshot but must still deduplicate.
	intent := fingerprintIntent()
	intent.SequenceNumber = 42
	intent.ClientRef = "other-ref"
	intent.Signal = Snapshot{RSI: 50, Price: decimal.RequireFromString("99999")}

	assert.Equal(t, Fingerprint(fingerprintIntent()), Fingerprint(intent))
}
