package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// fingerprintFields lists the economically meaningful fields a request
// is identified by. Adding or removing a field changes the identity of
// every request, so this list is a deliberate protocol decision: change
// it only together with the tests that pin it down.
func fingerprintFields(intent TradeIntent) map[string]string {
	return map[string]string{
		"pair":       strings.ToUpper(intent.Pair),
		"side":       strings.ToUpper(intent.Side),
		"quantity":   intent.Quantity.String(),
		"request_id": intent.RequestID,
	}
}

// Fingerprint computes the deterministic digest that identifies a trade
// request. Keys are sorted so field order never affects the result;
// values are joined as key:value pairs and hashed with SHA-256.
func Fingerprint(intent TradeIntent) string {
	fields := fingerprintFields(intent)

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", key, fields[key]))
	}

	digest := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(digest[:])
}
