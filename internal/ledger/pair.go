package ledger

import "strings"

// knownQuotes are the quote assets a pair symbol can end with, checked
// in order.
var knownQuotes = []string{"USDT", "USD", "USDC", "EUR"}

// ParsePair splits a pair symbol like BTCUSDT into its base and quote
// assets. Unrecognized symbols fall back to the whole symbol as base
// and USDT as quote.
func ParsePair(pair string) (base, quote string) {
	pair = strings.ToUpper(pair)
	for _, candidate := range knownQuotes {
		if strings.HasSuffix(pair, candidate) && len(pair) > len(candidate) {
			return pair[:len(pair)-len(candidate)], candidate
		}
	}
	return pair, "USDT"
}
