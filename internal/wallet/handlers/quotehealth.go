package handlers

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// staleQuoteFloorSeconds is the minimum age a quote must reach before it
// can ever be flagged stale, regardless of dispersion: a batch fetched a
// minute ago should never trip the check just because one symbol landed a
// few seconds before the others.
const staleQuoteFloorSeconds = 900.0

// staleQuoteSet flags which symbols in a batch are aging anomalously
// relative to the rest of that same batch. A batch fetched together
// should go stale together; a quote sitting more than one standard
// deviation above the batch's mean age, and past the floor, is reported
// as individually stale rather than judged against one fixed threshold
// (gonum stat mean/stddev). The returned set is then
// narrowed per entity (a brokerage account's own positions, a wallet's
// own metals) by countStale.
func (h *Handlers) staleQuoteSet(symbols []string) map[string]bool {
	now := time.Now()

	type fetched struct {
		symbol string
		age    float64
	}
	var ages []fetched
	for _, s := range symbols {
		if fetchedAt, ok := h.quoteCache.FetchedAt(s); ok {
			ages = append(ages, fetched{symbol: s, age: now.Sub(fetchedAt).Seconds()})
		}
	}
	if len(ages) < 2 {
		return nil
	}

	raw := make([]float64, len(ages))
	for i, a := range ages {
		raw[i] = a.age
	}
	mean, std := stat.MeanStdDev(raw, nil)
	if std == 0 {
		return nil
	}
	threshold := mean + std

	stale := make(map[string]bool)
	for _, a := range ages {
		if a.age > threshold && a.age > staleQuoteFloorSeconds {
			stale[a.symbol] = true
		}
	}
	return stale
}

// countStale reports how many of symbols are flagged in stale.
func countStale(symbols []string, stale map[string]bool) int {
	count := 0
	for _, s := range symbols {
		if stale[s] {
			count++
		}
	}
	return count
}
