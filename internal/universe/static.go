// Package universe resolves the ticker set a scan runs over, either
// from a fixed list or by scraping exchange listing pages.
package universe

import (
	"context"
	"sort"
	"strings"
)

// Static serves a fixed ticker list. Input is deduplicated, uppercased
// and sorted once at construction.
type Static struct {
	tickers []string
}

func NewStatic(tickers []string) *Static {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return &Static{tickers: out}
}

func (s *Static) Tickers(context.Context) ([]string, error) {
	out := make([]string, len(s.tickers))
	copy(out, s.tickers)
	return out, nil
}
