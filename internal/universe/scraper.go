package universe

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dmarsh/strider/pkg/httputil"
	"github.com/dmarsh/strider/pkg/logger"
)

// tickerRe matches listed US symbols, including class shares like
// BRK.B. Anything else in the symbol column is header or footer noise.
var tickerRe = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z])?$`)

// Scraper builds the universe from one or more exchange listing pages.
// Each page is expected to carry an HTML table whose first column is
// the ticker symbol.
type Scraper struct {
	urls   []string
	http   *httputil.Client
	logger *logger.Logger
}

func NewScraper(urls []string, client *httputil.Client, log *logger.Logger) *Scraper {
	return &Scraper{
		urls:   urls,
		http:   client,
		logger: log.WithField("module", "universe"),
	}
}

// Tickers fetches every listing page and merges the symbols. A page
// that yields no symbols at all fails the whole resolution; a silently
// half-empty universe is worse than an error.
func (s *Scraper) Tickers(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	for _, u := range s.urls {
		resp, err := s.http.Get(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("fetch listings %s: %w", u, err)
		}
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("parse listings %s: %w", u, err)
		}

		symbols := parseListings(doc)
		if len(symbols) == 0 {
			return nil, fmt.Errorf("parse listings %s: no symbols found", u)
		}
		for _, sym := range symbols {
			if !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
		}
		s.logger.WithFields(map[string]interface{}{
			"url":     u,
			"symbols": len(symbols),
		}).Debug("Parsed listing page")
	}

	sort.Strings(out)
	return out, nil
}

// parseListings pulls symbols out of the first cell of each table row.
func parseListings(doc *goquery.Document) []string {
	var symbols []string
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		sym := strings.TrimSpace(cells.Eq(0).Text())
		if tickerRe.MatchString(sym) {
			symbols = append(symbols, sym)
		}
	})
	return symbols
}
