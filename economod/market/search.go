package market

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// searchSource adapts a quote slice for fuzzy matching over the combined
// symbol, company, and industry text.
type searchSource []Quote

func (s searchSource) Len() int { return len(s) }

func (s searchSource) String(i int) string {
	return s[i].Symbol + " " + s[i].Company + " " + s[i].Industry
}

// Search finds stocks whose symbol, company, or industry matches the query.
// Exact symbol hits rank first, then substring hits, then fuzzy matches by
// score.
func (m *Market) Search(query string, limit int) []Quote {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	quotes := m.ListStocks()

	upper := strings.ToUpper(query)
	lower := strings.ToLower(query)

	var exact, substring []Quote
	seen := make(map[string]struct{})
	for _, q := range quotes {
		if q.Symbol == upper {
			exact = append(exact, q)
			seen[q.Symbol] = struct{}{}
			continue
		}
		haystack := strings.ToLower(q.Symbol + " " + q.Company + " " + q.Industry)
		if strings.Contains(haystack, lower) {
			substring = append(substring, q)
			seen[q.Symbol] = struct{}{}
		}
	}

	matches := fuzzy.FindFrom(query, searchSource(quotes))
	sort.Stable(matches)

	results := append(exact, substring...)
	for _, match := range matches {
		q := quotes[match.Index]
		if _, dup := seen[q.Symbol]; dup {
			continue
		}
		seen[q.Symbol] = struct{}{}
		results = append(results, q)
	}
	return clampQuotes(results, limit)
}
