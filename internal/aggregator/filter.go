package aggregator

import (
	"strings"

	"github.com/achernyakov/trendpulse/internal/trend"
)

// DefaultBlockedTerms drops evidently junk signals: engagement spam and
// explicit content that downstream consumers never want.
var DefaultBlockedTerms = []string{
	"follow for follow", "f4f", "like4like", "sub4sub",
	"giveaway scam", "free crypto", "airdrop now",
	"nsfw", "onlyfans",
}

// Filter screens incoming batches before deduplication.
type Filter struct {
	blockedTerms []string
	minVolume    float64
}

// FilterConfig holds filter configuration.
type FilterConfig struct {
	AdditionalTerms []string
	MinVolume       float64
}

// NewFilter creates a filter with the default term list plus any extras.
func NewFilter(cfg FilterConfig) *Filter {
	terms := make([]string, 0, len(DefaultBlockedTerms)+len(cfg.AdditionalTerms))
	terms = append(terms, DefaultBlockedTerms...)
	terms = append(terms, cfg.AdditionalTerms...)

	for i, term := range terms {
		terms[i] = strings.ToLower(term)
	}

	return &Filter{
		blockedTerms: terms,
		minVolume:    cfg.MinVolume,
	}
}

// Check reports whether a single trend should pass.
func (f *Filter) Check(t trend.Trend) bool {
	if f.minVolume > 0 && t.Metrics.CurrentVolume < f.minVolume {
		return false
	}

	text := strings.ToLower(t.Name + " " + t.Description)
	for _, term := range f.blockedTerms {
		if strings.Contains(text, term) {
			return false
		}
	}
	return true
}

// Apply returns only the trends that pass the filter.
func (f *Filter) Apply(trends []trend.Trend) []trend.Trend {
	result := make([]trend.Trend, 0, len(trends))
	for _, t := range trends {
		if f.Check(t) {
			result = append(result, t)
		}
	}
	return result
}
