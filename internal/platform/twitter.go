package platform

import (
	"time"

	"github.com/achernyakov/trendpulse/internal/trend"
)

const twitterDefaultInterval = 2 * time.Minute

// Twitter fetches trending topics and hashtags from Twitter.
type Twitter struct {
	*fetcher
}

// TwitterConfig holds configuration for the Twitter fetcher.
type TwitterConfig struct {
	PollInterval time.Duration
}

// NewTwitter creates a Twitter fetcher.
func NewTwitter(cfg TwitterConfig) *Twitter {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = twitterDefaultInterval
	}

	seeds := []seed{
		{id: "tw-topic-launchday", typ: trend.TypeTopic, name: "Launch Day", desc: "Reactions to this morning's rocket launch", category: "science", volume: 2_900_000},
		{id: "tw-hash-ai", typ: trend.TypeHashtag, name: "#AI", desc: "Ongoing debate about AI applications in newsrooms", category: "tech", volume: 3_400_000},
		{id: "tw-topic-transferwindow", typ: trend.TypeTopic, name: "Transfer Window", desc: "Football transfer rumors", category: "sports", volume: 1_700_000},
		{id: "tw-event-keynote", typ: trend.TypeEvent, name: "Developer Keynote", desc: "Live reactions to the platform keynote", category: "tech", volume: 1_100_000},
		{id: "tw-meme-mondays", typ: trend.TypeMeme, name: "monday feelings", desc: "Start-of-week mood posts", category: "memes", volume: 560_000},
	}

	return &Twitter{fetcher: newFetcher(trend.PlatformTwitter, interval, seeds)}
}
