package platform

import (
	"time"

	"github.com/achernyakov/trendpulse/internal/trend"
)

const youtubeDefaultInterval = 5 * time.Minute

// YouTube fetches trending videos and music from YouTube.
type YouTube struct {
	*fetcher
}

// YouTubeConfig holds configuration for the YouTube fetcher.
type YouTubeConfig struct {
	PollInterval time.Duration
}

// NewYouTube creates a YouTube fetcher.
func NewYouTube(cfg YouTubeConfig) *YouTube {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = youtubeDefaultInterval
	}

	seeds := []seed{
		{id: "yt-vid-aiexplained", typ: trend.TypeVideo, name: "AI Explained in 12 Minutes", desc: "Primer on practical AI applications for developers", category: "tech", volume: 3_100_000},
		{id: "yt-vid-deskbuild", typ: trend.TypeVideo, name: "The $500 Dream Desk Setup", desc: "Budget desk setup walkthrough", category: "tech", volume: 1_200_000},
		{id: "yt-music-citypop", typ: trend.TypeMusic, name: "City Pop Mix 1984", desc: "Japanese city pop compilation", category: "music", volume: 2_600_000},
		{id: "yt-vid-marathon", typ: trend.TypeVideo, name: "I Ran a Marathon With No Training", desc: "Fitness challenge documentary", category: "sports", volume: 890_000},
		{id: "yt-creator-fieldlab", typ: trend.TypeCreator, name: "FieldLab", desc: "Engineering experiments channel breaking out", category: "science", volume: 540_000},
		{id: "yt-vid-sourdough", typ: trend.TypeVideo, name: "Sourdough, Finally Explained", desc: "Baking deep dive", category: "food", volume: 720_000},
	}

	return &YouTube{fetcher: newFetcher(trend.PlatformYouTube, interval, seeds)}
}
