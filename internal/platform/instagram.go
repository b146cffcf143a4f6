package platform

import (
	"time"

	"github.com/achernyakov/trendpulse/internal/trend"
)

const instagramDefaultInterval = 4 * time.Minute

// Instagram fetches trending reels, filters and creators from Instagram.
type Instagram struct {
	*fetcher
}

// InstagramConfig holds configuration for the Instagram fetcher.
type InstagramConfig struct {
	PollInterval time.Duration
}

// NewInstagram creates an Instagram fetcher.
func NewInstagram(cfg InstagramConfig) *Instagram {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = instagramDefaultInterval
	}

	seeds := []seed{
		{id: "ig-hash-photodump", typ: trend.TypeHashtag, name: "#PhotoDump", desc: "Unfiltered monthly photo carousels", category: "lifestyle", volume: 1_500_000},
		{id: "ig-filter-goldenhour", typ: trend.TypeFilter, name: "Golden Hour", desc: "Warm tone AR filter for reels", category: "effects", volume: 620_000},
		{id: "ig-creator-atlaschef", typ: trend.TypeCreator, name: "atlas.chef", desc: "One-pan recipe reels gaining fast", category: "food", volume: 480_000},
		{id: "ig-hash-gymrat", typ: trend.TypeHashtag, name: "#GymRat", desc: "Progress check-ins and lifting clips", category: "fitness", volume: 2_100_000},
		{id: "ig-meme-corporate", typ: trend.TypeMeme, name: "corporate speak translator", desc: "Office jargon skits", category: "memes", volume: 830_000},
	}

	return &Instagram{fetcher: newFetcher(trend.PlatformInstagram, interval, seeds)}
}
