package platform

import (
	"time"

	"github.com/achernyakov/trendpulse/internal/trend"
)

const tiktokDefaultInterval = 2 * time.Minute

// TikTok fetches trending hashtags, sounds and challenges from TikTok.
// Trends move fast there, so it polls on the shortest cadence.
type TikTok struct {
	*fetcher
}

// TikTokConfig holds configuration for the TikTok fetcher.
type TikTokConfig struct {
	PollInterval time.Duration
}

// NewTikTok creates a TikTok fetcher.
func NewTikTok(cfg TikTokConfig) *TikTok {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = tiktokDefaultInterval
	}

	seeds := []seed{
		{id: "tt-hash-glowup", typ: trend.TypeHashtag, name: "#GlowUp", desc: "Before/after transformation clips", category: "lifestyle", volume: 1_800_000},
		{id: "tt-sound-nightdrive", typ: trend.TypeSound, name: "night drive (slowed)", desc: "Synthwave edit used in driving montages", category: "music", volume: 950_000},
		{id: "tt-chal-flipcup", typ: trend.TypeChallenge, name: "Flip The Cup", desc: "Stacking cup flips against the clock", category: "games", volume: 640_000},
		{id: "tt-hash-booktok", typ: trend.TypeHashtag, name: "#BookTok", desc: "Reader reviews and book hauls", category: "books", volume: 2_400_000},
		{id: "tt-filter-vhs", typ: trend.TypeFilter, name: "VHS Camcorder", desc: "Retro tape grain filter", category: "effects", volume: 410_000},
		{id: "tt-meme-npc", typ: trend.TypeMeme, name: "NPC streaming", desc: "Live NPC roleplay streams", category: "memes", volume: 780_000},
	}

	return &TikTok{fetcher: newFetcher(trend.PlatformTikTok, interval, seeds)}
}
