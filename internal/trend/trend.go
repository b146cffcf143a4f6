// Package trend defines the shared data model for the trend pipeline.
package trend

import (
	"time"
)

// Platform identifies an external content source.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
)

// Type classifies what kind of entity is trending.
type Type string

const (
	TypeHashtag   Type = "hashtag"
	TypeTopic     Type = "topic"
	TypeSound     Type = "sound"
	TypeFilter    Type = "filter"
	TypeChallenge Type = "challenge"
	TypeCreator   Type = "creator"
	TypeVideo     Type = "video"
	TypeMusic     Type = "music"
	TypeMeme      Type = "meme"
	TypeEvent     Type = "event"
)

// Metric names accepted by ranking queries.
const (
	MetricCurrentVolume  = "currentVolume"
	MetricGrowthRate     = "growthRate"
	MetricEngagementRate = "engagementRate"
	MetricSentiment      = "sentiment"
)

// Metrics holds the measured signal for a trend at detection time.
type Metrics struct {
	CurrentVolume  float64 `json:"current_volume"`
	GrowthRate     float64 `json:"growth_rate"`
	EngagementRate float64 `json:"engagement_rate"`
	Sentiment      float64 `json:"sentiment"` // in [-1, 1]
}

// Metadata carries contextual attributes of a trend.
type Metadata struct {
	StartTime     time.Time         `json:"start_time"`
	RelatedTrends []string          `json:"related_trends,omitempty"`
	Category      string            `json:"category,omitempty"`
	Language      string            `json:"language,omitempty"`
	Region        string            `json:"region,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Trend is a single detected trending entity on one platform.
// (ID, Platform) is the natural key.
type Trend struct {
	ID          string   `json:"id"`
	Platform    Platform `json:"platform"`
	Type        Type     `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Metrics     Metrics  `json:"metrics"`
	Metadata    Metadata `json:"metadata"`
}

// Key returns the deduplication key for this trend.
func (t Trend) Key() string {
	return t.ID + ":" + string(t.Platform)
}

// MetricValue returns the named metric, or CurrentVolume for an
// unrecognized name.
func (t Trend) MetricValue(metric string) float64 {
	switch metric {
	case MetricGrowthRate:
		return t.Metrics.GrowthRate
	case MetricEngagementRate:
		return t.Metrics.EngagementRate
	case MetricSentiment:
		return t.Metrics.Sentiment
	default:
		return t.Metrics.CurrentVolume
	}
}

// Snapshot is one durable, timestamped recording of a trend's metrics,
// used for historical queries.
type Snapshot struct {
	TrendID    string    `json:"trend_id"`
	Platform   Platform  `json:"platform"`
	Name       string    `json:"name"`
	Metrics    Metrics   `json:"metrics"`
	RecordedAt time.Time `json:"recorded_at"`
}

// StoreHealth reports the condition of the durable store.
type StoreHealth struct {
	Connected         bool `json:"connected"`
	ActiveConnections int  `json:"active_connections"`
}

// CacheHealth reports the condition of the cache store.
type CacheHealth struct {
	Connected bool  `json:"connected"`
	SizeBytes int64 `json:"size_bytes"`
}
