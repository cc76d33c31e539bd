package models

import "time"

// RosterMetrics summarises process activity for the metrics snapshot endpoint.
type RosterMetrics struct {
	RosterSize               int               `json:"roster_size"`
	Mutations                map[string]uint64 `json:"mutations"`
	ValidationFailures       uint64            `json:"validation_failures"`
	CacheHitRatio            float64           `json:"cache_hit_ratio"`
	CacheHits                uint64            `json:"cache_hits"`
	CacheMisses              uint64            `json:"cache_misses"`
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"average_request_duration_ms"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generated_at"`
}
