package models

// Stats is the backend's authoritative fleet summary.
type Stats struct {
	TotalAssets  int                `json:"total_assets"`
	StateCounts  map[AssetState]int `json:"state_counts"`
	AssetTypes   map[AssetType]int  `json:"asset_types"`
	ActiveAlerts int                `json:"active_alerts"`
	UpdatedAt    string             `json:"updated_at"`
}
