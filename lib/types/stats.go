package types

// StatsData represents statistics about the catalog and interactions.
type StatsData struct {
	TotalContent         int64           `json:"total_content"`
	TotalUsers           int64           `json:"total_users"`
	TotalLikes           int64           `json:"total_likes"`
	TotalProfiles        int64           `json:"total_profiles"`
	CategoryDistribution []CategoryCount `json:"category_distribution"`
}

// CategoryCount is one slice of the catalog's category distribution.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
