package dto

type DailyPostCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type GroupSize struct {
	Name         string `json:"name"`
	MembersCount int64  `json:"membersCount"`
}

// LandingMetrics feeds the landing page charts.
type LandingMetrics struct {
	PostsLast14 []DailyPostCount `json:"postsLast14"`
	TopGroups   []GroupSize      `json:"topGroups"`
}
