package dto

// LeaderboardEntry is one ranked user. Position is 1-based.
type LeaderboardEntry struct {
	Position int   `json:"position"`
	UserID   int64 `json:"user_id"`
	Points   int64 `json:"points"`
}

type LeaderboardQuery struct {
	Period string `form:"period"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type LeaderboardResponse struct {
	Period  string             `json:"period"`
	Closed  bool               `json:"closed"`
	Entries []LeaderboardEntry `json:"entries"`
}

type ClosePeriodRequest struct {
	Period string `json:"period" binding:"required"`
}
