package domain

import "time"

// Display placeholders used on the leaderboard
const (
	MissingNamePlaceholder = "—"
	MissingLinkPlaceholder = "-"
)

// Standing is one row of the leaderboard
type Standing struct {
	Rank          int    `json:"rank"`
	USN           string `json:"usn"`
	Name          string `json:"name"`
	GitHub        string `json:"github"`
	Holopin       string `json:"holopin"`
	Contributions int    `json:"contributions"`
	Qualified     bool   `json:"qualified"`
}

// Board is the leaderboard as of the latest snapshot
type Board struct {
	Standings          []Standing `json:"standings"`
	TotalRegistrants   int        `json:"totalRegistrants"`
	TotalContributions int        `json:"totalContributions"`
	QualifyingPRs      int        `json:"qualifyingPrs"`
	Loading            bool       `json:"loading"`
	Error              string     `json:"error,omitempty"`
	PermissionDenied   bool       `json:"permissionDenied"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}
