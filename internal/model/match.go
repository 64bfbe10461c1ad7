package model

import "time"

// Match asserts that a lost report and a found record are the same object.
// The snapshots hold both records as they were when the match was made.
type Match struct {
	ID        string      `json:"match_id"`
	LostID    string      `json:"lost_id"`
	FoundID   string      `json:"found_id"`
	Lost      LostReport  `json:"lost"`
	Found     FoundRecord `json:"found"`
	MatchedAt time.Time   `json:"matched_at"`
}
