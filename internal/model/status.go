package model

// Record statuses. Active records move Pending -> Matched -> Claimed; archived
// copies carry Claimed or Archived.
const (
	StatusPending  = "Pending"
	StatusMatched  = "Matched"
	StatusClaimed  = "Claimed"
	StatusArchived = "Archived"
)

// Record kinds, used as the discriminant on archive rows and counters.
const (
	KindLost  = "lost"
	KindFound = "found"
	KindMatch = "match"
)

// ActiveStatus reports whether s is a valid status for an active record.
func ActiveStatus(s string) bool {
	switch s {
	case StatusPending, StatusMatched, StatusClaimed:
		return true
	}
	return false
}
