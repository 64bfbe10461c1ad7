package model

import "time"

// NoNotify is the notify address sentinel meaning "do not notify".
const NoNotify = "none"

// LostReport is an owner's report that an item was lost.
type LostReport struct {
	ID            string    `json:"lost_id"`
	ItemName      string    `json:"item_name"`
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	Location      string    `json:"location_lost"`
	DateLost      Date      `json:"date_lost"`
	Status        string    `json:"status"`
	NotifyAddress string    `json:"notify_address"`
	OwnerID       *int64    `json:"owner_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LostInput holds the caller-supplied fields of a lost report.
type LostInput struct {
	ItemName      string `json:"item_name"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	Location      string `json:"location_lost"`
	DateLost      Date   `json:"date_lost"`
	NotifyAddress string `json:"notify_address"`
}
