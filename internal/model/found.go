package model

import "time"

// FoundRecord is an item turned in to the office.
type FoundRecord struct {
	ID          string    `json:"found_id"`
	ItemName    string    `json:"item_name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Location    string    `json:"location_found"`
	DateFound   Date      `json:"date_found"`
	FinderName  string    `json:"finder_name"`
	FinderID    string    `json:"finder_id"`
	Status      string    `json:"status"`
	PhotoRef    string    `json:"photo_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FoundInput holds the caller-supplied fields of a found record.
type FoundInput struct {
	ItemName    string `json:"item_name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Location    string `json:"location_found"`
	DateFound   Date   `json:"date_found"`
	FinderName  string `json:"finder_name"`
	FinderID    string `json:"finder_id"`
	PhotoRef    string `json:"photo_ref"`
}
