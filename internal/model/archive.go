package model

import "time"

// ArchivedRecord is the terminal, immutable copy of a lost report or found
// record. Exactly one of Lost and Found is set, according to Kind.
type ArchivedRecord struct {
	ID            int64        `json:"id"`
	Kind          string       `json:"kind"`
	RecordID      string       `json:"record_id"`
	Status        string       `json:"status"`
	Category      string       `json:"category"`
	Lost          *LostReport  `json:"lost,omitempty"`
	Found         *FoundRecord `json:"found,omitempty"`
	ClaimedByID   string       `json:"claimed_by_id,omitempty"`
	ClaimedByName string       `json:"claimed_by_name,omitempty"`
	ArchivedAt    time.Time    `json:"archived_at"`
}

// Claimant identifies the person taking possession of an item.
type Claimant struct {
	ID   string `json:"claimant_id"`
	Name string `json:"claimant_name"`
}
