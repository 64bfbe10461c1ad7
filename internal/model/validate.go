package model

import (
	"net/mail"
	"strings"
)

// InstitutionalIDLength is the exact length of a student or employee number.
const InstitutionalIDLength = 10

// Maximum field lengths accepted from callers.
const (
	maxItemName    = 50
	maxDescription = 500
	maxLocation    = 100
)

// ValidateInstitutionalID checks that id is exactly ten digits.
func ValidateInstitutionalID(field, id string) error {
	if len(id) != InstitutionalIDLength {
		return Validation(field, "must be exactly %d digits", InstitutionalIDLength)
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return Validation(field, "must be exactly %d digits", InstitutionalIDLength)
		}
	}
	return nil
}

// NormalizeNotifyAddress maps empty and sentinel addresses to NoNotify and
// checks that anything else is a single e-mail address.
func NormalizeNotifyAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if SkipNotify(addr) {
		return NoNotify, nil
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return "", Validation("notify_address", "invalid e-mail address %q", addr)
	}
	return parsed.Address, nil
}

// SkipNotify reports whether addr means "do not notify".
func SkipNotify(addr string) bool {
	addr = strings.TrimSpace(addr)
	return addr == "" || strings.EqualFold(addr, NoNotify)
}

// Validate trims in and checks every field. The date is required.
func (in *LostInput) Validate() error {
	in.ItemName = strings.TrimSpace(in.ItemName)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)

	if err := validateCommon(in.ItemName, in.Category, in.Description, in.Location); err != nil {
		return err
	}
	if in.DateLost.IsZero() {
		return Validation("date_lost", "required")
	}
	addr, err := NormalizeNotifyAddress(in.NotifyAddress)
	if err != nil {
		return err
	}
	in.NotifyAddress = addr
	return nil
}

// Validate trims in and checks every field. The date is required.
func (in *FoundInput) Validate() error {
	in.ItemName = strings.TrimSpace(in.ItemName)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.FinderName = strings.TrimSpace(in.FinderName)
	in.FinderID = strings.TrimSpace(in.FinderID)
	in.PhotoRef = strings.TrimSpace(in.PhotoRef)

	if err := validateCommon(in.ItemName, in.Category, in.Description, in.Location); err != nil {
		return err
	}
	if in.DateFound.IsZero() {
		return Validation("date_found", "required")
	}
	if in.FinderName == "" {
		return Validation("finder_name", "required")
	}
	return ValidateInstitutionalID("finder_id", in.FinderID)
}

// Validate trims c and checks both fields.
func (c *Claimant) Validate() error {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Validation("claimant_name", "required")
	}
	return ValidateInstitutionalID("claimant_id", c.ID)
}

func validateCommon(name, category, description, location string) error {
	switch {
	case name == "":
		return Validation("item_name", "required")
	case len(name) > maxItemName:
		return Validation("item_name", "at most %d characters", maxItemName)
	case !ValidCategory(category):
		return Validation("category", "unknown category %q", category)
	case description == "":
		return Validation("description", "required")
	case len(description) > maxDescription:
		return Validation("description", "at most %d characters", maxDescription)
	case location == "":
		return Validation("location", "required")
	case len(location) > maxLocation:
		return Validation("location", "at most %d characters", maxLocation)
	}
	return nil
}
