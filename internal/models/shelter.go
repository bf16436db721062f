package models

import "time"

// Shelter is a registered recipient organization. CategoriesNeeded holds the
// donation categories it currently asks for; demand is aggregated across
// active shelters only.
type Shelter struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	CategoriesNeeded []string   `json:"categories_needed"`
	LastContacted    *time.Time `json:"last_contacted"`
	LastResponse     *time.Time `json:"last_response"`
	Status           string     `json:"status"`
	Notes            string     `json:"notes"`
}

const (
	ShelterActive   = "active"
	ShelterInactive = "inactive"
	ShelterPending  = "pending"
)

func NewShelter(name, email string, categoriesNeeded []string, notes string) *Shelter {
	if categoriesNeeded == nil {
		categoriesNeeded = []string{}
	}
	return &Shelter{
		Name:             name,
		Email:            email,
		CategoriesNeeded: categoriesNeeded,
		Status:           ShelterActive,
		Notes:            notes,
	}
}

// CategoryMatch compares donation supply against shelter demand for one
// category. Supply counts logged donations; Demand counts active shelters
// asking for the category.
type CategoryMatch struct {
	Category string `json:"category"`
	Supply   int    `json:"supply"`
	Demand   int    `json:"demand"`
}
