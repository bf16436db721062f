package models

import "time"

// Donation is one logged classification event. Immutable once written; the
// log is append-only and ids are assigned by the database, never reused.
type Donation struct {
	ID                 int64     `json:"id"`
	Category           string    `json:"category"`
	ItemName           string    `json:"item_name"`
	EstimatedWeightLbs *float64  `json:"estimated_weight_lbs"`
	EstimatedExpiry    *string   `json:"estimated_expiry"`
	Timestamp          time.Time `json:"timestamp"`
	ImagePath          string    `json:"image_path"`
	DonorID            *string   `json:"donor_id"`
}

func NewDonation(category, itemName string, weightLbs *float64, expiry *string, imagePath string) *Donation {
	return &Donation{
		Category:           category,
		ItemName:           itemName,
		EstimatedWeightLbs: weightLbs,
		EstimatedExpiry:    expiry,
		Timestamp:          time.Now().UTC(),
		ImagePath:          imagePath,
	}
}

// Stats summarizes the donation log for the dashboard.
type Stats struct {
	TotalItems     int            `json:"total_items"`
	TotalWeightLbs float64        `json:"total_weight_lbs"`
	UniqueDonors   int            `json:"unique_donors"`
	ByCategory     map[string]int `json:"by_category"`
}
