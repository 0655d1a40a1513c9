package models

import "time"

// DefaultUserIcon is stored when a review is submitted without an icon
const DefaultUserIcon = "👤"

// Review represents a customer review of the restaurant
type Review struct {
	ID           int64     `json:"id" db:"id"`
	ReviewerName string    `json:"reviewer_name" db:"reviewer_name"`
	Rating       int       `json:"rating" db:"rating"`
	Comment      string    `json:"comment" db:"comment"`
	VisitDate    *string   `json:"visit_date" db:"visit_date"` // YYYY-MM-DD
	UserIcon     string    `json:"user_icon" db:"user_icon"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NewReview holds the validated fields of a review about to be inserted
type NewReview struct {
	ReviewerName string
	Rating       int
	Comment      string
	VisitDate    *time.Time
	UserIcon     string
}
