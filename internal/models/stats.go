package models

// Stats holds the aggregate numbers shown in the page header
type Stats struct {
	ReviewCount   int64   `json:"reviewCount"`
	AverageRating float64 `json:"averageRating"`
	SaveCount     int64   `json:"saveCount"`
}

// RatingAggregate is the raw count and sum of review ratings
type RatingAggregate struct {
	Count int64 `db:"review_count"`
	Sum   int64 `db:"rating_sum"`
}
