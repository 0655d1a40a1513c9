package models

import "time"

// Reply represents the owner's reply to a review
type Reply struct {
	ID        int64     `json:"id" db:"id"`
	ReviewID  int64     `json:"review_id" db:"review_id"`
	ReplyText string    `json:"reply_text" db:"reply_text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
