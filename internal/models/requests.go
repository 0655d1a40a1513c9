package models

// CreateReviewRequest is the JSON body of POST /api/reviews.
// Pointer fields distinguish an absent value from a zero value.
type CreateReviewRequest struct {
	ReviewerName *string `json:"reviewer_name"`
	Rating       *int    `json:"rating"`
	Comment      *string `json:"comment"`
	VisitDate    *string `json:"visit_date,omitempty"`
	UserIcon     *string `json:"user_icon,omitempty"`
}

// CreateReplyRequest is the JSON body of POST /api/replies
type CreateReplyRequest struct {
	ReviewID  *int64  `json:"review_id"`
	ReplyText *string `json:"reply_text"`
	Username  *string `json:"username"`
	Password  *string `json:"password"`
}
