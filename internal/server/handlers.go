package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	apierrors "github.com/yusakitchen/reviewboard/internal/errors"
	"github.com/yusakitchen/reviewboard/internal/models"
	"github.com/yusakitchen/reviewboard/internal/validation"
)

// handleListReviews returns every review, newest first
func (s *APIServer) handleListReviews(c *gin.Context) {
	reviews, err := s.reviews.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "list_reviews", "Failed to fetch reviews")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// handleCreateReview stores a new review
func (s *APIServer) handleCreateReview(c *gin.Context) {
	var req models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apierrors.NewInvalidBodyError("Invalid request body"), "create_review", "")
		return
	}

	id, err := s.reviews.Create(c.Request.Context(), &req)
	if err != nil {
		s.respondError(c, err, "create_review", "Failed to post review")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": id})
}

// handleListReplies returns every owner reply, oldest first
func (s *APIServer) handleListReplies(c *gin.Context) {
	replies, err := s.replies.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "list_replies", "Failed to fetch replies")
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

// handleCreateReply stores the owner's reply to a review
func (s *APIServer) handleCreateReply(c *gin.Context) {
	// Credentials are checked before any other field is decoded.
	var creds replyCredentials
	if err := c.ShouldBindBodyWith(&creds, binding.JSON); err != nil {
		s.respondError(c, apierrors.NewInvalidBodyError("Invalid request body"), "create_reply", "")
		return
	}
	if err := validation.Credentials(asString(creds.Username), asString(creds.Password)); err != nil {
		s.respondError(c, err, "create_reply", "")
		return
	}

	var req models.CreateReplyRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		s.respondError(c, apierrors.NewInvalidBodyError("Invalid request body"), "create_reply", "")
		return
	}

	id, err := s.replies.Create(c.Request.Context(), &req)
	if err != nil {
		s.respondError(c, err, "create_reply", "Failed to post reply")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": id})
}

// handleRecordSave appends a save event and returns the new total
func (s *APIServer) handleRecordSave(c *gin.Context) {
	count, err := s.saves.Record(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "record_save", "Failed to save")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "saveCount": count})
}

// handleGetStats returns review count, average rating and save count
func (s *APIServer) handleGetStats(c *gin.Context) {
	st, err := s.stats.Get(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "get_stats", "Failed to fetch stats")
		return
	}
	c.JSON(http.StatusOK, st)
}

// replyCredentials holds the login fields of a reply body, whatever their JSON type
type replyCredentials struct {
	Username any `json:"username"`
	Password any `json:"password"`
}

// asString returns nil for an absent or null field and the field's text otherwise
func asString(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	default:
		s := fmt.Sprint(t)
		return &s
	}
}
