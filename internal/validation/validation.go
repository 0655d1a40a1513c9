// Package validation holds the pure checks run before every write.
package validation

import (
	"fmt"
	"time"
	"unicode/utf8"

	apierrors "github.com/yusakitchen/reviewboard/internal/errors"
	"github.com/yusakitchen/reviewboard/internal/models"
)

// Review limits
const (
	MinRating          = 1
	MaxRating          = 5
	MaxReviewerNameLen = 50
	MaxCommentLen      = 1000
	VisitDateLayout    = "2006-01-02"
)

// Reply limits
const (
	OwnerUsername   = "yusa"
	MaxReplyTextLen = 500
)

// Photo limits
const (
	MaxPhotosPerUpload = 5
	MaxPhotoSize       = 5 * 1024 * 1024
)

// AllowedPhotoTypes lists the declared content types accepted for upload
var AllowedPhotoTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Review validates a review submission and returns the row to insert
func Review(req *models.CreateReviewRequest) (*models.NewReview, error) {
	if isBlank(req.ReviewerName) || req.Rating == nil || isBlank(req.Comment) {
		return nil, apierrors.New(apierrors.KindMissingField, "Please fill in all required fields")
	}

	if *req.Rating < MinRating || *req.Rating > MaxRating {
		return nil, apierrors.New(apierrors.KindOutOfRange,
			fmt.Sprintf("Rating must be between %d and %d", MinRating, MaxRating))
	}

	if length(*req.ReviewerName) > MaxReviewerNameLen {
		return nil, apierrors.New(apierrors.KindTooLong,
			fmt.Sprintf("Name must be %d characters or fewer", MaxReviewerNameLen))
	}
	if length(*req.Comment) > MaxCommentLen {
		return nil, apierrors.New(apierrors.KindTooLong,
			fmt.Sprintf("Review must be %d characters or fewer", MaxCommentLen))
	}

	review := &models.NewReview{
		ReviewerName: *req.ReviewerName,
		Rating:       *req.Rating,
		Comment:      *req.Comment,
		UserIcon:     models.DefaultUserIcon,
	}

	if !isBlank(req.VisitDate) {
		visited, err := time.Parse(VisitDateLayout, *req.VisitDate)
		if err != nil {
			return nil, apierrors.New(apierrors.KindInvalidFormat, "Visit date must be in YYYY-MM-DD format")
		}
		review.VisitDate = &visited
	}

	if !isBlank(req.UserIcon) {
		review.UserIcon = *req.UserIcon
	}

	return review, nil
}

// Credentials checks the owner login attached to a reply.
// Only the username is compared; any non-empty password is accepted.
func Credentials(username, password *string) error {
	if isBlank(username) || isBlank(password) {
		return apierrors.ErrUnauthenticated
	}
	if *username != OwnerUsername {
		return apierrors.ErrForbidden
	}
	return nil
}

// ReplyFields validates the reply body fields (credentials are checked separately)
func ReplyFields(req *models.CreateReplyRequest) (int64, string, error) {
	if req.ReviewID == nil || *req.ReviewID == 0 || isBlank(req.ReplyText) {
		return 0, "", apierrors.New(apierrors.KindMissingField, "Please enter a reply")
	}
	if length(*req.ReplyText) > MaxReplyTextLen {
		return 0, "", apierrors.New(apierrors.KindTooLong,
			fmt.Sprintf("Reply must be %d characters or fewer", MaxReplyTextLen))
	}
	return *req.ReviewID, *req.ReplyText, nil
}

// PhotoCount validates the number of files in an upload request
func PhotoCount(n int) error {
	if n == 0 {
		return apierrors.New(apierrors.KindMissingField, "Please select a photo")
	}
	if n > MaxPhotosPerUpload {
		return apierrors.New(apierrors.KindTooMany,
			fmt.Sprintf("You can upload up to %d photos at a time", MaxPhotosPerUpload))
	}
	return nil
}

// PhotoFile validates a single uploaded file's size and declared content type
func PhotoFile(size int64, contentType string) error {
	if size > MaxPhotoSize {
		return apierrors.New(apierrors.KindTooLarge, "Each file must be 5MB or smaller")
	}
	if _, ok := AllowedPhotoTypes[contentType]; !ok {
		return apierrors.New(apierrors.KindUnsupportedType, "Only JPEG, PNG and WebP images can be uploaded")
	}
	return nil
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

// length counts code points, not bytes or UTF-16 units: an emoji outside
// the BMP is one character, so 1000 of them fit in a comment.
func length(s string) int {
	return utf8.RuneCountInString(s)
}
