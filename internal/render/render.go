// Package render draws the review page on the server.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math/rand"
	"time"

	"github.com/yusakitchen/reviewboard/internal/models"
	"github.com/yusakitchen/reviewboard/internal/stats"
	"github.com/yusakitchen/reviewboard/internal/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

// InitialReviewCount is how many reviews are listed before "show all"
const InitialReviewCount = 3

// SavedCookie marks a browser session that has already saved the restaurant
const SavedCookie = "reviewboard_saved"

// DateLayout is how review dates are displayed
const DateLayout = "January 2, 2006"

// ViewState is everything a page render depends on
type ViewState struct {
	Reviews   []models.Review
	Replies   []models.Reply
	Photos    []models.Photo
	ShowAll   bool
	SaveCount int64
	Saved     bool
}

// VisibleReviews returns the first InitialReviewCount reviews, or all of them when ShowAll is set
func (v ViewState) VisibleReviews() []models.Review {
	if v.ShowAll || len(v.Reviews) <= InitialReviewCount {
		return v.Reviews
	}
	return v.Reviews[:InitialReviewCount]
}

// Pickup draws one review uniformly at random. ok is false when there are no reviews.
func (v ViewState) Pickup(rng *rand.Rand) (review models.Review, ok bool) {
	if len(v.Reviews) == 0 {
		return models.Review{}, false
	}
	return v.Reviews[rng.Intn(len(v.Reviews))], true
}

// RepliesByReview groups replies under the review they answer, keeping their order
func (v ViewState) RepliesByReview() map[int64][]models.Reply {
	grouped := make(map[int64][]models.Reply, len(v.Replies))
	for _, r := range v.Replies {
		grouped[r.ReviewID] = append(grouped[r.ReviewID], r)
	}
	return grouped
}

type reviewView struct {
	models.Review
	Posted  string
	Visited string
	Stars   []bool
	Replies []models.Reply
}

type pageView struct {
	ReviewCount  int
	Average      string
	AverageStars []bool
	SaveCount    int64
	Saved        bool
	SavedCookie  string
	Pickup       *reviewView
	Visible      []reviewView
	HasMore      bool
	Photos       []models.Photo

	RatingChoices []int
	MaxCommentLen int
}

// Renderer executes the embedded page templates
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates
func New() (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Page writes the full review page for state. rng picks the featured review.
func (r *Renderer) Page(w io.Writer, state ViewState, rng *rand.Rand) error {
	replies := state.RepliesByReview()
	avg := stats.MeanRating(state.Reviews)

	page := pageView{
		ReviewCount:  len(state.Reviews),
		Average:      stats.DisplayRating(avg),
		AverageStars: Stars(stats.FilledStars(avg)),
		SaveCount:    state.SaveCount,
		Saved:        state.Saved,
		SavedCookie:  SavedCookie,
		Photos:       state.Photos,

		RatingChoices: ratingChoices(),
		MaxCommentLen: validation.MaxCommentLen,
	}

	if pick, ok := state.Pickup(rng); ok {
		view := newReviewView(pick, replies)
		page.Pickup = &view
	}

	visible := state.VisibleReviews()
	page.Visible = make([]reviewView, 0, len(visible))
	for _, review := range visible {
		page.Visible = append(page.Visible, newReviewView(review, replies))
	}
	page.HasMore = len(visible) < len(state.Reviews)

	return r.tmpl.ExecuteTemplate(w, "page", page)
}

func newReviewView(review models.Review, replies map[int64][]models.Reply) reviewView {
	view := reviewView{
		Review:  review,
		Posted:  FormatDate(review.CreatedAt),
		Stars:   Stars(review.Rating),
		Replies: replies[review.ID],
	}
	if review.VisitDate != nil {
		if visited, err := time.Parse(validation.VisitDateLayout, *review.VisitDate); err == nil {
			view.Visited = FormatDate(visited)
		}
	}
	return view
}

func ratingChoices() []int {
	choices := make([]int, 0, validation.MaxRating-validation.MinRating+1)
	for r := validation.MinRating; r <= validation.MaxRating; r++ {
		choices = append(choices, r)
	}
	return choices
}

// FormatDate renders a date for display
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Stars returns five flags, the first filled of them true
func Stars(filled int) []bool {
	stars := make([]bool, validation.MaxRating)
	for i := range stars {
		stars[i] = i < filled
	}
	return stars
}
