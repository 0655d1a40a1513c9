package render

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusakitchen/reviewboard/internal/models"
	"pgregory.net/rapid"
)

func sampleReviews(ratings ...int) []models.Review {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reviews := make([]models.Review, 0, len(ratings))
	for i, rating := range ratings {
		reviews = append(reviews, models.Review{
			ID:           int64(len(ratings) - i),
			ReviewerName: "Guest",
			Rating:       rating,
			Comment:      "Tasty",
			UserIcon:     models.DefaultUserIcon,
			CreatedAt:    created.Add(-time.Duration(i) * time.Hour),
		})
	}
	return reviews
}

func renderPage(t *testing.T, state ViewState) *goquery.Document {
	t.Helper()
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, state, rand.New(rand.NewSource(1))))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestVisibleReviews(t *testing.T) {
	state := ViewState{Reviews: sampleReviews(5, 4, 3, 2, 1)}
	assert.Len(t, state.VisibleReviews(), InitialReviewCount)

	state.ShowAll = true
	assert.Len(t, state.VisibleReviews(), 5)

	short := ViewState{Reviews: sampleReviews(5, 4)}
	assert.Len(t, short.VisibleReviews(), 2)
}

func TestProperty_PickupIsFromList(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(rt, "n")
		seed := rapid.Int64().Draw(rt, "seed")

		ratings := make([]int, n)
		for i := range ratings {
			ratings[i] = 1 + i%5
		}
		state := ViewState{Reviews: sampleReviews(ratings...)}

		pick, ok := state.Pickup(rand.New(rand.NewSource(seed)))
		if n == 0 {
			if ok {
				rt.Fatal("pickup from an empty list")
			}
			return
		}
		if !ok {
			rt.Fatal("no pickup from a non-empty list")
		}
		found := false
		for _, r := range state.Reviews {
			if r.ID == pick.ID {
				found = true
			}
		}
		if !found {
			rt.Fatalf("pickup %d not in list", pick.ID)
		}
	})
}

func TestRepliesByReview(t *testing.T) {
	state := ViewState{Replies: []models.Reply{
		{ID: 1, ReviewID: 10, ReplyText: "a"},
		{ID: 2, ReviewID: 11, ReplyText: "b"},
		{ID: 3, ReviewID: 10, ReplyText: "c"},
	}}
	grouped := state.RepliesByReview()
	require.Len(t, grouped[10], 2)
	assert.Equal(t, "a", grouped[10][0].ReplyText)
	assert.Equal(t, "c", grouped[10][1].ReplyText)
	assert.Len(t, grouped[11], 1)
}

func TestStars(t *testing.T) {
	assert.Equal(t, []bool{true, true, true, false, false}, Stars(3))
	assert.Equal(t, []bool{false, false, false, false, false}, Stars(0))
}

func TestPage_StatsHeader(t *testing.T) {
	doc := renderPage(t, ViewState{Reviews: sampleReviews(3, 4), SaveCount: 12})

	assert.Equal(t, "2", doc.Find("#stats .review-count").Text())
	assert.Equal(t, "3.50", doc.Find("#stats .average-rating").Text())
	assert.Equal(t, 3, doc.Find("#stats .star.filled").Length())
	assert.Equal(t, "12", doc.Find("#save-count").Text())

	_, disabled := doc.Find("#save-button").Attr("disabled")
	assert.False(t, disabled)
}

func TestPage_SavedSessionDisablesButton(t *testing.T) {
	doc := renderPage(t, ViewState{Saved: true})
	_, disabled := doc.Find("#save-button").Attr("disabled")
	assert.True(t, disabled)
}

func TestPage_EmptyList(t *testing.T) {
	doc := renderPage(t, ViewState{})

	assert.Equal(t, 1, doc.Find("#reviews .empty").Length())
	assert.Zero(t, doc.Find("#pickup").Length())
	assert.Equal(t, "0.00", doc.Find("#stats .average-rating").Text())
}

func TestPage_ReviewForm(t *testing.T) {
	doc := renderPage(t, ViewState{})

	form := doc.Find("form#review-form")
	require.Equal(t, 1, form.Length())
	for _, name := range []string{"reviewer_name", "rating", "comment", "visit_date"} {
		assert.Equal(t, 1, form.Find(`[name="`+name+`"]`).Length(), name)
	}

	assert.Equal(t, "0/1000", strings.TrimSpace(form.Find(".char-count").Text()))

	var ratings []string
	form.Find(".star-input").Each(func(_ int, s *goquery.Selection) {
		r, _ := s.Attr("data-rating")
		ratings = append(ratings, r)
	})
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ratings)
	assert.Equal(t, 1, form.Find("#form-message").Length())
	assert.Equal(t, 1, form.Find("#char-count").Length())
}

func TestPage_FirstThreeThenAll(t *testing.T) {
	reviews := sampleReviews(5, 4, 3, 2, 1)

	doc := renderPage(t, ViewState{Reviews: reviews})
	assert.Equal(t, 3, doc.Find("#reviews .review").Length())
	assert.Equal(t, 1, doc.Find("#reviews a.show-all").Length())

	doc = renderPage(t, ViewState{Reviews: reviews, ShowAll: true})
	assert.Equal(t, 5, doc.Find("#reviews .review").Length())
	assert.Zero(t, doc.Find("#reviews a.show-all").Length())

	assert.Equal(t, 1, doc.Find("#pickup .review").Length())
}

func TestPage_ReviewDetails(t *testing.T) {
	visit := "2024-03-09"
	review := models.Review{
		ID:           7,
		ReviewerName: "<b>Hanako</b>",
		Rating:       4,
		Comment:      "Great <script>alert(1)</script>",
		VisitDate:    &visit,
		UserIcon:     "🍜",
		CreatedAt:    time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	doc := renderPage(t, ViewState{
		Reviews: []models.Review{review},
		Replies: []models.Reply{{ID: 1, ReviewID: 7, ReplyText: "Thank you!"}},
	})

	item := doc.Find("#reviews .review").First()
	assert.Equal(t, "<b>Hanako</b>", item.Find(".reviewer-name").Text())
	assert.Zero(t, item.Find(".reviewer-name b").Length())
	assert.Zero(t, item.Find(".review-text script").Length())
	assert.Equal(t, "Posted March 10, 2024", item.Find(".review-date").Text())
	assert.Equal(t, "Visited March 9, 2024", item.Find(".visit-date").Text())
	assert.Equal(t, 4, item.Find(".star.filled").Length())
	assert.Equal(t, 5, item.Find(".star").Length())
	assert.Equal(t, "Thank you!", strings.TrimSpace(item.Find(".reply .reply-text").Text()))
}

func TestPage_Photos(t *testing.T) {
	caption := "Chashu"
	doc := renderPage(t, ViewState{Photos: []models.Photo{
		{ID: 2, Filename: "2-bbbbbb.png", URL: models.PhotoURL("2-bbbbbb.png"), Caption: &caption},
		{ID: 1, Filename: "1-aaaaaa.jpg", URL: models.PhotoURL("1-aaaaaa.jpg")},
	}})

	imgs := doc.Find("#photos img")
	require.Equal(t, 2, imgs.Length())
	src, _ := imgs.First().Attr("src")
	assert.Equal(t, "/photos/2-bbbbbb.png", src)
	assert.Equal(t, "Chashu", doc.Find("#photos figcaption").Text())
}
