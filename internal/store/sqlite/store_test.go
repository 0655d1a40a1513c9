package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusakitchen/reviewboard/internal/database"
	"github.com/yusakitchen/reviewboard/internal/models"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newReview(name string, rating int) *models.NewReview {
	return &models.NewReview{
		ReviewerName: name,
		Rating:       rating,
		Comment:      "Lovely broth",
		UserIcon:     models.DefaultUserIcon,
	}
}

func TestOpen_MigratesTwice(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	// A second pass over an up-to-date schema is a no-op.
	require.NoError(t, database.MigrateSQLite(store.db.DB))
}

func TestReviews_RoundTrip(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()

	visited := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	first := newReview("Hanako", 5)
	first.VisitDate = &visited
	first.UserIcon = "🍜"

	id1, err := store.InsertReview(ctx, first)
	require.NoError(t, err)
	id2, err := store.InsertReview(ctx, newReview("Taro", 3))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	reviews, err := store.ListReviews(ctx)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	// newest first
	assert.Equal(t, id2, reviews[0].ID)
	assert.Equal(t, id1, reviews[1].ID)

	got := reviews[1]
	assert.Equal(t, "Hanako", got.ReviewerName)
	assert.Equal(t, 5, got.Rating)
	assert.Equal(t, "🍜", got.UserIcon)
	require.NotNil(t, got.VisitDate)
	assert.Equal(t, "2024-03-09", *got.VisitDate)
	assert.False(t, got.CreatedAt.IsZero())

	assert.Nil(t, reviews[0].VisitDate)
	assert.Equal(t, models.DefaultUserIcon, reviews[0].UserIcon)
}

func TestReviews_RatingCheckConstraint(t *testing.T) {
	store := openMemory(t)
	_, err := store.InsertReview(context.Background(), newReview("Bad", 9))
	assert.Error(t, err)
}

func TestReplies_RoundTrip(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()

	reviewID, err := store.InsertReview(ctx, newReview("Hanako", 4))
	require.NoError(t, err)

	exists, err := store.ReviewExists(ctx, reviewID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ReviewExists(ctx, reviewID+100)
	require.NoError(t, err)
	assert.False(t, exists)

	hasReply, err := store.ReplyExistsForReview(ctx, reviewID)
	require.NoError(t, err)
	assert.False(t, hasReply)

	replyID, err := store.InsertReply(ctx, reviewID, "Thank you for visiting!")
	require.NoError(t, err)
	assert.NotZero(t, replyID)

	hasReply, err = store.ReplyExistsForReview(ctx, reviewID)
	require.NoError(t, err)
	assert.True(t, hasReply)

	replies, err := store.ListReplies(ctx)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, reviewID, replies[0].ReviewID)
	assert.Equal(t, "Thank you for visiting!", replies[0].ReplyText)
}

func TestReplies_ForeignKey(t *testing.T) {
	store := openMemory(t)
	_, err := store.InsertReply(context.Background(), 404, "orphan")
	assert.Error(t, err)
}

func TestReplies_OldestFirst(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()

	a, _ := store.InsertReview(ctx, newReview("A", 4))
	b, _ := store.InsertReview(ctx, newReview("B", 4))
	_, err := store.InsertReply(ctx, b, "second review answered first")
	require.NoError(t, err)
	_, err = store.InsertReply(ctx, a, "then the first")
	require.NoError(t, err)

	replies, err := store.ListReplies(ctx)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, b, replies[0].ReviewID)
	assert.Equal(t, a, replies[1].ReviewID)
}

func TestPhotos_RoundTrip(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()

	caption := "Tonkotsu"
	_, err := store.InsertPhoto(ctx, &models.Photo{Filename: "1-aaaaaa.jpg", Caption: &caption, FileSize: 1024})
	require.NoError(t, err)
	id2, err := store.InsertPhoto(ctx, &models.Photo{Filename: "2-bbbbbb.png", FileSize: 2048})
	require.NoError(t, err)

	photos, err := store.ListPhotos(ctx)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, id2, photos[0].ID)
	assert.Nil(t, photos[0].Caption)
	assert.Nil(t, photos[0].UploaderName)
	require.NotNil(t, photos[1].Caption)
	assert.Equal(t, "Tonkotsu", *photos[1].Caption)
	assert.Equal(t, int64(1024), photos[1].FileSize)

	// filenames are unique
	_, err = store.InsertPhoto(ctx, &models.Photo{Filename: "1-aaaaaa.jpg", FileSize: 1})
	assert.Error(t, err)
}

func TestSavesAndAggregate(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()

	agg, err := store.ReviewAggregate(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RatingAggregate{}, agg)

	count, err := store.CountSaves(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	for _, r := range []int{5, 4, 4} {
		_, err := store.InsertReview(ctx, newReview("x", r))
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, store.InsertSave(ctx))
	}

	agg, err = store.ReviewAggregate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), agg.Count)
	assert.Equal(t, int64(13), agg.Sum)

	count, err = store.CountSaves(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestEmptyListsAreNotNil(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()

	reviews, err := store.ListReviews(ctx)
	require.NoError(t, err)
	assert.NotNil(t, reviews)

	replies, err := store.ListReplies(ctx)
	require.NoError(t, err)
	assert.NotNil(t, replies)

	photos, err := store.ListPhotos(ctx)
	require.NoError(t, err)
	assert.NotNil(t, photos)
}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlite")), mock
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	boom := errors.New("disk I/O error")
	ctx := context.Background()

	store, mock := newMock(t)
	mock.ExpectExec("INSERT INTO reviews").WillReturnError(boom)
	_, err := store.InsertReview(ctx, newReview("a", 1))
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery("SELECT id, reviewer_name").WillReturnError(boom)
	_, err = store.ListReviews(ctx)
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery("SELECT EXISTS").WillReturnError(boom)
	_, err = store.ReviewExists(ctx, 1)
	assert.ErrorIs(t, err, boom)

	mock.ExpectExec("INSERT INTO saves").WillReturnError(boom)
	assert.ErrorIs(t, store.InsertSave(ctx), boom)

	mock.ExpectQuery("SELECT COUNT").WillReturnError(boom)
	_, err = store.CountSaves(ctx)
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReviews_BadTimestamp(t *testing.T) {
	store, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"id", "reviewer_name", "rating", "comment", "visit_date", "user_icon", "created_at"}).
		AddRow(1, "a", 5, "ok", nil, "👤", "yesterday")
	mock.ExpectQuery("SELECT id, reviewer_name").WillReturnRows(rows)

	_, err := store.ListReviews(context.Background())
	assert.Error(t, err)
}
