// Package sqlite is the embedded relational store used for local runs and tests.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/yusakitchen/reviewboard/internal/database"
	"github.com/yusakitchen/reviewboard/internal/models"
	_ "modernc.org/sqlite"
)

// Store implements every relational gateway on an sqlite database
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the database at dsn and applies pending migrations.
// Use ":memory:" for a throwaway database.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := database.MigrateSQLite(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return New(db), nil
}

// New wraps an already prepared handle
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type reviewRow struct {
	ID           int64   `db:"id"`
	ReviewerName string  `db:"reviewer_name"`
	Rating       int     `db:"rating"`
	Comment      string  `db:"comment"`
	VisitDate    *string `db:"visit_date"`
	UserIcon     string  `db:"user_icon"`
	CreatedAt    string  `db:"created_at"`
}

type replyRow struct {
	ID        int64  `db:"id"`
	ReviewID  int64  `db:"review_id"`
	ReplyText string `db:"reply_text"`
	CreatedAt string `db:"created_at"`
}

type photoRow struct {
	ID           int64   `db:"id"`
	Filename     string  `db:"filename"`
	Caption      *string `db:"caption"`
	UploaderName *string `db:"uploader_name"`
	FileSize     int64   `db:"file_size"`
	CreatedAt    string  `db:"created_at"`
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func (s *Store) InsertReview(ctx context.Context, review *models.NewReview) (int64, error) {
	const query = `
		INSERT INTO reviews (reviewer_name, rating, comment, visit_date, user_icon)
		VALUES (?, ?, ?, ?, ?)
	`
	var visitDate *string
	if review.VisitDate != nil {
		formatted := review.VisitDate.Format("2006-01-02")
		visitDate = &formatted
	}

	res, err := s.db.ExecContext(ctx, query,
		review.ReviewerName, review.Rating, review.Comment, visitDate, review.UserIcon)
	if err != nil {
		return 0, fmt.Errorf("sqlite.InsertReview: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite.InsertReview: %w", err)
	}
	return id, nil
}

func (s *Store) ListReviews(ctx context.Context) ([]models.Review, error) {
	const query = `
		SELECT id, reviewer_name, rating, comment, visit_date, user_icon, created_at
		FROM reviews
		ORDER BY created_at DESC, id DESC
	`
	var rows []reviewRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("sqlite.ListReviews: %w", err)
	}

	reviews := make([]models.Review, 0, len(rows))
	for _, r := range rows {
		createdAt, err := parseTime(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite.ListReviews: %w", err)
		}
		reviews = append(reviews, models.Review{
			ID:           r.ID,
			ReviewerName: r.ReviewerName,
			Rating:       r.Rating,
			Comment:      r.Comment,
			VisitDate:    r.VisitDate,
			UserIcon:     r.UserIcon,
			CreatedAt:    createdAt,
		})
	}
	return reviews, nil
}

func (s *Store) ReviewExists(ctx context.Context, reviewID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM reviews WHERE id = ?)`, reviewID)
	if err != nil {
		return false, fmt.Errorf("sqlite.ReviewExists: %w", err)
	}
	return exists, nil
}

func (s *Store) ReplyExistsForReview(ctx context.Context, reviewID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM replies WHERE review_id = ?)`, reviewID)
	if err != nil {
		return false, fmt.Errorf("sqlite.ReplyExistsForReview: %w", err)
	}
	return exists, nil
}

func (s *Store) InsertReply(ctx context.Context, reviewID int64, text string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO replies (review_id, reply_text) VALUES (?, ?)`, reviewID, text)
	if err != nil {
		return 0, fmt.Errorf("sqlite.InsertReply: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite.InsertReply: %w", err)
	}
	return id, nil
}

func (s *Store) ListReplies(ctx context.Context) ([]models.Reply, error) {
	const query = `
		SELECT id, review_id, reply_text, created_at
		FROM replies
		ORDER BY created_at ASC, id ASC
	`
	var rows []replyRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("sqlite.ListReplies: %w", err)
	}

	replies := make([]models.Reply, 0, len(rows))
	for _, r := range rows {
		createdAt, err := parseTime(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite.ListReplies: %w", err)
		}
		replies = append(replies, models.Reply{
			ID:        r.ID,
			ReviewID:  r.ReviewID,
			ReplyText: r.ReplyText,
			CreatedAt: createdAt,
		})
	}
	return replies, nil
}

func (s *Store) InsertPhoto(ctx context.Context, photo *models.Photo) (int64, error) {
	const query = `
		INSERT INTO photos (filename, caption, uploader_name, file_size)
		VALUES (?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		photo.Filename, photo.Caption, photo.UploaderName, photo.FileSize)
	if err != nil {
		return 0, fmt.Errorf("sqlite.InsertPhoto: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite.InsertPhoto: %w", err)
	}
	return id, nil
}

func (s *Store) ListPhotos(ctx context.Context) ([]models.Photo, error) {
	const query = `
		SELECT id, filename, caption, uploader_name, file_size, created_at
		FROM photos
		ORDER BY created_at DESC, id DESC
	`
	var rows []photoRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("sqlite.ListPhotos: %w", err)
	}

	photos := make([]models.Photo, 0, len(rows))
	for _, r := range rows {
		createdAt, err := parseTime(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite.ListPhotos: %w", err)
		}
		photos = append(photos, models.Photo{
			ID:           r.ID,
			Filename:     r.Filename,
			Caption:      r.Caption,
			UploaderName: r.UploaderName,
			FileSize:     r.FileSize,
			CreatedAt:    createdAt,
		})
	}
	return photos, nil
}

func (s *Store) InsertSave(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO saves DEFAULT VALUES`); err != nil {
		return fmt.Errorf("sqlite.InsertSave: %w", err)
	}
	return nil
}

func (s *Store) CountSaves(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM saves`); err != nil {
		return 0, fmt.Errorf("sqlite.CountSaves: %w", err)
	}
	return count, nil
}

func (s *Store) ReviewAggregate(ctx context.Context) (models.RatingAggregate, error) {
	const query = `
		SELECT COUNT(*) AS review_count, COALESCE(SUM(rating), 0) AS rating_sum
		FROM reviews
	`
	var agg models.RatingAggregate
	if err := s.db.GetContext(ctx, &agg, query); err != nil {
		return models.RatingAggregate{}, fmt.Errorf("sqlite.ReviewAggregate: %w", err)
	}
	return agg, nil
}
