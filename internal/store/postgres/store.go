// Package postgres is the production relational store built on a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yusakitchen/reviewboard/internal/database"
	"github.com/yusakitchen/reviewboard/internal/models"
)

const visitDateLayout = "2006-01-02"

// Store implements every relational gateway on postgres
type Store struct {
	db *database.DB
}

func New(db *database.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Health(ctx)
}

func (s *Store) InsertReview(ctx context.Context, review *models.NewReview) (int64, error) {
	const query = `
		INSERT INTO reviews (reviewer_name, rating, comment, visit_date, user_icon)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := s.db.Pool.QueryRow(ctx, query,
		review.ReviewerName, review.Rating, review.Comment, review.VisitDate, review.UserIcon,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres.InsertReview: %w", err)
	}
	return id, nil
}

func (s *Store) ListReviews(ctx context.Context) ([]models.Review, error) {
	const query = `
		SELECT id, reviewer_name, rating, comment, visit_date, user_icon, created_at
		FROM reviews
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres.ListReviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var (
			r         models.Review
			visitDate *time.Time
		)
		if err := rows.Scan(&r.ID, &r.ReviewerName, &r.Rating, &r.Comment, &visitDate, &r.UserIcon, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres.ListReviews: %w", err)
		}
		if visitDate != nil {
			formatted := visitDate.Format(visitDateLayout)
			r.VisitDate = &formatted
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres.ListReviews: %w", err)
	}
	return reviews, nil
}

func (s *Store) ReviewExists(ctx context.Context, reviewID int64) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE id = $1)`, reviewID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres.ReviewExists: %w", err)
	}
	return exists, nil
}

func (s *Store) ReplyExistsForReview(ctx context.Context, reviewID int64) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM replies WHERE review_id = $1)`, reviewID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres.ReplyExistsForReview: %w", err)
	}
	return exists, nil
}

func (s *Store) InsertReply(ctx context.Context, reviewID int64, text string) (int64, error) {
	var id int64
	err := s.db.Pool.QueryRow(ctx,
		`INSERT INTO replies (review_id, reply_text) VALUES ($1, $2) RETURNING id`,
		reviewID, text,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres.InsertReply: %w", err)
	}
	return id, nil
}

func (s *Store) ListReplies(ctx context.Context) ([]models.Reply, error) {
	const query = `
		SELECT id, review_id, reply_text, created_at
		FROM replies
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres.ListReplies: %w", err)
	}
	replies, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Reply])
	if err != nil {
		return nil, fmt.Errorf("postgres.ListReplies: %w", err)
	}
	if replies == nil {
		replies = []models.Reply{}
	}
	return replies, nil
}

func (s *Store) InsertPhoto(ctx context.Context, photo *models.Photo) (int64, error) {
	const query = `
		INSERT INTO photos (filename, caption, uploader_name, file_size)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := s.db.Pool.QueryRow(ctx, query,
		photo.Filename, photo.Caption, photo.UploaderName, photo.FileSize,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres.InsertPhoto: %w", err)
	}
	return id, nil
}

func (s *Store) ListPhotos(ctx context.Context) ([]models.Photo, error) {
	const query = `
		SELECT id, filename, caption, uploader_name, file_size, created_at
		FROM photos
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres.ListPhotos: %w", err)
	}
	defer rows.Close()

	photos := make([]models.Photo, 0)
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.Filename, &p.Caption, &p.UploaderName, &p.FileSize, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres.ListPhotos: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres.ListPhotos: %w", err)
	}
	return photos, nil
}

func (s *Store) InsertSave(ctx context.Context) error {
	if _, err := s.db.Pool.Exec(ctx, `INSERT INTO saves DEFAULT VALUES`); err != nil {
		return fmt.Errorf("postgres.InsertSave: %w", err)
	}
	return nil
}

func (s *Store) CountSaves(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM saves`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres.CountSaves: %w", err)
	}
	return count, nil
}

func (s *Store) ReviewAggregate(ctx context.Context) (models.RatingAggregate, error) {
	const query = `SELECT COUNT(*), COALESCE(SUM(rating), 0) FROM reviews`
	var agg models.RatingAggregate
	if err := s.db.Pool.QueryRow(ctx, query).Scan(&agg.Count, &agg.Sum); err != nil {
		return models.RatingAggregate{}, fmt.Errorf("postgres.ReviewAggregate: %w", err)
	}
	return agg, nil
}
