package photo

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/yusakitchen/reviewboard/internal/blob"
	"github.com/yusakitchen/reviewboard/internal/logging"
	"github.com/yusakitchen/reviewboard/internal/models"
	"github.com/yusakitchen/reviewboard/internal/monitoring"
	"github.com/yusakitchen/reviewboard/internal/validation"
)

// Store is the relational access the photo service needs
type Store interface {
	InsertPhoto(ctx context.Context, photo *models.Photo) (int64, error)
	ListPhotos(ctx context.Context) ([]models.Photo, error)
}

// File is one file part of an upload request
type File struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// UploadMeta holds the optional form fields shared by every file in a request
type UploadMeta struct {
	Caption      *string
	UploaderName *string
}

// Service handles photo uploads, listing and retrieval
type Service struct {
	rows   Store
	blobs  blob.Store
	namer  *Namer
	logger zerolog.Logger
}

// NewService creates a new photo service
func NewService(rows Store, blobs blob.Store) *Service {
	return &Service{
		rows:   rows,
		blobs:  blobs,
		namer:  NewNamer(),
		logger: logging.NewLogger("photo"),
	}
}

// Upload stores each file as a blob followed by a metadata row.
//
// The two writes are not atomic: a failed insert leaves an orphan blob, and
// a validation failure on file N leaves files 1..N-1 stored. Files already
// stored are returned alongside the error. The writes are detached from the
// request context so a disconnecting client does not interrupt them.
func (s *Service) Upload(ctx context.Context, files []File, meta UploadMeta) ([]models.UploadedPhoto, error) {
	if err := validation.PhotoCount(len(files)); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	uploaded := make([]models.UploadedPhoto, 0, len(files))

	for _, file := range files {
		if err := validation.PhotoFile(file.Size, file.ContentType); err != nil {
			s.warnPartial(uploaded, files, file, err)
			return uploaded, err
		}

		photo, err := s.store(ctx, file, meta)
		if err != nil {
			s.warnPartial(uploaded, files, file, err)
			return uploaded, err
		}

		monitoring.RecordPhotoUploaded(file.ContentType, file.Size)
		uploaded = append(uploaded, models.UploadedPhoto{
			ID:       photo.ID,
			Filename: photo.Filename,
			URL:      photo.URL,
		})
	}

	return uploaded, nil
}

// warnPartial logs a batch that stopped after some files were already stored
func (s *Service) warnPartial(uploaded []models.UploadedPhoto, files []File, failed File, err error) {
	if len(uploaded) == 0 {
		return
	}
	s.logger.Warn().
		Err(err).
		Int("stored", len(uploaded)).
		Int("requested", len(files)).
		Str("rejected", logging.SanitizeForLog(failed.Name, 120)).
		Msg("Upload aborted part way, earlier photos kept")
}

func (s *Service) store(ctx context.Context, file File, meta UploadMeta) (*models.Photo, error) {
	filename, err := s.namer.Name(file.Name, file.ContentType)
	if err != nil {
		return nil, err
	}

	r, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", file.Name, err)
	}
	defer r.Close()

	// Phase 1: bytes
	if err := s.blobs.Put(ctx, filename, r, file.Size, file.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store photo blob: %w", err)
	}

	// Phase 2: metadata row. Until this commits the blob is unreferenced.
	photo := &models.Photo{
		Filename:     filename,
		Caption:      meta.Caption,
		UploaderName: meta.UploaderName,
		FileSize:     file.Size,
		URL:          models.PhotoURL(filename),
	}
	id, err := s.rows.InsertPhoto(ctx, photo)
	if err != nil {
		s.logger.Error().Err(err).Str("filename", filename).Msg("Photo blob stored without metadata row")
		return nil, fmt.Errorf("failed to store photo metadata: %w", err)
	}
	photo.ID = id

	return photo, nil
}

// List returns every photo, newest first, with its public URL
func (s *Service) List(ctx context.Context) ([]models.Photo, error) {
	photos, err := s.rows.ListPhotos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	if photos == nil {
		photos = []models.Photo{}
	}
	for i := range photos {
		photos[i].URL = models.PhotoURL(photos[i].Filename)
	}
	return photos, nil
}

// Open returns the stored bytes for filename, or blob.ErrNotFound
func (s *Service) Open(ctx context.Context, filename string) (*blob.Object, error) {
	return s.blobs.Get(ctx, filename)
}
