package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yusakitchen/reviewboard/internal/blob"
	apierrors "github.com/yusakitchen/reviewboard/internal/errors"
	"github.com/yusakitchen/reviewboard/internal/logging"
	"github.com/yusakitchen/reviewboard/internal/middleware"
	"github.com/yusakitchen/reviewboard/internal/monitoring"
	"github.com/yusakitchen/reviewboard/internal/photo"
)

const (
	defaultPhotoType  = "image/jpeg"
	photoCacheControl = "public, max-age=31536000"
)

// handleListPhotos returns photo metadata, newest first
func (s *APIServer) handleListPhotos(c *gin.Context) {
	photos, err := s.photos.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "list_photos", "Failed to fetch photos")
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

// handleUploadPhotos stores up to five photos from a multipart form
func (s *APIServer) handleUploadPhotos(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.rejectUpload(c, apierrors.New(apierrors.KindTooLarge, "The upload is too large"))
			return
		}
		s.rejectUpload(c, apierrors.New(apierrors.KindMissingField, "Please select a photo"))
		return
	}

	headers := form.File["photos"]
	files := make([]photo.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, uploadedFile(fh))
	}
	meta := photo.UploadMeta{
		Caption:      formValue(form, "caption"),
		UploaderName: formValue(form, "uploader_name"),
	}

	uploaded, err := s.photos.Upload(c.Request.Context(), files, meta)
	if err != nil {
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) {
			s.rejectUpload(c, apiErr)
			return
		}
		s.respondError(c, err, "upload_photos", "Failed to upload photos")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "photos": uploaded})
}

func (s *APIServer) rejectUpload(c *gin.Context, apiErr *apierrors.APIError) {
	if apierrors.IsClientError(apiErr) {
		monitoring.RecordUploadRejected(string(apiErr.Kind))
	}
	c.JSON(apiErr.HTTPStatus, apierrors.ErrorResponse{Error: apiErr.Message})
}

// handleServePhoto streams stored photo bytes with long-lived caching
func (s *APIServer) handleServePhoto(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" {
		c.String(http.StatusNotFound, "Photo not found")
		return
	}

	obj, err := s.photos.Open(c.Request.Context(), filename)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidKey) {
			c.String(http.StatusNotFound, "Photo not found")
			return
		}
		monitoring.RecordStoreFailure("serve_photo")
		logging.LogError(err, middleware.GetRequestIDFromContext(c), "server", "serve_photo")
		c.String(http.StatusInternalServerError, "Error loading photo")
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = defaultPhotoType
	}
	c.DataFromReader(http.StatusOK, obj.Size, contentType, obj.Body, map[string]string{
		"Cache-Control": photoCacheControl,
	})
}

func uploadedFile(fh *multipart.FileHeader) photo.File {
	return photo.File{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// formValue returns the first non-empty value of a form field, or nil
func formValue(form *multipart.Form, key string) *string {
	for _, v := range form.Value[key] {
		if v != "" {
			return &v
		}
	}
	return nil
}
