package models

import "time"

// Photo represents the metadata row of an uploaded photo.
// The image bytes live in the blob store under Filename.
type Photo struct {
	ID           int64     `json:"id" db:"id"`
	Filename     string    `json:"filename" db:"filename"`
	Caption      *string   `json:"caption" db:"caption"`
	UploaderName *string   `json:"uploader_name" db:"uploader_name"`
	FileSize     int64     `json:"file_size" db:"file_size"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	URL          string    `json:"url" db:"-"`
}

// PhotoURLPrefix is the public path photos are served under
const PhotoURLPrefix = "/photos/"

// PhotoURL returns the public URL of a stored photo
func PhotoURL(filename string) string {
	return PhotoURLPrefix + filename
}

// UploadedPhoto is returned for each file accepted by an upload request
type UploadedPhoto struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}
