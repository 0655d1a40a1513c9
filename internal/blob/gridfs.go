package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const contentTypeField = "contentType"

// GridFS stores blobs in a MongoDB GridFS bucket.
// Re-uploading a key adds a new revision; Get always reads the newest one.
type GridFS struct {
	bucket *gridfs.Bucket
}

type gridFSFile struct {
	ID       primitive.ObjectID `bson:"_id"`
	Length   int64              `bson:"length"`
	Metadata bson.M             `bson:"metadata"`
}

// NewGridFS creates a GridFS store on the given database and bucket name
func NewGridFS(db *mongo.Database, bucketName string) (*GridFS, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket: %w", err)
	}
	return &GridFS{bucket: bucket}, nil
}

// Put uploads r under key
func (g *GridFS) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: contentTypeField, Value: contentType}})
	if _, err := g.bucket.UploadFromStream(key, r, opts); err != nil {
		return fmt.Errorf("failed to upload %s to gridfs: %w", key, err)
	}
	return nil
}

// Get opens the newest revision stored under key
func (g *GridFS) Get(ctx context.Context, key string) (*Object, error) {
	if !ValidKey(key) {
		return nil, ErrNotFound
	}

	var file gridFSFile
	err := g.bucket.GetFilesCollection().FindOne(ctx,
		bson.D{{Key: "filename", Value: key}},
		options.FindOne().SetSort(bson.D{{Key: "uploadDate", Value: -1}}),
	).Decode(&file)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find %s in gridfs: %w", key, err)
	}

	stream, err := g.bucket.OpenDownloadStream(file.ID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open %s from gridfs: %w", key, err)
	}

	contentType, _ := file.Metadata[contentTypeField].(string)
	return &Object{
		Body:        stream,
		ContentType: contentType,
		Size:        file.Length,
	}, nil
}
