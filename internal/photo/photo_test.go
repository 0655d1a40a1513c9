package photo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusakitchen/reviewboard/internal/blob"
	apierrors "github.com/yusakitchen/reviewboard/internal/errors"
	"github.com/yusakitchen/reviewboard/internal/models"
)

type memoryRows struct {
	mu     sync.Mutex
	photos []models.Photo
	err    error
}

func (m *memoryRows) InsertPhoto(ctx context.Context, p *models.Photo) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	row := *p
	row.ID = int64(len(m.photos) + 1)
	row.URL = ""
	m.photos = append(m.photos, row)
	return row.ID, nil
}

func (m *memoryRows) ListPhotos(ctx context.Context) ([]models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Photo, len(m.photos))
	copy(out, m.photos)
	return out, m.err
}

func fileOf(name, contentType string, size int) File {
	data := bytes.Repeat([]byte{'x'}, size)
	return File{
		Name:        name,
		Size:        int64(size),
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func newTestService(t *testing.T) (*Service, *memoryRows, *blob.Local) {
	t.Helper()
	blobs, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)
	rows := &memoryRows{}
	return NewService(rows, blobs), rows, blobs
}

var filenamePattern = regexp.MustCompile(`^\d{13}-[0-9a-z]{6}\.[0-9a-z]+$`)

func TestNamer_Format(t *testing.T) {
	n := &Namer{
		now:   func() time.Time { return time.UnixMilli(1700000000123) },
		token: func() (string, error) { return "k3x9ab", nil },
	}

	name, err := n.Name("IMG_0001.JPG", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "1700000000123-k3x9ab.jpg", name)

	name, err = n.Name("no-extension", "image/webp")
	require.NoError(t, err)
	assert.Equal(t, "1700000000123-k3x9ab.webp", name)

	name, err = n.Name("weird.p/ng", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "1700000000123-k3x9ab.png", name)
}

func TestNamer_RandomToken(t *testing.T) {
	n := NewNamer()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		name, err := n.Name("a.png", "image/png")
		require.NoError(t, err)
		assert.Regexp(t, filenamePattern, name)
		seen[name] = true
	}
	assert.Greater(t, len(seen), 45, "tokens should rarely collide")
}

func TestUpload_StoresBlobThenRow(t *testing.T) {
	svc, rows, blobs := newTestService(t)
	caption := "Lunch set"

	uploaded, err := svc.Upload(context.Background(),
		[]File{fileOf("a.jpg", "image/jpeg", 4*1024*1024)},
		UploadMeta{Caption: &caption},
	)
	require.NoError(t, err)
	require.Len(t, uploaded, 1)

	got := uploaded[0]
	assert.Equal(t, int64(1), got.ID)
	assert.Regexp(t, filenamePattern, got.Filename)
	assert.Equal(t, "/photos/"+got.Filename, got.URL)

	require.Len(t, rows.photos, 1)
	assert.Equal(t, int64(4*1024*1024), rows.photos[0].FileSize)
	assert.Equal(t, &caption, rows.photos[0].Caption)
	assert.Nil(t, rows.photos[0].UploaderName)

	obj, err := blobs.Get(context.Background(), got.Filename)
	require.NoError(t, err)
	defer obj.Body.Close()
	assert.Equal(t, "image/jpeg", obj.ContentType)
}

func TestUpload_TooManyBeforeAnyWrite(t *testing.T) {
	svc, rows, _ := newTestService(t)

	files := make([]File, 6)
	for i := range files {
		files[i] = fileOf("a.png", "image/png", 10)
	}

	uploaded, err := svc.Upload(context.Background(), files, UploadMeta{})
	assert.ErrorIs(t, err, apierrors.ErrTooMany)
	assert.Empty(t, uploaded)
	assert.Empty(t, rows.photos)
}

func TestUpload_NoFiles(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), nil, UploadMeta{})
	assert.ErrorIs(t, err, apierrors.ErrMissingField)
}

func TestUpload_TooLarge(t *testing.T) {
	svc, rows, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), []File{fileOf("big.jpg", "image/jpeg", 6*1024*1024)}, UploadMeta{})
	assert.ErrorIs(t, err, apierrors.ErrTooLarge)
	assert.Empty(t, rows.photos)
}

func TestUpload_PartialBatchKeepsEarlierFiles(t *testing.T) {
	svc, rows, _ := newTestService(t)

	files := []File{
		fileOf("one.jpg", "image/jpeg", 100),
		fileOf("two.png", "image/png", 100),
		fileOf("three.gif", "image/gif", 100),
		fileOf("four.jpg", "image/jpeg", 100),
	}

	uploaded, err := svc.Upload(context.Background(), files, UploadMeta{})
	assert.ErrorIs(t, err, apierrors.ErrUnsupportedType)
	assert.Len(t, uploaded, 2)
	assert.Len(t, rows.photos, 2, "files before the rejected one stay persisted")
}

func TestUpload_PartialBatchLogsOnce(t *testing.T) {
	svc, _, _ := newTestService(t)
	var logs bytes.Buffer
	svc.logger = zerolog.New(&logs)

	files := []File{
		fileOf("one.jpg", "image/jpeg", 100),
		fileOf("two.gif", "image/gif", 100),
	}
	_, err := svc.Upload(context.Background(), files, UploadMeta{})
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"level":"warn"`)
	assert.Contains(t, lines[0], `"stored":1`)
	assert.Contains(t, lines[0], `"rejected":"two.gif"`)
}

func TestUpload_FirstFileRejectedLogsNothing(t *testing.T) {
	svc, _, _ := newTestService(t)
	var logs bytes.Buffer
	svc.logger = zerolog.New(&logs)

	_, err := svc.Upload(context.Background(), []File{fileOf("a.gif", "image/gif", 10)}, UploadMeta{})
	require.Error(t, err)
	assert.Empty(t, logs.String())
}

func TestUpload_RowFailureLeavesBlob(t *testing.T) {
	svc, rows, blobs := newTestService(t)
	rows.err = errors.New("database is locked")

	namer := &Namer{
		now:   func() time.Time { return time.UnixMilli(1700000000000) },
		token: func() (string, error) { return "orphan", nil },
	}
	svc.namer = namer

	_, err := svc.Upload(context.Background(), []File{fileOf("a.jpg", "image/jpeg", 10)}, UploadMeta{})
	require.Error(t, err)
	var apiErr *apierrors.APIError
	assert.False(t, errors.As(err, &apiErr), "store errors should not be client errors")

	obj, err := blobs.Get(context.Background(), "1700000000000-orphan.jpg")
	require.NoError(t, err, "blob written before the failed insert is not cleaned up")
	obj.Body.Close()
}

func TestUpload_IgnoresCancelledRequest(t *testing.T) {
	svc, rows, _ := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Upload(ctx, []File{fileOf("a.jpg", "image/jpeg", 10)}, UploadMeta{})
	require.NoError(t, err)
	assert.Len(t, rows.photos, 1)
}

func TestList_AddsURL(t *testing.T) {
	svc, rows, _ := newTestService(t)
	rows.photos = []models.Photo{{ID: 1, Filename: "1-abcdef.png"}}

	photos, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "/photos/1-abcdef.png", photos[0].URL)
}

func TestList_EmptyIsNotNil(t *testing.T) {
	svc, _, _ := newTestService(t)

	photos, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, photos)
	assert.Empty(t, photos)
}
