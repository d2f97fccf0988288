package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/models"
)

type storageStub struct {
	name     string
	uploaded bytes.Buffer
	err      error
}

func (s *storageStub) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.name = name
	s.uploaded.Reset()
	if _, err := s.uploaded.ReadFrom(reader); err != nil {
		return "", err
	}
	return "https://cdn.example.org/" + name, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newPhotoFixture(t *testing.T, storage FileStorage, maxSizeMB int) (PhotoService, StudentService) {
	t.Helper()
	store := newTestStore(t)
	student := models.Student{ID: "s1", FirstName: "Ana", LastName: "Albert"}
	require.NoError(t, store.Students().Save(context.Background(), &student))
	students := NewStudentService(store, &recordingEvents{}, dto.NewValidator(), testLogger())
	return NewPhotoService(students, storage, "stub", maxSizeMB, testLogger()), students
}

func TestPhotoServiceStoresImages(t *testing.T) {
	storage := &storageStub{}
	svc, _ := newPhotoFixture(t, storage, 1)

	payload := pngBytes(t)
	updated, err := svc.Upload(context.Background(), "s1", buildFileHeader(t, "Ana Albert.PNG", payload))
	require.NoError(t, err)
	require.Equal(t, "s1.png", storage.name)
	require.Equal(t, payload, storage.uploaded.Bytes())
	require.Equal(t, "https://cdn.example.org/s1.png", updated.Photo)
	require.True(t, updated.HasPhoto)

	removed, err := svc.Remove(context.Background(), "s1")
	require.NoError(t, err)
	require.False(t, removed.HasPhoto)
}

func TestPhotoServiceRejectsInvalidUploads(t *testing.T) {
	svc, _ := newPhotoFixture(t, &storageStub{}, 1)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "s1", buildFileHeader(t, "notes.txt", []byte("plain text")))
	require.ErrorIs(t, err, ErrPhotoTypeNotAllowed)

	_, err = svc.Upload(ctx, "s1", buildFileHeader(t, "big.png", bytes.Repeat([]byte("a"), 2*1024*1024)))
	require.ErrorIs(t, err, ErrPhotoTooLarge)

	_, err = svc.Upload(ctx, "s1", nil)
	require.ErrorIs(t, err, ErrPhotoRequired)

	_, err = svc.Upload(ctx, "missing", buildFileHeader(t, "a.png", pngBytes(t)))
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestPhotoServiceStorageFailure(t *testing.T) {
	svc, students := newPhotoFixture(t, &storageStub{err: errors.New("bucket unavailable")}, 1)

	_, err := svc.Upload(context.Background(), "s1", buildFileHeader(t, "a.png", pngBytes(t)))
	require.Error(t, err)

	student, err := students.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.False(t, student.HasPhoto)
}

func TestPhotoServiceFallsBackToDataURI(t *testing.T) {
	svc, _ := newPhotoFixture(t, nil, 1)
	payload := pngBytes(t)

	updated, err := svc.Upload(context.Background(), "s1", buildFileHeader(t, "a.png", payload))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(updated.Photo, "data:image/png;base64,"))

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(updated.Photo, "data:image/png;base64,"))
	require.NoError(t, err)
	require.Equal(t, payload, decoded)
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"photo\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	files := form.File["photo"]
	require.Len(t, files, 1)
	return files[0]
}
