package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

type memFile struct{ *bytes.Reader }

func (memFile) Close() error { return nil }

type memUpload []byte

func (m memUpload) Open() (multipart.File, error) {
	return memFile{bytes.NewReader(m)}, nil
}

type brokenUpload struct{}

func (brokenUpload) Open() (multipart.File, error) { return nil, errors.New("temp file vanished") }

func newTestUploader() *Uploader {
	return NewUploader(UploadOptions{MaxFileSize: 1024}, zap.NewNop())
}

func TestInspect_HashesAndParses(t *testing.T) {
	content := []byte("question,answer\nq1,a1\nq2,a2\n")
	u := newTestUploader()

	result, err := u.Inspect(context.Background(), "batch.csv", int64(len(content)), memUpload(content), "")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	sum := sha256.Sum256(content)
	if result.FileID != hex.EncodeToString(sum[:]) {
		t.Errorf("fileId = %s", result.FileID)
	}
	if result.TotalRows != 2 || !result.IsValid || result.Filename != "batch.csv" {
		t.Errorf("unexpected result %+v", result)
	}
	if diff := cmp.Diff([]string{"question", "answer"}, result.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	renamed, err := u.Inspect(context.Background(), "copy.csv", int64(len(content)), memUpload(content), "")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if renamed.FileID != result.FileID {
		t.Error("same bytes under another name produced a different file id")
	}
}

func TestInspect_ColumnValidation(t *testing.T) {
	content := []byte("prompt,output\np,o\n")
	result, err := newTestUploader().Inspect(context.Background(), "x.csv", int64(len(content)), memUpload(content), "single-turn")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.IsValid || len(result.Errors) != 2 {
		t.Errorf("expected invalid result with 2 errors, got %+v", result)
	}
}

func TestInspect_Rejections(t *testing.T) {
	u := newTestUploader()
	ctx := context.Background()

	_, err := u.Inspect(ctx, "notes.txt", 10, memUpload("a"), "")
	if !errors.Is(err, ErrInvalidInput) || !strings.Contains(err.Error(), "File type not allowed") {
		t.Errorf("extension: got %v", err)
	}

	_, err = u.Inspect(ctx, "big.csv", 4096, memUpload("a"), "")
	if !errors.Is(err, ErrInvalidInput) || !strings.Contains(err.Error(), "File too large") {
		t.Errorf("size: got %v", err)
	}

	_, err = u.Inspect(ctx, "empty.csv", 0, memUpload(""), "")
	if err == nil || errors.Is(err, ErrInvalidInput) {
		t.Errorf("unparseable upload should be a server-side error, got %v", err)
	}

	_, err = u.Inspect(ctx, "gone.csv", 10, brokenUpload{}, "")
	if err == nil || errors.Is(err, ErrInvalidInput) {
		t.Errorf("open failure should be a server-side error, got %v", err)
	}
}
