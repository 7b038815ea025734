package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"annotation-review/internal/identity"
	"annotation-review/internal/models"
	"annotation-review/internal/parser"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UploadOptions limits what may be uploaded
type UploadOptions struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// FileOpener opens an uploaded file. *multipart.FileHeader satisfies it.
type FileOpener interface {
	Open() (multipart.File, error)
}

// Uploader validates and inspects uploaded spreadsheets
type Uploader struct {
	opts   UploadOptions
	logger *zap.Logger
}

// NewUploader creates a new upload inspector
func NewUploader(opts UploadOptions, logger *zap.Logger) *Uploader {
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = []string{".xlsx", ".xls", ".csv"}
	}
	return &Uploader{opts: opts, logger: logger}
}

// Inspect hashes and parses an upload. The content hash becomes the
// fileId clients use to address the file's tasks. When annotationType is
// set, the columns are checked against it and failures are reported in
// the result rather than as an error.
func (u *Uploader) Inspect(ctx context.Context, filename string, size int64, src FileOpener, annotationType string) (*models.UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !u.allowed(ext) {
		return nil, invalid("File type not allowed. Allowed types: " + strings.Join(u.opts.AllowedExtensions, ", "))
	}
	if u.opts.MaxFileSize > 0 && size > u.opts.MaxFileSize {
		return nil, invalid(fmt.Sprintf("File too large. Maximum size: %gMB", float64(u.opts.MaxFileSize)/1024/1024))
	}

	var (
		fileHash string
		table    *parser.Table
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := src.Open()
		if err != nil {
			return fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()

		fileHash, err = identity.FileHash(f)
		return err
	})
	g.Go(func() error {
		f, err := src.Open()
		if err != nil {
			return fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()

		table, err = parser.Parse(f, filename)
		return err
	})
	if err := g.Wait(); err != nil {
		u.logger.Error("File upload failed", zap.String("filename", filename), zap.Error(err))
		return nil, err
	}

	result := &models.UploadResult{
		FileID:    fileHash,
		Filename:  filename,
		TotalRows: len(table.Rows),
		Columns:   table.Columns,
		IsValid:   true,
	}
	if annotationType != "" {
		result.IsValid, result.Errors = parser.ValidateColumns(table.Columns, models.AnnotationType(annotationType))
	}

	u.logger.Info("File upload successful",
		zap.String("filename", filename),
		zap.Int64("size", size),
		zap.String("file_hash", fileHash),
		zap.Int("rows", result.TotalRows))

	return result, nil
}

func (u *Uploader) allowed(ext string) bool {
	for _, e := range u.opts.AllowedExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
