// Package identity derives the stable identifiers used to address uploaded
// files and annotation tasks.
//
// A file is identified by the SHA-256 of its bytes, so re-uploading the same
// content resumes the same task regardless of filename. A task is the pair
// (file, dimension): annotating one file along two dimensions yields two
// independent tasks that share no rows.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ChunkSize is the read buffer used while hashing uploads.
const ChunkSize = 64 * 1024

// FileHash computes the hex SHA-256 digest of r, reading it in ChunkSize
// pieces so large uploads are never held in memory at once.
func FileHash(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file content: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// TaskHash combines a file hash and an optional dimension into a task
// identifier. An empty dimension hashes the file hash alone.
func TaskHash(fileHash, dimension string) string {
	content := fileHash
	if dimension != "" {
		content = fileHash + ":" + dimension
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
