// Package fileid provides deterministic identifiers for run inputs.
package fileid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	inputPrefix   = "input:"
	contentPrefix = "sha256:"
)

// InputID identifies one version of a file by its absolute path, size and
// modification time. It changes when the file is rewritten, without reading
// the contents, which suits multi-gigabyte embedding tables.
func InputID(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat input: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(filepath.Clean(abs)))
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(info.Size()))
	binary.LittleEndian.PutUint64(buf[8:], uint64(info.ModTime().UnixNano()))
	h.Write(buf[:])
	return inputPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// ContentID hashes the file contents. Identical files share an ID wherever they live.
func ContentID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash input: %w", err)
	}
	return contentPrefix + hex.EncodeToString(h.Sum(nil)), nil
}
