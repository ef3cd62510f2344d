// Package fileutil holds small filesystem helpers shared by the snapshot
// store and the cache fingerprint.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// HashFile returns the hex SHA-256 of the file contents.
func HashFile(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, in); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// TempSibling returns a unique path in the same directory as path, so a
// later rename onto path stays on one filesystem.
func TempSibling(path string) string {
	dir, base := filepath.Split(path)
	suffix := strconv.FormatInt(time.Now().UnixNano(), 36)
	return filepath.Join(dir, "."+base+"."+suffix+".tmp")
}

// ReplaceFile fsyncs tmp and renames it onto dst. tmp is removed on failure.
func ReplaceFile(tmp, dst string) error {
	file, err := os.Open(tmp)
	if err != nil {
		return err
	}
	syncErr := file.Sync()
	closeErr := file.Close()
	if syncErr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, syncErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return closeErr
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	return nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
