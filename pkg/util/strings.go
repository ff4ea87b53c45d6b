// Package util provides shared utility functions for Wishmock.
package util

import (
	"path/filepath"
	"strings"
)

// MaxLogBodySize is the default maximum body size for logging (10KB).
const MaxLogBodySize = 10 * 1024

// SafeFilePath cleans input and rejects it if the cleaned path is absolute
// or still escapes the current directory with a leading "..". Backslashes
// are treated as literal characters an attacker could use to smuggle a
// traversal past a naive check, so any input containing one is rejected
// outright.
func SafeFilePath(input string) (string, bool) {
	return safeFilePath(input, false)
}

// SafeFilePathAllowAbsolute behaves like SafeFilePath but additionally
// accepts absolute paths, for callers that intentionally point at a
// fixed directory outside the working tree (e.g. a configured proto or
// rules directory from an admin upload).
func SafeFilePathAllowAbsolute(input string) (string, bool) {
	return safeFilePath(input, true)
}

func safeFilePath(input string, allowAbsolute bool) (string, bool) {
	if input == "" || strings.Contains(input, `\`) {
		return "", false
	}
	clean := filepath.Clean(input)
	if filepath.IsAbs(clean) {
		if !allowAbsolute {
			return "", false
		}
		return clean, true
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", false
	}
	return clean, true
}

// TruncateBody truncates a string to maxSize bytes, appending "...(truncated)" if truncated.
// If maxSize <= 0, uses MaxLogBodySize.
func TruncateBody(data string, maxSize int) string {
	if maxSize <= 0 {
		maxSize = MaxLogBodySize
	}
	if len(data) > maxSize {
		return data[:maxSize] + "...(truncated)"
	}
	return data
}
