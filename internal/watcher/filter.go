// Package watcher implements the reaction-triggered download pipeline:
// deciding which reaction updates to act on, resolving messages into
// media descriptors, and running bounded-concurrency downloads.
package watcher

import (
	"path/filepath"
	"strings"
)

// invalidFilenameChars are replaced with underscores before a filename
// touches the filesystem.
const invalidFilenameChars = `<>:"/\|?*`

// variationSelector is the emoji presentation selector (U+FE0F).
// Telegram sometimes delivers "❤" and sometimes "❤️"; both must match.
const variationSelector = "\uFE0F"

// SanitizeFilename replaces characters that are unsafe in file names.
// Applying it twice yields the same result.
func SanitizeFilename(name string) string {
	for _, char := range invalidFilenameChars {
		name = strings.ReplaceAll(name, string(char), "_")
	}
	return name
}

// NormalizeEmoji strips the variation selector so visually identical
// emoji forms compare equal.
func NormalizeEmoji(emoji string) string {
	return strings.ReplaceAll(emoji, variationSelector, "")
}

// FileFilter decides whether a resolved file should be downloaded.
type FileFilter struct {
	// MaxSize in bytes; 0 = unlimited.
	MaxSize int64
	// Extensions allow-list, lowercase with leading dot; empty = all.
	Extensions []string
}

// ShouldDownload applies the size and extension rules.
// A size of 0 means unknown (photos) and is never rejected by the size rule.
func (f *FileFilter) ShouldDownload(filename string, size int64) bool {
	if f.MaxSize > 0 && size > f.MaxSize {
		return false
	}

	if len(f.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(filename))
		if !contains(f.Extensions, ext) {
			return false
		}
	}

	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
