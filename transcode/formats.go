package transcode

import (
	"path/filepath"
	"slices"
	"strings"
)

var allowedExtensions = map[string]string{
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
}

// AllowedExtensions returns the accepted file extensions in sorted order.
func AllowedExtensions() []string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Extension returns the lower-cased extension of name including the dot.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// ValidateExtension checks name against the whitelist without touching the file.
func ValidateExtension(name string) error {
	ext := Extension(name)
	if _, ok := allowedExtensions[ext]; !ok {
		return &UnsupportedFormatError{Name: name, Extension: ext}
	}
	return nil
}

// ContentType maps a whitelisted extension to its MIME type.
func ContentType(ext string) string {
	if ct, ok := allowedExtensions[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}
