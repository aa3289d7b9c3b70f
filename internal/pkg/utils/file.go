package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFileName checks a storage file name for path traversal attempts.
// Returns the cleaned base name or an error.
func ValidateFileName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty file name")
	}
	if strings.ContainsAny(name, "/\\") || name != filepath.Base(name) {
		return "", fmt.Errorf("wrong file name: %s", name)
	}
	if name == "." || name == ".." {
		return "", fmt.Errorf("wrong file name: %s", name)
	}
	return name, nil
}

// SupportedUploadExt checks if the upload extension is one the extractor knows
func SupportedUploadExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".jpg", ".jpeg", ".png", ".txt":
		return true
	}
	return false
}
