package constants

import "strings"

const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	HEIC  = "HEIC"
)

// FileTypes holds the source formats the extractor knows how to route.
var FileTypes = []string{PDF, IMAGE, HEIC}

// AllowedExtensions holds the file extensions accepted for document ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tiff": {},
	"tif":  {},
	"heic": {},
	"heif": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns PDF, IMAGE, HEIC, or "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "tiff", "tif":
		return IMAGE
	case "heic", "heif":
		return HEIC
	default:
		return ""
	}
}

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
