package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

const (
	FileTypeEPUB = "epub"
	FileTypePDF  = "pdf"
	FileTypeFB2  = "fb2"
	FileTypeDOCX = "docx"
	FileTypeDOC  = "doc"
	FileTypeTXT  = "txt"
	FileTypeCSV  = "csv"
)

// FileInfo is a book file stored in the library directory.
type FileInfo struct {
	bun.BaseModel `bun:"table:files,alias:f"`

	ID           int        `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	BookID       int        `bun:",nullzero" json:"book_id"`
	Book         *Book      `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	Path         string     `bun:",nullzero" json:"path"`
	OriginalName string     `bun:",nullzero" json:"original_name"`
	Extension    string     `bun:",nullzero" json:"extension"`
	MimeType     string     `bun:",nullzero" json:"mime_type"`
	SizeBytes    int64      `json:"size_bytes"`
	SHA256       string     `bun:"sha256,nullzero" json:"sha256"`
	ParsedAt     *time.Time `json:"parsed_at,omitempty"`
}

// CoverExtension maps an image mime type to the extension a cover is stored with.
func CoverExtension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ""
}
