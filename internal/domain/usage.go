package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// FormatMeta describes the formats involved in one conversion attempt.
// Empty fields mean the value is unknown.
type FormatMeta struct {
	InputFormat  string
	OutputFormat string
	Category     ToolCategory
}

// UsageLogEntry is one append-only audit record.
type UsageLogEntry struct {
	ID           string
	UserID       string
	ToolID       string
	FileSizeMB   float64
	InputFormat  string
	OutputFormat string
	Category     ToolCategory
	CreatedAt    time.Time
}

// File is an uploaded input document.
type File struct {
	Name string
	Data []byte
}

// Extension returns the lower-cased extension of the file name without the dot.
func (f File) Extension() string {
	ext := filepath.Ext(f.Name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Size returns the payload length in bytes.
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// Artifact is the output of a completed conversion.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}
