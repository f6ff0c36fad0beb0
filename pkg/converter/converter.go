package converter

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/apperror"
)

// Converter turns raw document bytes into markdown text. The actual
// conversion engine is external; this package only models the boundary.
type Converter interface {
	// Convert returns markdown for the given file, or ErrUnsupportedFormat /
	// ConversionError.
	Convert(ctx context.Context, filename string, data []byte) (string, error)
}

// AllowedExtensions enumerates the declared types the pipeline accepts.
var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".pptx": true,
	".html": true,
	".htm":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".md":   true,
	".txt":  true,
}

// Supported reports whether the filename's extension is in the allowlist.
func Supported(filename string) bool {
	return AllowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// plainTextExtensions need no external conversion step.
var plainTextExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// Passthrough handles markdown and plain text locally and rejects everything
// else. Used when no conversion service is configured.
type Passthrough struct{}

func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (p *Passthrough) Convert(_ context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !AllowedExtensions[ext] {
		return "", apperror.ErrUnsupportedFormat
	}
	if !plainTextExtensions[ext] {
		return "", &apperror.ConversionError{
			DocID: filename,
			Cause: apperror.ErrUnsupportedFormat,
		}
	}
	return string(data), nil
}
