package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/pdf-diff/internal/domain"
)

const (
	MinDPI = 1
	MaxDPI = 2400
)

// Validator provides input validation for PDF files
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePDFPath validates that a file path is valid and points to a readable file
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.OpenError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.OpenError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.OpenError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.OpenError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.OpenError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	file.Close()

	return nil
}

// HasPDFExtension reports whether the path ends in .pdf (case-insensitive)
func (v *Validator) HasPDFExtension(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".pdf"
}

// ValidateDPI validates the rasterization resolution
func (v *Validator) ValidateDPI(dpi int) error {
	if dpi < MinDPI || dpi > MaxDPI {
		return domain.ValidationError(fmt.Sprintf("dpi must be between %d and %d, got %d", MinDPI, MaxDPI, dpi), nil)
	}
	return nil
}
