package service

import (
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var textPolicy = bluemonday.StrictPolicy()

func normalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

func clampPageSize(size, fallback, max int) int {
	if size <= 0 {
		return fallback
	}
	if size > max {
		return max
	}
	return size
}

// notFound converts gorm's missing-row error into the service sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// sanitizeText strips markup from free-form input and stores the remainder as plain text.
func sanitizeText(value string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(value)))
}

func sanitizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := sanitizeText(*value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
