package utils

import (
	"strconv"

	"github.com/gosimple/slug"
)

// NormalizeSlug creates a URL-friendly slug using the gosimple/slug library.
// This handles all Unicode characters including accented product names.
func NormalizeSlug(text string) string {
	if text == "" {
		return ""
	}

	return slug.Make(text)
}

// GenerateProductSlug creates a normalized slug for a product name. Case and
// whitespace variants of the same product map to the same slug, which keeps
// cache keys stable.
func GenerateProductSlug(productName string) string {
	if productName == "" {
		return "product"
	}
	return NormalizeSlug(productName)
}

// GenerateJobSlug creates a slug identifying a scheduled job in logs and
// webhook payloads.
func GenerateJobSlug(jobName string, jobID int32) string {
	if jobName == "" {
		jobName = "job"
	}

	return NormalizeSlug(jobName) + "-" + strconv.Itoa(int(jobID))
}
