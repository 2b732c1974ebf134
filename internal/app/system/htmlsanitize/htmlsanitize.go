// Package htmlsanitize cleans user-supplied text before it is stored.
// It uses bluemonday to strip potentially dangerous HTML while preserving
// safe formatting in rich description fields.
package htmlsanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// richPolicy sanitizes rich text (file and folder descriptions).
	richPolicy *bluemonday.Policy
	// strictPolicy strips all markup (names, tags, audit details).
	strictPolicy *bluemonday.Policy
	policyOnce   sync.Once
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		richPolicy = bluemonday.UGCPolicy()
		richPolicy.AllowElements("u", "s", "sub", "sup", "mark")
		strictPolicy = bluemonday.StrictPolicy()
	})
	return richPolicy, strictPolicy
}

// Sanitize cleans a rich-text field, removing dangerous elements and
// attributes while preserving bold, italic, lists, and links.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	rich, _ := policies()
	return rich.Sanitize(html)
}

// PlainText strips all markup from a field that must carry no HTML at all.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	_, strict := policies()
	return strings.TrimSpace(strict.Sanitize(s))
}

// PlainTextAll applies PlainText to every element, dropping entries that
// sanitize to nothing. Used for tag lists.
func PlainTextAll(values []string) []string {
	var out []string
	for _, v := range values {
		if cleaned := PlainText(v); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
