package files

import (
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/system/authz"
	"github.com/dalemusser/stratadrive/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratadrive/internal/domain/models"
)

// hasAccess reports whether any active grant lets the viewer at the file.
// Write access requires a grant at write or admin level; the owner never
// reaches this check.
func hasAccess(fileID string, grants []models.Permission, viewer *models.Viewer, write bool) bool {
	now := time.Now()
	for i := range grants {
		g := &grants[i]
		if g.FileID != fileID {
			continue
		}
		if write && g.Access != models.AccessWrite && g.Access != models.AccessAdmin {
			continue
		}
		if authz.GrantMatches(g, viewer, now) {
			return true
		}
	}
	return false
}

// withoutContent strips the inline base64 payload from a metadata response.
func withoutContent(f *models.File) *models.File {
	out := *f
	out.Content = ""
	return &out
}

// sanitizedName strips markup from a name edit, preserving nil for "no
// change".
func sanitizedName(name *string) *string {
	if name == nil {
		return nil
	}
	cleaned := htmlsanitize.PlainText(*name)
	return &cleaned
}

// sanitizedTags strips markup from a tag-list edit.
func sanitizedTags(tags *[]string) *[]string {
	if tags == nil {
		return nil
	}
	cleaned := htmlsanitize.PlainTextAll(*tags)
	if cleaned == nil {
		cleaned = []string{}
	}
	return &cleaned
}

// categorize maps a MIME type and file name to the UI's type category.
func categorize(mimeType, name string) string {
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(name))
	}
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.TypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return models.TypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return models.TypeAudio
	case mimeType == "application/pdf":
		return models.TypeDocument
	case strings.Contains(mimeType, "spreadsheet"),
		strings.Contains(mimeType, "excel"),
		strings.HasSuffix(name, ".csv"):
		return models.TypeSpreadsheet
	case strings.Contains(mimeType, "presentation"),
		strings.Contains(mimeType, "powerpoint"):
		return models.TypePresentation
	case strings.Contains(mimeType, "document"),
		strings.Contains(mimeType, "word"),
		strings.HasPrefix(mimeType, "text/"):
		return models.TypeDocument
	case mimeType == "application/zip",
		strings.Contains(mimeType, "compressed"),
		strings.Contains(mimeType, "archive"):
		return models.TypeArchive
	default:
		return models.TypeOther
	}
}
