package files

import (
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/audit"
	"github.com/dalemusser/stratadrive/internal/app/store/file"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadrive/internal/app/system/transfer"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"go.uber.org/zap"
)

// memoryLimit is how much of a multipart body is held in memory before
// spilling to temp files.
const memoryLimit = 32 << 20

// uploadResult is the per-item outcome of a batch upload. One failed item
// does not fail its siblings.
type uploadResult struct {
	Name    string       `json:"name"`
	Status  string       `json:"status"` // "completed" or "error"
	Error   string       `json:"error,omitempty"`
	Warning string       `json:"warning,omitempty"`
	File    *models.File `json:"file,omitempty"`
}

// Upload handles POST /api/files: a multipart batch upload.
//
// Form fields:
//
//	files        - one or more file parts
//	parentId     - destination folder id (empty means root)
//	description  - applied to every file
//	tags         - comma-separated, applied to every file
//	language     - applied to every file
//	documentType - applied to every file
//	version      - applied to every file
//	modTime      - RFC 3339 local modification time, used for the checksum
//
// Response (200 OK): one result per file part, in submission order. Items
// run concurrently; each succeeds or fails on its own.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	viewer, ok := auth.CurrentViewer(r)
	if !ok {
		jsonutil.Unauthorized(w, "not signed in")
		return
	}

	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		jsonutil.BadRequest(w, "invalid multipart payload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		jsonutil.BadRequest(w, "no files in upload")
		return
	}

	parentID := r.FormValue("parentId")
	path, ok := h.resolveParentPath(w, r, parentID)
	if !ok {
		return
	}

	meta := batchMeta{
		ParentID:     parentID,
		Path:         path,
		Description:  htmlsanitize.Sanitize(r.FormValue("description")),
		Tags:         htmlsanitize.PlainTextAll(splitTags(r.FormValue("tags"))),
		Language:     htmlsanitize.PlainText(r.FormValue("language")),
		DocumentType: htmlsanitize.PlainText(r.FormValue("documentType")),
		Version:      htmlsanitize.PlainText(r.FormValue("version")),
		ModTime:      parseModTime(r.FormValue("modTime")),
	}

	results := make([]uploadResult, len(parts))
	var wg sync.WaitGroup
	for i, part := range parts {
		wg.Add(1)
		go func(i int, part *multipart.FileHeader) {
			defer wg.Done()
			results[i] = h.uploadOne(r, viewer, part, meta)
		}(i, part)
	}
	wg.Wait()

	jsonutil.OK(w, results)
}

// batchMeta is the shared metadata applied to every file of one batch.
type batchMeta struct {
	ParentID     string
	Path         string
	Description  string
	Tags         []string
	Language     string
	DocumentType string
	Version      string
	ModTime      time.Time
}

func (h *Handler) uploadOne(r *http.Request, viewer *models.Viewer, part *multipart.FileHeader, meta batchMeta) uploadResult {
	name := htmlsanitize.PlainText(part.Filename)
	res := uploadResult{Name: name, Status: "error"}

	if !inputval.IsValidEntryName(name) {
		res.Error = "file name must not be blank or contain path separators"
		return res
	}

	exists, err := h.files.NameExistsInFolder(r.Context(), name, meta.ParentID, "")
	if err != nil {
		h.logger.Error("failed duplicate-name check", zap.Error(err))
		res.Error = "failed to check for duplicate names"
		return res
	}
	if exists {
		res.Error = "a file with that name already exists in this folder"
		return res
	}

	src, err := part.Open()
	if err != nil {
		h.logger.Error("failed to open upload part",
			zap.String("name", name),
			zap.Error(err),
		)
		res.Error = "failed to read uploaded file"
		return res
	}
	defer src.Close()

	mimeType := part.Header.Get("Content-Type")
	tr, err := h.transfer.Upload(r.Context(), transfer.UploadInput{
		Name:     name,
		MimeType: mimeType,
		Size:     part.Size,
		ModTime:  meta.ModTime,
		Reader:   src,
	}, nil)
	if err != nil {
		h.logger.Warn("upload transfer failed",
			zap.String("name", name),
			zap.Error(err),
		)
		res.Error = uploadErrorMessage(err)
		return res
	}

	created, err := h.files.Create(r.Context(), file.CreateInput{
		Name:         name,
		Type:         categorize(mimeType, name),
		MimeType:     mimeType,
		Size:         part.Size,
		Description:  meta.Description,
		OwnerID:      viewer.ID,
		ParentID:     meta.ParentID,
		Path:         meta.Path,
		Tags:         meta.Tags,
		Language:     meta.Language,
		DocumentType: meta.DocumentType,
		Version:      meta.Version,
		Content:      tr.Content,
		URL:          tr.URL,
		Checksum:     tr.Checksum,
		UploadStatus: models.UploadCompleted,
	})
	if err != nil {
		h.logger.Error("failed to create file record",
			zap.String("name", name),
			zap.Error(err),
		)
		res.Error = "failed to save file record"
		return res
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   created.ID,
		FileName: created.Name,
		Action:   models.ActionCreate,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  "uploaded (" + tr.Strategy + ")",
	})

	res.Status = "completed"
	res.File = withoutContent(created)
	res.Warning = transferWarning(tr)
	return res
}

// ReplaceContent handles PUT /api/files/{id}/content: a single-part upload
// that swaps the stored bytes while keeping the record's metadata.
func (h *Handler) ReplaceContent(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadForWrite(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		jsonutil.BadRequest(w, "invalid multipart payload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["files"]
	if len(parts) != 1 {
		jsonutil.BadRequest(w, "exactly one file part is required")
		return
	}
	part := parts[0]

	src, err := part.Open()
	if err != nil {
		jsonutil.BadRequest(w, "failed to read uploaded file")
		return
	}
	defer src.Close()

	tr, err := h.transfer.Upload(r.Context(), transfer.UploadInput{
		Name:     f.Name,
		MimeType: part.Header.Get("Content-Type"),
		Size:     part.Size,
		ModTime:  parseModTime(r.FormValue("modTime")),
		Reader:   src,
	}, nil)
	if err != nil {
		h.logger.Warn("content replace transfer failed",
			zap.String("file_id", f.ID),
			zap.Error(err),
		)
		if _, ok := err.(*transfer.ErrTooLarge); ok {
			jsonutil.TooLarge(w, uploadErrorMessage(err))
			return
		}
		jsonutil.InternalError(w, "failed to transfer file content")
		return
	}

	updated, err := h.files.ReplaceContent(r.Context(), f.ID, part.Size, tr.Content, tr.URL, tr.Checksum, models.UploadCompleted)
	if err != nil {
		h.fileError(w, err, "failed to update file content")
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   updated.ID,
		FileName: updated.Name,
		Action:   models.ActionEdit,
		UserID:   viewer.ID,
		UserName: viewer.Name,
		Details:  "content replaced (" + tr.Strategy + ")",
	})
	jsonutil.OK(w, withoutContent(updated))
}

// Download handles GET /api/files/{id}/download. Inline content is decoded
// and served directly; blob and fallback content redirects to its URL.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	viewer, f, ok := h.loadForRead(w, r)
	if !ok {
		return
	}

	h.audit.Record(r.Context(), audit.AppendInput{
		FileID:   f.ID,
		FileName: f.Name,
		Action:   models.ActionDownload,
		UserID:   viewer.ID,
		UserName: viewer.Name,
	})

	if f.Content != "" {
		data, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			h.logger.Error("stored content is not valid base64",
				zap.String("file_id", f.ID),
				zap.Error(err),
			)
			jsonutil.InternalError(w, "stored content is corrupt")
			return
		}
		if f.MimeType != "" {
			w.Header().Set("Content-Type", f.MimeType)
		} else {
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		w.Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
		return
	}

	if f.URL != "" {
		http.Redirect(w, r, f.URL, http.StatusFound)
		return
	}
	jsonutil.NotFound(w, "file has no stored content")
}

// uploadErrorMessage maps transfer errors to user-facing text.
func uploadErrorMessage(err error) string {
	if tooLarge, ok := err.(*transfer.ErrTooLarge); ok {
		return "file exceeds the maximum upload size of " + file.FormatSize(tooLarge.Max)
	}
	return "failed to transfer file content"
}

// transferWarning surfaces non-fatal transfer findings, including the
// non-durable session fallback.
func transferWarning(tr *transfer.Result) string {
	if !tr.Durable {
		if tr.Warning != "" {
			return tr.Warning + "; stored at a temporary URL that will not survive a restart"
		}
		return "stored at a temporary URL that will not survive a restart"
	}
	return tr.Warning
}

// parseModTime parses the optional local modification time. Absent or
// malformed values fall back to now, which keeps the checksum well-defined.
func parseModTime(v string) time.Time {
	if v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Now()
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
