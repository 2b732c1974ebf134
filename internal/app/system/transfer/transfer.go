// Package transfer decides, per uploaded file, between inline base64 storage
// and the platform blob endpoint, and computes the record checksum.
//
// Files below the inline threshold are base64-encoded into the record
// itself; files at or above it are streamed to the blob endpoint and the
// record stores a derived fetch URL. When the blob endpoint fails, the
// transfer degrades to a session-scoped local URL that does not survive a
// restart; the result is flagged non-durable so the caller can surface it.
package transfer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Size limits. The threshold routes the encoding strategy; the maximum
// rejects the upload before any transfer begins.
const (
	DefaultInlineThreshold int64 = 50 << 20  // 50 MB
	DefaultMaxUploadSize   int64 = 500 << 20 // 500 MB
)

// Progress weights per §4.3: the remainder of the budget belongs to the
// record write performed by the caller.
const (
	inlineReadWeight = 70
	blobUploadWeight = 75
	checksumWeight   = 10
)

// Strategies reported in Result.Strategy.
const (
	StrategyInline   = "inline"
	StrategyBlob     = "blob"
	StrategyFallback = "fallback"
)

// ErrTooLarge is returned when a file exceeds the absolute maximum size.
type ErrTooLarge struct {
	Size int64
	Max  int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("file of %d bytes exceeds the %d byte maximum", e.Size, e.Max)
}

// Config holds the transfer settings.
type Config struct {
	// BlobBaseURL is the platform API root hosting the blob endpoint.
	BlobBaseURL string
	Username    string
	Password    string

	InlineThreshold int64
	MaxUploadSize   int64
	Timeout         time.Duration
}

// Transfer uploads file content using the configured strategy split.
type Transfer struct {
	cfg    Config
	http   *http.Client
	blobs  *SessionBlobs
	logger *zap.Logger
}

// Progress is one progress report during an upload.
type Progress struct {
	Stage   string // "read", "upload", "checksum"
	Percent int    // 0-100 across the whole transfer budget
}

// UploadInput describes the local file handle being transferred.
type UploadInput struct {
	Name     string
	MimeType string
	Size     int64
	ModTime  time.Time
	Reader   io.Reader
}

// Result is the outcome of a transfer. Exactly one of Content/URL is set.
type Result struct {
	Strategy string
	Content  string // base64, inline strategy
	URL      string // blob or fallback strategy
	Checksum string
	// Durable is false for the degraded session-scoped fallback URL.
	Durable bool
	// Warning carries non-fatal findings (e.g. unrecognized MIME type).
	Warning string
}

// New creates a Transfer.
func New(cfg Config, logger *zap.Logger) *Transfer {
	if cfg.InlineThreshold <= 0 {
		cfg.InlineThreshold = DefaultInlineThreshold
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Transfer{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		blobs:  NewSessionBlobs(),
		logger: logger,
	}
}

// Blobs exposes the session blob registry for route mounting.
func (t *Transfer) Blobs() *SessionBlobs {
	return t.blobs
}

// Upload runs the transfer. report may be nil.
func (t *Transfer) Upload(ctx context.Context, in UploadInput, report func(Progress)) (*Result, error) {
	if report == nil {
		report = func(Progress) {}
	}
	if in.Size > t.cfg.MaxUploadSize {
		return nil, &ErrTooLarge{Size: in.Size, Max: t.cfg.MaxUploadSize}
	}

	res := &Result{Durable: true}
	if !knownMimeType(in.MimeType) {
		res.Warning = fmt.Sprintf("unrecognized MIME type %q; uploading anyway", in.MimeType)
		t.logger.Warn("unrecognized MIME type on upload",
			zap.String("name", in.Name),
			zap.String("mime_type", in.MimeType),
		)
	}

	if in.Size < t.cfg.InlineThreshold {
		if err := t.inline(ctx, in, res, report); err != nil {
			return nil, err
		}
	} else {
		t.blob(ctx, in, res, report)
	}

	res.Checksum = Checksum(in.Name, in.Size, in.ModTime)
	done := inlineReadWeight + checksumWeight
	if res.Strategy != StrategyInline {
		done = blobUploadWeight + checksumWeight
	}
	report(Progress{Stage: "checksum", Percent: done})

	return res, nil
}

// inline reads and base64-encodes the file bytes into the record.
func (t *Transfer) inline(ctx context.Context, in UploadInput, res *Result, report func(Progress)) error {
	data, err := readAllProgress(ctx, in.Reader, in.Size, "read", inlineReadWeight, report)
	if err != nil {
		return fmt.Errorf("read file %q: %w", in.Name, err)
	}
	res.Strategy = StrategyInline
	res.Content = base64.StdEncoding.EncodeToString(data)
	return nil
}

// blob streams the bytes to the platform blob endpoint. On failure it falls
// back to a session-scoped local URL: an accepted degraded mode, reported to
// the caller as non-durable, never a silent data loss.
func (t *Transfer) blob(ctx context.Context, in UploadInput, res *Result, report func(Progress)) {
	data, err := readAllProgress(ctx, in.Reader, in.Size, "upload", blobUploadWeight/2, report)
	if err == nil {
		var id string
		id, err = t.postBlob(ctx, in.Name, in.MimeType, data)
		if err == nil {
			report(Progress{Stage: "upload", Percent: blobUploadWeight})
			res.Strategy = StrategyBlob
			res.URL = t.cfg.BlobBaseURL + "/fileResources/" + id + "/data"
			return
		}
	}

	t.logger.Warn("blob upload failed; falling back to session-scoped URL",
		zap.String("name", in.Name),
		zap.Error(err),
	)
	res.Strategy = StrategyFallback
	res.URL = t.blobs.Put(in.MimeType, data)
	res.Durable = false
}

// postBlob issues the multipart POST and returns the opaque resource id.
func (t *Transfer) postBlob(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BlobBaseURL+"/fileResources", &body)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(t.cfg.Username, t.cfg.Password)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("blob endpoint returned %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		ID       string `json:"id"`
		Response struct {
			FileResource struct {
				ID string `json:"id"`
			} `json:"fileResource"`
		} `json:"response"`
	}
	if err := decodeJSON(resp.Body, &out); err != nil {
		return "", fmt.Errorf("blob endpoint response: %w", err)
	}
	if out.ID != "" {
		return out.ID, nil
	}
	if out.Response.FileResource.ID != "" {
		return out.Response.FileResource.ID, nil
	}
	return "", fmt.Errorf("blob endpoint returned no resource id")
}

// Checksum is the lightweight integrity hash: FNV-1a over name|size|mtime.
// It detects accidental metadata mismatch only. It is NOT a content hash and
// must never be used for deduplication or tamper detection.
func Checksum(name string, size int64, modTime time.Time) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d", name, size, modTime.Unix())
	return fmt.Sprintf("%016x", h.Sum64())
}

// readAllProgress reads the full reader, reporting progress scaled to the
// stage weight.
func readAllProgress(ctx context.Context, r io.Reader, size int64, stage string, weight int, report func(Progress)) ([]byte, error) {
	buf := make([]byte, 0, size)
	chunk := make([]byte, 256<<10)
	var read int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			read += int64(n)
			if size > 0 {
				report(Progress{Stage: stage, Percent: int(read * int64(weight) / size)})
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	report(Progress{Stage: stage, Percent: weight})
	return buf, nil
}

// knownMimeType reports whether the MIME type is one the UI knows how to
// categorize. Unknown types only warn; the upload proceeds.
func knownMimeType(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	for _, prefix := range []string{"image/", "video/", "audio/", "text/"} {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	switch {
	case mimeType == "application/pdf",
		mimeType == "application/json",
		mimeType == "application/zip",
		strings.Contains(mimeType, "spreadsheet"),
		strings.Contains(mimeType, "presentation"),
		strings.Contains(mimeType, "document"),
		strings.Contains(mimeType, "word"),
		strings.Contains(mimeType, "excel"),
		strings.Contains(mimeType, "powerpoint"):
		return true
	}
	return false
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(io.LimitReader(r, 1<<20)).Decode(v)
}

// SessionBlobs holds the degraded-mode blobs for the lifetime of the
// process. Nothing here survives a restart; that is the accepted contract of
// the fallback URL.
type SessionBlobs struct {
	mu    sync.RWMutex
	blobs map[string]sessionBlob
}

type sessionBlob struct {
	mimeType string
	data     []byte
}

// NewSessionBlobs creates an empty registry.
func NewSessionBlobs() *SessionBlobs {
	return &SessionBlobs{blobs: make(map[string]sessionBlob)}
}

// Put registers blob bytes and returns the session-scoped URL path.
func (s *SessionBlobs) Put(mimeType string, data []byte) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.blobs[token] = sessionBlob{mimeType: mimeType, data: data}
	s.mu.Unlock()
	return "/session-blobs/" + token
}

// ServeHTTP serves a registered blob by token.
func (s *SessionBlobs) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.URL.Path, "/session-blobs/")
	s.mu.RLock()
	b, ok := s.blobs[token]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if b.mimeType != "" {
		w.Header().Set("Content-Type", b.mimeType)
	}
	w.Write(b.data)
}
