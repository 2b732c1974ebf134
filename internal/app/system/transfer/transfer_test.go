package transfer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTransfer(blobURL string, inlineThreshold int64) *Transfer {
	return New(Config{
		BlobBaseURL:     blobURL,
		Username:        "test",
		Password:        "test",
		InlineThreshold: inlineThreshold,
		MaxUploadSize:   1 << 20,
		Timeout:         5 * time.Second,
	}, zap.NewNop())
}

func blobServer(t *testing.T, id string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fileResources" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"fileResource": map[string]string{"id": id}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUpload_InlineBelowThreshold(t *testing.T) {
	tr := newTransfer("http://unused.invalid", 1024)
	content := []byte("hello inline world")

	res, err := tr.Upload(context.Background(), UploadInput{
		Name:     "hello.txt",
		MimeType: "text/plain",
		Size:     int64(len(content)),
		ModTime:  time.Now(),
		Reader:   bytes.NewReader(content),
	}, nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if res.Strategy != StrategyInline {
		t.Errorf("strategy = %q, want inline", res.Strategy)
	}
	if !res.Durable {
		t.Error("inline result must be durable")
	}
	decoded, err := base64.StdEncoding.DecodeString(res.Content)
	if err != nil {
		t.Fatalf("content is not valid base64: %v", err)
	}
	if !bytes.Equal(decoded, content) {
		t.Errorf("decoded content = %q, want %q", decoded, content)
	}
	if res.URL != "" {
		t.Error("inline result must not carry a URL")
	}
}

func TestUpload_BlobAtThreshold(t *testing.T) {
	srv := blobServer(t, "res123")
	tr := newTransfer(srv.URL, 16)
	content := bytes.Repeat([]byte("x"), 16) // exactly at the threshold

	res, err := tr.Upload(context.Background(), UploadInput{
		Name:     "big.bin",
		MimeType: "application/pdf",
		Size:     int64(len(content)),
		ModTime:  time.Now(),
		Reader:   bytes.NewReader(content),
	}, nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if res.Strategy != StrategyBlob {
		t.Errorf("strategy = %q, want blob (size == threshold routes to blob)", res.Strategy)
	}
	if !res.Durable {
		t.Error("blob result must be durable")
	}
	want := srv.URL + "/fileResources/res123/data"
	if res.URL != want {
		t.Errorf("URL = %q, want %q", res.URL, want)
	}
	if res.Content != "" {
		t.Error("blob result must not carry inline content")
	}
}

func TestUpload_TooLarge(t *testing.T) {
	tr := newTransfer("http://unused.invalid", 1024)

	_, err := tr.Upload(context.Background(), UploadInput{
		Name:    "huge.bin",
		Size:    2 << 20, // above the 1 MB max configured in newTransfer
		ModTime: time.Now(),
		Reader:  bytes.NewReader(nil),
	}, nil)

	tooLarge, ok := err.(*ErrTooLarge)
	if !ok {
		t.Fatalf("err = %v, want *ErrTooLarge", err)
	}
	if tooLarge.Max != 1<<20 {
		t.Errorf("Max = %d, want %d", tooLarge.Max, 1<<20)
	}
}

func TestUpload_FallbackWhenBlobEndpointFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage offline", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	tr := newTransfer(srv.URL, 8)
	content := []byte("fallback payload bytes")

	res, err := tr.Upload(context.Background(), UploadInput{
		Name:     "degraded.bin",
		MimeType: "application/pdf",
		Size:     int64(len(content)),
		ModTime:  time.Now(),
		Reader:   bytes.NewReader(content),
	}, nil)
	if err != nil {
		t.Fatalf("Upload: %v (fallback must not surface the blob failure)", err)
	}

	if res.Strategy != StrategyFallback {
		t.Errorf("strategy = %q, want fallback", res.Strategy)
	}
	if res.Durable {
		t.Error("fallback result must be flagged non-durable")
	}
	if !strings.HasPrefix(res.URL, "/session-blobs/") {
		t.Errorf("URL = %q, want session-blob path", res.URL)
	}

	// The fallback URL must serve the original bytes back.
	req := httptest.NewRequest(http.MethodGet, res.URL, nil)
	rec := httptest.NewRecorder()
	tr.Blobs().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("session blob fetch status = %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), content) {
		t.Errorf("session blob bytes do not round-trip")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
}

func TestUpload_UnknownMimeTypeWarnsButProceeds(t *testing.T) {
	tr := newTransfer("http://unused.invalid", 1024)

	res, err := tr.Upload(context.Background(), UploadInput{
		Name:     "weird.xyz",
		MimeType: "application/x-something-odd",
		Size:     4,
		ModTime:  time.Now(),
		Reader:   strings.NewReader("abcd"),
	}, nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Warning == "" {
		t.Error("expected a warning for the unrecognized MIME type")
	}
	if res.Strategy != StrategyInline {
		t.Errorf("strategy = %q, want inline", res.Strategy)
	}
}

func TestUpload_ProgressReachesStageWeights(t *testing.T) {
	// Threshold above the content size keeps the upload on the inline path
	// while still spanning multiple read chunks.
	tr := newTransfer("http://unused.invalid", 1<<20)
	var last Progress
	content := bytes.Repeat([]byte("p"), 600<<10)

	_, err := tr.Upload(context.Background(), UploadInput{
		Name:    "progress.bin",
		Size:    int64(len(content)),
		ModTime: time.Now(),
		Reader:  bytes.NewReader(content),
	}, func(p Progress) { last = p })
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if last.Stage != "checksum" {
		t.Errorf("last stage = %q, want checksum", last.Stage)
	}
	if last.Percent != inlineReadWeight+checksumWeight {
		t.Errorf("final percent = %d, want %d", last.Percent, inlineReadWeight+checksumWeight)
	}
}

func TestChecksum(t *testing.T) {
	mt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := Checksum("report.pdf", 1234, mt)
	b := Checksum("report.pdf", 1234, mt)
	if a != b {
		t.Error("checksum must be deterministic")
	}
	if len(a) != 16 {
		t.Errorf("checksum %q length = %d, want 16 hex chars", a, len(a))
	}

	if Checksum("other.pdf", 1234, mt) == a {
		t.Error("name change must change the checksum")
	}
	if Checksum("report.pdf", 1235, mt) == a {
		t.Error("size change must change the checksum")
	}
	if Checksum("report.pdf", 1234, mt.Add(time.Second)) == a {
		t.Error("mtime change must change the checksum")
	}
}

func TestSessionBlobs_UnknownToken(t *testing.T) {
	blobs := NewSessionBlobs()
	req := httptest.NewRequest(http.MethodGet, "/session-blobs/nope", nil)
	rec := httptest.NewRecorder()
	blobs.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
