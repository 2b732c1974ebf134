// Package testutil provides in-process fakes for the remote platform
// services: the key-value datastore, the blob endpoint, and the identity
// endpoint. Each fake is an httptest server speaking just enough of the
// real protocol for the stores and clients under test.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/store/keyvalue"
	"go.uber.org/zap"
)

// FakeDatastore is an in-memory stand-in for the remote key-value store.
type FakeDatastore struct {
	mu         sync.Mutex
	namespaces map[string]map[string]json.RawMessage

	// FailWrites makes the next N POST/PUT requests return 500. Used to
	// exercise the client's retry path.
	FailWrites int
	// WriteCount counts POST/PUT requests received, including failed ones.
	WriteCount int
	// TamperGet, when set, rewrites values served by key GETs. Used to
	// exercise the client's post-write verification.
	TamperGet func(key string, raw json.RawMessage) json.RawMessage

	Server *httptest.Server
}

// NewFakeDatastore starts the fake server and registers cleanup on t.
func NewFakeDatastore(t *testing.T) *FakeDatastore {
	t.Helper()
	fd := &FakeDatastore{namespaces: make(map[string]map[string]json.RawMessage)}
	fd.Server = httptest.NewServer(http.HandlerFunc(fd.serve))
	t.Cleanup(fd.Server.Close)
	return fd
}

// BaseURL returns the fake's API root, suitable for keyvalue.Config.BaseURL.
func (fd *FakeDatastore) BaseURL() string {
	return fd.Server.URL + "/api"
}

// Client builds a keyvalue.Client against the fake with fast retry settings.
func (fd *FakeDatastore) Client(t *testing.T) *keyvalue.Client {
	t.Helper()
	c, err := keyvalue.New(keyvalue.Config{
		BaseURL:       fd.BaseURL(),
		Username:      "test",
		Password:      "test",
		Timeout:       5 * time.Second,
		SetRetries:    3,
		SetRetryDelay: time.Millisecond,
		VerifyDelay:   time.Millisecond,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("keyvalue.New: %v", err)
	}
	return c
}

// Seed stores a value directly, bypassing the HTTP surface.
func (fd *FakeDatastore) Seed(t *testing.T, namespace, key string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("seed %s/%s: %v", namespace, key, err)
	}
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if fd.namespaces[namespace] == nil {
		fd.namespaces[namespace] = make(map[string]json.RawMessage)
	}
	fd.namespaces[namespace][key] = raw
}

// Get decodes a stored value into v and reports whether the key exists.
func (fd *FakeDatastore) Get(t *testing.T, namespace, key string, v any) bool {
	t.Helper()
	fd.mu.Lock()
	raw, ok := fd.namespaces[namespace][key]
	fd.mu.Unlock()
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s/%s: %v", namespace, key, err)
	}
	return true
}

func (fd *FakeDatastore) serve(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := r.BasicAuth(); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/dataStore")
	rest = strings.TrimPrefix(rest, "/")
	parts := []string{}
	if rest != "" {
		parts = strings.SplitN(rest, "/", 2)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	switch len(parts) {
	case 0:
		// GET /api/dataStore
		names := make([]string, 0, len(fd.namespaces))
		for name := range fd.namespaces {
			names = append(names, name)
		}
		writeJSON(w, names)
	case 1:
		fd.serveNamespace(w, r, parts[0])
	case 2:
		fd.serveKey(w, r, parts[0], parts[1])
	}
}

func (fd *FakeDatastore) serveNamespace(w http.ResponseWriter, r *http.Request, namespace string) {
	ns, ok := fd.namespaces[namespace]
	switch r.Method {
	case http.MethodGet:
		if !ok {
			http.Error(w, "namespace not found", http.StatusNotFound)
			return
		}
		keys := make([]string, 0, len(ns))
		for k := range ns {
			keys = append(keys, k)
		}
		writeJSON(w, keys)
	case http.MethodDelete:
		if !ok {
			http.Error(w, "namespace not found", http.StatusNotFound)
			return
		}
		delete(fd.namespaces, namespace)
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (fd *FakeDatastore) serveKey(w http.ResponseWriter, r *http.Request, namespace, key string) {
	ns := fd.namespaces[namespace]
	switch r.Method {
	case http.MethodGet:
		raw, ok := ns[key]
		if !ok {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		if fd.TamperGet != nil {
			raw = fd.TamperGet(key, raw)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(raw)
	case http.MethodPost, http.MethodPut:
		fd.WriteCount++
		if fd.FailWrites > 0 {
			fd.FailWrites--
			http.Error(w, "simulated write failure", http.StatusInternalServerError)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil || !json.Valid(body) {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if ns == nil {
			ns = make(map[string]json.RawMessage)
			fd.namespaces[namespace] = ns
		}
		ns[key] = body
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		if _, ok := ns[key]; !ok {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		delete(ns, key)
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
