package download

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadFileWritesPayload(t *testing.T) {
	payload := []byte("updater binary contents")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "updater.exe")
	require.NoError(t, DownloadFile(srv.URL+"/updater.exe", dest, Options{}))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloadFileVerifiesHash(t *testing.T) {
	payload := []byte("updater binary contents")
	sum := sha256.Sum256(payload)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "updater.exe")
	require.NoError(t, DownloadFile(srv.URL, dest, Options{SHA256: hex.EncodeToString(sum[:])}))
	assert.FileExists(t, dest)
}

func TestDownloadFileRejectsHashMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tampered payload"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "updater.exe")
	err := DownloadFile(srv.URL, dest, Options{
		SHA256:  "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
		Retries: 1,
	})
	require.Error(t, err)

	// Nothing was moved into place and no partial file survived.
	assert.NoFileExists(t, dest)
	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadFileRejectsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "updater.exe")
	err := DownloadFile(srv.URL, dest, Options{Retries: 1})
	require.Error(t, err)
	assert.NoFileExists(t, dest)
}

func TestDownloadFileEmptyURL(t *testing.T) {
	assert.Error(t, DownloadFile("", filepath.Join(t.TempDir(), "x"), Options{}))
}
