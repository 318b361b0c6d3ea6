package main

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSha256File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.bin")
	data := []byte("mermaidsync test data")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := sha256File(path)
	require.NoError(t, err)

	h := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(h[:]), got)
}

func TestSha256File_NotFound(t *testing.T) {
	_, err := sha256File("/nonexistent/file")
	assert.Error(t, err)
}

func TestParseChecksumFile(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name: "standard two-space format",
			input: "abc123def456abc123def456abc123def456abc123def456abc123def456abcd  mermaid-ascii_Darwin_arm64.tar.gz\n" +
				"fedcba98fedcba98fedcba98fedcba98fedcba98fedcba98fedcba98fedcba98  mermaid-ascii_Linux_x86_64.tar.gz\n",
			want: map[string]string{
				"mermaid-ascii_Darwin_arm64.tar.gz": "abc123def456abc123def456abc123def456abc123def456abc123def456abcd",
				"mermaid-ascii_Linux_x86_64.tar.gz": "fedcba98fedcba98fedcba98fedcba98fedcba98fedcba98fedcba98fedcba98",
			},
		},
		{
			name:  "single space and uppercase hex",
			input: "ABC123DEF456ABC123DEF456ABC123DEF456ABC123DEF456ABC123DEF456ABCD file.tar.gz\n",
			want:  map[string]string{"file.tar.gz": "abc123def456abc123def456abc123def456abc123def456abc123def456abcd"},
		},
		{
			name:  "malformed lines skipped",
			input: "short  file.tar.gz\n\njustonefield\n",
			want:  map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseChecksumFile(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDownloadToTempFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := downloadToTempFile(srv.URL+"/ok", dir, srv.Client())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = downloadToTempFile(srv.URL+"/missing", dir, srv.Client())
	assert.ErrorContains(t, err, "404")
}
