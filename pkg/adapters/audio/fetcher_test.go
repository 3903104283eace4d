package audio_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boydwold/spellar-vault/pkg/adapters/audio"
)

func server(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetcher_SkipsExistingTarget(t *testing.T) {
	srv, hits := server(t, http.StatusOK, "new audio")
	target := filepath.Join(t.TempDir(), "2024-03-01 Sync.mp4")
	require.NoError(t, os.WriteFile(target, []byte("old audio"), 0o644))

	outcome := audio.NewFetcher().Ensure(context.Background(), srv.URL+"/rec.mp4", target)

	assert.Equal(t, audio.OutcomeSkipped, outcome)
	assert.Equal(t, int32(0), hits.Load())
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "old audio", string(got))
}

func TestFetcher_DownloadsOnce(t *testing.T) {
	srv, hits := server(t, http.StatusOK, "audio bytes")
	target := filepath.Join(t.TempDir(), "attachments", "spellar", "2024-03-01 Sync.m4a")

	outcome := audio.NewFetcher().Ensure(context.Background(), srv.URL+"/rec.m4a?sig=1", target)

	assert.Equal(t, audio.OutcomeDownloaded, outcome)
	assert.Equal(t, int32(1), hits.Load())
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "audio bytes", string(got))
}

func TestFetcher_FailureIsSingleAttemptAndLeavesNothing(t *testing.T) {
	srv, hits := server(t, http.StatusInternalServerError, "boom")
	dir := t.TempDir()
	target := filepath.Join(dir, "rec.mp4")

	outcome := audio.NewFetcher().Ensure(context.Background(), srv.URL, target)

	assert.Equal(t, audio.OutcomeFailed, outcome)
	assert.Equal(t, int32(1), hits.Load())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetcher_TransportError(t *testing.T) {
	srv, _ := server(t, http.StatusOK, "")
	url := srv.URL
	srv.Close()

	outcome := audio.NewFetcher().Ensure(context.Background(), url, filepath.Join(t.TempDir(), "rec.mp4"))
	assert.Equal(t, audio.OutcomeFailed, outcome)
}

func TestFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := audio.NewFetcher(audio.WithTimeout(50 * time.Millisecond))
	outcome := f.Ensure(context.Background(), srv.URL, filepath.Join(t.TempDir(), "rec.mp4"))
	assert.Equal(t, audio.OutcomeFailed, outcome)
}

func TestFetcher_Save(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "rec.wav")
	f := audio.NewFetcher()

	assert.Equal(t, audio.OutcomeSaved, f.Save(target, []byte("upload")))
	assert.Equal(t, audio.OutcomeSkipped, f.Save(target, []byte("second upload")))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "upload", string(got))
}
