package downloads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/types"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(Config{Dir: t.TempDir()}, logging.NewNop())
}

func TestResolveDestinationEscape(t *testing.T) {
	m := newManager(t)

	for _, bad := range []string{
		"../../etc/passwd",
		"../sibling.bin",
		"nested/../../outside",
	} {
		_, err := m.resolveDestination(bad, "https://x/y.bin", types.ConflictUniquify)
		assert.Error(t, err, "filename %q must not resolve", bad)
	}

	dest, err := m.resolveDestination("sub/dir/file.bin", "https://x/y.bin", types.ConflictUniquify)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Dir(), "sub/dir/file.bin"), dest)
}

func TestResolveDestinationFromURL(t *testing.T) {
	m := newManager(t)

	dest, err := m.resolveDestination("", "https://host/path/archive.zip?token=1", types.ConflictUniquify)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Dir(), "archive.zip"), dest)
}

func TestUniquify(t *testing.T) {
	m := newManager(t)

	taken := filepath.Join(m.Dir(), "report.pdf")
	require.NoError(t, os.WriteFile(taken, []byte("x"), 0o644))

	dest, err := m.resolveDestination("report.pdf", "https://x/report.pdf", types.ConflictUniquify)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.Dir(), "report (1).pdf"), dest)

	dest, err = m.resolveDestination("report.pdf", "https://x/report.pdf", types.ConflictOverwrite)
	require.NoError(t, err)
	assert.Equal(t, taken, dest)
}

func TestStartFetchesAndCompletes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 payload"))
	}))
	defer srv.Close()

	m := newManager(t)
	var changed []types.DownloadState
	done := make(chan struct{})
	m.OnChanged(func(d types.Download) {
		changed = append(changed, d.State)
		if d.State != types.DownloadInProgress {
			close(done)
		}
	})

	d, err := m.Start(context.Background(), types.DownloadOptions{
		URL:      srv.URL + "/doc.pdf",
		Filename: "doc.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, types.DownloadInProgress, d.State)
	assert.Positive(t, d.ID)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("download never finished")
	}

	final, ok := m.Get(d.ID)
	require.True(t, ok)
	assert.Equal(t, types.DownloadComplete, final.State)
	assert.True(t, final.Exists)
	assert.True(t, final.HasEndTime)
	assert.Positive(t, final.BytesReceived)
	assert.NotEmpty(t, final.ContentType)
	assert.Contains(t, changed, types.DownloadComplete)
}

func TestServerErrorInterrupts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	m := newManager(t)
	done := make(chan types.Download, 1)
	m.OnChanged(func(d types.Download) {
		if d.State == types.DownloadInterrupted {
			done <- d
		}
	})

	_, err := m.Start(context.Background(), types.DownloadOptions{URL: srv.URL + "/missing"})
	require.NoError(t, err)

	select {
	case d := <-done:
		assert.Contains(t, d.Error, "SERVER_FAILED")
	case <-time.After(5 * time.Second):
		t.Fatal("interrupt never signalled")
	}
}

func TestConcurrencyBoundsFetches(t *testing.T) {
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	m := NewManager(Config{Dir: t.TempDir(), Concurrency: 1}, logging.NewNop())
	completions := make(chan struct{}, 2)
	m.OnChanged(func(d types.Download) {
		if d.State == types.DownloadComplete {
			completions <- struct{}{}
		}
	})

	for _, name := range []string{"a.bin", "b.bin"} {
		_, err := m.Start(context.Background(), types.DownloadOptions{
			URL:      srv.URL + "/" + name,
			Filename: name,
		})
		require.NoError(t, err)
	}

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first fetch never started")
	}
	select {
	case <-entered:
		t.Fatal("second fetch ran before the first released its slot")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	for i := 0; i < 2; i++ {
		select {
		case <-completions:
		case <-time.After(5 * time.Second):
			t.Fatal("downloads never completed")
		}
	}
}

func TestIDsMonotonic(t *testing.T) {
	m := newManager(t)

	a := m.Insert(types.Download{URL: "https://x/a", State: types.DownloadComplete})
	b := m.Insert(types.Download{URL: "https://x/b", State: types.DownloadComplete})
	assert.Greater(t, b.ID, a.ID)

	m.Erase(a.ID)
	c := m.Insert(types.Download{URL: "https://x/c", State: types.DownloadComplete})
	assert.Greater(t, c.ID, b.ID, "erased ids are never reused")
}

func TestCancelUnknownIsNoop(t *testing.T) {
	m := newManager(t)
	m.Cancel(999) // must not panic or signal
}

func TestEraseSignals(t *testing.T) {
	m := newManager(t)

	var erased []int32
	m.OnErased(func(id int32) { erased = append(erased, id) })

	d := m.Insert(types.Download{URL: "https://x/a", State: types.DownloadComplete})
	m.Erase(d.ID)

	assert.Equal(t, []int32{d.ID}, erased)
	_, ok := m.Get(d.ID)
	assert.False(t, ok)
	assert.Empty(t, m.All())
}

func TestRemoveFileClearsExists(t *testing.T) {
	m := newManager(t)

	file := filepath.Join(m.Dir(), "gone.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	d := m.Insert(types.Download{
		URL:      "https://x/gone.txt",
		Filename: file,
		State:    types.DownloadComplete,
		Exists:   true,
	})

	require.NoError(t, m.RemoveFile(d.ID))
	got, _ := m.Get(d.ID)
	assert.False(t, got.Exists)
	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, m.RemoveFile(12345))
}

func TestPauseResume(t *testing.T) {
	m := newManager(t)

	d := m.Insert(types.Download{URL: "https://x/a", State: types.DownloadInProgress})
	require.NoError(t, m.Pause(d.ID))
	got, _ := m.Get(d.ID)
	assert.True(t, got.Paused)

	require.NoError(t, m.Resume(d.ID))
	got, _ = m.Get(d.ID)
	assert.False(t, got.Paused)

	done := m.Insert(types.Download{URL: "https://x/b", State: types.DownloadComplete})
	assert.Error(t, m.Pause(done.ID))
}
