package media

import (
	"bytes"
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyago/voyago-go/internal/errors"
)

// testJPEG encodes a solid-color JPEG of the given dimensions.
func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 120, G: 80, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func newTestIngestor(t *testing.T) *Ingestor {
	t.Helper()
	return NewIngestor(Config{
		BasePath:      t.TempDir(),
		MaxConcurrent: 4,
		Retry: RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Multiplier:  2,
		},
	})
}

func TestIngest_StoresAllVariants(t *testing.T) {
	payload := testJPEG(t, 2000, 1200)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	ingestor := newTestIngestor(t)

	stored, err := ingestor.Ingest(context.Background(), KindCity, 42, []Source{
		{URL: server.URL + "/photo", ExternalRef: "ref-1", Attribution: "Photographer One"},
	})

	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 0, stored[0].PhotoOrder)
	assert.Equal(t, "ref-1", stored[0].ExternalRef)
	assert.Equal(t, "Photographer One", stored[0].Attribution)

	wantWidths := map[string]int{
		stored[0].SmallPath:  320,
		stored[0].MediumPath: 768,
		stored[0].LargePath:  1280,
	}
	for path, width := range wantWidths {
		img, err := imaging.Open(path)
		require.NoError(t, err, "variant %s should exist", path)
		assert.Equal(t, width, img.Bounds().Dx(), "variant %s width", path)
		assert.True(t, strings.HasPrefix(path, filepath.Join(ingestor.BasePath(), "cities", "42")))
	}
}

func TestIngest_NeverUpscales(t *testing.T) {
	payload := testJPEG(t, 200, 150)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	ingestor := newTestIngestor(t)

	stored, err := ingestor.Ingest(context.Background(), KindPlace, 7, []Source{
		{URL: server.URL, ExternalRef: "small-photo"},
	})

	require.NoError(t, err)
	require.Len(t, stored, 1)

	for _, path := range []string{stored[0].SmallPath, stored[0].MediumPath, stored[0].LargePath} {
		img, err := imaging.Open(path)
		require.NoError(t, err)
		assert.Equal(t, 200, img.Bounds().Dx(), "variant %s must not be upscaled", path)
	}
}

func TestIngest_PartialFailureKeepsOrderContiguous(t *testing.T) {
	payload := testJPEG(t, 800, 600)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/broken") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	ingestor := newTestIngestor(t)

	sources := make([]Source, 0, 10)
	for i := 0; i < 10; i++ {
		path := "/photo"
		if i == 2 || i == 6 {
			path = "/broken"
		}
		sources = append(sources, Source{URL: server.URL + path, ExternalRef: "ref"})
	}

	stored, err := ingestor.Ingest(context.Background(), KindCity, 1, sources)

	require.NoError(t, err)
	require.Len(t, stored, 8)
	for i, s := range stored {
		assert.Equal(t, i, s.PhotoOrder)
		assert.FileExists(t, s.SmallPath)
		assert.FileExists(t, s.MediumPath)
		assert.FileExists(t, s.LargePath)
	}

	// The failed sources must leave no files behind.
	entries, err := os.ReadDir(filepath.Join(ingestor.BasePath(), "cities", "1"))
	require.NoError(t, err)
	assert.Len(t, entries, 8*len(Variants))
}

func TestIngest_VariantWriteFailureLeavesNoPartialFiles(t *testing.T) {
	payload := testJPEG(t, 2000, 1200)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	ingestor := newTestIngestor(t)

	// Plant a directory where the third photo's large variant would be
	// saved, so its write fails after small and medium already succeeded.
	dir := filepath.Join(ingestor.BasePath(), "cities", "5")
	blocked := filepath.Join(dir, "2_large.jpg")
	require.NoError(t, os.MkdirAll(blocked, 0o755))

	sources := []Source{
		{URL: server.URL + "/a", ExternalRef: "ref-a"},
		{URL: server.URL + "/b", ExternalRef: "ref-b"},
		{URL: server.URL + "/c", ExternalRef: "ref-c"},
	}

	stored, err := ingestor.Ingest(context.Background(), KindCity, 5, sources)

	require.NoError(t, err)
	require.Len(t, stored, 2)
	for i, s := range stored {
		assert.Equal(t, i, s.PhotoOrder)
		assert.FileExists(t, s.SmallPath)
		assert.FileExists(t, s.MediumPath)
		assert.FileExists(t, s.LargePath)
	}

	// The discarded photo's earlier variants must be cleaned up.
	assert.NoFileExists(t, filepath.Join(dir, "2_small.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "2_medium.jpg"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	files := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			files++
		}
	}
	assert.Equal(t, 2*len(Variants), files)
}

func TestIngest_RetriesTransientFailures(t *testing.T) {
	payload := testJPEG(t, 400, 300)
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	ingestor := newTestIngestor(t)

	stored, err := ingestor.Ingest(context.Background(), KindCity, 3, []Source{
		{URL: server.URL, ExternalRef: "flaky"},
	})

	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestIngest_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	ingestor := newTestIngestor(t)

	stored, err := ingestor.Ingest(context.Background(), KindCity, 3, []Source{
		{URL: server.URL, ExternalRef: "gone"},
	})

	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIngest_EmptyURLFailsFast(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	ingestor := newTestIngestor(t)

	stored, err := ingestor.Ingest(context.Background(), KindPlace, 9, []Source{
		{URL: "", ExternalRef: "missing-url"},
	})

	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Equal(t, int32(0), calls.Load())
}

func TestIngest_EmptyBatch(t *testing.T) {
	ingestor := newTestIngestor(t)

	stored, err := ingestor.Ingest(context.Background(), KindCity, 1, nil)

	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestIngest_UnknownKind(t *testing.T) {
	ingestor := newTestIngestor(t)

	stored, err := ingestor.Ingest(context.Background(), "countries", 1, []Source{{URL: "http://example.test"}})

	require.Error(t, err)
	assert.Nil(t, stored)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestIngest_UndecodablePayloadDropped(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("this is not a jpeg"))
	}))
	defer server.Close()

	ingestor := newTestIngestor(t)

	stored, err := ingestor.Ingest(context.Background(), KindCity, 5, []Source{
		{URL: server.URL, ExternalRef: "garbage"},
	})

	require.NoError(t, err)
	assert.Empty(t, stored)
	// Undecodable payloads are permanent failures, not retried.
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryPolicy_Delay(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 500*time.Millisecond, policy.Delay(0))
	assert.Equal(t, time.Second, policy.Delay(1))
	assert.Equal(t, 2*time.Second, policy.Delay(2))
}

func TestRetryPolicy_WaitCancelled(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, Multiplier: 2}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := policy.Wait(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
}
