package acquire

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func encodeTestPNG(t *testing.T) []byte {
	t.Helper()
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buffer.Bytes()
}

func TestDecode(t *testing.T) {
	t.Run("ValidPNG", func(t *testing.T) {
		img, err := Decode(encodeTestPNG(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !img.Bounds().Size().Eq(image.Pt(4, 4)) {
			t.Errorf("unexpected decoded size %v", img.Bounds().Size())
		}
	})

	t.Run("InvalidBytes", func(t *testing.T) {
		_, err := Decode([]byte("definitely not an image"))

		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("expected DecodeError, got %v", err)
		}
	})
}

func TestHTTPAcquirer_Acquire(t *testing.T) {
	t.Run("DownloadsBody", func(t *testing.T) {
		want := encodeTestPNG(t)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(want)
		}))
		defer server.Close()

		got, err := NewHTTPAcquirer(DefaultHTTPConfig()).Acquire(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(want, got) {
			t.Error("downloaded bytes do not match")
		}
	})

	t.Run("RetriesGatewayErrors", func(t *testing.T) {
		var attempts int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt64(&attempts, 1) < 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		config := DefaultHTTPConfig()
		config.RetryBaseDelay = time.Millisecond
		config.RetryMaxDelay = 10 * time.Millisecond

		if _, err := NewHTTPAcquirer(config).Acquire(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := atomic.LoadInt64(&attempts); got != 2 {
			t.Errorf("expected 2 attempts, got %d", got)
		}
	})

	t.Run("RejectsNonOKStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		if _, err := NewHTTPAcquirer(DefaultHTTPConfig()).Acquire(context.Background(), server.URL); err == nil {
			t.Error("expected an error for a 404 response")
		}
	})

	t.Run("RejectsOversizedBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(bytes.Repeat([]byte{0}, 2048))
		}))
		defer server.Close()

		config := DefaultHTTPConfig()
		config.MaxBodySize = 1024

		if _, err := NewHTTPAcquirer(config).Acquire(context.Background(), server.URL); err == nil {
			t.Error("expected an error for an oversized body")
		}
	})
}

func TestForSource(t *testing.T) {
	if _, ok := ForSource("https://example.com/design.png", DefaultHTTPConfig()).(*httpAcquirer); !ok {
		t.Error("expected an HTTP acquirer for URLs")
	}
	if _, ok := ForSource("/tmp/design.png", DefaultHTTPConfig()).(*fileAcquirer); !ok {
		t.Error("expected a file acquirer for paths")
	}
}
