package routes

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"pagematch/internal/acquire"
	"pagematch/internal/compare"
	"pagematch/internal/report"
	"pagematch/internal/storage"
)

type CompareResponse struct {
	report.Report
	// DiffData is the PNG diff image, base64-encoded for inline rendering.
	DiffData string `json:"diffData"`
}

// Compare accepts multipart form uploads of a reference and a candidate
// image, runs the comparison and stores all three artifacts. The limiter
// bounds concurrent comparisons so large images cannot starve the server.
func Compare(storageClient storage.Storage, limiter *semaphore.Weighted) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(64 << 20); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		policy, err := policyFromForm(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		referenceData, err := formFileBytes(r, "reference")
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		candidateData, err := formFileBytes(r, "candidate")
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		referenceImage, err := acquire.Decode(referenceData)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		candidateImage, err := acquire.Decode(candidateData)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := limiter.Acquire(r.Context(), 1); err != nil {
			return
		}
		result, err := compare.Compare(r.Context(), referenceImage, candidateImage, policy)
		limiter.Release(1)
		if err != nil {
			var mismatchErr *compare.DimensionMismatchError
			switch {
			case errors.As(err, &mismatchErr):
				http.Error(w, mismatchErr.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, context.Canceled):
				// Client is gone; nothing to write.
			default:
				slog.Error("comparison failed", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
			return
		}

		var diffBuffer bytes.Buffer
		if err := png.Encode(&diffBuffer, result.Diff); err != nil {
			slog.Error("failed to encode diff image", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		h := sha256.New()
		h.Write(referenceData)
		h.Write(candidateData)
		hash := fmt.Sprintf("%x", h.Sum(nil))[:16]
		timestamp := result.ComputedAt.Format("20060102150405")
		baseKey := fmt.Sprintf("Comparison/%s/%s", hash, timestamp)

		var images report.ImageRefs
		{
			eg, ctx := errgroup.WithContext(r.Context())

			eg.Go(func() error {
				url, err := storageClient.Put(ctx, baseKey+".reference.png", referenceData)
				images.Reference = url
				return err
			})
			eg.Go(func() error {
				url, err := storageClient.Put(ctx, baseKey+".candidate.png", candidateData)
				images.Candidate = url
				return err
			})
			eg.Go(func() error {
				url, err := storageClient.Put(ctx, baseKey+".diff.png", diffBuffer.Bytes())
				images.Diff = url
				return err
			})

			if err := eg.Wait(); err != nil {
				slog.Error("failed to store artifacts", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(CompareResponse{
			Report:   report.Build(result, images),
			DiffData: base64.StdEncoding.EncodeToString(diffBuffer.Bytes()),
		}); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func formFileBytes(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// policyFromForm overlays recognized form values on the default policy.
func policyFromForm(r *http.Request) (compare.Policy, error) {
	policy := compare.DefaultPolicy()

	for _, field := range []struct {
		name   string
		target *bool
	}{
		{"ignoreAntialiasing", &policy.IgnoreAntialiasing},
		{"ignoreColors", &policy.IgnoreColors},
		{"scaleToSameSize", &policy.ScaleToSameSize},
	} {
		if v := r.FormValue(field.name); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return compare.Policy{}, fmt.Errorf("invalid %s: %q", field.name, v)
			}
			*field.target = parsed
		}
	}

	if v := r.FormValue("diffMode"); v != "" {
		mode, err := compare.ParseDiffMode(v)
		if err != nil {
			return compare.Policy{}, err
		}
		policy.DiffMode = mode
	}

	if v := r.FormValue("errorHighlightColor"); v != "" {
		c, err := compare.ParseHexColor(v)
		if err != nil {
			return compare.Policy{}, err
		}
		policy.HighlightColor = c
	}

	if v := r.FormValue("errorHighlightTransparency"); v != "" {
		transparency, err := strconv.ParseFloat(v, 64)
		if err != nil || transparency < 0 || transparency > 1 {
			return compare.Policy{}, fmt.Errorf("invalid errorHighlightTransparency: %q", v)
		}
		policy.HighlightTransparency = transparency
	}

	if v := r.FormValue("threshold"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil || threshold < 0 || threshold > 1 {
			return compare.Policy{}, fmt.Errorf("invalid threshold: %q", v)
		}
		policy.Threshold = threshold
	}

	return policy, nil
}
