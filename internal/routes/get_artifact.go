package routes

import (
	"log/slog"
	"net/http"

	"pagematch/internal/storage"
)

// GetArtifact serves a stored artifact back by the storage URL the compare
// response handed out.
func GetArtifact(storageClient storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.Query().Get("url")
		if url == "" {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		data, err := storageClient.Get(r.Context(), url)
		if err != nil {
			slog.Debug("artifact not found", "url", url, "error", err)
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", http.DetectContentType(data))
		_, _ = w.Write(data)
	}
}
