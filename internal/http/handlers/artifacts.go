package handlers

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pdfgate/internal/storage"
)

// ArtifactsDownload streams an artifact owned by the caller. Keys owned by
// other users answer 404 so their existence is not revealed.
func (a *App) ArtifactsDownload(w http.ResponseWriter, r *http.Request) {
	key := path.Join("artifacts", chi.URLParam(r, "*"))
	if !storage.OwnedBy(key, a.currentUserID(r)) {
		a.error(w, http.StatusNotFound, "not_found", "artifact not found")
		return
	}
	data, err := a.Artifacts.Read(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "artifact not found")
		return
	}
	if err != nil {
		a.Logger.Error().Err(err).Str("key", key).Msg("artifact: read")
		a.error(w, http.StatusInternalServerError, "internal", "failed to read artifact")
		return
	}

	name := path.Base(key)
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
