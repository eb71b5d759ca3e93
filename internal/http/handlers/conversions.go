package handlers

import (
	"io"
	"net/http"
	"strings"

	"pdfgate/internal/conversion"
	"pdfgate/internal/domain"
	"pdfgate/internal/storage"
)

// multipartOverhead leaves room for form boundaries and the tool field on top
// of the configured file size.
const multipartOverhead = 1 << 20

type artifactResponse struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	DownloadURL string `json:"download_url"`
}

type conversionResponse struct {
	Tool     string           `json:"tool"`
	State    string           `json:"state"`
	Plan     string           `json:"plan"`
	Artifact artifactResponse `json:"artifact"`
}

// ConversionsCreate accepts multipart `tool` and `file`, runs the conversion
// and stores the artifact for download.
func (a *App) ConversionsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user")
		return
	}
	if err := storage.ValidateOwner(userID); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_user", "user id cannot own artifacts")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if isTooLarge(err) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds the size limit")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	toolID := strings.TrimSpace(r.FormValue("tool"))
	if toolID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "tool is required")
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file is required")
		return
	}
	defer part.Close()
	if header.Size > a.MaxUploadBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds the size limit")
		return
	}
	data, err := io.ReadAll(part)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read file")
		return
	}

	file := domain.File{Name: header.Filename, Data: data}
	result, err := a.Conversions.Execute(r.Context(), conversion.Request{
		UserID:     userID,
		ToolID:     toolID,
		File:       file,
		FileSizeMB: float64(file.Size()) / (1 << 20),
	})
	if err != nil {
		a.conversionError(w, err)
		return
	}

	artifact := result.Artifact
	key, err := storage.ArtifactKey(userID, artifact.Filename)
	if err == nil {
		key, err = a.Artifacts.Write(r.Context(), key, artifact.Data)
	}
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Str("tool", toolID).Msg("conversion: store artifact")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store artifact")
		return
	}

	a.json(w, http.StatusCreated, conversionResponse{
		Tool:  toolID,
		State: string(result.State),
		Plan:  string(result.Plan),
		Artifact: artifactResponse{
			Key:         key,
			Filename:    artifact.Filename,
			ContentType: artifact.ContentType,
			Size:        len(artifact.Data),
			DownloadURL: "/v1/" + key,
		},
	})
}
