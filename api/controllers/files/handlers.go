package files

import (
	"io"
	"net/http"
	"strings"

	"github.com/cocotrade/ops-backend/api/responses"
	"github.com/cocotrade/ops-backend/api/validators"
	internalfiles "github.com/cocotrade/ops-backend/internal/files"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/logger"
)

// maxUploadBytes caps multipart uploads at 32 MiB.
const maxUploadBytes = 32 << 20

type renameRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

type mkdirRequest struct {
	Dir string `json:"dir" validate:"required"`
}

func List(svc internalfiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "files service unavailable"))
			return
		}

		entries, err := svc.List(r.Context(), r.URL.Query().Get("dir"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"files": entries})
	}
}

// Upload accepts a multipart form with a "file" part and an optional "dir" field.
func Upload(svc internalfiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "files service unavailable"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file part required"))
			return
		}
		defer file.Close()

		dir := r.FormValue("dir")
		if err := svc.Upload(r.Context(), dir, header.Filename, file); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{
			"file": header.Filename,
		})
	}
}

// Download streams the file as an attachment.
func Download(svc internalfiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "files service unavailable"))
			return
		}

		filePath := r.URL.Query().Get("path")
		reader, contentType, err := svc.Download(r.Context(), filePath)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer reader.Close()

		streamFile(w, r, logg, reader, contentType, attachmentDisposition(filePath))
	}
}

// Preview streams the file inline so browsers can render it.
func Preview(svc internalfiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "files service unavailable"))
			return
		}

		filePath := r.URL.Query().Get("path")
		reader, contentType, err := svc.Preview(r.Context(), filePath)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer reader.Close()

		streamFile(w, r, logg, reader, contentType, "inline")
	}
}

func Delete(svc internalfiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "files service unavailable"))
			return
		}

		if err := svc.Delete(r.Context(), r.URL.Query().Get("path")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func Rename(svc internalfiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "files service unavailable"))
			return
		}

		var body renameRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Rename(r.Context(), body.From, body.To); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "renamed"})
	}
}

func Mkdir(svc internalfiles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "files service unavailable"))
			return
		}

		var body mkdirRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Mkdir(r.Context(), body.Dir); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"dir": body.Dir})
	}
}

func streamFile(w http.ResponseWriter, r *http.Request, logg *logger.Logger, reader io.Reader, contentType, disposition string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition)
	if _, err := io.Copy(w, reader); err != nil {
		// Headers are already written, so the best we can do is log the break.
		logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "file stream interrupted")
	}
}

func attachmentDisposition(filePath string) string {
	name := filePath
	if idx := strings.LastIndex(filePath, "/"); idx >= 0 {
		name = filePath[idx+1:]
	}
	if name == "" {
		return "attachment"
	}
	return `attachment; filename="` + name + `"`
}
