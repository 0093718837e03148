package http

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/ImMohammedAbdulla/Backend-app/internal/service"
	apperrors "github.com/ImMohammedAbdulla/Backend-app/pkg/errors"
	"github.com/ImMohammedAbdulla/Backend-app/pkg/validator"
)

const maxJSONBody = 1 << 20

// decodeJSON decodes and validates a JSON body. Malformed JSON is reported as
// invalid input rather than an internal error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	err := validator.DecodeAndValidate(r, dst)
	var valErr *validator.ValidationError
	if err != nil && !errors.As(err, &valErr) {
		return apperrors.InvalidInput("invalid request body")
	}
	return err
}

// parseMultipart bounds the request body by maxBytes and parses the form.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.InvalidInput("upload exceeds the size limit")
		}
		return apperrors.InvalidInput("invalid multipart form")
	}
	return nil
}

// formFile opens the named upload. It returns a nil input when the field is
// absent; the caller closes the returned file when one is present.
func formFile(r *http.Request, field string) (*service.FileInput, multipart.File, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperrors.InvalidInput("invalid " + field + " file")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &service.FileInput{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Data:        file,
	}, file, nil
}

func closeFiles(files ...multipart.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
