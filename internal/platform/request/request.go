// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction, body decoding
and multipart staging, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/videotube/internal/platform/apperr"
	"github.com/taibuivan/videotube/internal/platform/constants"
	"github.com/taibuivan/videotube/internal/platform/ctxutil"
	"github.com/taibuivan/videotube/internal/platform/sec"
	"github.com/taibuivan/videotube/internal/platform/validate"
	"github.com/taibuivan/videotube/pkg/uuid"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Bodies larger than [constants.MaxJSONBodyBytes] are rejected.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	body := io.LimitReader(request.Body, constants.MaxJSONBodyBytes+1)
	data, err := io.ReadAll(body)
	if err != nil {
		return validate.ErrInvalidJSON
	}
	if len(data) > constants.MaxJSONBodyBytes {
		return apperr.ValidationError("Request body too large")
	}
	if err := json.Unmarshal(data, target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Claims extracts the authenticated user claims from the request context.

Returns nil if the request is not authenticated.
*/
func Claims(request *http.Request) *sec.Claims {
	return ctxutil.GetAuthUser(request.Context())
}

/*
RequiredUserID returns the User ID of the currently logged-in user.

Returns:
  - string: User UUID
  - error: apperr.Unauthorized if not authenticated
*/
func RequiredUserID(request *http.Request) (string, error) {
	claims := Claims(request)
	if claims == nil {
		return "", apperr.Unauthorized("Unauthorized request")
	}
	return claims.UserID, nil
}

// # Multipart Staging

/*
ParseMultipart parses a multipart body of at most maxBytes.

Non-multipart requests are left untouched so JSON clients keep working.
*/
func ParseMultipart(writer http.ResponseWriter, request *http.Request, maxBytes int64) error {
	if !strings.HasPrefix(request.Header.Get("Content-Type"), "multipart/form-data") {
		return nil
	}
	request.Body = http.MaxBytesReader(writer, request.Body, maxBytes)
	if err := request.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.ValidationError("Uploaded file is too large")
		}
		return apperr.ValidationError("Invalid multipart form")
	}
	return nil
}

/*
FormValue returns the named field from a parsed form, whichever body encoding was used.
*/
func FormValue(request *http.Request, name string) string {
	return request.FormValue(name)
}

/*
SaveFormFile copies the uploaded file named field into dir.

The staged file is named "<uuid>-<basename>" so concurrent uploads never collide. An absent field is not an
error: it returns "".

Returns:
  - string: path of the staged file, or "" if the field was not sent
  - error: wrapped I/O failure
*/
func SaveFormFile(request *http.Request, field, dir string) (string, error) {
	if request.MultipartForm == nil {
		return "", nil
	}

	file, header, err := request.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("request_form_file_failed: %w", err)
	}
	defer file.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("request_staging_dir_failed: %w", err)
	}

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = field
	}
	path := filepath.Join(dir, uuid.New()+"-"+name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("request_staging_create_failed: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("request_staging_copy_failed: %w", err)
	}
	return path, nil
}
