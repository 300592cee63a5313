package server

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/siebentod/AcademyNomad/internal/fsops"
	"github.com/siebentod/AcademyNomad/internal/highlights"
	"github.com/siebentod/AcademyNomad/internal/notify"
	"github.com/siebentod/AcademyNomad/internal/search"
	"github.com/siebentod/AcademyNomad/internal/shell"
	"github.com/siebentod/AcademyNomad/internal/xmp"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, fsops.ErrNotFound), errors.Is(err, notify.ErrNotWatching), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, fsops.ErrAlreadyExists), errors.Is(err, notify.ErrAlreadyWatching):
		return http.StatusConflict
	case errors.Is(err, fsops.ErrPermissionDenied), errors.Is(err, fs.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, fsops.ErrInvalidName), errors.Is(err, notify.ErrNotDirectory):
		return http.StatusBadRequest
	case errors.Is(err, highlights.ErrExtraction), errors.Is(err, xmp.ErrNoMetadata),
		errors.Is(err, xmp.ErrReadOnly), errors.Is(err, xmp.ErrNoRoom):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shell.ErrLaunch):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// messageFor returns the text shown to the client.
func messageFor(err error) string {
	if errors.Is(err, notify.ErrNotWatching) {
		return "not found"
	}
	return err.Error()
}
