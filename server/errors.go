package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/RyanBlaney/trackiq/storage"
	"github.com/RyanBlaney/trackiq/transcode"
)

type errorClassifier interface {
	ErrorKind() string
}

// statusFor maps classified errors onto HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	var classifier errorClassifier
	if errors.As(err, &classifier) {
		switch classifier.ErrorKind() {
		case "unsupported_format":
			return http.StatusBadRequest
		case "duplicate":
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

func invalidFormatMessage() string {
	return "Invalid file format. Allowed formats: " + strings.Join(transcode.AllowedExtensions(), ", ")
}

func duplicateMessage(filename string) string {
	return fmt.Sprintf("A file named '%s' has already been processed. Please rename the file and try again.", filename)
}

func processingMessage(err error) string {
	return "Error processing audio file: " + err.Error()
}
