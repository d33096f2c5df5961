package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/RyanBlaney/trackiq/features"
	"github.com/RyanBlaney/trackiq/logging"
	"github.com/RyanBlaney/trackiq/storage"
	"github.com/RyanBlaney/trackiq/transcode"
)

const multipartMemory = 32 << 20

// UploadResponse is returned by POST /upload/.
type UploadResponse struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
}

// handleProcess responds with the 15 feature values.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.ingest(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, rec.Features)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.ingest(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, UploadResponse{ID: rec.ID, Filename: rec.Filename})
}

// ingest runs the shared upload pipeline: validate, spool, extract, insert.
// It writes the error response itself and reports whether rec is usable.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) (*storage.Record, bool) {
	logger := s.logger.WithContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.writeError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large. Maximum upload size is %s", humanize.IBytes(uint64(s.cfg.MaxUploadBytes()))))
			return nil, false
		}
		s.writeError(w, r, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return nil, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "No file uploaded in field 'file'")
		return nil, false
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if err := transcode.ValidateExtension(filename); err != nil {
		logger.Warn("rejected upload", logging.Fields{"filename": filename, "error": err.Error()})
		s.writeError(w, r, http.StatusBadRequest, invalidFormatMessage())
		return nil, false
	}

	release, err := s.acquire(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "Request cancelled while waiting for an extraction slot")
		return nil, false
	}
	defer release()

	tmpPath, err := s.spool(file, transcode.Extension(filename))
	if tmpPath != "" {
		defer func() {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				logger.Warn("failed to remove upload", logging.Fields{"path": tmpPath, "error": rmErr.Error()})
			}
		}()
	}
	if err != nil {
		logger.Error(err, "failed to store upload", logging.Fields{"filename": filename})
		s.writeError(w, r, http.StatusInternalServerError, processingMessage(err))
		return nil, false
	}

	ctx := r.Context()
	if timeout := s.cfg.ExtractionTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Info("extracting features", logging.Fields{
		"filename":     filename,
		"size":         humanize.IBytes(uint64(header.Size)),
		"content_type": transcode.ContentType(transcode.Extension(filename)),
	})
	vec, err := s.extractor.ExtractFile(ctx, tmpPath)
	if err != nil {
		logger.Error(err, "feature extraction failed", logging.Fields{"filename": filename})
		s.writeError(w, r, http.StatusInternalServerError, processingMessage(err))
		return nil, false
	}

	rec, err := s.store.Insert(ctx, filename, vec)
	if err != nil {
		switch status := statusFor(err); status {
		case http.StatusConflict:
			logger.Warn("duplicate upload", logging.Fields{"filename": filename})
			s.writeError(w, r, status, duplicateMessage(filename))
		default:
			logger.Error(err, "failed to store features", logging.Fields{"filename": filename})
			s.writeError(w, r, http.StatusInternalServerError, processingMessage(err))
		}
		return nil, false
	}

	logger.Info("stored features", logging.Fields{"filename": filename, "id": rec.ID})
	return rec, true
}

func (s *Server) acquire(ctx context.Context) (func(), error) {
	select {
	case s.slots <- struct{}{}:
		return func() { <-s.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// spool copies the upload to a uniquely named file under the upload dir.
// The returned path is set whenever a file was created.
func (s *Server) spool(src io.Reader, ext string) (string, error) {
	path := filepath.Join(s.cfg.Paths.UploadDir, uuid.NewString()+ext)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return path, fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return path, fmt.Errorf("close upload file: %w", err)
	}
	return path, nil
}

func (s *Server) handleGetByID(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	if raw == "" {
		s.handleFeatures(w, r)
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "Invalid record id")
		return
	}
	rec, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, rec)
}

// handleFeatures lists records, or returns one when ?filename= is given.
func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	if name := strings.TrimSpace(r.URL.Query().Get("filename")); name != "" {
		rec, err := s.store.GetByFilename(r.Context(), name)
		if err != nil {
			s.writeLookupError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, rec)
		return
	}

	records, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*storage.Record{}
	}
	s.writeJSON(w, r, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":   "ok",
		"features": features.Names(),
	})
}

func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if statusFor(err) == http.StatusNotFound {
		s.writeError(w, r, http.StatusNotFound, "Record not found")
		return
	}
	s.writeError(w, r, http.StatusInternalServerError, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithContext(r.Context()).Error(err, "failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, r, status, map[string]string{"detail": message})
}
