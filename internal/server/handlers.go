package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sravani167/speech-service/internal/audio"
	"go.uber.org/zap"
)

const multipartMemory = 8 << 20

type transcribeResponse struct {
	Filename   string `json:"filename"`
	Transcript string `json:"transcript"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeDetail(w, http.StatusUnprocessableEntity, "Field required: file")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Field required: file")
		return
	}
	defer file.Close()

	if !audio.HasWAVExtension(header.Filename) {
		writeDetail(w, http.StatusBadRequest, audio.ErrUnsupportedExtension.Error())
		return
	}

	path, err := s.saveUpload(file)
	if err != nil {
		s.logger.Error("store upload", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove upload", zap.String("path", path), zap.Error(err))
		}
	}()

	transcript, err := s.transcriber.Transcribe(r.Context(), path)
	if err != nil {
		if verr, ok := audio.AsValidation(err); ok {
			writeDetail(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.logger.Error("transcription failed", zap.String("filename", header.Filename), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{Filename: header.Filename, Transcript: transcript})
}

// saveUpload copies the upload to a uniquely named file and closes it before
// returning.
func (s *Server) saveUpload(src io.Reader) (string, error) {
	dir := s.opts.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "upload-"+uuid.NewString()+".wav")

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return path, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
