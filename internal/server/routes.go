package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/askpdf/askpdf/internal/docstore"
	"github.com/askpdf/askpdf/internal/rag"
)

var validate = validator.New()

// multipartMemory caps how much of a parsed upload is held in memory;
// larger parts spill to temporary files.
const multipartMemory = 10 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("upload exceeds the %d byte limit", s.cfg.MaxUploadBytes),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected a multipart form upload"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		parts = r.MultipartForm.File["file"]
	}
	if len(parts) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no files in upload"})
		return
	}

	var (
		files   []rag.IngestFile
		skipped []rag.SkippedFile
	)
	for _, part := range parts {
		name := filepath.Base(part.Filename)
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			skipped = append(skipped, rag.SkippedFile{Filename: name, Reason: "unsupported file type"})
			continue
		}
		stored, err := s.saveUpload(part, name)
		if err != nil {
			log.Printf("server: storing upload %s: %v", name, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store upload"})
			return
		}
		files = append(files, rag.IngestFile{Path: stored, Filename: name})
	}
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no PDF files in upload"})
		return
	}

	result, err := s.service.Ingest(r.Context(), files)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	result.Skipped = append(result.Skipped, skipped...)
	writeJSON(w, http.StatusOK, result)
}

// saveUpload copies one multipart part into the uploads directory under a
// collision-proof name and returns the stored path.
func (s *Server) saveUpload(part *multipart.FileHeader, name string) (string, error) {
	src, err := part.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	stored := filepath.Join(s.service.UploadsDir(), uuid.New().String()+"_"+name)
	dst, err := os.Create(stored)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(stored)
		return "", err
	}
	return stored, nil
}

// isBodyTooLarge spots the MaxBytesReader limit inside multipart parse
// errors, which do not always wrap the typed error.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// queryRequest is the JSON body of POST /api/query.
type queryRequest struct {
	Question string `json:"question" validate:"required,min=3,max=1000"`
	Model    string `json:"model" validate:"omitempty,max=100"`
}

// queryResponse carries the answer plus a pre-rendered HTML version for
// the web UI.
type queryResponse struct {
	Answer     string   `json:"answer"`
	AnswerHTML string   `json:"answer_html"`
	Model      string   `json:"model"`
	Sources    []string `json:"sources"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationMessage(err)})
		return
	}

	answer, err := s.service.Ask(r.Context(), req.Question, req.Model)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Answer:     answer.Answer,
		AnswerHTML: renderMarkdown(answer.Answer),
		Model:      answer.Model,
		Sources:    sources,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.Documents(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.History(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []docstore.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Reset(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Health(r.Context()))
}

// publicError maps the pipeline's error categories onto an HTTP status and
// a caller-safe message. Validation problems carry their message through;
// backend failures return the category only, so provider errors cannot
// leak credentials or internal detail.
func publicError(err error) (int, string) {
	switch {
	case errors.Is(err, rag.ErrValidation), errors.Is(err, rag.ErrNotReady):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, rag.ErrExtraction):
		return http.StatusInternalServerError, rag.ErrExtraction.Error()
	case errors.Is(err, rag.ErrEmbedding):
		return http.StatusInternalServerError, rag.ErrEmbedding.Error()
	case errors.Is(err, rag.ErrGeneration):
		return http.StatusInternalServerError, rag.ErrGeneration.Error()
	case errors.Is(err, rag.ErrIndex):
		return http.StatusInternalServerError, rag.ErrIndex.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := publicError(err)
	if status == http.StatusInternalServerError {
		log.Printf("server: %s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		if e.Field() == "Question" {
			return fmt.Sprintf("question must be between %d and %d characters", rag.MinQuestionLen, rag.MaxQuestionLen)
		}
		return fmt.Sprintf("%s failed on '%s'", strings.ToLower(e.Field()), e.Tag())
	}
	return "invalid request"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
