// Package httpapi exposes the contract analysis over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"ContractAuditor/internal/domain"
	"ContractAuditor/internal/metrics"
	"ContractAuditor/internal/usecase"
)

// DefaultMaxUploadBytes caps the multipart body of an analysis request.
const DefaultMaxUploadBytes int64 = 16 << 20

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".docx": {},
	".txt":  {},
}

// Analyzer is the use case behind the analysis and chat endpoints.
type Analyzer interface {
	Analyze(ctx context.Context, req usecase.Request) (*domain.Report, error)
	Ask(ctx context.Context, question, details string) (string, error)
}

// Statutes serves parsed statute articles.
type Statutes interface {
	Article(ctx context.Context, statuteID, number string) (domain.Article, bool)
	Search(ctx context.Context, statuteID, query string) []domain.Article
}

// ServerDeps wires the HTTP handlers.
type ServerDeps struct {
	Analyzer       Analyzer
	Statutes       Statutes
	UploadDir      string
	MaxUploadBytes int64
	DefaultStatute string
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// Server routes HTTP requests to the analysis use cases.
type Server struct {
	analyzer       Analyzer
	statutes       Statutes
	uploadDir      string
	maxUploadBytes int64
	defaultStatute string
	metrics        *metrics.Metrics
	logger         *slog.Logger
	router         *mux.Router
}

// NewServer builds the router with every endpoint registered.
func NewServer(deps ServerDeps) *Server {
	maxBytes := deps.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	s := &Server{
		analyzer:       deps.Analyzer,
		statutes:       deps.Statutes,
		uploadDir:      deps.UploadDir,
		maxUploadBytes: maxBytes,
		defaultStatute: deps.DefaultStatute,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		router:         mux.NewRouter(),
	}
	s.routes()
	return s
}

// Router returns the configured router.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(s.recoverer, s.requestLogger)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/analyze", s.handleAnalyze).Methods(http.MethodPost)
	s.router.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)
	s.router.HandleFunc("/api/statutes/{id}/articles/{number}", s.handleArticle).Methods(http.MethodGet)
	s.router.HandleFunc("/api/statutes/{id}/search", s.handleSearch).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type chatRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

type searchResponse struct {
	StatuteID string           `json:"statute_id"`
	Query     string           `json:"query"`
	Articles  []domain.Article `json:"articles"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "Файл слишком большой")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Файл слишком большой")
			return
		}
		writeError(w, http.StatusBadRequest, "Некорректный запрос: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	contract, contractHeader, err := r.FormFile("contract_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Необходимо загрузить контракт")
		return
	}
	defer contract.Close()
	if contractHeader.Filename == "" {
		writeError(w, http.StatusBadRequest, "Не выбран файл контракта")
		return
	}

	var (
		notice       multipart.File
		noticeHeader *multipart.FileHeader
	)
	if file, header, err := r.FormFile("notice_file"); err == nil {
		defer file.Close()
		if header.Filename != "" {
			notice, noticeHeader = file, header
		}
	}

	if !allowedFile(contractHeader.Filename) || (noticeHeader != nil && !allowedFile(noticeHeader.Filename)) {
		writeError(w, http.StatusBadRequest, "Неподдерживаемый формат файла. Разрешены: PDF, DOCX, TXT")
		return
	}

	contractPath, err := s.saveUpload(contract, contractHeader.Filename)
	if err != nil {
		s.warn("save contract upload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Не удалось сохранить файл")
		return
	}
	defer s.removeUpload(contractPath)

	req := usecase.Request{ContractPath: contractPath, StatuteID: s.statuteID(r.FormValue("law_type"))}
	if notice != nil {
		noticePath, err := s.saveUpload(notice, noticeHeader.Filename)
		if err != nil {
			s.warn("save notice upload failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Не удалось сохранить файл")
			return
		}
		defer s.removeUpload(noticePath)
		req.NoticePath = noticePath
	}

	report, err := s.analyzer.Analyze(r.Context(), req)
	switch {
	case errors.Is(err, usecase.ErrContractNotFound):
		writeError(w, http.StatusBadRequest, "Файл контракта не найден")
	case errors.Is(err, usecase.ErrNoticeNotFound):
		writeError(w, http.StatusBadRequest, "Извещение не найдено")
	case err != nil:
		s.warn("analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Ошибка анализа: %v", err))
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Некорректный запрос: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Вопрос не может быть пустым")
		return
	}

	answer, err := s.analyzer.Ask(r.Context(), req.Question, req.Context)
	switch {
	case errors.Is(err, usecase.ErrAnalyzerUnavailable):
		writeError(w, http.StatusServiceUnavailable, "AI сервис временно недоступен")
	case err != nil:
		s.warn("chat failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, chatResponse{Answer: answer})
	}
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	article, ok := s.statutes.Article(r.Context(), vars["id"], vars["number"])
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Статья %s не найдена", vars["number"]))
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	statuteID := mux.Vars(r)["id"]
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "Пустой поисковый запрос")
		return
	}

	articles := s.statutes.Search(r.Context(), statuteID, query)
	if articles == nil {
		articles = []domain.Article{}
	}
	writeJSON(w, http.StatusOK, searchResponse{StatuteID: statuteID, Query: query, Articles: articles})
}

func (s *Server) statuteID(lawType string) string {
	if lawType = strings.TrimSpace(lawType); lawType != "" {
		return lawType
	}
	return s.defaultStatute
}

// saveUpload stores an uploaded file under a unique name and returns its path.
func (s *Server) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(s.uploadDir, uuid.NewString()+"_"+filepath.Base(filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}

func (s *Server) removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.warn("remove upload failed", "path", path, "error", err)
	}
}

func allowedFile(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Server) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
