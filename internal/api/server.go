// Package api exposes the HTTP endpoints for uploads and result visibility.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lmcosta/snapsight/internal/config"
	"github.com/lmcosta/snapsight/internal/model"
	"github.com/lmcosta/snapsight/internal/pipeline"
	"github.com/lmcosta/snapsight/internal/repository"
)

// BlobUploader stores an uploaded image in the blob store.
type BlobUploader interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	Bucket() string
}

// TriggerFunc schedules an analysis run for a stored object.
type TriggerFunc func(ctx context.Context, trigger pipeline.Trigger) error

// Server hosts the upload and read-side query surface.
type Server struct {
	cfg           *config.Config
	results       *repository.ResultRepository
	notifications *repository.NotificationRepository
	blobs         BlobUploader
	trigger       TriggerFunc
	log           zerolog.Logger
	server        *http.Server
	once          sync.Once
}

// New constructs a Server.
func New(
	cfg *config.Config,
	results *repository.ResultRepository,
	notifications *repository.NotificationRepository,
	blobs BlobUploader,
	trigger TriggerFunc,
	log zerolog.Logger,
) *Server {
	return &Server{
		cfg:           cfg,
		results:       results,
		notifications: notifications,
		blobs:         blobs,
		trigger:       trigger,
		log:           log,
	}
}

// Routes builds the router; exposed so tests can drive handlers directly.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Get("/healthz", s.handleHealth)
	r.Post("/upload", s.handleUpload)
	r.Route("/api", func(r chi.Router) {
		r.Get("/results", s.handleList)
		r.Delete("/results", s.handleDeleteAll)
		r.Get("/results/search", s.handleSearch)
		r.Route("/results/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Get("/labels", s.handleLabels)
			r.Get("/text", s.handleText)
			r.Get("/faces", s.handleFaces)
			r.Get("/safe-search", s.handleSafeSearch)
		})
		r.Get("/notifications", s.handleNotifications)
	})
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: s.Routes(),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.Info().Str("address", s.cfg.Address).Msg("api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// multipartOverhead is the body-cap slack for form framing around the file
// part: boundaries, part headers and any extra form fields.
const multipartOverhead = 64 << 10

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		httpError(w, "expecting multipart form", http.StatusBadRequest)
		return
	}

	var (
		fileName string
		data     []byte
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.uploadReadError(w, err)
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}
		fileName = part.FileName()
		buf := &bytes.Buffer{}
		if _, err := io.Copy(buf, io.LimitReader(part, s.cfg.MaxFileSize+1)); err != nil {
			part.Close()
			s.uploadReadError(w, err)
			return
		}
		part.Close()
		data = buf.Bytes()
		break
	}
	if len(data) == 0 {
		httpError(w, "missing or empty file part", http.StatusBadRequest)
		return
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		httpError(w, fmt.Sprintf("file exceeds limit (%d bytes)", s.cfg.MaxFileSize), http.StatusBadRequest)
		return
	}
	if !s.allowedExtension(fileName) {
		httpError(w, "file type not allowed, expecting an image", http.StatusBadRequest)
		return
	}

	objectKey := fmt.Sprintf("uploads/%s/%s", uuid.NewString(), filepath.Base(fileName))
	contentType := http.DetectContentType(data)
	if err := s.blobs.Upload(ctx, objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		s.log.Error().Err(err).Str("object", objectKey).Msg("upload to storage failed")
		httpError(w, "failed to store file", http.StatusInternalServerError)
		return
	}
	trigger := pipeline.Trigger{
		Bucket:     s.blobs.Bucket(),
		ObjectName: objectKey,
		FileName:   fileName,
	}
	if err := s.trigger(ctx, trigger); err != nil {
		s.log.Error().Err(err).Str("object", objectKey).Msg("enqueue analysis failed")
		httpError(w, "failed to queue analysis", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"file_name": fileName,
		"object":    objectKey,
		"status":    "queued",
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	results, err := s.results.List(r.Context(), limit, offset)
	if err != nil {
		if errors.Is(err, repository.ErrOffsetOutOfRange) {
			httpError(w, "limit+offset exceeds the supported scan bound (100)", http.StatusBadRequest)
			return
		}
		s.internalError(w, err, "list results failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total":   len(results),
		"limit":   limit,
		"offset":  offset,
		"results": results,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		httpError(w, "query parameter 'name' is required", http.StatusBadRequest)
		return
	}
	limit := queryInt(r, "limit", 10)
	results, err := s.results.SearchByName(r.Context(), name, limit)
	if err != nil {
		s.internalError(w, err, "search results failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"query":   name,
		"total":   len(results),
		"results": results,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	res, ok := s.fetchResult(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.results.Delete(r.Context(), id); err != nil {
		s.internalError(w, err, "delete result failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	count, err := s.results.DeleteAll(r.Context())
	if err != nil {
		// Partial deletes stand; report how far we got.
		s.log.Error().Err(err).Int("deleted", count).Msg("delete all failed partway")
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "delete all failed partway",
			"deleted": count,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": count})
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	res, ok := s.fetchResult(w, r)
	if !ok {
		return
	}
	// Display-side sort; the stored record keeps detector order.
	labels := make([]model.Label, len(res.Labels))
	copy(labels, res.Labels)
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Score > labels[j].Score })
	respondJSON(w, http.StatusOK, map[string]any{
		"id":           res.ID,
		"total_labels": res.TotalLabels,
		"labels":       labels,
	})
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	res, ok := s.fetchResult(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":             res.ID,
		"full_text":      res.FullText,
		"total_texts":    res.TotalTexts,
		"text_fragments": res.TextFragments,
	})
}

func (s *Server) handleFaces(w http.ResponseWriter, r *http.Request) {
	res, ok := s.fetchResult(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":          res.ID,
		"total_faces": res.TotalFaces,
		"faces":       res.Faces,
	})
}

func (s *Server) handleSafeSearch(w http.ResponseWriter, r *http.Request) {
	res, ok := s.fetchResult(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":          res.ID,
		"safe_search": res.SafeSearch,
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	records, err := s.notifications.Recent(r.Context(), limit)
	if err != nil {
		s.internalError(w, err, "list notifications failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total":         len(records),
		"notifications": records,
	})
}

func (s *Server) fetchResult(w http.ResponseWriter, r *http.Request) (*model.AnalysisResult, bool) {
	id := chi.URLParam(r, "id")
	res, err := s.results.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpError(w, "result not found", http.StatusNotFound)
			return nil, false
		}
		s.internalError(w, err, "get result failed")
		return nil, false
	}
	return res, true
}

// uploadReadError distinguishes a tripped body cap, which is the client
// sending too much, from other read failures.
func (s *Server) uploadReadError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		httpError(w, fmt.Sprintf("file exceeds limit (%d bytes)", s.cfg.MaxFileSize), http.StatusBadRequest)
		return
	}
	httpError(w, "failed to read upload", http.StatusBadRequest)
}

func (s *Server) allowedExtension(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, allowed := range s.cfg.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *Server) internalError(w http.ResponseWriter, err error, msg string) {
	// Internal details never reach clients; they get a generic message.
	s.log.Error().Err(err).Msg(msg)
	httpError(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func httpError(w http.ResponseWriter, msg string, status int) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
