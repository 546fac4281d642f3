package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/knowledge-extractor/internal/application/analysis"
	domain "github.com/bryanwahyu/knowledge-extractor/internal/domain/analysis"
	"github.com/bryanwahyu/knowledge-extractor/internal/middleware"
)

const maxBodyBytes = 1 << 20

// Options carries the router's cross-cutting collaborators. Nil fields switch
// the matching feature off.
type Options struct {
	Token          string
	Logger         *zap.Logger
	Metrics        *middleware.Metrics
	RateLimiter    *middleware.RateLimiter
	TrustedProxies *middleware.TrustedProxies
	AllowedOrigins []string
	HealthCheckers map[string]middleware.HealthChecker
}

type Router struct {
	svc    *appanalysis.Service
	logger *zap.Logger
}

func NewRouter(svc *appanalysis.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{svc: svc, logger: logger.Named("http")}

	mux := chi.NewRouter()
	mux.Use(middleware.RealIP(opts.TrustedProxies))
	mux.Use(middleware.RequestLogger(r.logger))
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.RateLimiter))
	}
	mux.Use(middleware.BearerAuth(opts.Token))

	health := middleware.HealthHandler(opts.HealthCheckers)
	mux.Get("/health", health)
	mux.Get("/healthz/live", middleware.LivenessHandler)
	mux.Get("/healthz/ready", health)
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	mux.Post("/analyze", r.wrap(r.handleAnalyze))
	mux.Post("/analyze/batch", r.wrap(r.handleAnalyzeBatch))
	mux.Get("/search", r.wrap(r.handleSearch))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusFor(err)
		msg := err.Error()
		if domain.KindOf(err) == 0 {
			msg = "internal server error"
		}
		if status >= http.StatusInternalServerError {
			r.logger.Error("request failed",
				zap.String("request_id", middleware.RequestIDFromContext(req.Context())),
				zap.String("path", req.URL.Path),
				zap.Error(err),
			)
		}
		middleware.WriteDetail(w, status, msg)
	}
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// AnalysisResponse is one stored analysis as returned by /analyze.
type AnalysisResponse struct {
	ID        int64           `json:"id"`
	Summary   string          `json:"summary"`
	Metadata  domain.Metadata `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

// BatchItemResponse is either a flattened AnalysisResponse or an error, plus
// the item's position in the request.
type BatchItemResponse struct {
	*AnalysisResponse
	Error string `json:"error,omitempty"`
	Index int    `json:"index"`
}

func toResponse(rec *domain.Record) *AnalysisResponse {
	return &AnalysisResponse{ID: rec.ID, Summary: rec.Summary, Metadata: rec.Metadata, CreatedAt: rec.CreatedAt}
}

// POST /analyze
// Body: {"text": "..."}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		return err
	}

	rec, err := r.svc.AnalyzeOne(req.Context(), body.Text)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, toResponse(rec))
}

// POST /analyze/batch
// Body: {"texts": ["...", "..."]}
func (r *Router) handleAnalyzeBatch(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Texts []string `json:"texts"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		return err
	}

	res, err := r.svc.AnalyzeBatch(req.Context(), body.Texts)
	if err != nil {
		return err
	}

	items := make([]BatchItemResponse, len(res))
	for i, item := range res {
		items[i].Index = item.Index
		if item.Err != nil {
			items[i].Error = item.Err.Error()
			continue
		}
		items[i].AnalysisResponse = toResponse(item.Record)
	}
	return writeJSON(w, http.StatusOK, map[string]any{"results": items})
}

// GET /search?topic=&keyword=
func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	recs, err := r.svc.Search(req.Context(), domain.Query{
		Topic:   q.Get("topic"),
		Keyword: q.Get("keyword"),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"analyses": recs})
}

func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return domain.ValidationError("request body too large")
		case errors.Is(err, io.EOF):
			return domain.ValidationError("request body is empty")
		default:
			return domain.ValidationError("invalid JSON body")
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
