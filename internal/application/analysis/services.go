package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/knowledge-extractor/internal/domain/ai"
	domain "github.com/bryanwahyu/knowledge-extractor/internal/domain/analysis"
)

// MaxBatchSize is the hard ceiling on texts per batch request.
const MaxBatchSize = 10

const defaultBatchConcurrency = 4

// Recorder receives pipeline outcomes, e.g. for metrics.
type Recorder interface {
	ObserveAnalysis(outcome string, d time.Duration)
}

// Service implements the analysis use-cases.
// Service is designed to be used concurrently and is thread-safe
type Service struct {
	Repo   domain.Repository
	AI     ai.Client
	Logger *zap.Logger

	// Archive, when set, receives the raw model output of every stored analysis.
	Archive domain.Archive
	// Recorder, when set, is told the outcome of every AnalyzeOne call.
	Recorder Recorder

	// Timeout bounds a single model call; zero means no deadline.
	Timeout time.Duration
	// BatchConcurrency limits how many batch items run at once.
	BatchConcurrency int
}

// AnalyzeOne runs one text through the model, merges metadata and stores the result.
func (s *Service) AnalyzeOne(ctx context.Context, text string) (*domain.Record, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ValidationError("text input cannot be empty")
	}
	start := time.Now()

	raw, err := s.extract(ctx, text)
	if err != nil {
		s.observe("upstream_error", start)
		return nil, err
	}

	summary, fields, err := ParseModelOutput(raw)
	if err != nil {
		s.observe("upstream_error", start)
		return nil, domain.UpstreamError("LLM analysis failed", err)
	}

	md := MergeMetadata(fields, ExtractKeywords(text), utf8.RuneCountInString(text))

	rec, err := s.Repo.Append(ctx, text, summary, md)
	if err != nil {
		s.observe("storage_error", start)
		return nil, domain.StorageError("failed to save analysis", err)
	}
	s.observe("success", start)

	s.archive(ctx, rec, raw)
	return rec, nil
}

// AnalyzeBatch analyzes every text independently. One item failing never affects
// another; the result has one entry per input in input order.
func (s *Service) AnalyzeBatch(ctx context.Context, texts []string) (domain.BatchResult, error) {
	if len(texts) == 0 {
		return nil, domain.ValidationError("texts list cannot be empty")
	}
	if len(texts) > MaxBatchSize {
		return nil, domain.ValidationError(fmt.Sprintf("maximum %d texts allowed per batch", MaxBatchSize))
	}

	out := make(domain.BatchResult, len(texts))
	var g errgroup.Group
	g.SetLimit(s.batchConcurrency())
	for i, text := range texts {
		out[i].Index = i
		if strings.TrimSpace(text) == "" {
			out[i].Err = domain.ValidationError(fmt.Sprintf("Text %d is empty", i+1))
			continue
		}
		g.Go(func() error {
			rec, err := s.AnalyzeOne(ctx, text)
			if err != nil {
				s.logger().Warn("batch item failed", zap.Int("index", i), zap.Error(err))
			}
			out[i].Record, out[i].Err = rec, err
			return nil
		})
	}
	_ = g.Wait() // errors captured per item

	return out, nil
}

// Search resolves the optional topic/keyword filters, topic first.
func (s *Service) Search(ctx context.Context, q domain.Query) ([]*domain.Record, error) {
	var (
		recs []*domain.Record
		err  error
	)
	switch {
	case q.Topic != "":
		recs, err = s.Repo.FindByTopicSubstring(ctx, q.Topic)
	case q.Keyword != "":
		recs, err = s.Repo.FindByKeywordOrTextSubstring(ctx, q.Keyword)
	default:
		recs, err = s.Repo.ListAll(ctx)
	}
	if err != nil {
		return nil, domain.StorageError("failed to search analyses", err)
	}
	if recs == nil {
		recs = []*domain.Record{}
	}
	return recs, nil
}

func (s *Service) extract(ctx context.Context, text string) (string, error) {
	callCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	raw, err := s.AI.Extract(callCtx, text)
	if err != nil {
		if errors.Is(err, ai.ErrTimeout) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", domain.UpstreamError("LLM analysis failed", ai.ErrTimeout)
		}
		return "", domain.UpstreamError("LLM analysis failed", err)
	}
	return raw, nil
}

func (s *Service) archive(ctx context.Context, rec *domain.Record, raw string) {
	if s.Archive == nil {
		return
	}
	body, err := json.Marshal(map[string]any{
		"id":           rec.ID,
		"text_input":   rec.TextInput,
		"raw_response": raw,
		"created_at":   rec.CreatedAt,
	})
	if err != nil {
		return
	}
	key := fmt.Sprintf("analyses/%d.json", rec.ID)
	if _, err := s.Archive.Put(ctx, key, body); err != nil {
		// record is already stored; archive is best effort
		s.logger().Warn("archive model response failed", zap.Int64("id", rec.ID), zap.Error(err))
	}
}

func (s *Service) observe(outcome string, start time.Time) {
	if s.Recorder != nil {
		s.Recorder.ObserveAnalysis(outcome, time.Since(start))
	}
}

func (s *Service) batchConcurrency() int {
	if s.BatchConcurrency <= 0 {
		return defaultBatchConcurrency
	}
	return s.BatchConcurrency
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
