package service

import (
	"context"

	"docqa/internal/domain"
	"docqa/internal/logger"
	"docqa/internal/vectorstore"
)

// Uploader persists an uploaded document and returns where it was written.
type Uploader interface {
	Save(doc domain.Document) (string, error)
}

// ExtractFunc reads the text of the document stored at path.
type ExtractFunc func(path string) (string, error)

// Answerer produces a reply grounded in the given chunks.
type Answerer interface {
	Generate(ctx context.Context, question string, chunks []domain.Chunk) (string, error)
}

// Components are the pipeline stages a RAGService runs.
type Components struct {
	Uploader   Uploader
	Extract    ExtractFunc
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	Store      vectorstore.Store
	Policy     vectorstore.Policy
	TopK       int
	Answerer   Answerer
	Summarizer domain.Summarizer
	// SummaryMaxSentences bounds the summary; zero disables summarizing.
	SummaryMaxSentences int
}

// IngestReport describes one run of the upload pipeline.
type IngestReport struct {
	Path    string
	Chunks  int
	Built   bool
	Summary string
}

// RAGService runs the upload pipeline and answers questions against the collection.
type RAGService struct {
	c   Components
	log *logger.Logger
}

func NewRAGService(c Components, log *logger.Logger) *RAGService {
	return &RAGService{c: c, log: log}
}

// Ingest saves doc, extracts its text, splits it and builds the collection.
// The first failing stage stops the pipeline; its error carries the stage kind.
func (s *RAGService) Ingest(ctx context.Context, doc domain.Document) (IngestReport, error) {
	var report IngestReport
	log := s.log.With("document", doc.Name)

	path, err := s.c.Uploader.Save(doc)
	if err != nil {
		return report, s.fail(log, "save", err)
	}
	report.Path = path

	text, err := s.c.Extract(path)
	if err != nil {
		return report, s.fail(log, "extract", err)
	}
	log.Debug("text extracted", "runes", len([]rune(text)))

	chunks, err := s.c.Chunker.Split(text)
	if err != nil {
		return report, s.fail(log, "split", err)
	}
	report.Chunks = len(chunks)

	built, err := vectorstore.Build(ctx, s.c.Store, s.c.Embedder, chunks, s.c.Policy)
	if err != nil {
		return report, s.fail(log, "build", err)
	}
	report.Built = built
	if !built {
		log.Info("collection exists, build skipped")
	}

	if s.c.Summarizer != nil && s.c.SummaryMaxSentences > 0 {
		summary, err := s.c.Summarizer.Summarize(text, s.c.SummaryMaxSentences)
		if err != nil {
			log.Warn("summary failed", "error", err)
		}
		report.Summary = summary
	}
	log.Info("document ingested", "path", path, "chunks", report.Chunks, "built", built)
	return report, nil
}

// Answer retrieves the chunks closest to question and asks the model.
func (s *RAGService) Answer(ctx context.Context, question string) (string, error) {
	log := s.log.With("question_runes", len([]rune(question)))

	r, err := vectorstore.Open(ctx, s.c.Store, s.c.Embedder, s.c.TopK)
	if err != nil {
		return "", s.fail(log, "open", err)
	}
	chunks, err := r.Search(ctx, question)
	if err != nil {
		return "", s.fail(log, "search", err)
	}
	reply, err := s.c.Answerer.Generate(ctx, question, chunks)
	if err != nil {
		return "", s.fail(log, "generate", err)
	}
	log.Info("question answered", "chunks", len(chunks))
	return reply, nil
}

func (s *RAGService) fail(log *logger.Logger, stage string, err error) error {
	log.Error("pipeline stage failed", "stage", stage, "kind", domain.KindOf(err).String(), "error", err)
	return err
}
