package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
	"github.com/Sibikrish3000/cr-agent/internal/tools"
)

// Confidence thresholds below which the web is searched as well.
const (
	UploadScoreThreshold     = 0.70
	PersistentScoreThreshold = 0.50
	documentTopK             = 3
)

const uploadPrompt = `You are answering based on the following information:

DOCUMENT SEARCH RESULTS (Similarity: %.2f):
%s

%s

USER QUESTION: %s

Provide a clear, accurate answer based on the information above.`

const companyDocsPrompt = `Answer based on company documents:

COMPANY DOCUMENTS:
%s

USER QUESTION: %s

Provide a clear answer based on the company documents above.`

const webPrompt = `Answer the question using this web search information:

WEB SEARCH RESULTS:
%s

USER QUESTION: %s

Provide a clear answer.`

var similarityPattern = regexp.MustCompile(`Similarity: ([\d.]+)`)

// DocumentStore ingests and searches documents, reporting results as text.
type DocumentStore interface {
	Ingest(ctx context.Context, path, docID string, temporary bool) string
	Search(ctx context.Context, query, docID string, topK int, searchType string) string
}

// WebSearch returns formatted web results.
type WebSearch interface {
	Search(ctx context.Context, query string) (string, error)
}

// DocumentAgent answers from an uploaded file, the company documents or the web.
type DocumentAgent struct {
	gateway  llm.Gateway
	docs     DocumentStore
	web      WebSearch
	observer ScoreObserver
}

// NewDocumentAgent creates the document agent. observer may be nil.
func NewDocumentAgent(gateway llm.Gateway, docs DocumentStore, web WebSearch, observer ScoreObserver) *DocumentAgent {
	return &DocumentAgent{gateway: gateway, docs: docs, web: web, observer: observer}
}

func (a *DocumentAgent) Kind() domain.Agent {
	return domain.AgentDoc
}

func (a *DocumentAgent) Tools() []string {
	return nil
}

// Respond always runs the retrieval steps itself instead of letting the model pick tools.
func (a *DocumentAgent) Respond(ctx context.Context, in Input) (llm.Message, error) {
	query := llm.LastUserMessage(in.Messages)
	if in.FilePath != "" {
		return a.answerFromUpload(ctx, query, in.FilePath)
	}
	return a.answerFromKnowledge(ctx, query, in.Messages)
}

func (a *DocumentAgent) answerFromUpload(ctx context.Context, query, path string) (llm.Message, error) {
	docID := tools.DocumentID(path)

	log.Info().Str("file_path", path).Str("document_id", docID).Msg("Forcing document ingestion")
	ingest := a.docs.Ingest(ctx, path, docID, true)
	log.Debug().Str("result", ingest).Msg("Ingest finished")

	results := a.docs.Search(ctx, query, docID, documentTopK, tools.SearchTemporary)
	score := BestSimilarity(results)
	a.observe(tools.SearchTemporary, score)
	log.Info().Float64("score", score).Str("document_id", docID).Msg("Uploaded document searched")

	web := ""
	if score < UploadScoreThreshold {
		log.Info().Float64("score", score).Float64("threshold", UploadScoreThreshold).Msg("Low confidence, adding web search")
		found, err := a.web.Search(ctx, query)
		if err != nil {
			found = tools.SearchFailure(err)
		}
		web = "WEB SEARCH RESULTS (fallback):\n" + found
	}

	return a.synthesize(ctx, fmt.Sprintf(uploadPrompt, score, results, web, query))
}

func (a *DocumentAgent) answerFromKnowledge(ctx context.Context, query string, history []llm.Message) (llm.Message, error) {
	results := a.docs.Search(ctx, query, "", documentTopK, tools.SearchPersistent)
	score := BestSimilarity(results)
	a.observe(tools.SearchPersistent, score)
	log.Info().Float64("score", score).Msg("Persistent documents searched")

	if score >= PersistentScoreThreshold {
		return a.synthesize(ctx, fmt.Sprintf(companyDocsPrompt, results, query))
	}

	log.Info().Str("query", query).Msg("Using web search")
	found, err := a.web.Search(ctx, query)
	if err != nil {
		log.Warn().Err(err).Msg("Web search failed, answering from the conversation")
		resp, err := a.gateway.Generate(ctx, llm.ChatRequest{
			Messages:    history,
			Temperature: llm.Temperature(0.1),
		})
		if err != nil {
			return llm.Message{}, fmt.Errorf("failed to generate answer: %w", err)
		}
		return llm.Assistant(resp.Content), nil
	}

	return a.synthesize(ctx, fmt.Sprintf(webPrompt, found, query))
}

func (a *DocumentAgent) synthesize(ctx context.Context, prompt string) (llm.Message, error) {
	resp, err := a.gateway.Generate(ctx, llm.ChatRequest{
		Messages:    []llm.Message{llm.System(prompt)},
		Temperature: llm.Temperature(0.1),
	})
	if err != nil {
		return llm.Message{}, fmt.Errorf("failed to synthesize answer: %w", err)
	}
	return llm.Assistant(resp.Content), nil
}

func (a *DocumentAgent) observe(scope string, score float64) {
	if a.observer != nil {
		a.observer.ObserveRAGScore(scope, score)
	}
}

// BestSimilarity returns the first "Similarity: <float>" value of formatted search results,
// or 0 when there is none.
func BestSimilarity(results string) float64 {
	m := similarityPattern.FindStringSubmatch(results)
	if m == nil {
		return 0
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return score
}
