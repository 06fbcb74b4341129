package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
	"github.com/Sibikrish3000/cr-agent/internal/workflow"
)

var (
	ErrFileNotFound       = errors.New("file not found")
	ErrFileOutsideStorage = errors.New("file is outside the upload and document directories")
	ErrEmptyResponse      = errors.New("Model returned empty response. Try a different model or check API configuration.")
)

const defaultThreadID = "default"

// WorkflowRunner runs one conversation through the agents.
type WorkflowRunner interface {
	Run(ctx context.Context, messages []llm.Message, filePath string) (*workflow.Result, error)
}

// ChatService answers chat requests through the workflow
type ChatService struct {
	runner      WorkflowRunner
	allowedDirs []string
}

// NewChatService creates a new chat service. A file_path must resolve to a
// file inside one of allowedDirs; with no dirs every file_path is refused.
func NewChatService(runner WorkflowRunner, allowedDirs ...string) *ChatService {
	return &ChatService{runner: runner, allowedDirs: allowedDirs}
}

// Chat runs the query as a fresh single-message conversation.
func (s *ChatService) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	requestID := uuid.New().String()
	startTime := time.Now()

	threadID := req.ThreadID
	if threadID == "" {
		threadID = defaultThreadID
	}

	if req.FilePath != "" {
		if err := s.checkFilePath(req.FilePath); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("request_id", requestID).
		Str("thread_id", threadID).
		Bool("has_file", req.FilePath != "").
		Msg("Chat request received")

	result, err := s.runner.Run(ctx, []llm.Message{llm.User(req.Query)}, req.FilePath)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("Workflow failed")
		return nil, err
	}

	final := result.Final()
	if strings.TrimSpace(final.Content) == "" {
		return nil, ErrEmptyResponse
	}

	return &domain.ChatResponse{
		RequestID: requestID,
		Response:  final.Content,
		Agent:     result.Agent.Label(),
		LatencyMs: time.Since(startTime).Milliseconds(),
	}, nil
}

// checkFilePath resolves symlinks before comparing so a link inside an
// allowed dir cannot point outside it.
func (s *ChatService) checkFilePath(path string) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if info, err := os.Stat(resolved); err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	for _, dir := range s.allowedDirs {
		root, err := resolvePath(dir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(root, resolved)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrFileOutsideStorage, path)
}

func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
