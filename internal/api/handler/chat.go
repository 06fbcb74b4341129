package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Sibikrish3000/cr-agent/internal/api/response"
	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/service"
)

var validate = validator.New()

// ChatService answers chat requests
type ChatService interface {
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
}

// ChatHandler handles the chat endpoint
type ChatHandler struct {
	chatService ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat runs a query through the agent workflow
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.chatService.Chat(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) || errors.Is(err, service.ErrFileOutsideStorage) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, result)
}
