package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sibikrish3000/cr-agent/internal/api/handler"
	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
	"github.com/Sibikrish3000/cr-agent/internal/service"
)

type mockChat struct {
	mock.Mock
}

func (m *mockChat) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatResponse), args.Error(1)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Save(filename string, content io.Reader, persistent bool) (*domain.UploadResult, error) {
	data, _ := io.ReadAll(content)
	args := m.Called(filename, string(data), persistent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UploadResult), args.Error(1)
}

func (m *mockStorage) Info() (*domain.StorageInfo, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StorageInfo), args.Error(1)
}

func (m *mockStorage) CleanupUploads(maxAge time.Duration) (int, error) {
	args := m.Called(maxAge)
	return args.Int(0), args.Error(1)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type flushFunc func(ctx context.Context) (int64, error)

func (f flushFunc) FlushAll(ctx context.Context) (int64, error) { return f(ctx) }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status": "ok"}`, string(env.Data))
}

func TestReadyCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	handler.ReadyCheck(pingFunc(func(context.Context) error { return nil }))(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ReadyCheck(pingFunc(func(context.Context) error { return errors.New("down") }))(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "database not ready", decode(t, rec).Error)
}

func TestChatHandler_Chat(t *testing.T) {
	chat := new(mockChat)
	chat.On("Chat", mock.Anything, domain.ChatRequest{Query: "Show all meetings"}).
		Return(&domain.ChatResponse{RequestID: "r1", Response: "No results found.", Agent: "sql_agent"}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"query": "Show all meetings"}`))
	handler.NewChatHandler(chat).Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &resp))
	assert.Equal(t, "No results found.", resp.Response)
	assert.Equal(t, "sql_agent", resp.Agent)
}

func TestChatHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed body", `{"query":`, nil, http.StatusBadRequest},
		{"missing query", `{"file_path": "/tmp/a.pdf"}`, nil, http.StatusBadRequest},
		{"missing file", `{"query": "q", "file_path": "/nope.pdf"}`, service.ErrFileNotFound, http.StatusBadRequest},
		{"file outside storage", `{"query": "q", "file_path": "/etc/passwd"}`, service.ErrFileOutsideStorage, http.StatusBadRequest},
		{"workflow failure", `{"query": "q"}`, errors.New("no providers configured"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := new(mockChat)
			if tt.err != nil {
				chat.On("Chat", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			rec := httptest.NewRecorder()
			handler.NewChatHandler(chat).Chat(rec, httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, decode(t, rec).Success)
		})
	}
}

func multipartUpload(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadHandler_Upload(t *testing.T) {
	storage := new(mockStorage)
	storage.On("Save", "policy.txt", "VPN policy", true).Return(&domain.UploadResult{
		FilePath:    "/data/persistent_docs/abc.txt",
		DocumentID:  "abc_txt",
		StorageType: "persistent",
	}, nil)

	rec := httptest.NewRecorder()
	handler.NewUploadHandler(storage, 10<<20).Upload(rec, multipartUpload(t, "/api/v1/upload?persistent=true", "policy.txt", "VPN policy"))

	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.UploadResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.Equal(t, "abc_txt", res.DocumentID)
	storage.AssertExpectations(t)
}

func TestUploadHandler_UploadErrors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		storage := new(mockStorage)
		storage.On("Save", "data.exe", "x", false).Return(nil, &service.ValidationError{Message: "File type '.exe' not allowed."})

		rec := httptest.NewRecorder()
		handler.NewUploadHandler(storage, 10<<20).Upload(rec, multipartUpload(t, "/api/v1/upload", "data.exe", "x"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "File type '.exe' not allowed.", decode(t, rec).Error)
	})

	t.Run("disk", func(t *testing.T) {
		storage := new(mockStorage)
		storage.On("Save", "a.txt", "x", false).Return(nil, errors.New("disk full"))

		rec := httptest.NewRecorder()
		handler.NewUploadHandler(storage, 10<<20).Upload(rec, multipartUpload(t, "/api/v1/upload", "a.txt", "x"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Upload failed: disk full", decode(t, rec).Error)
	})

	t.Run("bad flag", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.NewUploadHandler(new(mockStorage), 10<<20).Upload(rec, multipartUpload(t, "/api/v1/upload?persistent=maybe", "a.txt", "x"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		handler.NewUploadHandler(new(mockStorage), 10<<20).Upload(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUploadHandler_Cleanup(t *testing.T) {
	storage := new(mockStorage)
	storage.On("CleanupUploads", 24*time.Hour).Return(2, nil)
	storage.On("CleanupUploads", 6*time.Hour).Return(0, nil)
	h := handler.NewUploadHandler(storage, 10<<20)

	rec := httptest.NewRecorder()
	h.Cleanup(rec, httptest.NewRequest(http.MethodPost, "/api/v1/storage/cleanup", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message": "Cleanup completed for files older than 24 hours", "files_removed": 2}`, string(decode(t, rec).Data))

	rec = httptest.NewRecorder()
	h.Cleanup(rec, httptest.NewRequest(http.MethodPost, "/api/v1/storage/cleanup?max_age_hours=6", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, v := range []string{"0", "169", "abc"} {
		rec = httptest.NewRecorder()
		h.Cleanup(rec, httptest.NewRequest(http.MethodPost, "/api/v1/storage/cleanup?max_age_hours="+v, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, v)
	}
	storage.AssertExpectations(t)
}

func TestUploadHandler_StorageInfo(t *testing.T) {
	storage := new(mockStorage)
	storage.On("Info").Return(&domain.StorageInfo{
		TemporaryUploads: domain.DirectoryInfo{Directory: "/data/uploads", FileCount: 3, SizeMB: 1.25},
	}, nil)

	rec := httptest.NewRecorder()
	handler.NewUploadHandler(storage, 10<<20).StorageInfo(rec, httptest.NewRequest(http.MethodGet, "/api/v1/storage/info", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var info domain.StorageInfo
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &info))
	assert.Equal(t, 3, info.TemporaryUploads.FileCount)
}

type fakeProviders struct {
	infos  []llm.ProviderInfo
	active llm.Provider
}

func (f fakeProviders) GetProvidersInfo() []llm.ProviderInfo { return f.infos }

func (f fakeProviders) Active() (llm.Provider, error) {
	if f.active == nil {
		return nil, errors.New("no provider")
	}
	return f.active, nil
}

func TestListLLMProviders(t *testing.T) {
	rec := httptest.NewRecorder()
	handler.ListLLMProviders(fakeProviders{infos: []llm.ProviderInfo{
		{Name: "openai", Models: []string{"gpt-3.5-turbo"}, Configured: false},
	}})(rec, httptest.NewRequest(http.MethodGet, "/api/v1/llm-providers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Providers       []llm.ProviderInfo `json:"providers"`
		DefaultProvider string             `json:"default_provider"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Len(t, data.Providers, 1)
	assert.Empty(t, data.DefaultProvider)
}

func TestFlushCache(t *testing.T) {
	rec := httptest.NewRecorder()
	handler.FlushCache(flushFunc(func(context.Context) (int64, error) { return 4, nil }))(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/flush", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message": "cache flushed successfully", "keys_deleted": 4}`, string(decode(t, rec).Data))

	rec = httptest.NewRecorder()
	handler.FlushCache(nil)(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/flush", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
