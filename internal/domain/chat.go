package domain

// ChatRequest represents a user query sent to the workflow
type ChatRequest struct {
	Query    string `json:"query" validate:"required,max=4000"`
	FilePath string `json:"file_path,omitempty" validate:"omitempty,max=1024"`
	ThreadID string `json:"thread_id,omitempty" validate:"omitempty,max=128"`
}

// ChatResponse carries the final reply of a workflow run
type ChatResponse struct {
	RequestID string `json:"request_id"`
	Response  string `json:"response"`
	Agent     string `json:"agent"`
	LatencyMs int64  `json:"latency_ms"`
}

// UploadResult describes a stored upload
type UploadResult struct {
	Message     string `json:"message"`
	FilePath    string `json:"file_path"`
	DocumentID  string `json:"document_id"`
	FileSize    string `json:"file_size"`
	FileType    string `json:"file_type"`
	StorageType string `json:"storage_type"`
}

// DirectoryInfo summarizes one storage directory
type DirectoryInfo struct {
	Directory     string  `json:"directory"`
	FileCount     int     `json:"file_count"`
	SizeMB        float64 `json:"size_mb"`
	CleanupPolicy string  `json:"cleanup_policy,omitempty"`
	Note          string  `json:"note,omitempty"`
}

// StorageInfo reports usage of uploads, persistent documents and the vector store
type StorageInfo struct {
	TemporaryUploads    DirectoryInfo `json:"temporary_uploads"`
	PersistentDocuments DirectoryInfo `json:"persistent_documents"`
	VectorStore         DirectoryInfo `json:"vector_store"`
}
