package service

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/config"
	"github.com/Sibikrish3000/cr-agent/internal/domain"
)

// Bounds of a manual cleanup, in hours.
const (
	MinCleanupHours = 1
	MaxCleanupHours = 168
)

const (
	storageTemporary  = "temporary"
	storagePersistent = "persistent"
)

// ValidationError is a client error whose message is returned as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a client error.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StorageService manages uploaded documents on disk
type StorageService struct {
	cfg       config.StorageConfig
	vectorDir string
	now       func() time.Time
}

// NewStorageService creates the upload, persistent and vector directories when missing.
func NewStorageService(cfg config.StorageConfig, vectorDir string) (*StorageService, error) {
	for _, dir := range []string{cfg.UploadsDir, cfg.PersistentDir, vectorDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return &StorageService{cfg: cfg, vectorDir: vectorDir, now: time.Now}, nil
}

func (s *StorageService) maxBytes() int64 {
	return s.cfg.MaxUploadMB * 1024 * 1024
}

// Save validates an upload and stores it as {uuid}.{ext} in the uploads or persistent directory.
func (s *StorageService) Save(filename string, content io.Reader, persistent bool) (*domain.UploadResult, error) {
	if filename == "" {
		return nil, invalid("Filename is required")
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" || !slices.Contains(s.cfg.AllowedFileExts, "."+ext) {
		return nil, invalid("File type '.%s' not allowed. Supported types: %s", ext, s.supportedTypes())
	}

	data, err := io.ReadAll(io.LimitReader(content, s.maxBytes()+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	size := int64(len(data))
	if size > s.maxBytes() {
		return nil, invalid("File size exceeds maximum allowed size (%dMB)", s.cfg.MaxUploadMB)
	}
	if size == 0 {
		return nil, invalid("File is empty")
	}

	dir, storageType := s.cfg.UploadsDir, storageTemporary
	if persistent {
		dir, storageType = s.cfg.PersistentDir, storagePersistent
	}

	fileID := uuid.New().String()
	path, err := filepath.Abs(filepath.Join(dir, fileID+"."+ext))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload path: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	log.Info().
		Str("file_path", path).
		Int64("size", size).
		Str("storage_type", storageType).
		Msg("File uploaded")

	return &domain.UploadResult{
		Message:     fmt.Sprintf("File uploaded successfully (%s)", storageType),
		FilePath:    path,
		DocumentID:  fileID + "_" + ext,
		FileSize:    fmt.Sprintf("%.2fKB", float64(size)/1024),
		FileType:    ext,
		StorageType: storageType,
	}, nil
}

func (s *StorageService) supportedTypes() string {
	types := make([]string, len(s.cfg.AllowedFileExts))
	for i, ext := range s.cfg.AllowedFileExts {
		types[i] = strings.TrimPrefix(ext, ".")
	}
	return strings.Join(types, ", ")
}

// Info reports file counts and sizes of the storage directories.
func (s *StorageService) Info() (*domain.StorageInfo, error) {
	uploads, err := directoryInfo(s.cfg.UploadsDir)
	if err != nil {
		return nil, err
	}
	uploads.CleanupPolicy = fmt.Sprintf("Files older than %s are auto-deleted", formatHours(s.cfg.CleanupMaxAge))

	persistent, err := directoryInfo(s.cfg.PersistentDir)
	if err != nil {
		return nil, err
	}
	persistent.CleanupPolicy = "Manual cleanup only"

	vectors, err := directoryInfo(s.vectorDir)
	if err != nil {
		return nil, err
	}
	vectors.FileCount = 0
	vectors.Note = "Vectors persist independently of source files"

	return &domain.StorageInfo{
		TemporaryUploads:    uploads,
		PersistentDocuments: persistent,
		VectorStore:         vectors,
	}, nil
}

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%d hours", int(d.Hours()))
}

func directoryInfo(dir string) (domain.DirectoryInfo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return domain.DirectoryInfo{}, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	info := domain.DirectoryInfo{Directory: abs}

	var total int64
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		info.FileCount++
		return nil
	})
	if err != nil {
		return domain.DirectoryInfo{}, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	info.SizeMB = math.Round(float64(total)/1024/1024*100) / 100
	return info, nil
}

// ValidateCleanupHours checks a manual cleanup age.
func ValidateCleanupHours(hours int) error {
	if hours < MinCleanupHours || hours > MaxCleanupHours {
		return invalid("max_age_hours must be between %d and %d", MinCleanupHours, MaxCleanupHours)
	}
	return nil
}

// CleanupUploads deletes temporary uploads last modified more than maxAge ago. Files that cannot
// be removed are logged and skipped.
func (s *StorageService) CleanupUploads(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.cfg.UploadsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list uploads: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		fi, err := entry.Info()
		if err != nil || !fi.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.cfg.UploadsDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Failed to delete upload")
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Dur("max_age", maxAge).Msg("Cleaned up old temporary uploads")
	}
	return removed, nil
}
