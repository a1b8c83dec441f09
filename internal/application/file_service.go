package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/repairops/internal/persistence"
)

// MaxFilesPerUpload caps a single multipart upload.
const MaxFilesPerUpload = 10

// Upload describes one file in an upload batch.
type Upload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// FileService stores upload bytes on disk and their metadata in the database.
type FileService struct {
	files       persistence.FileRepository
	activities  *ActivityService
	uploadDir   string
	maxBytes    int64
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewFileService constructs a FileService rooted at uploadDir.
func NewFileService(
	files persistence.FileRepository,
	activities *ActivityService,
	uploadDir string,
	maxBytes int64,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		files:       files,
		activities:  activities,
		uploadDir:   uploadDir,
		maxBytes:    maxBytes,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Store persists a batch of uploads attached to an entity. At most
// MaxFilesPerUpload files are accepted per call; each file is capped at the
// configured byte limit.
func (s *FileService) Store(ctx context.Context, actor Principal, entityKind, entityID string, uploads []Upload) ([]persistence.File, error) {
	logger := serviceLogger(ctx, s.logger, "file", "store", "actorId", actor.UserID, "entityKind", entityKind, "entityId", entityID)

	vErr := &ValidationError{}
	if strings.TrimSpace(entityID) == "" {
		vErr.add("entityId", "entity id is required")
	}
	if len(uploads) == 0 {
		vErr.add("files", "at least one file is required")
	}
	if len(uploads) > MaxFilesPerUpload {
		vErr.add("files", fmt.Sprintf("at most %d files per upload", MaxFilesPerUpload))
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		logger.Error("failed to create upload directory", "error", err)
		return nil, err
	}

	stored := make([]persistence.File, 0, len(uploads))
	for _, upload := range uploads {
		record, err := s.storeOne(ctx, entityKind, entityID, upload)
		if err != nil {
			// Clean up the files written so far so a failed batch leaves
			// nothing behind.
			for _, prev := range stored {
				_ = os.Remove(prev.Path)
				_ = s.files.DeleteFile(ctx, prev.ID)
			}
			logger.Error("failed to store upload", "error", err, "filename", upload.Filename)
			return nil, err
		}
		stored = append(stored, record)
	}

	s.activities.Record(ctx, actor.UserID, entityKind, entityID, "files_uploaded", fmt.Sprintf("%d files", len(stored)))
	return stored, nil
}

func (s *FileService) storeOne(ctx context.Context, entityKind, entityID string, upload Upload) (persistence.File, error) {
	id := s.idGenerator()
	// The stored name is the generated id plus the original extension, so
	// user supplied filenames never touch the filesystem.
	name := id + strings.ToLower(filepath.Ext(upload.Filename))
	path := filepath.Join(s.uploadDir, name)

	dest, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return persistence.File{}, err
	}

	written, err := io.Copy(dest, io.LimitReader(upload.Content, s.maxBytes+1))
	if closeErr := dest.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxBytes {
		err = &ValidationError{FieldErrors: map[string]string{"files": "file exceeds the upload size limit"}}
	}
	if err != nil {
		_ = os.Remove(path)
		return persistence.File{}, err
	}

	record := persistence.File{
		ID:          id,
		EntityKind:  entityKind,
		EntityID:    entityID,
		Filename:    filepath.Base(upload.Filename),
		ContentType: upload.ContentType,
		SizeBytes:   written,
		Path:        path,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.files.CreateFile(ctx, record); err != nil {
		_ = os.Remove(path)
		return persistence.File{}, err
	}
	return record, nil
}

// Get returns upload metadata by id.
func (s *FileService) Get(ctx context.Context, id string) (persistence.File, error) {
	file, err := s.files.GetFile(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.File{}, ErrNotFound
		}
		serviceLogger(ctx, s.logger, "file", "get").Error("failed to load file", "error", err, "fileId", id)
		return persistence.File{}, err
	}
	return file, nil
}

// Open returns a reader over the stored bytes of an upload. The caller closes
// the reader.
func (s *FileService) Open(ctx context.Context, id string) (persistence.File, io.ReadCloser, error) {
	file, err := s.Get(ctx, id)
	if err != nil {
		return persistence.File{}, nil, err
	}
	reader, err := os.Open(file.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.File{}, nil, ErrNotFound
		}
		serviceLogger(ctx, s.logger, "file", "open").Error("failed to open stored file", "error", err, "fileId", id)
		return persistence.File{}, nil, err
	}
	return file, reader, nil
}

// List returns the uploads attached to an entity.
func (s *FileService) List(ctx context.Context, entityKind, entityID string) ([]persistence.File, error) {
	files, err := s.files.ListFiles(ctx, entityKind, entityID)
	if err != nil {
		serviceLogger(ctx, s.logger, "file", "list").Error("failed to list files", "error", err, "entityKind", entityKind, "entityId", entityID)
		return nil, err
	}
	return files, nil
}

// Delete removes an upload's metadata and bytes.
func (s *FileService) Delete(ctx context.Context, actor Principal, id string) error {
	logger := serviceLogger(ctx, s.logger, "file", "delete", "actorId", actor.UserID, "fileId", id)

	file, err := s.files.GetFile(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("failed to load file", "error", err)
		return err
	}

	if err := s.files.DeleteFile(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.Error("failed to delete file metadata", "error", err)
		return err
	}
	if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
		logger.Error("failed to remove stored file", "error", err, "path", file.Path)
	}

	s.activities.Record(ctx, actor.UserID, file.EntityKind, file.EntityID, "file_deleted", file.Filename)
	return nil
}
