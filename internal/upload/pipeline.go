// Package upload turns an attendance record into an encrypted file in the
// user's Drive folder.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vocos/attendance-go/internal/attendance"
	"github.com/vocos/attendance-go/internal/drive"
	"github.com/vocos/attendance-go/internal/history"
)

const (
	// DefaultFolderName is the Drive folder that receives attendance files.
	DefaultFolderName = "HR_Attendance_Data"
	// FilePrefix and FileExt bracket the millisecond timestamp in file names.
	FilePrefix = "attendance_entry_"
	FileExt    = ".vocos"
	// ContentType is declared for the uploaded ciphertext.
	ContentType = "text/plain"
)

// Encrypter is the cipher adapter.
type Encrypter interface {
	Encrypt(plaintext, password string) (string, error)
}

// FolderResolver finds or creates the destination folder.
type FolderResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Uploader creates a file with metadata and content in one request.
type Uploader interface {
	UploadMultipart(ctx context.Context, meta drive.FileMetadata, content []byte) (*drive.File, error)
}

// Journal records completed uploads.
type Journal interface {
	Record(ctx context.Context, e history.Entry) error
}

// Pipeline runs one save at a time: validate, serialize, encrypt, resolve
// the folder, upload.
type Pipeline struct {
	cipher     Encrypter
	folders    FolderResolver
	uploader   Uploader
	journal    Journal
	folderName string
	logger     *slog.Logger
	nowFunc    func() time.Time
	inFlight   atomic.Bool
}

// NewPipeline wires the save steps. An empty folderName selects
// DefaultFolderName.
func NewPipeline(enc Encrypter, folders FolderResolver, uploader Uploader, folderName string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	if folderName == "" {
		folderName = DefaultFolderName
	}

	return &Pipeline{
		cipher:     enc,
		folders:    folders,
		uploader:   uploader,
		folderName: folderName,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// SetJournal enables the upload journal. nil disables it.
func (p *Pipeline) SetJournal(j Journal) {
	p.journal = j
}

// FolderName returns the destination folder name.
func (p *Pipeline) FolderName() string {
	return p.folderName
}

// FileName names an upload created at t.
func FileName(t time.Time) string {
	return FilePrefix + strconv.FormatInt(t.UnixMilli(), 10) + FileExt
}

// Save uploads rec encrypted with password and returns the created file.
//
// Errors: *attendance.ValidationError before any network call;
// ErrAuthorizationRequired on a 401 or when no token is held; *RemoteError
// for any other provider or transport failure; ErrSaveInProgress when
// another Save is running. Nothing is undone on failure: a folder created
// before a failed upload stays.
func (p *Pipeline) Save(ctx context.Context, rec attendance.Record, password string) (*drive.File, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSaveInProgress
	}
	defer p.inFlight.Store(false)

	if err := attendance.Validate(rec, password); err != nil {
		return nil, err
	}

	saveID := uuid.New()
	logger := p.logger.With(slog.String("save_id", saveID.String()))

	payload, err := p.cipher.Encrypt(rec.CSVLine(), password)
	if err != nil {
		return nil, fmt.Errorf("upload: encrypting record: %w", err)
	}

	folderID, err := p.folders.Resolve(ctx, p.folderName)
	if err != nil {
		return nil, classify("resolving folder", err)
	}

	meta := drive.FileMetadata{
		Name:     FileName(p.nowFunc()),
		MimeType: ContentType,
		Parents:  []string{folderID},
	}

	logger.Debug("uploading record",
		slog.String("name", meta.Name),
		slog.String("folder_id", folderID),
		slog.Int("size", len(payload)),
	)

	f, err := p.uploader.UploadMultipart(ctx, meta, []byte(payload))
	if err != nil {
		return nil, classify("uploading file", err)
	}

	logger.Info("record uploaded",
		slog.String("file_id", f.ID),
		slog.String("name", meta.Name),
	)

	p.recordHistory(ctx, logger, saveID, folderID, meta.Name, f, len(payload))

	return f, nil
}

// recordHistory journals a completed upload. Failures are logged only; the
// file is already in Drive.
func (p *Pipeline) recordHistory(
	ctx context.Context,
	logger *slog.Logger,
	saveID uuid.UUID,
	folderID, name string,
	f *drive.File,
	payloadSize int,
) {
	if p.journal == nil {
		return
	}

	if f.Name != "" {
		name = f.Name
	}

	size := f.Size
	if size == 0 {
		size = int64(payloadSize)
	}

	err := p.journal.Record(ctx, history.Entry{
		SaveID:      saveID,
		FileID:      f.ID,
		FileName:    name,
		FolderID:    folderID,
		WebViewLink: f.WebViewLink,
		Size:        size,
		UploadedAt:  p.nowFunc().UTC(),
	})
	if err != nil {
		logger.Warn("failed to journal upload", slog.String("error", err.Error()))
	}
}
