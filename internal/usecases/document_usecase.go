package usecases

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/domain/repositories"
	"kailospay.backend/internal/infrastructure/storage"
	"kailospay.backend/pkg/logger"
	"kailospay.backend/pkg/utils"
)

// sniffLen is how much of a file content detection looks at.
const sniffLen = 512

// DocumentUsecase stores standalone uploads (general and rent documents).
type DocumentUsecase struct {
	uploadRepo  repositories.UploadRepository
	uow         repositories.UnitOfWork
	files       FileStore
	maxFileSize int64
	maxFiles    int
	now         func() time.Time
}

// NewDocumentUsecase creates a new document usecase
func NewDocumentUsecase(
	uploadRepo repositories.UploadRepository,
	uow repositories.UnitOfWork,
	files FileStore,
	maxFileSize int64,
	maxFiles int,
) *DocumentUsecase {
	return &DocumentUsecase{
		uploadRepo:  uploadRepo,
		uow:         uow,
		files:       files,
		maxFileSize: maxFileSize,
		maxFiles:    maxFiles,
		now:         time.Now,
	}
}

func uploadArea(category entities.Category) string {
	if category == entities.CategoryRent {
		return storage.AreaRent
	}
	return storage.AreaGeneral
}

// Upload stores every file and creates one pending upload row per file. It
// is all or nothing.
func (u *DocumentUsecase) Upload(ctx context.Context, userID uuid.UUID, category entities.Category, docType string, files []entities.IncomingFile) ([]*entities.Upload, error) {
	if category == "" {
		category = entities.CategoryGeneral
	}
	if !category.Valid() {
		return nil, domainerrors.BadRequest("invalid category")
	}

	area := uploadArea(category)
	stored, err := storeAll(u.files, area, files, u.maxFiles, u.maxFileSize)
	if err != nil {
		return nil, err
	}

	now := u.now()
	uploads := make([]*entities.Upload, 0, len(stored))
	for i, s := range stored {
		uploads = append(uploads, &entities.Upload{
			ID:           utils.GenerateUUIDv7(),
			UserID:       userID,
			OriginalName: files[i].Filename,
			Mime:         files[i].ContentType,
			Size:         s.Size,
			SavedName:    s.SavedName,
			Category:     category,
			DocType:      null.NewString(strings.TrimSpace(docType), strings.TrimSpace(docType) != ""),
			Status:       entities.DocumentPending,
			CreatedAt:    now,
		})
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		for _, up := range uploads {
			if err := u.uploadRepo.Create(txCtx, up); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		removeAll(ctx, u.files, area, stored)
		return nil, err
	}

	logger.Info(ctx, "Documents uploaded",
		zap.String("user_id", userID.String()),
		zap.String("category", string(category)),
		zap.Int("count", len(uploads)),
	)
	return uploads, nil
}

// ListMine lists the caller's uploads, optionally for one category.
func (u *DocumentUsecase) ListMine(ctx context.Context, userID uuid.UUID, category entities.Category) ([]*entities.Upload, error) {
	if category != "" && !category.Valid() {
		return nil, domainerrors.BadRequest("invalid category")
	}
	return u.uploadRepo.ListByUser(ctx, userID, category)
}

// Open returns an upload and its content for the owner or an admin.
func (u *DocumentUsecase) Open(ctx context.Context, actor entities.Actor, savedName string) (*entities.Upload, *os.File, error) {
	up, err := u.uploadRepo.GetBySavedName(ctx, savedName)
	if err != nil {
		return nil, nil, err
	}
	if !actor.CanAccess(up.UserID) {
		return nil, nil, domainerrors.Forbidden("no access to this file")
	}
	f, err := u.files.Open(uploadArea(up.Category), up.SavedName)
	if err != nil {
		return nil, nil, err
	}
	return up, f, nil
}

// storeAll writes files to area. On any failure the files already written
// are removed again.
func storeAll(fs FileStore, area string, files []entities.IncomingFile, maxFiles int, maxSize int64) ([]*entities.StoredFile, error) {
	if len(files) == 0 {
		return nil, domainerrors.BadRequest("no files uploaded").WithReason("no_files")
	}
	if maxFiles > 0 && len(files) > maxFiles {
		return nil, domainerrors.BadRequest("too many files").WithDetail("maxFiles", maxFiles)
	}

	for i := range files {
		if err := sniffDocument(&files[i]); err != nil {
			return nil, err
		}
	}

	stored := make([]*entities.StoredFile, 0, len(files))
	for _, f := range files {
		s, err := fs.Save(area, f.Filename, f.Body, maxSize)
		if err != nil {
			removeAll(context.Background(), fs, area, stored)
			return nil, err
		}
		stored = append(stored, s)
	}
	return stored, nil
}

// sniffDocument types a file from its leading bytes and rejects anything
// that is not an image or a PDF. The declared Content-Type is replaced by
// the detected one.
func sniffDocument(f *entities.IncomingFile) error {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return domainerrors.BadRequest("unreadable file")
	}
	head = head[:n]

	detected, ok := entities.DocumentType(http.DetectContentType(head))
	if !ok {
		return domainerrors.UnsupportedMediaType("only image or PDF files are allowed").
			WithReason("unsupported_type").
			WithDetail("filename", f.Filename)
	}
	f.ContentType = detected
	f.Body = io.MultiReader(bytes.NewReader(head), f.Body)
	return nil
}

func removeAll(ctx context.Context, fs FileStore, area string, stored []*entities.StoredFile) {
	for _, s := range stored {
		if err := fs.Remove(area, s.SavedName); err != nil {
			logger.Warn(ctx, "Failed to remove stored file", zap.String("saved_name", s.SavedName), zap.Error(err))
		}
	}
}
