package usecases

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/domain/repositories"
	"kailospay.backend/internal/infrastructure/storage"
	"kailospay.backend/internal/infrastructure/vendors"
	"kailospay.backend/pkg/logger"
	redispkg "kailospay.backend/pkg/redis"
	"kailospay.backend/pkg/utils"
)

const (
	registryLockTTL   = 2 * time.Minute
	registryMaxPDF    = 20 << 20
	registryLockSpace = "lock:registry:"
)

// RegistryUsecase issues registry documents. One unique key costs at most
// one vendor issuance.
type RegistryUsecase struct {
	registryRepo repositories.RegistryRepository
	issuer       RegistryIssuer
	files        FileStore
	locker       Locker
	pollInterval time.Duration
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewRegistryUsecase creates a new registry usecase
func NewRegistryUsecase(
	registryRepo repositories.RegistryRepository,
	issuer RegistryIssuer,
	files FileStore,
	locker Locker,
	pollInterval time.Duration,
) *RegistryUsecase {
	return &RegistryUsecase{
		registryRepo: registryRepo,
		issuer:       issuer,
		files:        files,
		locker:       locker,
		pollInterval: pollInterval,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

// Issue returns the existing request for the criteria or starts a new one.
func (u *RegistryUsecase) Issue(ctx context.Context, userID uuid.UUID, input *entities.IssueRegistryInput) (*entities.RegistryRequest, error) {
	criteria := input.Criteria()
	if criteria.Empty() {
		return nil, domainerrors.BadRequest("addr, reg_num or biz_num is required")
	}
	key := criteria.UniqueKey()

	if existing, err := u.byKey(ctx, key); err != nil || existing != nil {
		return existing, err
	}

	release, err := u.locker.Lock(ctx, registryLockSpace+key, registryLockTTL)
	if err != nil {
		if errors.Is(err, redispkg.ErrLockHeld) {
			return nil, domainerrors.Conflict("registry issuance already in progress").WithReason("in_progress")
		}
		return nil, fmt.Errorf("failed to lock registry key: %w", err)
	}
	defer release()

	// Another issuer may have finished between the lookup and the lock.
	if existing, err := u.byKey(ctx, key); err != nil || existing != nil {
		return existing, err
	}

	job, err := u.issuer.IssueRegistry(detach(ctx), criteria)
	if err != nil {
		return nil, upstreamError("registry issuance failed", err)
	}

	now := u.now()
	req := &entities.RegistryRequest{
		ID:         utils.GenerateUUIDv7(),
		UserID:     userID,
		Vendor:     vendors.VendorApick,
		Address:    null.NewString(criteria.Address, criteria.Address != ""),
		UniqueKey:  key,
		ExternalID: null.StringFrom(job.JobID),
		Status:     entities.RegistryPending,
		CostPoint:  job.Cost,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := u.registryRepo.Create(ctx, req); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			logger.Error(ctx, "Registry key issued twice", zap.String("unique_key", key), zap.String("job_id", job.JobID))
			return u.registryRepo.GetByUniqueKey(ctx, key)
		}
		return nil, err
	}

	logger.Info(ctx, "Registry issuance started",
		zap.String("registry_id", req.ID.String()),
		zap.String("job_id", job.JobID),
	)
	return req, nil
}

// Status polls the vendor once for a pending request.
func (u *RegistryUsecase) Status(ctx context.Context, id uuid.UUID) (*entities.RegistryRequest, error) {
	req, err := u.registryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return req, nil
	}
	if err := u.poll(ctx, req, 1); err != nil {
		return nil, err
	}
	return req, nil
}

// Download waits for the document with a bounded poll and opens the stored PDF.
func (u *RegistryUsecase) Download(ctx context.Context, id uuid.UUID) (*entities.RegistryRequest, *os.File, error) {
	req, err := u.registryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !req.Status.Terminal() {
		if err := u.poll(ctx, req, u.issuer.PollAttempts()); err != nil {
			return nil, nil, err
		}
	}

	switch req.Status {
	case entities.RegistryPending:
		return req, nil, domainerrors.Conflict("registry document not ready").WithReason("pending")
	case entities.RegistryFailed:
		return req, nil, domainerrors.NotFound("registry issuance failed").WithReason("failed")
	}
	if !req.SavedFile.Valid {
		return req, nil, domainerrors.NotFound("registry document missing")
	}

	f, err := u.files.Open(storage.AreaRegistry, req.SavedFile.String)
	if err != nil {
		return req, nil, err
	}
	return req, f, nil
}

// poll asks the vendor up to attempts times and persists the first terminal state.
func (u *RegistryUsecase) poll(ctx context.Context, req *entities.RegistryRequest, attempts int) error {
	if !req.ExternalID.Valid {
		return domainerrors.NotFound("registry job id missing")
	}
	vctx := detach(ctx)

	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := u.sleep(ctx, u.pollInterval); err != nil {
				return err
			}
		}
		dl, err := u.issuer.DownloadRegistry(vctx, req.ExternalID.String)
		if err != nil {
			return upstreamError("registry download failed", err)
		}

		switch dl.State {
		case entities.RegistryPending:
			continue
		case entities.RegistryReady:
			stored, err := u.files.Save(storage.AreaRegistry, req.ExternalID.String+".pdf", bytes.NewReader(dl.PDF), registryMaxPDF)
			if err != nil {
				return err
			}
			req.SavedFile = null.StringFrom(stored.SavedName)
			req.Message = null.String{}
		default:
			req.Message = null.StringFrom("vendor reported failure")
		}
		req.Status = dl.State
		req.UpdatedAt = u.now()
		if err := u.registryRepo.Update(ctx, req); err != nil {
			return err
		}
		logger.Info(ctx, "Registry request completed",
			zap.String("registry_id", req.ID.String()),
			zap.String("status", string(req.Status)),
		)
		return nil
	}
	return nil
}

func (u *RegistryUsecase) byKey(ctx context.Context, key string) (*entities.RegistryRequest, error) {
	req, err := u.registryRepo.GetByUniqueKey(ctx, key)
	if errors.Is(err, domainerrors.ErrNotFound) {
		return nil, nil
	}
	return req, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
