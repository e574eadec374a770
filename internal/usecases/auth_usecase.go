package usecases

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/domain/repositories"
	"kailospay.backend/internal/infrastructure/vendors"
	"kailospay.backend/pkg/crypto"
	"kailospay.backend/pkg/jwt"
	"kailospay.backend/pkg/logger"
	"kailospay.backend/pkg/utils"
)

var phonePattern = regexp.MustCompile(`^\+?\d{9,15}$`)

// normalizePhone strips separators; ok is false when the rest is not a phone number.
func normalizePhone(raw string) (string, bool) {
	p := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(raw))
	return p, phonePattern.MatchString(p)
}

// AuthUsecase handles signup, login and the caller's own profile.
type AuthUsecase struct {
	userRepo      repositories.UserRepository
	store         *VerificationStore
	identity      IdentityVerifier
	uow           repositories.UnitOfWork
	jwtService    *jwt.JWTService
	maxImageBytes int64
	now           func() time.Time
}

// NewAuthUsecase creates a new auth usecase
func NewAuthUsecase(
	userRepo repositories.UserRepository,
	store *VerificationStore,
	identity IdentityVerifier,
	uow repositories.UnitOfWork,
	jwtService *jwt.JWTService,
	maxImageBytes int64,
) *AuthUsecase {
	return &AuthUsecase{
		userRepo:      userRepo,
		store:         store,
		identity:      identity,
		uow:           uow,
		jwtService:    jwtService,
		maxImageBytes: maxImageBytes,
		now:           time.Now,
	}
}

// Signup creates a user only after the id-card image passes verification.
// Every verification attempt is recorded, including rejected ones.
func (u *AuthUsecase) Signup(ctx context.Context, input *entities.SignupInput) (*entities.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	phone, ok := normalizePhone(input.Phone)
	switch {
	case email == "" || strings.TrimSpace(input.Name) == "":
		return nil, domainerrors.BadRequest("name and email are required")
	case !ok:
		return nil, domainerrors.BadRequest("invalid phone number").WithReason("invalid_phone")
	case len(input.Password) < 8:
		return nil, domainerrors.BadRequest("password must be at least 8 characters").WithReason("weak_password")
	}
	if err := checkIdentityImage(input.IDCard, u.maxImageBytes); err != nil {
		return nil, err
	}

	_, err := u.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, domainerrors.Conflict("email already registered")
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	passwordHash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	res, err := u.identity.VerifyIDCard(detach(ctx), *input.IDCard)
	if err != nil {
		recordIdentityError(ctx, u.store, uuid.NullUUID{}, uuid.NullUUID{}, err)
		return nil, upstreamError("identity verification unavailable", err)
	}

	userID := utils.GenerateUUIDv7()
	event := identityEvent(res)
	if res.Verified {
		event.UserID = uuid.NullUUID{UUID: userID, Valid: true}
	}
	eventID, err := u.store.RecordEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	if !res.Verified {
		logger.Info(ctx, "Signup identity rejected",
			zap.String("email", email),
			zap.String("state", res.State),
			zap.Strings("reasons", res.QualityReasons),
		)
		return nil, identityRejected(res)
	}

	now := u.now()
	user := &entities.User{
		ID:             userID,
		Email:          email,
		Name:           strings.TrimSpace(input.Name),
		Phone:          phone,
		PasswordHash:   passwordHash,
		EkycStatus:     entities.EkycVerified,
		AccountStatus:  entities.AccountUnverified,
		EkycRequestID:  null.StringFrom(eventID.String()),
		EkycVerifiedAt: null.TimeFrom(now),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if res.Name != "" {
		user.FullName = null.StringFrom(res.Name)
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		return u.userRepo.Create(txCtx, user)
	})
	if err != nil {
		// The verified event stays behind as an audited orphan.
		logger.Error(ctx, "Signup insert failed after verification",
			zap.String("event_id", eventID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("email already registered")
		}
		return nil, err
	}

	logger.Info(ctx, "User signed up", zap.String("user_id", userID.String()))
	return user, nil
}

// Login authenticates a user and returns a token
func (u *AuthUsecase) Login(ctx context.Context, input *entities.LoginInput) (*entities.AuthResponse, error) {
	user, err := u.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.CheckPassword(input.Password, user.PasswordHash) {
		return nil, domainerrors.ErrInvalidCredentials
	}

	token, err := u.jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &entities.AuthResponse{
		Token:     token,
		ExpiresIn: int64(u.jwtService.Expiry().Seconds()),
		User:      user,
	}, nil
}

// Me returns the caller's account.
func (u *AuthUsecase) Me(ctx context.Context, userID uuid.UUID) (*entities.User, error) {
	return u.userRepo.GetByID(ctx, userID)
}

// UpdateProfile changes the caller's editable profile fields.
func (u *AuthUsecase) UpdateProfile(ctx context.Context, userID uuid.UUID, input *entities.UpdateProfileInput) (*entities.User, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, domainerrors.BadRequest("name cannot be empty")
		}
		user.Name = name
	}
	if input.FullName != nil {
		user.FullName = null.NewString(strings.TrimSpace(*input.FullName), strings.TrimSpace(*input.FullName) != "")
	}
	if input.Phone != nil {
		phone, ok := normalizePhone(*input.Phone)
		if !ok {
			return nil, domainerrors.BadRequest("invalid phone number").WithReason("invalid_phone")
		}
		user.Phone = phone
	}
	if input.MarketingOptIn != nil {
		user.MarketingOptIn = *input.MarketingOptIn
	}
	user.UpdatedAt = u.now()

	if err := u.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func checkIdentityImage(doc *entities.IdentityDocument, maxBytes int64) error {
	if doc == nil || len(doc.Content) == 0 {
		return domainerrors.BadRequest("id card image is required").WithReason("idcard_required")
	}
	if maxBytes > 0 && int64(len(doc.Content)) > maxBytes {
		return domainerrors.PayloadTooLarge("id card image too large")
	}
	if doc.ContentType != "" && !strings.HasPrefix(doc.ContentType, "image/") {
		return domainerrors.BadRequest("id card must be an image").WithReason("unsupported_media")
	}
	return nil
}

func identityEvent(res *vendors.IdentityResult) *entities.VerificationEvent {
	status := entities.VerificationRejected
	if res.Verified {
		status = entities.VerificationVerified
	}
	return &entities.VerificationEvent{
		Kind:     entities.VerificationIDCard,
		Provider: vendors.VendorClova,
		Status:   status,
		Score:    res.Score,
		State:    null.NewString(res.State, res.State != ""),
		Raw:      res.Raw,
	}
}

// recordIdentityError audits a vendor failure. The vendor error is what the
// caller sees, so a failed audit write is only logged.
func recordIdentityError(ctx context.Context, store *VerificationStore, userID, contractID uuid.NullUUID, cause error) {
	event := &entities.VerificationEvent{
		UserID:     userID,
		ContractID: contractID,
		Kind:       entities.VerificationIDCard,
		Provider:   vendors.VendorClova,
		Status:     entities.VerificationError,
	}
	var ve *vendors.Error
	if errors.As(cause, &ve) {
		event.State = null.StringFrom(string(ve.Kind))
	}
	if _, err := store.RecordEvent(ctx, event); err != nil {
		logger.Error(ctx, "Failed to record identity error event", zap.Error(err))
	}
}

func identityRejected(res *vendors.IdentityResult) error {
	appErr := domainerrors.BadRequest("id card verification failed").
		WithReason("identity_rejected").
		WithDetail("state", res.State)
	if res.Score.Valid {
		appErr.WithDetail("score", res.Score.Float64)
	} else {
		appErr.WithDetail("score", nil)
	}
	if len(res.QualityReasons) > 0 {
		appErr.WithDetail("reasons", res.QualityReasons)
	}
	return appErr
}
