package usecases

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/infrastructure/vendors"
)

// IdentityVerifier checks an identity-document image.
type IdentityVerifier interface {
	VerifyIDCard(ctx context.Context, doc entities.IdentityDocument) (*vendors.IdentityResult, error)
	TestMode() bool
}

// DepositVerifier runs the 1-won micro-deposit check.
type DepositVerifier interface {
	Start(ctx context.Context, in vendors.OneWonStart) (*vendors.OneWonStarted, error)
	Confirm(ctx context.Context, requestID, code string) (*vendors.OneWonConfirmed, error)
	TestMode() bool
}

// RealnameLookup returns the registered holder of a bank account.
type RealnameLookup interface {
	Realname(ctx context.Context, bankCode, accountNo string) (*vendors.RealnameResult, error)
	TestMode() bool
}

// RegistryIssuer issues and downloads registry documents.
type RegistryIssuer interface {
	IssueRegistry(ctx context.Context, criteria entities.RegistryCriteria) (*vendors.RegistryJob, error)
	DownloadRegistry(ctx context.Context, jobID string) (*vendors.RegistryDownload, error)
	PollAttempts() int
}

// PaymentGateway is the hosted payment page provider.
type PaymentGateway interface {
	BuildAuthForm(order vendors.AuthOrder) (*entities.GatewayAuthForm, error)
	VerifyCallbackSignature(p entities.GatewayReturn) bool
	Approve(ctx context.Context, p entities.GatewayReturn) (*vendors.GatewayApproval, error)
}

// AlimtalkSender delivers template messages.
type AlimtalkSender interface {
	Send(ctx context.Context, msg vendors.AlimtalkMessage) (*vendors.AlimtalkResult, error)
	Enabled() bool
}

// FileStore keeps uploaded documents.
type FileStore interface {
	Save(area, originalName string, r io.Reader, maxBytes int64) (*entities.StoredFile, error)
	Open(area, savedName string) (*os.File, error)
	Remove(area, savedName string) error
}

// Locker serializes work on a key across instances.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// upstreamError converts a vendor failure into the client-facing error. The
// vendor detail stays in the wrapped error for logging.
func upstreamError(message string, err error) error {
	var ve *vendors.Error
	if errors.As(err, &ve) {
		return domainerrors.Upstream(message, err)
	}
	return err
}

// detach keeps request values (ids for logging) but drops cancellation so a
// client disconnect cannot abort an in-flight vendor call.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
