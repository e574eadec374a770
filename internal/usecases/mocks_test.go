package usecases_test

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"kailospay.backend/internal/domain/entities"
	"kailospay.backend/internal/infrastructure/vendors"
	"kailospay.backend/pkg/ratelimit"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

func (m *MockUnitOfWork) WithLock(ctx context.Context) context.Context {
	args := m.Called(ctx)
	return args.Get(0).(context.Context)
}

// passthroughUnitOfWork wires Do and WithLock so they accept any context.
func passthroughUnitOfWork() *MockUnitOfWork {
	uow := new(MockUnitOfWork)
	uow.On("Do", mock.Anything, mock.Anything).Return(nil)
	uow.On("WithLock", mock.Anything).Return(context.Background())
	return uow
}

// Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateEkycStatus(ctx context.Context, id uuid.UUID, status entities.EkycStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateAccountStatus(ctx context.Context, id uuid.UUID, status entities.AccountStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockUserRepository) SetAdmin(ctx context.Context, email string, isAdmin bool) error {
	args := m.Called(ctx, email, isAdmin)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, filter entities.UserFilter) ([]*entities.User, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock VerificationEventRepository
type MockVerificationEventRepository struct {
	mock.Mock
}

func (m *MockVerificationEventRepository) Create(ctx context.Context, event *entities.VerificationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockVerificationEventRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.VerificationEvent, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.VerificationEvent), args.Error(1)
}

func (m *MockVerificationEventRepository) LatestByUser(ctx context.Context, userID uuid.UUID, kind entities.VerificationKind) (*entities.VerificationEvent, error) {
	args := m.Called(ctx, userID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.VerificationEvent), args.Error(1)
}

func (m *MockVerificationEventRepository) LatestByContract(ctx context.Context, userID, contractID uuid.UUID, kind entities.VerificationKind) (*entities.VerificationEvent, error) {
	args := m.Called(ctx, userID, contractID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.VerificationEvent), args.Error(1)
}

// Mock OneWonRepository
type MockOneWonRepository struct {
	mock.Mock
}

func (m *MockOneWonRepository) Create(ctx context.Context, v *entities.OneWonVerification) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockOneWonRepository) GetByRequestID(ctx context.Context, requestID string) (*entities.OneWonVerification, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.OneWonVerification), args.Error(1)
}

func (m *MockOneWonRepository) Complete(ctx context.Context, v *entities.OneWonVerification) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockOneWonRepository) LatestByUser(ctx context.Context, userID uuid.UUID) (*entities.OneWonVerification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.OneWonVerification), args.Error(1)
}

// Mock ContractRepository
type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) Create(ctx context.Context, contract *entities.Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Contract), args.Error(1)
}

func (m *MockContractRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Contract, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Contract), args.Error(1)
}

func (m *MockContractRepository) List(ctx context.Context, filter entities.ContractFilter) ([]*entities.Contract, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Contract), args.Get(1).(int64), args.Error(2)
}

func (m *MockContractRepository) Update(ctx context.Context, contract *entities.Contract, from ...entities.ContractStatus) error {
	args := m.Called(ctx, contract, from)
	return args.Error(0)
}

func (m *MockContractRepository) CountByStatus(ctx context.Context, status entities.ContractStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// Mock ContractFileRepository
type MockContractFileRepository struct {
	mock.Mock
}

func (m *MockContractFileRepository) Create(ctx context.Context, file *entities.ContractFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockContractFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.ContractFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ContractFile), args.Error(1)
}

func (m *MockContractFileRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*entities.ContractFile, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ContractFile), args.Error(1)
}

func (m *MockContractFileRepository) CountByContract(ctx context.Context, contractID uuid.UUID, status entities.DocumentStatus) (int64, error) {
	args := m.Called(ctx, contractID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockContractFileRepository) ApprovePending(ctx context.Context, contractID uuid.UUID, review entities.DocumentReview) error {
	args := m.Called(ctx, contractID, review)
	return args.Error(0)
}

// Mock UploadRepository
type MockUploadRepository struct {
	mock.Mock
}

func (m *MockUploadRepository) Create(ctx context.Context, upload *entities.Upload) error {
	args := m.Called(ctx, upload)
	return args.Error(0)
}

func (m *MockUploadRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Upload, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Upload), args.Error(1)
}

func (m *MockUploadRepository) GetBySavedName(ctx context.Context, savedName string) (*entities.Upload, error) {
	args := m.Called(ctx, savedName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Upload), args.Error(1)
}

func (m *MockUploadRepository) ListByUser(ctx context.Context, userID uuid.UUID, category entities.Category) ([]*entities.Upload, error) {
	args := m.Called(ctx, userID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Upload), args.Error(1)
}

func (m *MockUploadRepository) List(ctx context.Context, filter entities.UploadFilter) ([]*entities.Upload, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Upload), args.Get(1).(int64), args.Error(2)
}

func (m *MockUploadRepository) Review(ctx context.Context, id uuid.UUID, review entities.DocumentReview) error {
	args := m.Called(ctx, id, review)
	return args.Error(0)
}

func (m *MockUploadRepository) CountForUser(ctx context.Context, userID uuid.UUID, category entities.Category, status entities.DocumentStatus) (int64, error) {
	args := m.Called(ctx, userID, category, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUploadRepository) CountByStatus(ctx context.Context, status entities.DocumentStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// Mock PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *entities.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*entities.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.Payment, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) List(ctx context.Context, filter entities.PaymentFilter) ([]*entities.Payment, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) Transition(ctx context.Context, orderID uuid.UUID, tr entities.PaymentTransition) error {
	args := m.Called(ctx, orderID, tr)
	return args.Error(0)
}

func (m *MockPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPaymentRepository) CountByStatus(ctx context.Context, status entities.PaymentStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// Mock RegistryRepository
type MockRegistryRepository struct {
	mock.Mock
}

func (m *MockRegistryRepository) Create(ctx context.Context, req *entities.RegistryRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRegistryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.RegistryRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RegistryRequest), args.Error(1)
}

func (m *MockRegistryRepository) GetByUniqueKey(ctx context.Context, key string) (*entities.RegistryRequest, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RegistryRequest), args.Error(1)
}

func (m *MockRegistryRepository) Update(ctx context.Context, req *entities.RegistryRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// Mock IdentityVerifier
type MockIdentityVerifier struct {
	mock.Mock
}

func (m *MockIdentityVerifier) VerifyIDCard(ctx context.Context, doc entities.IdentityDocument) (*vendors.IdentityResult, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendors.IdentityResult), args.Error(1)
}

func (m *MockIdentityVerifier) TestMode() bool {
	return false
}

// Mock DepositVerifier
type MockDepositVerifier struct {
	mock.Mock
}

func (m *MockDepositVerifier) Start(ctx context.Context, in vendors.OneWonStart) (*vendors.OneWonStarted, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendors.OneWonStarted), args.Error(1)
}

func (m *MockDepositVerifier) Confirm(ctx context.Context, requestID, code string) (*vendors.OneWonConfirmed, error) {
	args := m.Called(ctx, requestID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendors.OneWonConfirmed), args.Error(1)
}

func (m *MockDepositVerifier) TestMode() bool {
	return false
}

// Mock RealnameLookup
type MockRealnameLookup struct {
	mock.Mock
	testMode bool
}

func (m *MockRealnameLookup) Realname(ctx context.Context, bankCode, accountNo string) (*vendors.RealnameResult, error) {
	args := m.Called(ctx, bankCode, accountNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendors.RealnameResult), args.Error(1)
}

func (m *MockRealnameLookup) TestMode() bool {
	return m.testMode
}

// Mock RegistryIssuer
type MockRegistryIssuer struct {
	mock.Mock
	attempts int
}

func (m *MockRegistryIssuer) IssueRegistry(ctx context.Context, criteria entities.RegistryCriteria) (*vendors.RegistryJob, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendors.RegistryJob), args.Error(1)
}

func (m *MockRegistryIssuer) DownloadRegistry(ctx context.Context, jobID string) (*vendors.RegistryDownload, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendors.RegistryDownload), args.Error(1)
}

func (m *MockRegistryIssuer) PollAttempts() int {
	if m.attempts <= 0 {
		return 1
	}
	return m.attempts
}

// Mock PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) BuildAuthForm(order vendors.AuthOrder) (*entities.GatewayAuthForm, error) {
	args := m.Called(order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GatewayAuthForm), args.Error(1)
}

func (m *MockPaymentGateway) VerifyCallbackSignature(p entities.GatewayReturn) bool {
	args := m.Called(p)
	return args.Bool(0)
}

func (m *MockPaymentGateway) Approve(ctx context.Context, p entities.GatewayReturn) (*vendors.GatewayApproval, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendors.GatewayApproval), args.Error(1)
}

// Mock AlimtalkSender
type MockAlimtalkSender struct {
	mock.Mock
	enabled bool
}

func (m *MockAlimtalkSender) Send(ctx context.Context, msg vendors.AlimtalkMessage) (*vendors.AlimtalkResult, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendors.AlimtalkResult), args.Error(1)
}

func (m *MockAlimtalkSender) Enabled() bool {
	return m.enabled
}

// Mock FileStore
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(area, originalName string, r io.Reader, maxBytes int64) (*entities.StoredFile, error) {
	args := m.Called(area, originalName, r, maxBytes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.StoredFile), args.Error(1)
}

func (m *MockFileStore) Open(area, savedName string) (*os.File, error) {
	args := m.Called(area, savedName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*os.File), args.Error(1)
}

func (m *MockFileStore) Remove(area, savedName string) error {
	args := m.Called(area, savedName)
	return args.Error(0)
}

// Mock Locker
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

// Mock RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit ratelimit.Limit) (*ratelimit.Result, error) {
	args := m.Called(ctx, key, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ratelimit.Result), args.Error(1)
}

// recordingNotifier keeps every notification it was asked to send.
type recordingNotifier struct {
	mu        sync.Mutex
	paid      []*entities.Payment
	submitted []*entities.Contract
	reviewed  []*entities.Contract
}

func (n *recordingNotifier) PaymentPaid(_ context.Context, p *entities.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paid = append(n.paid, p)
}

func (n *recordingNotifier) ContractSubmitted(_ context.Context, c *entities.Contract) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, c)
}

func (n *recordingNotifier) ContractReviewed(_ context.Context, c *entities.Contract) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reviewed = append(n.reviewed, c)
}
