package usecases_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/infrastructure/vendors"
	"kailospay.backend/internal/usecases"
)

type verificationFixture struct {
	*storeFixture
	oneWon   *MockOneWonRepository
	identity *MockIdentityVerifier
	uc       *usecases.VerificationUsecase
}

func newVerificationFixture() *verificationFixture {
	f := &verificationFixture{
		storeFixture: newStoreFixture(),
		oneWon:       new(MockOneWonRepository),
		identity:     new(MockIdentityVerifier),
	}
	f.uc = usecases.NewVerificationUsecase(f.users, f.events, f.oneWon, f.uploads, f.contracts, f.store, f.identity, 1<<20)
	return f
}

func idCard() *entities.IdentityDocument {
	return &entities.IdentityDocument{Filename: "id.png", ContentType: "image/png", Content: []byte("png")}
}

func TestVerificationUsecase_VerifyIDCard_RejectionKeepsVerifiedUser(t *testing.T) {
	userID := uuid.New()
	f := newVerificationFixture()

	f.identity.On("VerifyIDCard", mock.Anything, mock.Anything).
		Return(&vendors.IdentityResult{Verified: false, State: "REJECTED"}, nil).Once()
	f.events.On("Create", mock.Anything, mock.MatchedBy(func(e *entities.VerificationEvent) bool {
		return e.UserID.UUID == userID && e.Status == entities.VerificationRejected
	})).Return(nil).Once()
	f.users.On("GetByID", mock.Anything, userID).Return(&entities.User{ID: userID, EkycStatus: entities.EkycVerified}, nil)

	_, err := f.uc.VerifyIDCard(context.Background(), userID, nil, idCard())
	appErr := appError(t, err)
	assert.Equal(t, "identity_rejected", appErr.Reason)
	assert.Nil(t, appErr.Details["score"])
	f.users.AssertNotCalled(t, "UpdateEkycStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerificationUsecase_VerifyIDCard_WithContract(t *testing.T) {
	userID := uuid.New()
	contractID := uuid.New()
	f := newVerificationFixture()

	f.contracts.On("GetByID", mock.Anything, contractID).Return(&entities.Contract{ID: contractID, UserID: userID}, nil).Once()
	f.identity.On("VerifyIDCard", mock.Anything, mock.Anything).
		Return(&vendors.IdentityResult{Verified: true, Score: null.Float64From(0.9), State: "APPROVED"}, nil).Once()
	f.events.On("Create", mock.Anything, mock.MatchedBy(func(e *entities.VerificationEvent) bool {
		return e.ContractID.UUID == contractID && e.Status == entities.VerificationVerified
	})).Return(nil).Once()
	f.users.On("GetByID", mock.Anything, userID).Return(&entities.User{ID: userID, EkycStatus: entities.EkycRejected}, nil)
	f.users.On("UpdateEkycStatus", mock.Anything, userID, entities.EkycVerified).Return(nil).Once()

	out, err := f.uc.VerifyIDCard(context.Background(), userID, &contractID, idCard())
	require.NoError(t, err)
	assert.True(t, out.Verified)
	assert.Equal(t, "APPROVED", out.State.String)
	f.users.AssertExpectations(t)
}

func TestVerificationUsecase_Summary(t *testing.T) {
	userID := uuid.New()
	f := newVerificationFixture()

	f.users.On("GetByID", mock.Anything, userID).
		Return(&entities.User{ID: userID, EkycStatus: entities.EkycVerified, AccountStatus: entities.AccountVerified}, nil)
	f.events.On("LatestByUser", mock.Anything, userID, entities.VerificationIDCard).
		Return(&entities.VerificationEvent{ID: uuid.New()}, nil)
	f.oneWon.On("LatestByUser", mock.Anything, userID).Return(nil, domainerrors.ErrNotFound)
	f.uploads.On("CountForUser", mock.Anything, userID, entities.Category(""), entities.DocumentApproved).Return(int64(1), nil)
	f.uploads.On("CountForUser", mock.Anything, userID, entities.Category(""), entities.DocumentPending).Return(int64(2), nil)

	s, err := f.uc.Summary(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, s.VerifiedForPayment)
	assert.Nil(t, s.Account.LatestRequest)
	assert.NotNil(t, s.Ekyc.LatestEvent)
	assert.Equal(t, int64(2), s.Document.Pending)
}

func TestVerificationUsecase_ContractStatus(t *testing.T) {
	userID := uuid.New()
	contractID := uuid.New()
	eventID := uuid.New()
	f := newVerificationFixture()

	f.contracts.On("GetByID", mock.Anything, contractID).Return(&entities.Contract{ID: contractID, UserID: userID}, nil).Once()
	f.users.On("GetByID", mock.Anything, userID).Return(&entities.User{ID: userID, EkycStatus: entities.EkycVerified}, nil).Once()
	f.events.On("LatestByContract", mock.Anything, userID, contractID, entities.VerificationIDCard).
		Return(&entities.VerificationEvent{ID: eventID, Status: entities.VerificationVerified}, nil).Once()

	st, err := f.uc.ContractStatus(context.Background(), userID, contractID)
	require.NoError(t, err)
	assert.Equal(t, contractID, st.ContractID)
	assert.Equal(t, entities.EkycVerified, st.UserEkyc)
	require.NotNil(t, st.LatestEvent)
	assert.Equal(t, eventID, st.LatestEvent.ID)
}

func TestVerificationUsecase_ContractStatus_NoEventYet(t *testing.T) {
	userID := uuid.New()
	contractID := uuid.New()
	f := newVerificationFixture()

	f.contracts.On("GetByID", mock.Anything, contractID).Return(&entities.Contract{ID: contractID, UserID: userID}, nil).Once()
	f.users.On("GetByID", mock.Anything, userID).Return(&entities.User{ID: userID, EkycStatus: entities.EkycRejected}, nil).Once()
	f.events.On("LatestByContract", mock.Anything, userID, contractID, entities.VerificationIDCard).
		Return(nil, domainerrors.ErrNotFound).Once()

	st, err := f.uc.ContractStatus(context.Background(), userID, contractID)
	require.NoError(t, err)
	assert.Nil(t, st.LatestEvent)
	assert.Equal(t, entities.EkycRejected, st.UserEkyc)
}

func TestVerificationUsecase_ContractStatus_ForeignContract(t *testing.T) {
	userID := uuid.New()
	contractID := uuid.New()
	f := newVerificationFixture()

	f.contracts.On("GetByID", mock.Anything, contractID).Return(&entities.Contract{ID: contractID, UserID: uuid.New()}, nil).Once()

	_, err := f.uc.ContractStatus(context.Background(), userID, contractID)
	assert.Equal(t, 404, appError(t, err).Status)
	f.events.AssertNotCalled(t, "LatestByContract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestVerificationUsecase_Events(t *testing.T) {
	userID := uuid.New()
	f := newVerificationFixture()
	f.users.On("GetByID", mock.Anything, userID).Return(&entities.User{ID: userID}, nil)
	f.events.On("ListByUser", mock.Anything, userID, 100).Return([]*entities.VerificationEvent{{}, {}}, nil).Once()

	events, err := f.uc.Events(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
