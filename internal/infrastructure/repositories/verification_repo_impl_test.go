package repositories

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"kailospay.backend/internal/domain/entities"
	domainerrors "kailospay.backend/internal/domain/errors"
)

func TestVerificationEventRepository_LatestWins(t *testing.T) {
	db := newTestDB(t)
	createVerificationTables(t, db)
	repo := NewVerificationEventRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	base := time.Now().Add(-time.Hour)

	first := &entities.VerificationEvent{
		ID: uuid.New(), UserID: uuid.NullUUID{UUID: userID, Valid: true}, Kind: entities.VerificationIDCard,
		Provider: "clova", Status: entities.VerificationRejected, Score: null.Float64From(0.4),
		Raw: json.RawMessage(`{"result":"FAILURE"}`), CreatedAt: base,
	}
	second := &entities.VerificationEvent{
		ID: uuid.New(), UserID: uuid.NullUUID{UUID: userID, Valid: true}, Kind: entities.VerificationIDCard,
		Provider: "clova", Status: entities.VerificationVerified, Score: null.Float64From(0.98),
		State: null.StringFrom("SUCCESS"), CreatedAt: base.Add(time.Minute),
	}
	orphan := &entities.VerificationEvent{
		ID: uuid.New(), Kind: entities.VerificationIDCard, Provider: "clova",
		Status: entities.VerificationRejected, CreatedAt: base,
	}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, orphan))

	latest, err := repo.LatestByUser(ctx, userID, entities.VerificationIDCard)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
	require.Equal(t, 0.98, latest.Score.Float64)
	require.Equal(t, "SUCCESS", latest.State.String)

	all, err := repo.ListByUser(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, second.ID, all[0].ID)
	require.JSONEq(t, `{"result":"FAILURE"}`, string(all[1].Raw))

	_, err = repo.LatestByUser(ctx, userID, entities.VerificationAccount)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestVerificationEventRepository_LatestByContract(t *testing.T) {
	db := newTestDB(t)
	createVerificationTables(t, db)
	repo := NewVerificationEventRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	contractID := uuid.New()
	otherContract := uuid.New()
	base := time.Now().Add(-time.Hour)
	user := uuid.NullUUID{UUID: userID, Valid: true}

	events := []*entities.VerificationEvent{
		{ID: uuid.New(), UserID: user, ContractID: uuid.NullUUID{UUID: contractID, Valid: true},
			Kind: entities.VerificationIDCard, Provider: "clova", Status: entities.VerificationRejected, CreatedAt: base},
		{ID: uuid.New(), UserID: user, ContractID: uuid.NullUUID{UUID: contractID, Valid: true},
			Kind: entities.VerificationIDCard, Provider: "clova", Status: entities.VerificationVerified, CreatedAt: base.Add(time.Minute)},
		{ID: uuid.New(), UserID: user, ContractID: uuid.NullUUID{UUID: otherContract, Valid: true},
			Kind: entities.VerificationIDCard, Provider: "clova", Status: entities.VerificationRejected, CreatedAt: base.Add(2 * time.Minute)},
		{ID: uuid.New(), UserID: user,
			Kind: entities.VerificationIDCard, Provider: "clova", Status: entities.VerificationRejected, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, e := range events {
		require.NoError(t, repo.Create(ctx, e))
	}

	latest, err := repo.LatestByContract(ctx, userID, contractID, entities.VerificationIDCard)
	require.NoError(t, err)
	require.Equal(t, events[1].ID, latest.ID)
	require.Equal(t, contractID, latest.ContractID.UUID)

	_, err = repo.LatestByContract(ctx, uuid.New(), contractID, entities.VerificationIDCard)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = repo.LatestByContract(ctx, userID, contractID, entities.VerificationAccount)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestOneWonRepository_CompleteOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	createVerificationTables(t, db)
	repo := NewOneWonRepository(db)
	ctx := context.Background()

	v := &entities.OneWonVerification{
		ID: uuid.New(), UserID: uuid.New(), RequestID: "onewon_1_abcdef", VerifyType: "TEXT",
		Code: null.StringFrom("KP-123456"), BankCode: "004", AccountNo: "1234567890", AccountName: "홍길동",
		Status: entities.OneWonPending, CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, v))
	require.ErrorIs(t, repo.Create(ctx, v), domainerrors.ErrAlreadyExists)

	got, err := repo.GetByRequestID(ctx, v.RequestID)
	require.NoError(t, err)
	require.Equal(t, "KP-123456", got.Code.String)

	got.Status = entities.OneWonConfirmed
	got.ConfirmedAt = null.TimeFrom(time.Now())
	got.ProviderRaw = json.RawMessage(`{"result":"SUCCESS"}`)
	require.NoError(t, repo.Complete(ctx, got))

	got.Status = entities.OneWonFailed
	require.ErrorIs(t, repo.Complete(ctx, got), domainerrors.ErrInvalidTransition)

	latest, err := repo.LatestByUser(ctx, v.UserID)
	require.NoError(t, err)
	require.Equal(t, entities.OneWonConfirmed, latest.Status)
	require.True(t, latest.ConfirmedAt.Valid)

	_, err = repo.GetByRequestID(ctx, "unknown")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}
