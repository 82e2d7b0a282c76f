package rollback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/leasewise/leasewise-backend/pkg/db/dbtest"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
	pkgerrors "github.com/leasewise/leasewise-backend/pkg/errors"
)

type fakeRestorer struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeRestorer) Restore(_ context.Context, _ uuid.UUID, versionID uuid.UUID) (*models.PreferenceVersion, error) {
	f.calls = append(f.calls, versionID)
	if f.err != nil {
		return nil, f.err
	}
	return &models.PreferenceVersion{ID: uuid.New()}, nil
}

func seedSuggestion(t *testing.T, repo Repository, owner uuid.UUID, status enums.SuggestionStatus) models.RollbackSuggestion {
	t.Helper()
	s := models.RollbackSuggestion{
		OwnerID:            owner,
		FailureRecordID:    uuid.New(),
		SuggestedVersionID: uuid.New(),
		Reason:             "3 consecutive failures",
		Confidence:         60,
		Status:             status,
	}
	ok, err := repo.Create(context.Background(), &s)
	require.NoError(t, err)
	require.True(t, ok)
	return s
}

func newRollbackService(t *testing.T, restorer Restorer) (Service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{Repo: repo, Restorer: restorer, Now: func() time.Time { return now }})
	require.NoError(t, err)
	return svc, repo
}

func TestApplyRestoresSuggestedVersion(t *testing.T) {
	ctx := context.Background()
	restorer := &fakeRestorer{}
	svc, repo := newRollbackService(t, restorer)
	owner := uuid.New()
	s := seedSuggestion(t, repo, owner, enums.SuggestionStatusPending)

	got, err := svc.Apply(ctx, owner, s.ID)
	require.NoError(t, err)
	require.Equal(t, "applied", got.Status)
	require.NotNil(t, got.DecidedAt)
	require.Equal(t, []uuid.UUID{s.SuggestedVersionID}, restorer.calls)

	_, err = svc.Reject(ctx, owner, s.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestApplyLeavesStatusWhenRestoreFails(t *testing.T) {
	ctx := context.Background()
	restorer := &fakeRestorer{err: errors.New("db down")}
	svc, repo := newRollbackService(t, restorer)
	owner := uuid.New()
	s := seedSuggestion(t, repo, owner, enums.SuggestionStatusAccepted)

	_, err := svc.Apply(ctx, owner, s.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	stored, err := repo.FindForOwner(ctx, owner, s.ID)
	require.NoError(t, err)
	require.Equal(t, enums.SuggestionStatusAccepted, stored.Status)
}

func TestDecisionTransitions(t *testing.T) {
	ctx := context.Background()
	svc, repo := newRollbackService(t, &fakeRestorer{})
	owner := uuid.New()

	pending := seedSuggestion(t, repo, owner, enums.SuggestionStatusPending)
	accepted, err := svc.Accept(ctx, owner, pending.ID)
	require.NoError(t, err)
	require.Equal(t, "accepted", accepted.Status)

	rejected, err := svc.Reject(ctx, owner, pending.ID)
	require.NoError(t, err)
	require.Equal(t, "rejected", rejected.Status)

	_, err = svc.Accept(ctx, owner, pending.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.Accept(ctx, uuid.New(), pending.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	svc, repo := newRollbackService(t, &fakeRestorer{})
	owner := uuid.New()
	seedSuggestion(t, repo, owner, enums.SuggestionStatusPending)
	seedSuggestion(t, repo, owner, enums.SuggestionStatusRejected)
	seedSuggestion(t, repo, uuid.New(), enums.SuggestionStatusPending)

	all, err := svc.List(ctx, owner, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	pending, err := svc.List(ctx, owner, "pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.List(ctx, owner, "maybe")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
