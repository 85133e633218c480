package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biograph/insights/internal/app/auth"
	"github.com/biograph/insights/internal/app/models"
	"github.com/biograph/insights/internal/app/models/dto"
	"github.com/biograph/insights/internal/curriculum"
	"github.com/biograph/insights/internal/pkg/academicapi"
	"github.com/biograph/insights/internal/pkg/apperrors"
)

type statusFixture struct {
	svc       StatusService
	snapshots *snapshotServiceImpl
	writer    *fakeWriter
	audits    *fakeAudits
}

func newStatusFixture(withAudits bool) *statusFixture {
	f := &statusFixture{
		snapshots: newTestSnapshotService(newFakeUpstream(), nil, nil),
		writer:    &fakeWriter{},
		audits:    &fakeAudits{},
	}
	var audits StatusAuditStore
	if withAudits {
		audits = f.audits
	}
	f.svc = NewStatusService(f.snapshots, f.writer, audits, auth.NewAuthorizationService(), zerolog.Nop())
	return f
}

func TestStatusService_GetStatus(t *testing.T) {
	f := newStatusFixture(true)

	resp, err := f.svc.GetStatus(asStudent(context.Background(), 100), 100, 1)
	require.NoError(t, err)
	assert.Equal(t, curriculum.WireCompleted, resp.Status)

	resp, err = f.svc.GetStatus(asStudent(context.Background(), 100), 100, 4)
	require.NoError(t, err)
	assert.Equal(t, curriculum.WirePending, resp.Status)

	_, err = f.svc.GetStatus(asAdmin(context.Background()), 100, 42)
	assert.True(t, errors.Is(err, curriculum.ErrUnknownDiscipline))
}

func TestStatusService_UpdateAccepted(t *testing.T) {
	f := newStatusFixture(true)
	ctx := asStudent(context.Background(), 100)

	resp, err := f.svc.UpdateStatus(ctx, 100, 2, &dto.UpdateStatusRequest{Status: "cursando"})
	require.NoError(t, err)
	assert.Equal(t, curriculum.WireInProgress, resp.Status)
	assert.Equal(t, []string{"status 100/2 cursando"}, f.writer.recorded())

	current, err := f.svc.GetStatus(ctx, 100, 2)
	require.NoError(t, err)
	assert.Equal(t, curriculum.WireInProgress, current.Status)

	require.Len(t, f.audits.rows, 1)
	row := f.audits.rows[0]
	assert.Equal(t, curriculum.WirePending, row.PreviousStatus)
	assert.Equal(t, curriculum.WireInProgress, row.NewStatus)
	assert.Equal(t, int64(100), row.ActorID)
	assert.Equal(t, models.RoleStudent, row.ActorRole)
}

func TestStatusService_UpdateUnmetPrerequisites(t *testing.T) {
	f := newStatusFixture(true)

	_, err := f.svc.UpdateStatus(asAdmin(context.Background()), 100, 4, &dto.UpdateStatusRequest{Status: "concluido"})
	var unmet *curriculum.PrerequisiteNotSatisfiedError
	require.True(t, errors.As(err, &unmet))
	assert.Equal(t, []int64{2, 3}, unmet.Unmet)
	assert.Empty(t, f.writer.recorded())
	assert.Empty(t, f.audits.rows)
}

func TestStatusService_UpdateInvalidStatus(t *testing.T) {
	f := newStatusFixture(true)

	_, err := f.svc.UpdateStatus(asAdmin(context.Background()), 100, 2, &dto.UpdateStatusRequest{Status: "aprovado"})
	assert.True(t, errors.Is(err, curriculum.ErrInvalidStatus))
}

func TestStatusService_BackwardNeedsAdminOverride(t *testing.T) {
	f := newStatusFixture(true)

	_, err := f.svc.UpdateStatus(asAdmin(context.Background()), 100, 1, &dto.UpdateStatusRequest{Status: "pendente"})
	assert.True(t, errors.Is(err, curriculum.ErrIllegalTransition))

	_, err = f.svc.UpdateStatus(asStudent(context.Background(), 100), 100, 1, &dto.UpdateStatusRequest{Status: "pendente", Override: true})
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))

	resp, err := f.svc.UpdateStatus(asAdmin(context.Background()), 100, 1, &dto.UpdateStatusRequest{Status: "pendente", Override: true})
	require.NoError(t, err)
	assert.Equal(t, curriculum.WirePending, resp.Status)
	require.Len(t, f.audits.rows, 1)
	assert.True(t, f.audits.rows[0].Override)
}

func TestStatusService_SameStatusIsNotForwarded(t *testing.T) {
	f := newStatusFixture(true)

	resp, err := f.svc.UpdateStatus(asAdmin(context.Background()), 100, 1, &dto.UpdateStatusRequest{Status: "concluido"})
	require.NoError(t, err)
	assert.Equal(t, curriculum.WireCompleted, resp.Status)
	assert.Empty(t, f.writer.recorded())
	assert.Empty(t, f.audits.rows)
}

func TestStatusService_OtherStudentForbidden(t *testing.T) {
	f := newStatusFixture(true)

	_, err := f.svc.UpdateStatus(asStudent(context.Background(), 101), 100, 2, &dto.UpdateStatusRequest{Status: "cursando"})
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
}

func TestStatusService_UpstreamFailure(t *testing.T) {
	f := newStatusFixture(true)
	f.writer.err = &academicapi.APIError{StatusCode: 503, Method: "PATCH", Path: "/students/100/disciplines/2/status"}

	_, err := f.svc.UpdateStatus(asAdmin(context.Background()), 100, 2, &dto.UpdateStatusRequest{Status: "cursando"})
	assert.True(t, errors.Is(err, apperrors.ErrUpstreamUnavailable))
	assert.Empty(t, f.audits.rows)

	// The local snapshot is left untouched.
	current, err := f.svc.GetStatus(asAdmin(context.Background()), 100, 2)
	require.NoError(t, err)
	assert.Equal(t, curriculum.WirePending, current.Status)
}

func TestStatusService_UpstreamNotFound(t *testing.T) {
	f := newStatusFixture(true)
	f.writer.err = &academicapi.APIError{StatusCode: 404, Method: "PATCH", Path: "/students/100/disciplines/2/status"}

	_, err := f.svc.UpdateStatus(asAdmin(context.Background()), 100, 2, &dto.UpdateStatusRequest{Status: "cursando"})
	assert.True(t, errors.Is(err, apperrors.ErrResourceNotFound))
}

func TestStatusService_AuditFailureDoesNotFailChange(t *testing.T) {
	f := newStatusFixture(true)
	f.audits.err = errors.New("database is down")

	resp, err := f.svc.UpdateStatus(asAdmin(context.Background()), 100, 2, &dto.UpdateStatusRequest{Status: "cursando"})
	require.NoError(t, err)
	assert.Equal(t, curriculum.WireInProgress, resp.Status)
}

func TestStatusService_History(t *testing.T) {
	f := newStatusFixture(true)
	ctx := asAdmin(context.Background())

	_, err := f.svc.UpdateStatus(ctx, 100, 2, &dto.UpdateStatusRequest{Status: "cursando"})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, 100, 2, &dto.UpdateStatusRequest{Status: "concluido"})
	require.NoError(t, err)

	page, err := f.svc.GetHistory(ctx, 100, 1, 10)
	require.NoError(t, err)
	items, ok := page.Items.([]dto.StatusAuditResponse)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, curriculum.WireCompleted, items[0].NewStatus)
	assert.Equal(t, int64(2), page.Pagination.TotalItems)

	_, err = f.svc.GetHistory(asStudent(context.Background(), 101), 100, 1, 10)
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))
}

func TestStatusService_HistoryWithoutDatabase(t *testing.T) {
	f := newStatusFixture(false)

	_, err := f.svc.GetHistory(asAdmin(context.Background()), 100, 1, 10)
	assert.True(t, errors.Is(err, apperrors.ErrFeatureDisabled))

	_, err = f.svc.UpdateStatus(asAdmin(context.Background()), 100, 2, &dto.UpdateStatusRequest{Status: "cursando"})
	assert.NoError(t, err)
}
