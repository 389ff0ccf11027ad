package inventoryserver

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	changemapper "github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/http/mapper"
	changesdomain "github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	apierrors "github.com/Apurer/inventory-orders-service/internal/shared/errors"
)

func TestChangesAPI_RunStatusAuditUndo(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/changes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	statuses := decode[[]changemapper.ChangeStatus](t, rec)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Pending)

	rec = srv.do(t, http.MethodPost, "/changes/run", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[changemapper.RunReport](t, rec)
	assert.Equal(t, []string{"first", "second"}, report.Applied)
	assert.Equal(t, []string{"first", "second"}, srv.target.applied)

	rec = srv.do(t, http.MethodPost, "/changes/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report = decode[changemapper.RunReport](t, rec)
	assert.Empty(t, report.Applied)
	assert.Equal(t, []string{"first", "second"}, report.Skipped)

	rec = srv.do(t, http.MethodGet, "/changes", nil)
	for _, status := range decode[[]changemapper.ChangeStatus](t, rec) {
		assert.Equal(t, "APPLIED", status.State)
		assert.False(t, status.Pending)
	}

	rec = srv.do(t, http.MethodPost, "/changes/undo", changemapper.UndoRequest{ToChangeID: "first"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report = decode[changemapper.RunReport](t, rec)
	assert.Equal(t, []string{"second"}, report.RolledBack)

	rec = srv.do(t, http.MethodPost, "/changes/undo", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report = decode[changemapper.RunReport](t, rec)
	assert.Equal(t, []string{"first"}, report.RolledBack)
	assert.Equal(t, []string{"first", "second", "undo-second", "undo-first"}, srv.target.applied)

	rec = srv.do(t, http.MethodGet, "/changes/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]changemapper.AuditEntry](t, rec))
}

func TestChangesAPI_UnknownUndoTarget(t *testing.T) {
	srv := newTestServer(t)
	problem := requireProblem(t, srv.do(t, http.MethodPost, "/changes/undo", changemapper.UndoRequest{ToChangeID: "ghost"}), http.StatusNotFound, apierrors.TypeNotFound)
	assert.Equal(t, "change", problem.Extensions["resourceType"])
}

type busyWorkflows struct{}

func (busyWorkflows) RunChanges(context.Context) (*changesdomain.RunReport, error) {
	return nil, changesdomain.ErrLockHeld
}

func TestChangesAPI_RunThroughWorkflows(t *testing.T) {
	srv := newTestServer(t)
	srv.router = NewRouterWithGinEngine(gin.New(), ApiHandleFunctions{ChangesAPI: NewChangesAPI(nil, busyWorkflows{})})

	requireProblem(t, srv.do(t, http.MethodPost, "/changes/run", nil), http.StatusConflict, apierrors.TypeConflict)
}
