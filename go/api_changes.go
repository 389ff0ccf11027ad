package inventoryserver

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	changemapper "github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/http/mapper"
	changesdomain "github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	changesports "github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
)

// ChangesAPI exposes change status, audit history, run and undo.
type ChangesAPI struct {
	service   changesports.Service
	workflows changesports.WorkflowOrchestrator
}

// NewChangesAPI creates a ChangesAPI. Runs go through workflows when set.
func NewChangesAPI(service changesports.Service, workflows changesports.WorkflowOrchestrator) ChangesAPI {
	return ChangesAPI{service: service, workflows: workflows}
}

// Get /changes
// Lists registered changes with their latest audit state
func (api *ChangesAPI) ListChanges(c *gin.Context) {
	statuses, err := api.service.Status(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, changemapper.FromDomainStatuses(statuses))
}

// Get /changes/audit
func (api *ChangesAPI) ListAudit(c *gin.Context) {
	entries, err := api.service.History(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, changemapper.FromDomainAudit(entries))
}

// Post /changes/run
// Applies pending changes
func (api *ChangesAPI) RunChanges(c *gin.Context) {
	report, err := api.runChanges(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, changemapper.FromDomainReport(report))
}

func (api *ChangesAPI) runChanges(ctx context.Context) (*changesdomain.RunReport, error) {
	if api.workflows != nil {
		return api.workflows.RunChanges(ctx)
	}
	return api.service.Run(ctx)
}

// Post /changes/undo
// Rolls applied changes back down to, but excluding, toChangeId
func (api *ChangesAPI) UndoChanges(c *gin.Context) {
	var payload changemapper.UndoRequest
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	report, err := api.service.Undo(c.Request.Context(), payload.ToChangeID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, changemapper.FromDomainReport(report))
}
