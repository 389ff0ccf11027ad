package inventoryserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	changesdomain "github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	flagsapp "github.com/Apurer/inventory-orders-service/internal/domains/flags/application"
	flagsports "github.com/Apurer/inventory-orders-service/internal/domains/flags/ports"
	ordersapp "github.com/Apurer/inventory-orders-service/internal/domains/orders/application"
	ordersports "github.com/Apurer/inventory-orders-service/internal/domains/orders/ports"
	apierrors "github.com/Apurer/inventory-orders-service/internal/shared/errors"
)

var problems = apierrors.NewChainedResponder("", mapOrderError, mapFlagError, mapChangeError)

// respondProblem maps a ProblemDetail through the shared responder.
func respondProblem(c *gin.Context, problem apierrors.ProblemDetail) {
	problems.Respond(c, problem)
}

// respondError answers transport-level failures (binding, missing params).
func respondError(c *gin.Context, status int, err error) {
	if err == nil {
		return
	}
	var problem apierrors.ProblemDetail
	switch status {
	case http.StatusBadRequest:
		problem = apierrors.ErrBadRequest.WithDetail(err.Error())
	case http.StatusNotFound:
		problem = apierrors.ErrNotFound.WithDetail(err.Error())
	case http.StatusConflict:
		problem = apierrors.ErrConflict.WithDetail(err.Error())
	default:
		problem = apierrors.ErrInternal.WithDetail(err.Error())
	}
	respondProblem(c, problem)
}

// respondServiceError maps application errors of every bounded context.
func respondServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	problems.RespondError(c, err)
}

func mapOrderError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ordersports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()).WithExtension("resourceType", "order"), true
	case errors.Is(err, ordersports.ErrAlreadyExists):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

func mapFlagError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, flagsports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()).WithExtension("resourceType", "flag"), true
	case errors.Is(err, flagsports.ErrAlreadyExists):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, flagsapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

func mapChangeError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, changesdomain.ErrUnknownChange):
		return apierrors.ErrNotFound.WithDetail(err.Error()).WithExtension("resourceType", "change"), true
	case errors.Is(err, changesdomain.ErrLockHeld):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, changesdomain.ErrNoRollback):
		return apierrors.ErrUnprocessable.WithDetail(err.Error()), true
	}
	if ce, ok := changesdomain.AsChangeError(err); ok {
		problem := apierrors.ErrInternal.
			WithDetail(err.Error()).
			WithExtension("changeId", ce.ChangeID).
			WithExtension("state", string(ce.State))
		if errors.Is(err, changesdomain.ErrManualIntervention) {
			problem = problem.WithExtension("manualIntervention", true)
		}
		return problem, true
	}
	return apierrors.ProblemDetail{}, false
}
