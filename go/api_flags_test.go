package inventoryserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flagmapper "github.com/Apurer/inventory-orders-service/internal/domains/flags/adapters/http/mapper"
	apierrors "github.com/Apurer/inventory-orders-service/internal/shared/errors"
)

func TestFlagsAPI_Lifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/flags", flagmapper.CreateFlagRequest{Name: "new-checkout", Description: "checkout v2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	flag := decode[flagmapper.Flag](t, rec)
	assert.False(t, flag.Enabled)
	assert.Equal(t, 100, flag.RolloutPercentage)

	rec = srv.do(t, http.MethodGet, "/flags/evaluate/new-checkout?userId=user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, flagmapper.Evaluation{Enabled: false, Reason: "flag disabled"}, decode[flagmapper.Evaluation](t, rec))

	enabled, rollout := true, 50
	rec = srv.do(t, http.MethodPut, "/flags/new-checkout", flagmapper.UpdateFlagRequest{Enabled: &enabled, RolloutPercentage: &rollout})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	flag = decode[flagmapper.Flag](t, rec)
	assert.True(t, flag.Enabled)
	assert.Equal(t, 50, flag.RolloutPercentage)

	rec = srv.do(t, http.MethodGet, "/flags/evaluate/new-checkout?userId=user-1", nil)
	assert.Equal(t, flagmapper.Evaluation{Enabled: false, Reason: "outside rollout bucket 87 >= 50%"}, decode[flagmapper.Evaluation](t, rec))
	rec = srv.do(t, http.MethodGet, "/flags/evaluate/new-checkout?userId=user-2", nil)
	assert.Equal(t, flagmapper.Evaluation{Enabled: false, Reason: "outside rollout bucket 65 >= 50%"}, decode[flagmapper.Evaluation](t, rec))

	rec = srv.do(t, http.MethodPost, "/flags/new-checkout/rules", flagmapper.AddRuleRequest{Attribute: "country", Operator: "in", Value: "PL, DE"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rule := decode[flagmapper.Rule](t, rec)
	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, "new-checkout", rule.FlagName)

	rec = srv.do(t, http.MethodGet, "/flags/evaluate/new-checkout?userId=user-1&country=DE", nil)
	assert.Equal(t, flagmapper.Evaluation{Enabled: true, Reason: "targeting rule matched: country in PL, DE"}, decode[flagmapper.Evaluation](t, rec))

	rec = srv.do(t, http.MethodGet, "/flags/new-checkout/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]flagmapper.Rule](t, rec), 1)

	rec = srv.do(t, http.MethodGet, "/flags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	flags := decode[[]flagmapper.Flag](t, rec)
	require.Len(t, flags, 1)
	assert.Equal(t, "new-checkout", flags[0].Name)
}

func TestFlagsAPI_UnknownFlagEvaluatesFalse(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/flags/evaluate/ghost?userId=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, flagmapper.Evaluation{Enabled: false, Reason: "flag not found"}, decode[flagmapper.Evaluation](t, rec))
}

func TestFlagsAPI_Errors(t *testing.T) {
	srv := newTestServer(t)

	requireProblem(t, srv.do(t, http.MethodGet, "/flags/evaluate/beta", nil), http.StatusBadRequest, apierrors.TypeBadRequest)

	enabled := true
	requireProblem(t, srv.do(t, http.MethodPut, "/flags/ghost", flagmapper.UpdateFlagRequest{Enabled: &enabled}), http.StatusNotFound, apierrors.TypeNotFound)
	requireProblem(t, srv.do(t, http.MethodPost, "/flags/ghost/rules", flagmapper.AddRuleRequest{Attribute: "plan", Operator: "equals", Value: "pro"}), http.StatusNotFound, apierrors.TypeNotFound)

	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/flags", flagmapper.CreateFlagRequest{Name: "beta"}).Code)
	requireProblem(t, srv.do(t, http.MethodPost, "/flags", flagmapper.CreateFlagRequest{Name: "beta"}), http.StatusConflict, apierrors.TypeConflict)
	requireProblem(t, srv.do(t, http.MethodPost, "/flags", flagmapper.CreateFlagRequest{Name: " "}), http.StatusBadRequest, apierrors.TypeValidation)

	rollout := 150
	requireProblem(t, srv.do(t, http.MethodPut, "/flags/beta", flagmapper.UpdateFlagRequest{RolloutPercentage: &rollout}), http.StatusBadRequest, apierrors.TypeValidation)
	requireProblem(t, srv.do(t, http.MethodPost, "/flags/beta/rules", flagmapper.AddRuleRequest{Attribute: "plan", Operator: "regex", Value: "p.*"}), http.StatusBadRequest, apierrors.TypeValidation)
}
