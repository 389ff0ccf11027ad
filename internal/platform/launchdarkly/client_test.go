package launchdarkly

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   []byte
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Auth: r.Header.Get("Authorization"), Body: raw})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{APIURL: url + "/api/v2/", APIToken: "api-token", ProjectKey: "inventory-service", EnvironmentKey: "production"})
	require.NoError(t, err)
	return c
}

func TestCreateStringFlag_PostsVariations(t *testing.T) {
	srv, calls := newServer(t, http.StatusCreated, `{}`)
	c := newTestClient(t, srv.URL)

	err := c.CreateStringFlag(context.Background(), "discount-codes", "Available Discount Codes", "codes", []string{"NONE", "SUMMER10"})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	require.Equal(t, http.MethodPost, call.Method)
	require.Equal(t, "/api/v2/flags/inventory-service", call.Path)
	require.Equal(t, "api-token", call.Auth)

	var body createFlagRequest
	require.NoError(t, json.Unmarshal(call.Body, &body))
	require.Equal(t, "multivariate", body.Kind)
	require.Len(t, body.Variations, 2)
	require.Equal(t, "SUMMER10", body.Variations[1].Value)
}

func TestCreateBooleanFlag_ConflictIsAlreadyDone(t *testing.T) {
	srv, _ := newServer(t, http.StatusConflict, `{"message":"flag exists"}`)
	c := newTestClient(t, srv.URL)

	require.NoError(t, c.CreateBooleanFlag(context.Background(), "enable-discounts", "Enable Discount System", ""))
}

func TestDeleteFlag_NotFoundIsAlreadyDone(t *testing.T) {
	srv, calls := newServer(t, http.StatusNotFound, ``)
	c := newTestClient(t, srv.URL)

	require.NoError(t, c.DeleteFlag(context.Background(), "enable-discounts"))
	require.Equal(t, "/api/v2/flags/inventory-service/enable-discounts", (*calls)[0].Path)
	require.Equal(t, http.MethodDelete, (*calls)[0].Method)
}

func TestArchiveFlag_SendsJSONPatch(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL)

	require.NoError(t, c.ArchiveFlag(context.Background(), "discount-codes"))
	call := (*calls)[0]
	require.Equal(t, http.MethodPatch, call.Method)
	require.Equal(t, "env=production", call.Query)
	require.JSONEq(t, `[{"op":"replace","path":"/archived","value":true}]`, string(call.Body))
}

func TestErrorsCarryStatusAndMessage(t *testing.T) {
	srv, _ := newServer(t, http.StatusForbidden, `{"message":"invalid token"}`)
	c := newTestClient(t, srv.URL)

	err := c.ArchiveFlag(context.Background(), "discount-codes")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.Equal(t, "invalid token", apiErr.Message)
}
