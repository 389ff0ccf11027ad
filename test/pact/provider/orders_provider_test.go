//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	pacttest "github.com/Apurer/inventory-orders-service/test/pact"

	inventoryserver "github.com/Apurer/inventory-orders-service/go"
	flagsmemory "github.com/Apurer/inventory-orders-service/internal/domains/flags/adapters/memory"
	flagsapp "github.com/Apurer/inventory-orders-service/internal/domains/flags/application"
	"github.com/Apurer/inventory-orders-service/internal/domains/orders/adapters/discounts"
	ordersmemory "github.com/Apurer/inventory-orders-service/internal/domains/orders/adapters/memory"
	messagingmemory "github.com/Apurer/inventory-orders-service/internal/domains/orders/adapters/messaging/memory"
	ordersobs "github.com/Apurer/inventory-orders-service/internal/domains/orders/adapters/observability"
	ordersapp "github.com/Apurer/inventory-orders-service/internal/domains/orders/application"
	ordersdomain "github.com/Apurer/inventory-orders-service/internal/domains/orders/domain"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/stretchr/testify/require"
)

func TestInventoryOrdersProviderPact(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	verifier := pactprovider.NewVerifier()
	stateHandlers := models.StateHandlers{
		pacttest.StateOrdersBaseline: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			return nil, nil
		},
		pacttest.StateOrderExists: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			if setup {
				return nil, app.seedOrder(pacttest.ExistingOrderID)
			}
			return nil, nil
		},
		pacttest.StateOrderMissing: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			return nil, nil
		},
	}

	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers:   stateHandlers,
		BeforeEach: func() error {
			app.reset()
			return nil
		},
	})
	require.NoError(t, err)
}

// contractProviderApp swaps in a fresh in-memory stack on every reset.
type contractProviderApp struct {
	mu      sync.RWMutex
	repo    *ordersmemory.Repository
	handler http.Handler
	server  *httptest.Server
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{}
	app.reset()
	app.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.mu.RLock()
		handler := app.handler
		app.mu.RUnlock()
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(app.server.Close)
	return app
}

func (a *contractProviderApp) reset() {
	repo := ordersmemory.NewRepository()
	flagService := flagsapp.NewService(flagsmemory.NewRepository())
	gate, err := discounts.NewFlagGate(flagService, 25)
	if err != nil {
		panic(err)
	}
	orderService := ordersobs.New(ordersapp.NewService(repo,
		ordersapp.WithPublisher(messagingmemory.NewPublisher()),
		ordersapp.WithDiscountGate(gate),
	))

	router := gin.New()
	router.Use(gin.Recovery())
	router = inventoryserver.NewRouterWithGinEngine(router, inventoryserver.ApiHandleFunctions{
		OrdersAPI: inventoryserver.NewOrdersAPI(orderService),
		FlagsAPI:  inventoryserver.NewFlagsAPI(flagService),
	})

	a.mu.Lock()
	a.repo = repo
	a.handler = router
	a.mu.Unlock()
}

func (a *contractProviderApp) seedOrder(id string) error {
	order, err := ordersdomain.NewOrder(id, pacttest.CustomerID,
		[]ordersdomain.Item{{ProductID: pacttest.ProductID, Quantity: pacttest.Quantity, Price: pacttest.UnitPrice}},
		ordersdomain.StatusPending, time.Now().UTC(), ordersdomain.DiscountNone)
	if err != nil {
		return err
	}
	a.mu.RLock()
	repo := a.repo
	a.mu.RUnlock()
	_, err = repo.Create(context.Background(), order)
	return err
}
