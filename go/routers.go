// Package inventoryserver is the HTTP transport of the inventory orders service.
package inventoryserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the handlers of every bounded context.
type ApiHandleFunctions struct {
	OrdersAPI  OrdersAPI
	FlagsAPI   FlagsAPI
	ChangesAPI ChangesAPI
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds the routes to an existing engine. Middleware
// must be registered on the engine before calling it.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		switch route.Method {
		case http.MethodGet:
			router.GET(route.Pattern, route.HandlerFunc)
		case http.MethodPost:
			router.POST(route.Pattern, route.HandlerFunc)
		case http.MethodPut:
			router.PUT(route.Pattern, route.HandlerFunc)
		case http.MethodDelete:
			router.DELETE(route.Pattern, route.HandlerFunc)
		}
	}
	return router
}

// DefaultHandleFunc answers routes without a handler.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

// Healthz reports process liveness.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	return []Route{
		{"Healthz", http.MethodGet, "/healthz", Healthz},

		{"ListOrders", http.MethodGet, "/orders", handleFunctions.OrdersAPI.ListOrders},
		{"GetInventory", http.MethodGet, "/orders/inventory", handleFunctions.OrdersAPI.GetInventory},
		{"GetOrder", http.MethodGet, "/orders/:orderId", handleFunctions.OrdersAPI.GetOrder},
		{"PlaceOrder", http.MethodPost, "/orders", handleFunctions.OrdersAPI.PlaceOrder},

		{"CreateFlag", http.MethodPost, "/flags", handleFunctions.FlagsAPI.CreateFlag},
		{"ListFlags", http.MethodGet, "/flags", handleFunctions.FlagsAPI.ListFlags},
		{"UpdateFlag", http.MethodPut, "/flags/:name", handleFunctions.FlagsAPI.UpdateFlag},
		{"EvaluateFlag", http.MethodGet, "/flags/evaluate/:name", handleFunctions.FlagsAPI.EvaluateFlag},
		{"AddRule", http.MethodPost, "/flags/:name/rules", handleFunctions.FlagsAPI.AddRule},
		{"ListRules", http.MethodGet, "/flags/:name/rules", handleFunctions.FlagsAPI.ListRules},

		{"ListChanges", http.MethodGet, "/changes", handleFunctions.ChangesAPI.ListChanges},
		{"ListAudit", http.MethodGet, "/changes/audit", handleFunctions.ChangesAPI.ListAudit},
		{"RunChanges", http.MethodPost, "/changes/run", handleFunctions.ChangesAPI.RunChanges},
		{"UndoChanges", http.MethodPost, "/changes/undo", handleFunctions.ChangesAPI.UndoChanges},
	}
}
