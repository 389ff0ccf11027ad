package inventoryserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	flagmapper "github.com/Apurer/inventory-orders-service/internal/domains/flags/adapters/http/mapper"
	flagsports "github.com/Apurer/inventory-orders-service/internal/domains/flags/ports"
)

// userIDParam is the query parameter naming the evaluated user; every other
// query parameter is passed on as a targeting attribute.
const userIDParam = "userId"

// FlagsAPI wires HTTP transport with the feature flag service.
type FlagsAPI struct {
	service flagsports.Service
}

// NewFlagsAPI creates a FlagsAPI backed by the provided service.
func NewFlagsAPI(service flagsports.Service) FlagsAPI {
	return FlagsAPI{service: service}
}

// Post /flags
func (api *FlagsAPI) CreateFlag(c *gin.Context) {
	var payload flagmapper.CreateFlagRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	flag, err := api.service.CreateFlag(c.Request.Context(), payload.ToInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, flagmapper.FromDomainFlag(flag))
}

// Get /flags
func (api *FlagsAPI) ListFlags(c *gin.Context) {
	flags, err := api.service.ListFlags(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, flagmapper.FromDomainFlags(flags))
}

// Put /flags/:name
// Toggles a flag or changes its rollout percentage
func (api *FlagsAPI) UpdateFlag(c *gin.Context) {
	var payload flagmapper.UpdateFlagRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	flag, err := api.service.UpdateFlag(c.Request.Context(), c.Param("name"), payload.ToInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, flagmapper.FromDomainFlag(flag))
}

// Get /flags/evaluate/:name?userId=...
func (api *FlagsAPI) EvaluateFlag(c *gin.Context) {
	userID := strings.TrimSpace(c.Query(userIDParam))
	if userID == "" {
		respondError(c, http.StatusBadRequest, errors.New("query parameter userId is required"))
		return
	}
	attrs := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if key == userIDParam || len(values) == 0 {
			continue
		}
		attrs[key] = values[0]
	}
	evaluation, err := api.service.Evaluate(c.Request.Context(), c.Param("name"), userID, attrs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, flagmapper.FromDomainEvaluation(evaluation))
}

// Post /flags/:name/rules
func (api *FlagsAPI) AddRule(c *gin.Context) {
	var payload flagmapper.AddRuleRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	rule, err := api.service.AddRule(c.Request.Context(), c.Param("name"), payload.ToInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, flagmapper.FromDomainRule(*rule))
}

// Get /flags/:name/rules
func (api *FlagsAPI) ListRules(c *gin.Context) {
	rules, err := api.service.ListRules(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, flagmapper.FromDomainRules(rules))
}
