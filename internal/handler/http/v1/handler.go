package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shenikar/road_clearing_system/internal/config"
	"github.com/shenikar/road_clearing_system/internal/models"
	"github.com/shenikar/road_clearing_system/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	requestService service.RequestService
	logger         *logrus.Logger
	validate       *validator.Validate
	cfg            *config.Config
}

func NewHandler(requestService service.RequestService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		requestService: requestService,
		logger:         logger,
		validate:       NewValidator(),
		cfg:            cfg,
	}
}

// NewValidator возвращает валидатор с правилом request_status.
// oneof не подходит: статус "In Progress" содержит пробел.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("request_status", func(fl validator.FieldLevel) bool {
		return models.IsValidStatus(fl.Field().String())
	})
	return v
}

// @Summary Submit a road clearing request
// @Description Submit a new road clearing request. Missing address or coordinates are filled in by geocoding. Requires API key when keys are configured.
// @Tags Requests
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body CreateRequestRequest true "Road clearing request"
// @Success 201 {object} RequestResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Request ID collision"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /requests [post]
func (h *Handler) createRequest(c *gin.Context) {
	var input CreateRequestRequest
	log := h.logger.WithField("method", "createRequest")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.requestService.SubmitRequest(c.Request.Context(), DTOToRequestInput(input))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			log.WithError(err).Warn("Request rejected by service")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrDuplicateRequestID):
			log.WithError(err).Error("Request ID collision")
			c.JSON(http.StatusConflict, gin.H{"error": "request id already exists"})
		default:
			log.WithError(err).Error("Failed to submit request in service")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}
	c.JSON(http.StatusCreated, ModelToRequestResponse(req))
}

// @Summary Get a list of road clearing requests
// @Description Get a paginated list of requests, newest first.
// @Tags Requests
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} RequestResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /requests [get]
func (h *Handler) listRequests(c *gin.Context) {
	log := h.logger.WithField("method", "listRequests")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	requests, err := h.requestService.ListRequests(c.Request.Context(), page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list requests from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToRequestResponses(requests))
}

// @Summary Get request by ID
// @Description Get a single road clearing request by its public request ID.
// @Tags Requests
// @Accept json
// @Produce json
// @Param request_id path string true "Request ID, e.g. RC-20250714093005-0123456789ab"
// @Success 200 {object} RequestResponse
// @Failure 404 {object} map[string]string "Request not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /requests/{request_id} [get]
func (h *Handler) getRequest(c *gin.Context) {
	requestID := c.Param("request_id")
	log := h.logger.WithField("method", "getRequest").WithField("request_id", requestID)

	req, err := h.requestService.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, service.ErrRequestNotFound) {
			log.WithError(err).Warn("Request not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
			return
		}
		log.WithError(err).Error("Failed to get request from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, ModelToRequestResponse(req))
}

// @Summary Find requests near a point
// @Description Find geocoded requests within the given number of H3 rings around a point.
// @Tags Requests
// @Accept json
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param rings query int false "Number of H3 rings around the center cell" default(1)
// @Success 200 {array} RequestResponse
// @Failure 400 {object} map[string]string "Invalid coordinates or rings"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /requests/nearby [get]
func (h *Handler) listNearby(c *gin.Context) {
	log := h.logger.WithField("method", "listNearby")

	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr != nil || lonErr != nil ||
		h.validate.Var(lat, "latitude") != nil || h.validate.Var(lon, "longitude") != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid lat and lon query parameters are required"})
		return
	}

	rings, err := strconv.Atoi(c.DefaultQuery("rings", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rings must be an integer"})
		return
	}

	requests, err := h.requestService.ListNearby(c.Request.Context(), lat, lon, rings)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).Error("Failed to list nearby requests from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToRequestResponses(requests))
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
