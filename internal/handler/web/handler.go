package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shenikar/road_clearing_system/internal/models"
	"github.com/shenikar/road_clearing_system/internal/service"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Manila не использует летнее время
var manila = time.FixedZone("PHT", 8*60*60)

// Handler обслуживает HTML-форму подачи заявки и список заявок
type Handler struct {
	requestService service.RequestService
	logger         *logrus.Logger
	templates      *template.Template
}

func NewHandler(requestService service.RequestService, logger *logrus.Logger) *Handler {
	return &Handler{
		requestService: requestService,
		logger:         logger,
		templates:      parseTemplates(),
	}
}

func parseTemplates() *template.Template {
	funcs := template.FuncMap{
		"coord": func(v *float64) string {
			if v == nil {
				return ""
			}
			return strconv.FormatFloat(*v, 'f', 6, 64)
		},
		"datetime": func(t time.Time) string {
			return t.In(manila).Format("2006-01-02 15:04")
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html"))
}

// RegisterRoutes регистрирует страницы на корневом роутере
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(h.templates)

	router.GET("/", h.index)
	router.GET("/add_request", h.addRequestForm)
	router.POST("/add_request", h.addRequest)
}

type addRequestForm struct {
	ReporterName  string `form:"reporter_name" binding:"max=100"`
	ContactNumber string `form:"contact_number" binding:"max=20"`
	Barangay      string `form:"barangay" binding:"max=100"`
	StreetAddress string `form:"street_address" binding:"max=255"`
	Description   string `form:"description"`
	Status        string `form:"status"`
	Latitude      string `form:"latitude"`
	Longitude     string `form:"longitude"`
}

var formFieldLabels = map[string]string{
	"ReporterName":  "Reporter name",
	"ContactNumber": "Contact number",
	"Barangay":      "Barangay",
	"StreetAddress": "Street address",
}

func (h *Handler) index(c *gin.Context) {
	log := h.logger.WithField("method", "index")

	requests, err := h.requestService.ListAllRequests(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list requests for index page")
		c.String(http.StatusInternalServerError, "There was an issue loading requests.")
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{"Requests": requests})
}

func (h *Handler) addRequestForm(c *gin.Context) {
	c.HTML(http.StatusOK, "add_request.html", gin.H{"Statuses": models.Statuses})
}

func (h *Handler) addRequest(c *gin.Context) {
	log := h.logger.WithField("method", "addRequest")

	var form addRequestForm
	if err := c.ShouldBind(&form); err != nil {
		log.WithError(err).Warn("Failed to bind form")
		h.renderFormError(c, bindErrorMessage(err))
		return
	}

	lat, err := parseCoordinate(form.Latitude, 90)
	if err != nil {
		log.WithError(err).Warn("Invalid latitude")
		h.renderFormError(c, "Latitude must be a number between -90 and 90.")
		return
	}
	lon, err := parseCoordinate(form.Longitude, 180)
	if err != nil {
		log.WithError(err).Warn("Invalid longitude")
		h.renderFormError(c, "Longitude must be a number between -180 and 180.")
		return
	}

	_, err = h.requestService.SubmitRequest(c.Request.Context(), models.RequestInput{
		ReporterName:  form.ReporterName,
		ContactNumber: form.ContactNumber,
		Barangay:      form.Barangay,
		StreetAddress: form.StreetAddress,
		Description:   form.Description,
		Status:        form.Status,
		Latitude:      lat,
		Longitude:     lon,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			log.WithError(err).Warn("Request rejected by service")
			h.renderFormError(c, "Please check the form and try again.")
			return
		}
		log.WithError(err).Error("Error adding request")
		c.String(http.StatusInternalServerError, "There was an issue adding your request.")
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) renderFormError(c *gin.Context, message string) {
	c.HTML(http.StatusBadRequest, "add_request.html", gin.H{
		"Statuses": models.Statuses,
		"Error":    message,
	})
}

// bindErrorMessage превращает ошибку валидации формы в текст для пользователя
func bindErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if label, ok := formFieldLabels[fe.Field()]; ok && fe.Tag() == "max" {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
	}
	return "Invalid form submission."
}

// parseCoordinate: пустое поле означает отсутствие координаты, значение должно лежать в [-limit, limit]
func parseCoordinate(raw string, limit float64) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("parse coordinate %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("coordinate %q is not finite", raw)
	}
	if v < -limit || v > limit {
		return nil, fmt.Errorf("coordinate %v out of range [-%v, %v]", v, limit, limit)
	}
	return &v, nil
}
