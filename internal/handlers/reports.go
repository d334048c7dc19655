package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"civicreport/internal/middleware"
	"civicreport/internal/models"
	"civicreport/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

type CreateReportRequest struct {
	Title       string   `json:"title" binding:"required,min=3,max=200"`
	Description string   `json:"description" binding:"required,min=10,max=2000"`
	Category    string   `json:"category" binding:"required"`
	Priority    string   `json:"priority,omitempty"`
	Latitude    float64  `json:"latitude" binding:"min=-90,max=90"`
	Longitude   float64  `json:"longitude" binding:"min=-180,max=180"`
	Address     string   `json:"address,omitempty"`
	Images      []string `json:"images,omitempty"`
}

func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	report, err := h.reportService.Create(ctx, actor, services.CreateReportInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    models.ReportCategory(req.Category),
		Priority:    models.ReportPriority(req.Priority),
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		Images:      req.Images,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// GetReports lists reports with optional status/category/search filters.
func (h *ReportHandler) GetReports(c *gin.Context) {
	filter := services.ListFilter{
		Status:   models.ReportStatus(c.Query("status")),
		Category: models.ReportCategory(c.Query("category")),
		Search:   c.Query("search"),
	}

	if submittedBy := c.Query("submitted_by"); submittedBy != "" {
		id, err := primitive.ObjectIDFromHex(submittedBy)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid submitted_by ID",
			})
			return
		}
		filter.SubmittedBy = &id
	}

	page := services.Page{
		Number: atoiDefault(c.Query("page"), 1),
		Limit:  atoiDefault(c.Query("limit"), 20),
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	result, err := h.reportService.List(ctx, filter, page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMyReports lists the authenticated user's own reports.
func (h *ReportHandler) GetMyReports(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	filter := services.ListFilter{
		Status:      models.ReportStatus(c.Query("status")),
		Category:    models.ReportCategory(c.Query("category")),
		SubmittedBy: &actor.ID,
	}
	page := services.Page{
		Number: atoiDefault(c.Query("page"), 1),
		Limit:  atoiDefault(c.Query("limit"), 20),
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	result, err := h.reportService.List(ctx, filter, page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ReportHandler) GetReport(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid report ID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	report, err := h.reportService.GetByID(ctx, reportID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

type UpdateReportRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Priority    *string  `json:"priority,omitempty"`
	Address     *string  `json:"address,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// UpdateReport edits descriptive fields. Status changes go through
// UpdateReportStatus.
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid report ID",
		})
		return
	}

	var req UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	in := services.UpdateFieldsInput{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		Images:      req.Images,
	}
	if req.Category != nil {
		category := models.ReportCategory(*req.Category)
		in.Category = &category
	}
	if req.Priority != nil {
		priority := models.ReportPriority(*req.Priority)
		in.Priority = &priority
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	report, err := h.reportService.UpdateFields(ctx, actor, reportID, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

type UpdateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment,omitempty"`
}

// UpdateReportStatus moves a report along its lifecycle.
func (h *ReportHandler) UpdateReportStatus(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid report ID",
		})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	report, err := h.reportService.UpdateStatus(ctx, actor, reportID, models.ReportStatus(req.Status), req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

type AssignReportRequest struct {
	DepartmentID string `json:"department_id" binding:"required"`
}

// AssignReport routes a report to a department. Admin-only route.
func (h *ReportHandler) AssignReport(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid report ID",
		})
		return
	}

	var req AssignReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	departmentID, err := primitive.ObjectIDFromHex(req.DepartmentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid department ID",
		})
		return
	}

	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	report, err := h.reportService.AssignDepartment(ctx, actor, reportID, departmentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) DeleteReport(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid report ID",
		})
		return
	}

	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	if err := h.reportService.Delete(ctx, actor, reportID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Report deleted successfully",
	})
}

// GetNearbyReports returns reports within a radius of a point.
func (h *ReportHandler) GetNearbyReports(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid latitude",
		})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid longitude",
		})
		return
	}
	radius, err := strconv.ParseFloat(c.DefaultQuery("radius", "1000"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid radius",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	reports, err := h.reportService.Nearby(ctx, lat, lng, radius)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

// GetReportHistory returns a report's full status history.
func (h *ReportHandler) GetReportHistory(c *gin.Context) {
	reportID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid report ID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	report, err := h.reportService.GetByID(ctx, reportID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":              report.Status,
		"status_history":      report.StatusHistory,
		"allowed_transitions": report.Status.AllowedTransitions(),
	})
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
