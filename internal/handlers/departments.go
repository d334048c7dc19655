package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"civicreport/internal/access"
	"civicreport/internal/middleware"
	"civicreport/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DepartmentHandler struct {
	departmentCollection *mongo.Collection
	userCollection       *mongo.Collection
}

func NewDepartmentHandler(departmentCollection, userCollection *mongo.Collection) *DepartmentHandler {
	return &DepartmentHandler{
		departmentCollection: departmentCollection,
		userCollection:       userCollection,
	}
}

type DepartmentRequest struct {
	Name            string          `json:"name" binding:"required,min=2,max=100"`
	Description     string          `json:"description,omitempty"`
	Categories      []string        `json:"categories" binding:"required,min=1"`
	ContactEmail    string          `json:"contact_email,omitempty" binding:"omitempty,email"`
	ContactPhone    string          `json:"contact_phone,omitempty"`
	Supervisors     []string        `json:"supervisors,omitempty"`
	ResponsibleArea *models.Polygon `json:"responsible_area,omitempty"`
}

func (r *DepartmentRequest) categories() ([]models.ReportCategory, bool) {
	out := make([]models.ReportCategory, 0, len(r.Categories))
	for _, raw := range r.Categories {
		category := models.ReportCategory(raw)
		if !category.IsValid() {
			return nil, false
		}
		out = append(out, category)
	}
	return out, true
}

func (r *DepartmentRequest) supervisors() ([]primitive.ObjectID, bool) {
	out := make([]primitive.ObjectID, 0, len(r.Supervisors))
	for _, raw := range r.Supervisors {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}

// CreateDepartment is admin-only; a duplicate name is a conflict.
func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	var req DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	categories, ok := req.categories()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid category in list",
		})
		return
	}
	supervisors, ok := req.supervisors()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid supervisor ID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	// Supervisors must be existing users.
	if len(supervisors) > 0 {
		count, err := h.userCollection.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": supervisors}})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Database error",
			})
			return
		}
		if count != int64(len(supervisors)) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "One or more supervisors do not exist",
			})
			return
		}
	}

	dept := models.Department{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Categories:      categories,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		Supervisors:     supervisors,
		ResponsibleArea: req.ResponsibleArea,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	}

	result, err := h.departmentCollection.InsertOne(ctx, dept)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Department with this name already exists",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error creating department",
		})
		return
	}
	dept.ID = result.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, dept)
}

// GetDepartments lists departments. Non-admins see active ones only.
func (h *DepartmentHandler) GetDepartments(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	query := bson.M{}
	if !actor.IsAdmin() {
		query["active"] = true
	}
	if category := c.Query("category"); category != "" {
		query["categories"] = category
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	cursor, err := h.departmentCollection.Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error fetching departments",
		})
		return
	}
	defer cursor.Close(ctx)

	departments := []models.Department{}
	if err := cursor.All(ctx, &departments); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error decoding departments",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"departments": departments,
		"count":       len(departments),
	})
}

func (h *DepartmentHandler) GetDepartment(c *gin.Context) {
	departmentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid department ID",
		})
		return
	}

	actor, _ := middleware.CurrentActor(c)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	var dept models.Department
	err = h.departmentCollection.FindOne(ctx, bson.M{"_id": departmentID}).Decode(&dept)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Department not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error fetching department",
		})
		return
	}

	if !access.CanAccessDepartment(actor, &dept, access.ActionRead) {
		// Inactive departments are hidden, not forbidden.
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Department not found",
		})
		return
	}

	c.JSON(http.StatusOK, dept)
}

type UpdateDepartmentRequest struct {
	Name            *string         `json:"name,omitempty"`
	Description     *string         `json:"description,omitempty"`
	Categories      []string        `json:"categories,omitempty"`
	ContactEmail    *string         `json:"contact_email,omitempty"`
	ContactPhone    *string         `json:"contact_phone,omitempty"`
	Supervisors     []string        `json:"supervisors,omitempty"`
	ResponsibleArea *models.Polygon `json:"responsible_area,omitempty"`
	Active          *bool           `json:"active,omitempty"`
}

// UpdateDepartment is admin-only.
func (h *DepartmentHandler) UpdateDepartment(c *gin.Context) {
	departmentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid department ID",
		})
		return
	}

	var req UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	set := bson.M{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Name cannot be empty",
			})
			return
		}
		set["name"] = name
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Categories != nil {
		tmp := DepartmentRequest{Categories: req.Categories}
		categories, ok := tmp.categories()
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid category in list",
			})
			return
		}
		set["categories"] = categories
	}
	if req.ContactEmail != nil {
		set["contact_email"] = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		set["contact_phone"] = *req.ContactPhone
	}
	if req.Supervisors != nil {
		tmp := DepartmentRequest{Supervisors: req.Supervisors}
		supervisors, ok := tmp.supervisors()
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid supervisor ID",
			})
			return
		}
		set["supervisors"] = supervisors
	}
	if req.ResponsibleArea != nil {
		set["responsible_area"] = req.ResponsibleArea
	}
	if req.Active != nil {
		set["active"] = *req.Active
	}

	if len(set) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No fields to update",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	result, err := h.departmentCollection.UpdateOne(ctx,
		bson.M{"_id": departmentID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Department with this name already exists",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error updating department",
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Department not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Department updated successfully",
	})
}

// DeleteDepartment deactivates rather than removes: assigned reports keep a
// resolvable reference.
func (h *DepartmentHandler) DeleteDepartment(c *gin.Context) {
	departmentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid department ID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	result, err := h.departmentCollection.UpdateOne(ctx,
		bson.M{"_id": departmentID},
		bson.M{"$set": bson.M{"active": false}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error deactivating department",
		})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Department not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Department deactivated successfully",
	})
}
