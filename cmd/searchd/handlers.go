package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jonesrussell/esmodel"
	"github.com/jonesrussell/esmodel/internal/demo"
)

// Handler serves the shirt endpoints.
type Handler struct {
	mapper *esmodel.Mapper[demo.Shirt, *demo.Shirt]
	logger *zap.Logger
}

// NewHandler creates a handler around the shirt mapper.
func NewHandler(mapper *esmodel.Mapper[demo.Shirt, *demo.Shirt], logger *zap.Logger) *Handler {
	return &Handler{mapper: mapper, logger: logger}
}

// SetupRoutes configures the API routes.
func SetupRoutes(router *gin.Engine, handler *Handler) {
	v1 := router.Group("/api/v1")

	shirts := v1.Group("/shirts")
	shirts.POST("", handler.SaveShirt)            // POST /api/v1/shirts
	shirts.POST("/bulk", handler.BulkIndexShirts) // POST /api/v1/shirts/bulk
	shirts.GET("/search", handler.SearchShirts)   // GET  /api/v1/shirts/search
	shirts.GET("/:id", handler.GetShirt)          // GET  /api/v1/shirts/:id
	shirts.DELETE("/:id", handler.DeleteShirt)    // DELETE /api/v1/shirts/:id

	v1.POST("/index/migrate", handler.MigrateIndex) // POST /api/v1/index/migrate
}

// SaveShirt validates and upserts one shirt.
func (h *Handler) SaveShirt(c *gin.Context) {
	var shirt demo.Shirt
	if err := c.ShouldBindJSON(&shirt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.mapper.Save(c.Request.Context(), &shirt, esmodel.WithRefresh(true))
	if err != nil {
		var validationErr *esmodel.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}
		h.logger.Error("failed to save shirt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save shirt"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// BulkIndexShirts indexes a batch of shirts in one bulk commit.
func (h *Handler) BulkIndexShirts(c *gin.Context) {
	var shirts []*demo.Shirt
	if err := c.ShouldBindJSON(&shirts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ids, err := h.mapper.BulkIndex(c.Request.Context(), shirts)
	if err != nil {
		var sessionErr *esmodel.SessionError
		if errors.As(err, &sessionErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": sessionErr.Error()})
			return
		}
		h.logger.Error("failed to bulk index shirts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to bulk index shirts"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ids": ids})
}

// GetShirt fetches one shirt by id.
func (h *Handler) GetShirt(c *gin.Context) {
	shirt, err := h.mapper.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		var notFound *esmodel.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
			return
		}
		h.logger.Error("failed to get shirt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get shirt"})
		return
	}
	c.JSON(http.StatusOK, shirt)
}

// DeleteShirt removes one shirt by id. Deleting an absent shirt is 404.
func (h *Handler) DeleteShirt(c *gin.Context) {
	shirt, err := h.mapper.Get(c.Request.Context(), c.Param("id"))
	if err == nil {
		err = h.mapper.Delete(c.Request.Context(), shirt, esmodel.WithRefresh(true))
	}
	if err != nil {
		var notFound *esmodel.NotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
			return
		}
		h.logger.Error("failed to delete shirt", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete shirt"})
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchShirts filters shirts by the color/brand/model query parameters.
func (h *Handler) SearchShirts(c *gin.Context) {
	var filters []any
	for _, field := range []string{"color", "brand", "model"} {
		if value := c.Query(field); value != "" {
			filters = append(filters, map[string]any{"term": map[string]any{field: value}})
		}
	}

	query := map[string]any{
		"query": map[string]any{"bool": map[string]any{"filter": filters}},
	}

	response, err := h.mapper.Search(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to search shirts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search shirts"})
		return
	}

	docs, err := response.Documents()
	if err != nil {
		h.logger.Error("failed to materialize shirts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to materialize shirts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   response.Total(),
		"success": response.Success(),
		"shirts":  docs,
	})
}

// MigrateIndex creates a fresh physical index, copies the data forward, and
// atomically repoints the alias.
func (h *Handler) MigrateIndex(c *gin.Context) {
	physical, err := h.mapper.Index().Migrate(c.Request.Context(), true, true)
	if err != nil {
		h.logger.Error("failed to migrate index", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to migrate index"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"physical_index": physical})
}
