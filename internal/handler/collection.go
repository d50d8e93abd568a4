package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storely/storefront-api/internal/dto"
	"github.com/storely/storefront-api/internal/service"
)

type CollectionHandler struct {
	catalog *service.CatalogService
}

func NewCollectionHandler(catalog *service.CatalogService) *CollectionHandler {
	return &CollectionHandler{catalog: catalog}
}

func (h *CollectionHandler) List(c *gin.Context) {
	collections, err := h.catalog.ListCollections(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, collections)
}

func (h *CollectionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection ID"})
		return
	}

	resp, err := h.catalog.GetCollection(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCollectionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CollectionHandler) Create(c *gin.Context) {
	var req dto.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.catalog.CreateCollection(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CollectionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection ID"})
		return
	}

	var req dto.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.catalog.UpdateCollection(c.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, service.ErrCollectionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CollectionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection ID"})
		return
	}

	if err := h.catalog.DeleteCollection(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrCollectionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		case errors.Is(err, service.ErrCollectionNotEmpty):
			c.JSON(http.StatusConflict, gin.H{"error": "cannot delete collection, contains one or more products"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}
