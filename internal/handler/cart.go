package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storely/storefront-api/internal/dto"
	"github.com/storely/storefront-api/internal/model"
	"github.com/storely/storefront-api/internal/pricing"
	"github.com/storely/storefront-api/internal/service"
)

type CartHandler struct {
	svc *service.CartService
}

func NewCartHandler(svc *service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) CreateCart(c *gin.Context) {
	cart, err := h.svc.CreateCart(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, h.toCartResponse(cart))
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cart ID"})
		return
	}

	cart, err := h.svc.GetCart(c.Request.Context(), cartID)
	if err != nil {
		if errors.Is(err, service.ErrCartNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, h.toCartResponse(cart))
}

func (h *CartHandler) DeleteCart(c *gin.Context) {
	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cart ID"})
		return
	}

	if err := h.svc.DeleteCart(c.Request.Context(), cartID); err != nil {
		if errors.Is(err, service.ErrCartNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cart ID"})
		return
	}

	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.svc.AddItem(c.Request.Context(), cartID, req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCartNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
		case errors.Is(err, service.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		case errors.Is(err, service.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be at least 1"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}
	c.JSON(http.StatusCreated, h.toCartItemResponse(item))
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	cartID, itemID, err := cartItemIDs(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return
	}

	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.svc.UpdateItem(c.Request.Context(), cartID, itemID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCartItemNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
		case errors.Is(err, service.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be at least 1"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}
	c.JSON(http.StatusOK, h.toCartItemResponse(item))
}

func (h *CartHandler) DeleteItem(c *gin.Context) {
	cartID, itemID, err := cartItemIDs(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ID"})
		return
	}

	if err := h.svc.RemoveItem(c.Request.Context(), cartID, itemID); err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func cartItemIDs(c *gin.Context) (cartID, itemID uuid.UUID, err error) {
	cartID, err = uuid.Parse(c.Param("id"))
	if err != nil {
		return
	}
	itemID, err = uuid.Parse(c.Param("itemID"))
	return
}

func (h *CartHandler) toCartResponse(cart *model.Cart) dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(cart.Items))
	for i := range cart.Items {
		items = append(items, h.toCartItemResponse(&cart.Items[i]))
	}
	return dto.CartResponse{
		ID:         cart.ID,
		Items:      items,
		TotalPrice: pricing.Display(pricing.CartTotal(cart.Items)),
	}
}

func (h *CartHandler) toCartItemResponse(item *model.CartItem) dto.CartItemResponse {
	resp := dto.CartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}
	if item.Product != nil {
		resp.Title = item.Product.Title
		resp.UnitPrice = item.Product.UnitPrice
		resp.TotalPrice = pricing.Display(pricing.ItemTotal(item.Product.UnitPrice, item.Quantity))
	}
	return resp
}
