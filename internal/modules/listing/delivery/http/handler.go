package handler

import (
	"net/http"

	"anoa.com/bazaar/internal/modules/listing/dto"
	listingService "anoa.com/bazaar/internal/modules/listing/service"
	commonDto "anoa.com/bazaar/pkg/dto"
	"anoa.com/bazaar/pkg/response"
	"anoa.com/bazaar/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ListingHandler struct {
	service listingService.ListingService
}

func NewListingHandler(service listingService.ListingService) *ListingHandler {
	return &ListingHandler{service: service}
}

func (h *ListingHandler) CreateListing(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	listing, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, listing)
}

func (h *ListingHandler) GetListing(c *gin.Context) {
	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	listing, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

func (h *ListingHandler) GetListings(c *gin.Context) {
	var query commonDto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}
	limit, offset := query.Normalize(20)

	listings, total, err := h.service.ListActive(c.Request.Context(), limit, offset)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": listings,
		"meta": commonDto.NewPaginationMeta(query.Page, limit, total),
	})
}

func (h *ListingHandler) MarkSold(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	notified, err := h.service.MarkSold(c.Request.Context(), userID, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SoldResult{Notified: notified})
}
