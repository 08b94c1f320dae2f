package handler

import (
	"net/http"

	"anoa.com/bazaar/internal/modules/panel/dto"
	panelService "anoa.com/bazaar/internal/modules/panel/service"
	"anoa.com/bazaar/pkg/response"
	"anoa.com/bazaar/pkg/validator"
	"github.com/gin-gonic/gin"
)

type PanelHandler struct {
	moderation    panelService.ModerationService
	announcements panelService.AnnouncementService
	support       panelService.SupportService
	directory     panelService.DirectoryService
}

func NewPanelHandler(
	moderation panelService.ModerationService,
	announcements panelService.AnnouncementService,
	support panelService.SupportService,
	directory panelService.DirectoryService,
) *PanelHandler {
	return &PanelHandler{
		moderation:    moderation,
		announcements: announcements,
		support:       support,
		directory:     directory,
	}
}

func (h *PanelHandler) UserAction(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	targetID, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	action, err := panelService.ParseUserAction(req.Action)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.moderation.ApplyUserAction(c.Request.Context(), actorID, targetID, action, req.Reason)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *PanelHandler) ListingAction(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	listingID, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	action, err := panelService.ParseListingAction(req.Action)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.moderation.ApplyListingAction(c.Request.Context(), actorID, listingID, action, req.Reason)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *PanelHandler) GetAnnouncement(c *gin.Context) {
	res, err := h.announcements.Current(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *PanelHandler) PublishAnnouncement(c *gin.Context) {
	authorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	count, err := h.announcements.Publish(c.Request.Context(), authorID, req.Text)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BroadcastResponse{Status: "sent", Count: count})
}

func (h *PanelHandler) ClearAnnouncement(c *gin.Context) {
	if err := h.announcements.Clear(c.Request.Context()); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *PanelHandler) CreateTicket(c *gin.Context) {
	var req dto.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	ticket, err := h.support.CreateTicket(c.Request.Context(), response.OptionalUserID(c), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "created", "id": ticket.ID})
}

func (h *PanelHandler) ListTickets(c *gin.Context) {
	tickets, err := h.support.ListTickets(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, tickets)
}

func (h *PanelHandler) UpdateTicket(c *gin.Context) {
	ticketID, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.support.UpdateStatus(c.Request.Context(), ticketID, req.Status); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *PanelHandler) GetUsers(c *gin.Context) {
	var query dto.UserSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	users, err := h.directory.Users(c.Request.Context(), query.Search)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *PanelHandler) GetListings(c *gin.Context) {
	var query dto.ListingSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	listings, err := h.directory.Listings(c.Request.Context(), query.Search, query.Status)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, listings)
}

func (h *PanelHandler) GetChats(c *gin.Context) {
	dialogs, err := h.directory.Dialogs(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dialogs)
}

func (h *PanelHandler) GetChat(c *gin.Context) {
	dialogID, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	audit, err := h.directory.Dialog(c.Request.Context(), dialogID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, audit)
}
