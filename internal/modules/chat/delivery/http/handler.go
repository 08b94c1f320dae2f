package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"anoa.com/bazaar/internal/modules/chat/dto"
	chatService "anoa.com/bazaar/internal/modules/chat/service"
	commonDto "anoa.com/bazaar/pkg/dto"
	"anoa.com/bazaar/pkg/ratelimiter"
	"anoa.com/bazaar/pkg/response"
	"anoa.com/bazaar/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	service chatService.ChatService
}

func NewChatHandler(service chatService.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) ListDialogs(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	dialogs, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dialogs)
}

func (h *ChatHandler) StartDialog(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.StartDialogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	dialog, created, err := h.service.StartDialog(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dialog)
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	dialogID, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	messages, err := h.service.ListMessages(c.Request.Context(), userID, dialogID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// SendMessage accepts multipart form data (text, image) or a JSON body
// with text only.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	dialogID, ok := response.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	var image *commonDto.ImageFile
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if fileHeader, err := c.FormFile("image"); err == nil && fileHeader != nil {
			file, err := fileHeader.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
				return
			}
			defer file.Close()

			image = &commonDto.ImageFile{
				Reader:   file,
				FileName: fileHeader.Filename,
			}
		}
	}

	message, err := h.service.SendMessage(c.Request.Context(), userID, dialogID, req.Text, image)
	if err != nil {
		var rateLimitErr *ratelimiter.RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}
