// Package history is the paginated HTTP facade over the store, used by
// clients to backfill conversations and notification inboxes after a
// reconnect or a missed live event.
package history

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/campushq/chat-server/config"
	"github.com/campushq/chat-server/models"
	"github.com/campushq/chat-server/store"
)

type Handler struct {
	store store.Store
}

func NewHandler(st store.Store) *Handler {
	return &Handler{store: st}
}

// Register mounts the history routes on the given router group.
func (h *Handler) Register(api fiber.Router) {
	api.Get("/messages/:userID", h.getMessages)
	api.Get("/notifications/:userID/unread", h.getUnreadNotifications)
}

type pagination struct {
	CurrentPage   int   `json:"currentPage"`
	TotalPages    int64 `json:"totalPages"`
	TotalMessages int64 `json:"totalMessages"`
	HasMore       bool  `json:"hasMore"`
}

// getMessages returns a page of a user's messages, optionally narrowed to
// the conversation with one peer via ?with_user=.
func (h *Handler) getMessages(c *fiber.Ctx) error {
	userID := c.Params("userID")
	if userID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "user id is required")
	}

	limit := queryInt(c, "limit", 10)
	page := queryInt(c, "page", 1)
	if limit < 1 || limit > 100 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}

	q := store.MessageQuery{
		UserID:    userID,
		WithUser:  c.Query("with_user"),
		Limit:     limit,
		Offset:    (page - 1) * limit,
		Ascending: c.Query("sort") == "asc",
	}
	messages, total, err := h.store.ListMessages(c.Context(), q)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch messages")
	}
	if messages == nil {
		messages = []models.Message{}
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"messages": messages,
			"pagination": pagination{
				CurrentPage:   page,
				TotalPages:    totalPages,
				TotalMessages: total,
				HasMore:       int64(q.Offset+len(messages)) < total,
			},
		},
	})
}

func (h *Handler) getUnreadNotifications(c *fiber.Ctx) error {
	userID := c.Params("userID")
	if userID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "user id is required")
	}
	notifications, err := h.store.UnreadNotifications(c.Context(), userID, config.UnreadNotificationLimit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch notifications")
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"notifications": notifications,
			"count":         len(notifications),
		},
	})
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
