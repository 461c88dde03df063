package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/facilityhub/dept-chat/internal/server/middleware"
	"github.com/facilityhub/dept-chat/internal/usecase"
)

type listResponse struct {
	Data       any                 `json:"data"`
	Pagination *usecase.Pagination `json:"pagination,omitempty"`
}

func pathObjectID(c echo.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *controller) GetDepartmentChat(c echo.Context) error {
	caller := middleware.GetIdentity(c)

	chat, err := h.messaging.GetOrCreateDepartmentChat(c.Request().Context(), caller)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, chat)
}

func (h *controller) CreateChat(c echo.Context) error {
	caller := middleware.GetIdentity(c)

	var params usecase.CreateChatParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	chat, err := h.messaging.CreateChat(c.Request().Context(), caller, params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, chat)
}

func (h *controller) ListChats(c echo.Context) error {
	caller := middleware.GetIdentity(c)

	var params usecase.ListChatsParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	chats, pagination, err := h.messaging.ListChats(c.Request().Context(), caller, params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listResponse{Data: chats, Pagination: pagination})
}

func (h *controller) GetChat(c echo.Context) error {
	caller := middleware.GetIdentity(c)

	chatID, err := pathObjectID(c, "id")
	if err != nil {
		return err
	}

	chat, err := h.messaging.GetChat(c.Request().Context(), caller, chatID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, chat)
}

func (h *controller) LeaveChat(c echo.Context) error {
	caller := middleware.GetIdentity(c)

	chatID, err := pathObjectID(c, "id")
	if err != nil {
		return err
	}

	if err := h.messaging.LeaveChat(c.Request().Context(), caller, chatID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

func (h *controller) ListMessages(c echo.Context) error {
	caller := middleware.GetIdentity(c)

	chatID, err := pathObjectID(c, "id")
	if err != nil {
		return err
	}

	var params usecase.ListMessagesParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	messages, pagination, err := h.messaging.ListMessages(c.Request().Context(), caller, chatID, params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listResponse{Data: messages, Pagination: pagination})
}

func (h *controller) SendMessage(c echo.Context) error {
	caller := middleware.GetIdentity(c)

	chatID, err := pathObjectID(c, "id")
	if err != nil {
		return err
	}

	var params usecase.SendMessageParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	message, err := h.messaging.SendMessage(c.Request().Context(), caller, chatID, params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, message)
}

func (h *controller) EditMessage(c echo.Context) error {
	caller := middleware.GetIdentity(c)

	messageID, err := pathObjectID(c, "id")
	if err != nil {
		return err
	}

	var params usecase.EditMessageParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	message, err := h.messaging.EditMessage(c.Request().Context(), caller, messageID, params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, message)
}

func (h *controller) DeleteMessage(c echo.Context) error {
	caller := middleware.GetIdentity(c)

	messageID, err := pathObjectID(c, "id")
	if err != nil {
		return err
	}

	message, err := h.messaging.DeleteMessage(c.Request().Context(), caller, messageID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, message)
}

func (h *controller) MarkChatRead(c echo.Context) error {
	caller := middleware.GetIdentity(c)

	chatID, err := pathObjectID(c, "id")
	if err != nil {
		return err
	}

	var params usecase.MarkReadParams
	if err := c.Bind(&params); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.messaging.MarkChatRead(c.Request().Context(), caller, chatID, params); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

func (h *controller) ListParticipants(c echo.Context) error {
	caller := middleware.GetIdentity(c)

	chatID, err := pathObjectID(c, "id")
	if err != nil {
		return err
	}

	participants, err := h.messaging.ListParticipants(c.Request().Context(), caller, chatID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listResponse{Data: participants})
}

func (h *controller) UpdatePresence(c echo.Context) error {
	caller := middleware.GetIdentity(c)

	if err := h.messaging.UpdatePresence(c.Request().Context(), caller); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}
