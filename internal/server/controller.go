package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/facilityhub/dept-chat/internal/usecase"
)

type Controller interface {
	GetDepartmentChat(c echo.Context) error
	CreateChat(c echo.Context) error
	ListChats(c echo.Context) error
	GetChat(c echo.Context) error
	LeaveChat(c echo.Context) error
	ListMessages(c echo.Context) error
	SendMessage(c echo.Context) error
	EditMessage(c echo.Context) error
	DeleteMessage(c echo.Context) error
	MarkChatRead(c echo.Context) error
	ListParticipants(c echo.Context) error
	UpdatePresence(c echo.Context) error
	Health(c echo.Context) error
}

type controller struct {
	messaging usecase.MessagingUsecase
}

func NewController(messaging usecase.MessagingUsecase) Controller {
	return &controller{
		messaging: messaging,
	}
}

func (h *controller) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "dept-chat",
	})
}
