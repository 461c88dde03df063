package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/carousell/ct-go/pkg/logger"
	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/labstack/echo/v4"
	echomdw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/facilityhub/dept-chat/internal/config"
	pkgmdw "github.com/facilityhub/dept-chat/internal/server/middleware"
	"github.com/facilityhub/dept-chat/pkg/validator"
)

func StartServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	handler Controller,
) {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = errorHandler()

	logConfig := pkgmdw.LogRequestConfig{
		Logger: logger.MustNamed("http"),
		Enabled: func(c echo.Context) bool {
			uri := c.Request().RequestURI
			return uri != "/health" && uri != "/metrics"
		},
	}

	e.Use(pkgmdw.Metrics())
	e.Use(pkgmdw.RequestID())
	e.Use(pkgmdw.LogRequest(logConfig))
	e.Use(echomdw.RecoverWithConfig(echomdw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw(c.Request().Context(), "PANIC RECOVER", "error", err, "stack", string(stack))
			return nil
		},
	}))

	e.GET("/health", handler.Health)

	api := e.Group("/api/v1", pkgmdw.Identity())
	api.GET("/chats", handler.ListChats)
	api.POST("/chats", handler.CreateChat)
	api.GET("/chats/department", handler.GetDepartmentChat)
	api.GET("/chats/:id", handler.GetChat)
	api.POST("/chats/:id/leave", handler.LeaveChat)
	api.GET("/chats/:id/messages", handler.ListMessages)
	api.POST("/chats/:id/messages", handler.SendMessage)
	api.POST("/chats/:id/read", handler.MarkChatRead)
	api.GET("/chats/:id/participants", handler.ListParticipants)
	api.PUT("/messages/:id", handler.EditMessage)
	api.DELETE("/messages/:id", handler.DeleteMessage)
	api.POST("/presence", handler.UpdatePresence)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow(ctx, "starting HTTP server", "addr", conf.Server.Addr)
				if err := e.Start(conf.Server.Addr); !errors.Is(err, http.ErrServerClosed) {
					sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
