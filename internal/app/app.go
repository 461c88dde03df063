package app

import (
	"context"

	"github.com/carousell/ct-go/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/facilityhub/dept-chat/internal/config"
	"github.com/facilityhub/dept-chat/internal/repo/mongodb"
	"github.com/facilityhub/dept-chat/internal/server"
	"github.com/facilityhub/dept-chat/internal/usecase"
)

func Invoke(funcs ...any) *fx.App {
	log := logger.MustNamed("app")
	conf := config.MustLoad()
	log.Debugw("config loaded", log.Reflect("config", conf))
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Unwrap().Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Provide(
			newMongoDB,
			newPublisher,

			server.NewController,

			usecase.NewMessagingUsecase,

			mongodb.NewChatRepository,
			mongodb.NewParticipantRepository,
			mongodb.NewMessageRepository,
			mongodb.NewEmployeeDirectory,
		),
		fx.Supply(conf),
		fx.Invoke(EnsureIndexes),
		fx.Invoke(funcs...),
	)
}

// EnsureIndexes creates the collection indexes on startup. The unique
// department-chat index must exist before the first provisioning request.
func EnsureIndexes(lc fx.Lifecycle, db *mongodb.DB) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return mongodb.EnsureIndexes(ctx, db)
		},
	})
}
