package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"SNProject/global/config"
	"SNProject/logger"
	"SNProject/middleware"
	midsec "SNProject/middleware/security"
	chathandler "SNProject/module/chat/handler"
	chatmodel "SNProject/module/chat/model"
	chatsrv "SNProject/module/chat/service"
	userapi "SNProject/module/user"
	usermodel "SNProject/module/user/model"
	usersrv "SNProject/module/user/service"
	"SNProject/service/chat"
	"SNProject/service/chat/handlers"
	"SNProject/service/mgo"
	rds "SNProject/service/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config.ConfigAll(ctx)

	if _, ok := mgo.TryGetDB(); ok {
		if err := chatmodel.EnsureIndexes(ctx); err != nil {
			logger.Errorf("[boot] ensure chat indexes: %v", err)
		}
		if err := usermodel.EnsureIndexes(ctx); err != nil {
			logger.Errorf("[boot] ensure user indexes: %v", err)
		}
	} else {
		logger.Warnf("[boot] mongo not ready, skipping index bootstrap")
	}

	convs := chatsrv.NewConversationService()
	msgs := chatsrv.NewMessageService()
	users := usersrv.NewUserService()

	srv := chat.NewServer(convs, msgs, users, chat.Options{
		JWT:      config.JWTOptions(),
		Sessions: usersrv.NewSessionService(),
	})
	defer srv.Close()

	srv.Disp().Register(handlers.NewJoinHandler(srv))
	srv.Disp().Register(handlers.NewSendHandler(srv))
	srv.Disp().Register(handlers.NewReactHandler(srv))
	srv.Disp().Register(handlers.NewDeleteHandler(srv))

	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS())

	r.GET("/ws", srv.HandleWS)

	api := r.Group("/api", midsec.Middleware(midsec.DefaultOptions(config.JWTOptions())))
	chathandler.NewApi(convs, msgs).Register(api)
	userapi.NewApi(users).Register(api)

	addr := fmt.Sprintf(":%d", config.Global.Port)
	httpSrv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Infof("[boot] node=%s listening on %s", config.Global.NodeId, addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[boot] http server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("[boot] shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		logger.Warnf("[boot] shutdown: %v", err)
	}
	if err := rds.CloseRedis(); err != nil {
		logger.Warnf("[boot] close redis: %v", err)
	}
}
