package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"study_eval/internal/adapters"
	"study_eval/internal/bootstrap"
	"study_eval/internal/chart"
	evalDelivery "study_eval/internal/delivery/servereval"
	"study_eval/internal/domain/analyse"
	errs "study_eval/internal/errors"
	ownMiddleware "study_eval/internal/middleware"
	"study_eval/internal/pubsub"
	"study_eval/internal/repository"
	evalUC "study_eval/internal/servereval"
	"study_eval/internal/socket"
	"study_eval/internal/study"
)

type infra struct {
	redis  *adapters.AdapterRedis
	mongo  *adapters.AdapterMongo
	socket *socket.Client
}

func (i *infra) Close(ctx context.Context) {
	if i.socket != nil {
		_ = i.socket.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close(ctx)
	}
	if i.mongo != nil {
		_ = i.mongo.Close(ctx)
	}
}

func main() {
	logger := NewLogger()
	defer logger.Sync()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, logger)

	host := study.NewHost(logger, cfg.ChapterId, analyse.Data{})
	positions := pubsub.NewTopic[analyse.PositionChange]()

	deps := &infra{}
	defer deps.Close(context.Background())

	sender, err := initRequestSender(ctx, logger, *cfg, host, deps)
	if err != nil {
		logger.Fatal("Failed to initialize analysis request transport", zap.Error(err))
	}

	ctrl := evalUC.New(evalUC.Deps{
		Log:       logger,
		Root:      host,
		ChapterID: host.ChapterID,
		Positions: positions,
		Sender:    sender,
		Charts:    chart.NewFactory(chart.NewLoader(logger)),
		LoadDelay: cfg.ChartLoadDelay(),
	})
	defer ctrl.Close()
	host.Attach(ctrl)

	r := chi.NewRouter()
	if cfg.IsLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(middleware.Logger)
	evalDelivery.NewServerEvalHandler(ctx, *cfg, logger, ctrl, host, positions, evalUC.English).Router(r)

	srv := &http.Server{Addr: ":" + cfg.ServerPort, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("Server is running on port %s", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func initRequestSender(ctx context.Context, log *zap.SugaredLogger, cfg bootstrap.Config, host *study.Host, deps *infra) (evalUC.RequestSender, error) {
	var sender evalUC.RequestSender

	switch cfg.RequestTransport {
	case bootstrap.TransportSocket:
		client, err := socket.Dial(ctx, cfg.SocketUrl, log)
		if err != nil {
			return nil, err
		}
		deps.socket = client
		client.On(socket.TypeAnalysisProgress, func(d json.RawMessage) {
			var progress analyse.Progress
			if err := json.Unmarshal(d, &progress); err != nil {
				log.Errorw("malformed analysisProgress", "error", err)
				return
			}
			if err := host.MergeAnalysis(progress); err != nil && !errors.Is(err, errs.ErrUnknownChapter) {
				log.Errorw("failed to merge analysis", "error", err)
			}
		})
		go func() {
			if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("socket stopped", "error", err)
			}
		}()
		sender = client
	case bootstrap.TransportRedis:
		deps.redis = adapters.NewAdapterRedis(&cfg, log)
		if err := deps.redis.Init(ctx); err != nil {
			return nil, err
		}
		sender = repository.NewAnalysisRequestPublisher(deps.redis.GetClient(), cfg.RequestChannel, log)
	default:
		return nil, errs.ErrUnknownTransport
	}

	if cfg.JournalRequests {
		deps.mongo = adapters.NewAdapterMongo(&cfg, log)
		if err := deps.mongo.Init(ctx); err != nil {
			return nil, err
		}
		sender = repository.NewAnalysisRequestJournal(deps.mongo.Database, sender, log)
	}

	log.Infof("analysis requests go through %s", cfg.RequestTransport)
	return sender, nil
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()
}
