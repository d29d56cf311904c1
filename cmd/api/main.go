package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/jobberhq/order-service/internal/config"
	"github.com/jobberhq/order-service/internal/httpx"
	"github.com/jobberhq/order-service/internal/logger"
	"github.com/jobberhq/order-service/internal/mongodb"
	"github.com/jobberhq/order-service/internal/notifications"
	"github.com/jobberhq/order-service/internal/orders"
	"github.com/jobberhq/order-service/internal/payments"
	"github.com/jobberhq/order-service/internal/rabbitmq"
	"github.com/jobberhq/order-service/internal/realtime"
	"github.com/jobberhq/order-service/internal/redisx"
	"github.com/jobberhq/order-service/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Mongo
	connectCtx, connectCancel := context.WithTimeout(ctx, 15*time.Second)
	client, err := mongodb.Connect(connectCtx, cfg.MongoURI)
	connectCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connect")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(cfg.MongoDB)

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Realtime hub
	hub := realtime.NewHub(rdb, log)
	go hub.Run(ctx)

	// Broker: shared publisher channel, created once and reused.
	publisher := rabbitmq.NewPublisher(cfg.RabbitMQURL, log)
	defer publisher.Close()

	// Collaborators
	gateway, err := payments.NewGateway(payments.GatewayConfig{APIKey: cfg.StripeAPIKey, Logger: log})
	if err != nil {
		log.Fatal().Err(err).Msg("stripe gateway")
	}
	uploader, err := storage.New(cfg.CloudinaryURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("cloudinary")
	}

	// Stores & services
	orderStore := orders.NewMongoStore(db)
	notifStore := notifications.NewMongoStore(db)
	notifier := notifications.NewService(notifStore, hub, orderStore, log)
	svc := orders.NewService(orders.ServiceConfig{
		Store:     orderStore,
		Publisher: publisher,
		Notifier:  notifier,
		Gateway:   gateway,
		Uploader:  uploader,
		ClientURL: cfg.ClientURL,
		Logger:    log,
	})

	// Review fanout consumer, runs for the process lifetime.
	consumer := rabbitmq.NewConsumer(cfg.RabbitMQURL, log)
	go func() {
		handle := func(ctx context.Context, body []byte) error {
			var msg orders.ReviewMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				return err
			}
			_, err := svc.ApplyReview(ctx, msg)
			return err
		}
		if err := consumer.ConsumeReviews(ctx, handle); err != nil {
			log.Error().Err(err).Msg("review consumer stopped")
		}
	}()

	// HTTP
	router := httpx.NewRouter()
	router.Get("/ws", hub.ServeWS)
	oh := &httpx.OrdersHandler{Service: svc}
	nh := &httpx.NotificationsHandler{Service: notifier}
	router.Route("/api/v1/order", func(r chi.Router) {
		nh.Register(r)
		oh.Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
}
