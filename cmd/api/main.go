package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/events"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/post"
	postrepo "github.com/ovaphlow/pitchfork/service-tweet-go/internal/post/repo"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-tweet-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-tweet-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-tweet-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-tweet-go/pkg/docstore"
	"github.com/ovaphlow/pitchfork/service-tweet-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Infow("starting service-tweet", "addr", cfg.HTTPAddr, "store", cfg.Store.Driver)

	ids := utilities.NewIDGenerator(cfg.SnowflakeNode)
	store, err := openStore(cfg.Store, ids.NewID)
	if err != nil {
		sugar.Fatalf("store: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			sugar.Warnf("store close failed: %v", err)
		}
	}()

	users := userrepo.NewUserRepo(store, cfg.Store.UsersCollection)
	posts := postrepo.NewPostRepo(store, cfg.Store.PostsCollection)
	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	if err := users.EnsureIndexes(initCtx); err != nil {
		sugar.Fatalf("ensure users indexes: %v", err)
	}
	if err := posts.EnsureIndexes(initCtx); err != nil {
		sugar.Fatalf("ensure posts indexes: %v", err)
	}
	cancelInit()

	issuer := session.NewIssuer(session.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.TokenTTL,
	})
	userSvc := user.NewUserService(users, user.BcryptHasher{Cost: cfg.Auth.BcryptCost}, issuer, sugar.Named("user"))
	postSvc := post.NewService(posts, sugar.Named("post"))

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Events.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Events.RedisAddr,
			Password: cfg.Events.RedisPassword,
			DB:       cfg.Events.RedisDB,
		})
		defer rdb.Close()

		pub := events.NewPublisher(rdb, 10000)
		userSvc.WithNotifier(pub)
		postSvc.WithNotifier(pub)

		consumer := events.NewConsumer(rdb, events.ConsumerConfig{
			Group:    cfg.Events.ConsumerGroup,
			Consumer: cfg.Events.ConsumerName,
			Streams:  []string{events.TweetEventsStream, events.UserEventsStream},
		}, nil, sugar.Named("events"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				sugar.Warnf("event consumer stopped: %v", err)
			}
		}()
	} else {
		sugar.Info("REDIS_ADDR not set; event side channel disabled")
	}

	handler := router.RegisterRoutes(router.Deps{
		Logger:         sugar.Named("http"),
		Users:          user.NewHandler(userSvc, sugar.Named("user")),
		Tweets:         post.NewHandler(postSvc, sugar.Named("post")),
		Sessions:       issuer,
		RequestTimeout: cfg.RequestTimeout,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Info("service is running; press Ctrl+C to stop")

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

func openStore(cfg config.StoreConfig, newID func() string) (docstore.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		db, err := database.ConnectMongo(cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return docstore.NewMongo(db), nil
	case config.DriverMemory:
		return docstore.NewMemory(newID), nil
	default:
		db, err := database.Connect(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return docstore.NewPostgres(db, newID), nil
	}
}
