package router

import (
	"github.com/oksasatya/feedstream/internal/application"
	"github.com/oksasatya/feedstream/internal/container"
	"github.com/oksasatya/feedstream/internal/infrastructure/images"
	pginfra "github.com/oksasatya/feedstream/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/feedstream/internal/interface/http"
	"github.com/oksasatya/feedstream/internal/router/modules"
	"github.com/oksasatya/feedstream/pkg/mailer"
)

// InitModules builds every feature module from the container singletons
// and registers them with the router registry. Called once at startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	userRepo := pginfra.NewUserRepository(container.GetPGPool())
	postRepo := pginfra.NewPostRepository(container.GetPGPool())

	var imageStore application.ImageStore
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		direct := images.NewGCSStore(gcs, cfg.GCSBucket)
		if pub := container.GetRabbitPub(); pub != nil {
			imageStore = images.NewQueuedStore(direct, pub, cfg.RabbitMQImageQueue, logger)
		} else {
			imageStore = direct
		}
	}

	feedSvc := application.NewFeedService(
		postRepo,
		userRepo,
		container.GetHub(),
		imageStore,
		container.GetRedis(),
		logger,
		container.GetES(),
		cfg.ESPostsIndex,
		cfg.FeedPageSize,
	)

	var mailQueue application.EmailEnqueuer
	if pub := container.GetRabbitPub(); pub != nil && cfg.MailSendEnabled {
		mailQueue = mailer.NewQueue(pub, cfg.RabbitMQEmailQueue)
	}
	authSvc := application.NewAuthService(userRepo, container.GetTokens(), mailQueue, logger)

	feedHandler := handlers.NewFeedHandler(feedSvc, logger)
	streamHandler := handlers.NewStreamHandler(container.GetHub(), logger)
	authHandler := handlers.NewAuthHandler(authSvc, logger)

	r.Add(modules.NewAuthModule(authHandler, container.GetTokens()))
	r.Add(modules.NewFeedModule(feedHandler, streamHandler, container.GetTokens()))
	r.Add(modules.NewDebugModule())
}
