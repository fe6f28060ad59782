package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/feedstream/config"
	"github.com/oksasatya/feedstream/internal/infrastructure/images"
	"github.com/oksasatya/feedstream/pkg/helpers"
	"github.com/oksasatya/feedstream/pkg/mailer"
)

// The worker drains the detached side effects the API enqueues:
// image-release jobs (delete the GCS object behind a replaced or
// deleted post image) and welcome emails.
func main() {
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-worker", cfg.Env)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.WithError(err).Fatal("amqp dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.WithError(err).Fatal("amqp channel")
	}
	defer func() { _ = ch.Close() }()

	// Prefetch biar fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		logger.WithError(err).Fatal("qos")
	}

	for _, q := range []string{cfg.RabbitMQImageQueue, cfg.RabbitMQEmailQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			logger.WithError(err).WithField("queue", q).Fatal("queue declare")
		}
	}

	ctx := context.Background()

	var store *images.GCSStore
	if cfg.GCSBucket != "" {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Fatal("gcs client")
		}
		defer func() { _ = gcs.Close() }()
		store = images.NewGCSStore(gcs, cfg.GCSBucket)
	}

	var mg *mailer.Mailgun
	if cfg.MailSendEnabled {
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
			logger.Fatal("MAIL_SEND_ENABLED=true but Mailgun not configured")
		}
		mg = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go consumeImageReleases(ctx, logger, ch, cfg.RabbitMQImageQueue, store)
	go consumeEmails(ctx, logger, ch, cfg.RabbitMQEmailQueue, mg)

	helpers.LogInfo(logger, "worker listening", logrus.Fields{
		"image_queue": cfg.RabbitMQImageQueue,
		"email_queue": cfg.RabbitMQEmailQueue,
	})
	<-stop
	helpers.LogInfo(logger, "shutting down", nil)
}

func consumeImageReleases(ctx context.Context, logger *logrus.Logger, ch *amqp.Channel, queue string, store *images.GCSStore) {
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).WithField("queue", queue).Fatal("consume")
	}
	for msg := range msgs {
		var job images.ReleaseJob
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			helpers.LogError(logger, "bad release message", err, nil)
			_ = msg.Nack(false, false)
			continue
		}
		if store == nil || job.ImageURL == "" {
			_ = msg.Ack(false)
			continue
		}
		c, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := store.Release(c, job.ImageURL)
		cancel()
		if err != nil {
			helpers.LogError(logger, "image release failed", err, logrus.Fields{"image_url": job.ImageURL})
			_ = msg.Nack(false, true)
			continue
		}
		_ = msg.Ack(false)
	}
}

func consumeEmails(ctx context.Context, logger *logrus.Logger, ch *amqp.Channel, queue string, mg *mailer.Mailgun) {
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).WithField("queue", queue).Fatal("consume")
	}
	for msg := range msgs {
		var job mailer.EmailJob
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			helpers.LogError(logger, "bad email message", err, nil)
			_ = msg.Nack(false, false)
			continue
		}
		if mg == nil {
			_ = msg.Ack(false) // sending disabled, drop quietly
			continue
		}
		c, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := mg.Send(c, job.To, job.Subject, job.Text, job.HTML)
		cancel()
		if err != nil {
			helpers.LogError(logger, "email send failed", err, logrus.Fields{"to": job.To})
			_ = msg.Nack(false, true)
			continue
		}
		_ = msg.Ack(false)
	}
}
