package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Astemirdum/library-cms/library/config"
	"github.com/Astemirdum/library-cms/library/internal/handler"
	"github.com/Astemirdum/library-cms/library/internal/repository"
	"github.com/Astemirdum/library-cms/library/internal/server"
	"github.com/Astemirdum/library-cms/library/internal/service"
	"github.com/Astemirdum/library-cms/library/migrations"
	"github.com/Astemirdum/library-cms/pkg/circuit_breaker"
	"github.com/Astemirdum/library-cms/pkg/kafka"
	"github.com/Astemirdum/library-cms/pkg/logger"
	"github.com/Astemirdum/library-cms/pkg/mailer"
	"github.com/Astemirdum/library-cms/pkg/notify"
	"github.com/Astemirdum/library-cms/pkg/postgres"
	"github.com/Astemirdum/library-cms/pkg/storage"
	"github.com/Astemirdum/library-cms/pkg/validate"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}
	assets, err := storage.NewDisk(cfg.Storage)
	if err != nil {
		log.Fatal("storage", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	sender := newSender(cfg, log)
	var (
		notifier notify.Notifier
		closers  []func() error
	)
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
		kn := notify.NewKafkaNotifier(producer, kafka.NotificationTopic, log)
		consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.NotificationConsumerGroup)
		if err != nil {
			log.Fatal("kafka.NewConsumer", zap.Error(err))
		}
		g.Go(func() error {
			return kafka.Consume(gctx, consumer, handler.NewConsumer(sender.Send, log), kafka.NotificationTopic)
		})
		notifier = kn
		closers = append(closers, kn.Close, consumer.Close)
	} else {
		q := notify.NewQueue(cfg.Notify, sender.Send, log)
		g.Go(func() error {
			return q.Run(gctx)
		})
		notifier = q
	}

	validator := validate.NewCustomValidator()
	catalog := service.NewCatalog(repo, notifier, validator, cfg.Cache.PublicBookTTL, log)
	h := handler.New(
		catalog,
		service.NewMembership(repo, validator, log),
		service.NewLending(repo, notifier, catalog, log),
		service.NewStats(repo, cfg.Cache.KPITTL, log),
		assets,
		log,
	)

	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	select {
	case termSig := <-sig:
		log.Debug("Graceful shutdown", zap.Any("signal", termSig))
	case <-gctx.Done():
		log.Error("notification worker stopped", zap.Error(context.Cause(gctx)))
	}

	closeCtx, cancelClose := context.WithTimeout(context.Background(), time.Second*5)
	defer cancelClose()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	cancel()
	if err = g.Wait(); err != nil {
		log.Error("notification workers", zap.Error(err))
	}
	for _, c := range closers {
		if err := c(); err != nil {
			log.Error("close", zap.Error(err))
		}
	}
	if err = db.Close(); err != nil {
		log.Error("db.Close", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
}

// newSender picks SMTP when a host is configured and logs mail otherwise.
func newSender(cfg *config.Config, log *zap.Logger) mailer.Sender {
	var s mailer.Sender = mailer.NewLogging(log)
	if cfg.SMTP.Host != "" {
		s = mailer.NewSMTP(cfg.SMTP)
	}
	return mailer.WithBreaker(s, circuit_breaker.NewCircuitBreaker(cfg.CircuitBreaker))
}
