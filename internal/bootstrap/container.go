package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkdesk/inkdesk/internal/config"
	"github.com/inkdesk/inkdesk/internal/infra/blob"
	"github.com/inkdesk/inkdesk/internal/infra/cache"
	"github.com/inkdesk/inkdesk/internal/infra/db"
	"github.com/inkdesk/inkdesk/internal/infra/logger"
	"github.com/inkdesk/inkdesk/internal/infra/pdfclient"
	mq "github.com/inkdesk/inkdesk/internal/infra/queue"
	"github.com/inkdesk/inkdesk/internal/modules/handler"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"github.com/inkdesk/inkdesk/internal/modules/repo"
	"github.com/inkdesk/inkdesk/internal/modules/service"
)

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			_ = d.AutoMigrate(
				&model.Owner{},
				&model.Client{},
				&model.Project{},
				&model.ProjectClient{},
				&model.Agreement{},
				&model.Deliverable{},
				&model.PaymentTerms{},
				&model.PaymentMilestone{},
				&model.Signature{},
				&model.ClientLink{},
			)
		}

		// ensure the bootstrap owner account exists
		if err := EnsureRootOwnerExists(context.Background(), d, cfg, log); err != nil {
			return nil, err
		}

		return d, nil
	})

	// Redis
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return cache.New(cfg)
	})

	// RabbitMQ Connection
	do.Provide(inj, func(i *do.Injector) (*amqp.Connection, error) {
		cfg := do.MustInvoke[*config.Config](i)

		useTLS := cfg.RabbitMQ.EnableTLS || strings.HasPrefix(cfg.RabbitMQ.URL, "amqps://")
		if useTLS {
			tlsConfig := &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
			url := cfg.RabbitMQ.URL
			if strings.HasPrefix(url, "amqp://") {
				url = strings.Replace(url, "amqp://", "amqps://", 1)
			}
			return amqp.DialTLS(url, tlsConfig)
		}
		return amqp.Dial(cfg.RabbitMQ.URL)
	})

	// RabbitMQ Publisher
	do.Provide(inj, func(i *do.Injector) (*mq.Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		conn := do.MustInvoke[*amqp.Connection](i)
		log := do.MustInvoke[*zap.Logger](i)
		return mq.NewPublisher(conn, log, cfg)
	})

	// S3
	do.Provide(inj, func(i *do.Injector) (*blob.S3Deps, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return blob.NewS3(context.Background(), cfg)
	})

	// PDF engine client
	do.Provide(inj, func(i *do.Injector) (*pdfclient.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		return pdfclient.New(cfg, log), nil
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.AgreementRepo, error) {
		return repo.NewAgreementRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ClientLinkRepo, error) {
		return repo.NewClientLinkRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.SignatureRepo, error) {
		return repo.NewSignatureRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ProjectRepo, error) {
		return repo.NewProjectRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ClientRepo, error) {
		return repo.NewClientRepo(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.AgreementService, error) {
		return service.NewAgreementService(
			do.MustInvoke[repo.AgreementRepo](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.SignatureRepo](i),
			do.MustInvoke[*blob.S3Deps](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.SigningService, error) {
		return service.NewSigningService(
			do.MustInvoke[repo.AgreementRepo](i),
			do.MustInvoke[repo.ClientLinkRepo](i),
			do.MustInvoke[repo.SignatureRepo](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.ClientRepo](i),
			do.MustInvoke[*blob.S3Deps](i),
			do.MustInvoke[*mq.Publisher](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.DocumentService, error) {
		return service.NewDocumentService(
			do.MustInvoke[repo.AgreementRepo](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[*pdfclient.Client](i),
			do.MustInvoke[*blob.S3Deps](i),
			do.MustInvoke[*redis.Client](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.AgreementHandler, error) {
		return handler.NewAgreementHandler(
			do.MustInvoke[service.AgreementService](i),
			do.MustInvoke[service.DocumentService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.SigningHandler, error) {
		return handler.NewSigningHandler(do.MustInvoke[service.SigningService](i)), nil
	})
	return inj
}
