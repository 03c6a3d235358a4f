package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Builder-Lawyers/certify-backend/internal/application"
	"github.com/Builder-Lawyers/certify-backend/internal/application/commands"
	"github.com/Builder-Lawyers/certify-backend/internal/application/query"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/auth"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/cdn"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/client/templates"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/config"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/mail"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/pdf"
	"github.com/Builder-Lawyers/certify-backend/internal/infra/storage"
	"github.com/Builder-Lawyers/certify-backend/internal/presentation/queue"
	"github.com/Builder-Lawyers/certify-backend/internal/presentation/rest"
	"github.com/Builder-Lawyers/certify-backend/internal/presentation/scheduler"
	"github.com/Builder-Lawyers/certify-backend/pkg/db"
	"github.com/Builder-Lawyers/certify-backend/pkg/env"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
)

func Init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("can't load .env: %v", err)
	}
	setupLogger()

	// DB
	pool, err := db.NewPool(context.Background(), db.NewConfig())
	if err != nil {
		log.Panicf("%v", err)
	}
	uowFactory := db.NewUoWFactory(pool)

	// Configs
	issuanceConfig := config.NewIssuanceConfig()
	storageConfig := storage.NewConfig()
	mailConfig := mail.NewMailConfig()
	dispatchConfig := config.NewDispatchConfig(mailConfig.SendTimeout)
	queueConfig := scheduler.NewQueueConfig()
	digestConfig := scheduler.NewDigestConfig()
	issuanceRequestsConfig := queue.NewIssuanceRequestsConfig()
	brand := mail.NewBranding()

	// AWS
	cfg, err := awsConfig.LoadDefaultConfig(context.TODO(), awsConfig.WithRegion(storageConfig.Region))
	if err != nil {
		log.Panic("can't load aws config", err)
	}
	certificatesStorage := storage.NewStorage(cfg, storageConfig.CertificatesBucket, storageConfig.Region, storageConfig.PublicBaseURL)
	fontsStorage := storage.NewStorage(cfg, storageConfig.FontsBucket, storageConfig.Region, "")
	checkFonts(fontsStorage, issuanceConfig.Fonts)

	// a missing provider only disables the notification operations
	sender, err := mail.NewSender(mailConfig, cfg)
	if err != nil {
		slog.Warn("email delivery disabled", "err", err)
	}

	templatesClient := templates.NewTemplatesClient(templates.NewTemplatesConfig())
	resolveTemplate := query.NewResolveTemplate(uowFactory)

	handlers := &application.Collection{
		IssueCertificate: commands.NewIssueCertificate(issuanceConfig, uowFactory, resolveTemplate,
			fontsStorage, certificatesStorage, templatesClient, pdf.NewRenderer(), cdn.NewCloudfrontInvalidator(cfg, cdn.NewConfig())),
		ProcessNotifications: commands.NewProcessNotifications(dispatchConfig, uowFactory, sender, brand),
		ProcessDigests:       commands.NewProcessDigests(dispatchConfig, uowFactory, sender, brand),
		VerifyCertificate:    query.NewVerifyCertificate(uowFactory),
	}
	handler := rest.NewServer(handlers)
	identity := auth.NewIdentityProvider(auth.NewAuthConfig())
	if !identity.Enabled() {
		slog.Warn("JWT_SECRET is not set, pipeline endpoints are unauthenticated")
	}
	app := rest.NewApp(rest.NewConfig(env.GetEnv("CORS_ORIGINS", "*"), 5*time.Second), handler, identity)

	var stops []func()
	if queueConfig.Enabled {
		queuePoller := scheduler.NewQueuePoller(handlers.ProcessNotifications, queueConfig)
		go queuePoller.Start()
		stops = append(stops, queuePoller.Stop)
	}
	if digestConfig.Enabled {
		digestScheduler, err := scheduler.NewDigestScheduler(handlers.ProcessDigests, digestConfig)
		if err != nil {
			log.Panicf("%v", err)
		}
		digestScheduler.Start()
		stops = append(stops, digestScheduler.Stop)
	}
	if issuanceRequestsConfig.Enabled {
		sqsClient := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
			o.Region = issuanceRequestsConfig.SqsRegion
		})
		issuancePoller := queue.NewIssuanceRequestsPoller(sqsClient, issuanceRequestsConfig, handlers.IssueCertificate)
		go issuancePoller.Start()
		stops = append(stops, issuancePoller.Stop)
	}

	go func() {
		if err := app.Listen(env.GetEnv("HTTP_ADDR", ":8080")); err != nil {
			log.Panic(err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	_ = <-c
	fmt.Println("Gracefully shutting down...")
	_ = app.Shutdown()
	for _, stop := range stops {
		stop()
	}

	fmt.Println("Running cleanup tasks...")

	uowFactory.Pool.Close()
	fmt.Println("Fiber was successfully shutdown.")
}

func setupLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(env.GetEnv("LOG_LEVEL", "info"))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// checkFonts warns at startup when the fonts bucket lacks a font issuance needs.
func checkFonts(fonts *storage.Storage, required []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	present := make(map[string]struct{})
	for _, key := range fonts.ListFiles(ctx, 100, &s3.ListObjectsV2Input{}) {
		present[key] = struct{}{}
	}
	for _, name := range required {
		if _, ok := present[name]; !ok {
			slog.Warn("font missing from fonts bucket", "bucket", fonts.Bucket(), "font", name)
		}
	}
}
