package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cadencehq/cadence/internal/config"
	"github.com/cadencehq/cadence/internal/infra/ai"
	"github.com/cadencehq/cadence/internal/infra/database"
	"github.com/cadencehq/cadence/internal/infra/http/handlers"
	"github.com/cadencehq/cadence/internal/infra/http/middleware"
	"github.com/cadencehq/cadence/internal/infra/mail"
	"github.com/cadencehq/cadence/internal/infra/queue"
	"github.com/cadencehq/cadence/internal/infra/research"
	"github.com/cadencehq/cadence/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// Repositories
	contactRepo := &database.ContactRepository{DB: db}
	campaignRepo := &database.CampaignRepository{DB: db}
	leadRepo := &database.LeadRepository{DB: db}
	logRepo := &database.EmailLogRepository{DB: db}

	// Dispatch and generation boundaries
	var mailer usecase.MailerInterface
	if cfg.MockEmail {
		log.Printf("[main] using mock mailer")
		mailer = mail.NewMockMailer()
	} else {
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}

	var aiService usecase.AIServiceInterface
	if cfg.MockAI {
		log.Printf("[main] using mock AI service")
		aiService = ai.NewMockAIService()
	} else {
		aiService = ai.NewOpenAIService(cfg.OpenAIKey, cfg.OpenAIModel)
	}

	researchService := research.NewPerplexityService(cfg.PerplexityKey, cfg.PerplexityModel)

	// Eventing (optional)
	var events usecase.EventPublisherInterface
	var rabbit *queue.RabbitMQ
	if cfg.AMQPURL != "" {
		rabbit, err = queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer rabbit.Close()
		events = queue.NewEventPublisher(rabbit.Ch)
	}

	// Use cases
	contactService := usecase.NewContactService(contactRepo)
	campaignService := usecase.NewCampaignService(campaignRepo, contactRepo, leadRepo)
	leadService := usecase.NewLeadService(leadRepo, logRepo, events)
	researchProcessor := usecase.NewResearchProcessor(leadRepo, researchService)

	processor := usecase.NewCampaignProcessor(
		campaignRepo, leadRepo, logRepo, mailer, aiService, events,
		usecase.ProcessorConfig{
			BatchSize:  cfg.ProcessorBatchSize,
			Interval:   cfg.ProcessorInterval,
			MaxRetries: cfg.MaxRetries,
			SendDelay:  cfg.SendDelay,
		},
	)
	generator := usecase.NewEmailGenerator(
		leadRepo, aiService,
		usecase.GeneratorConfig{
			BatchSize:    cfg.GeneratorBatchSize,
			Interval:     cfg.GeneratorInterval,
			StuckTimeout: cfg.GenerationTimeout,
		},
	)

	processor.Start(ctx)
	defer processor.Stop()
	generator.Start(ctx)
	defer generator.Stop()

	if rabbit != nil {
		consumer := queue.NewProviderConsumer(rabbit.Ch, leadService)
		if err := consumer.Start(ctx); err != nil {
			log.Fatalf("provider consumer: %v", err)
		}
	}

	// Handlers
	contactHandler := handlers.NewContactHandler(contactService)
	campaignHandler := handlers.NewCampaignHandler(campaignService, researchProcessor, leadService)
	leadHandler := handlers.NewLeadHandler(leadService)
	webhookHandler := handlers.NewWebhookHandler(leadService)
	jobsHandler := handlers.NewJobsHandler(processor, generator)
	healthHandler := handlers.NewHealthHandler(db)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-User-ID"},
	}))

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/contacts", func(r chi.Router) {
			r.Post("/", contactHandler.Create)
			r.Get("/", contactHandler.List)
			r.Get("/{id}", contactHandler.Get)
			r.Put("/{id}", contactHandler.Update)
			r.Delete("/{id}", contactHandler.Delete)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", campaignHandler.Create)
			r.Get("/", campaignHandler.List)
			r.Get("/{id}", campaignHandler.Get)
			r.Put("/{id}", campaignHandler.Update)
			r.Delete("/{id}", campaignHandler.Delete)
			r.Post("/{id}/start", campaignHandler.Start)
			r.Post("/{id}/pause", campaignHandler.Pause)
			r.Post("/{id}/leads", campaignHandler.AddLeads)
			r.Get("/{id}/leads", campaignHandler.ListLeads)
			r.Post("/{id}/retry-failed", campaignHandler.RetryFailedGeneration)
			r.Post("/{id}/research", campaignHandler.Research)
		})

		r.Route("/leads", func(r chi.Router) {
			r.Get("/{id}", leadHandler.Get)
			r.Get("/{id}/logs", leadHandler.Logs)
			r.Post("/{id}/simulate-reply", leadHandler.SimulateReply)
			r.Post("/{id}/regenerate", leadHandler.Regenerate)
			r.Put("/{id}/content", leadHandler.UpdateContent)
		})

		r.Post("/generation/bulk", leadHandler.BulkGenerate)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/processor/run", jobsHandler.RunProcessor)
			r.Post("/generator/run", jobsHandler.RunGenerator)
		})

		r.Post("/webhooks/email", webhookHandler.Handle)
	})

	addr := ":" + cfg.Port
	log.Printf("[main] cadence listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal(err)
	}
}
