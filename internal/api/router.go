// Package api wires the HTTP surface: routes, middleware and the service
// graph behind them.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/askclass/backend/internal/api/handlers"
	"github.com/askclass/backend/internal/api/middleware"
	"github.com/askclass/backend/internal/auth"
	"github.com/askclass/backend/internal/cache"
	"github.com/askclass/backend/internal/classifier"
	"github.com/askclass/backend/internal/config"
	"github.com/askclass/backend/internal/document"
	"github.com/askclass/backend/internal/embedding"
	"github.com/askclass/backend/internal/llm"
	"github.com/askclass/backend/internal/qa"
	"github.com/askclass/backend/internal/queue"
	"github.com/askclass/backend/internal/rag"
	"github.com/askclass/backend/internal/report"
	"github.com/askclass/backend/internal/vectorstore"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
	llmGW *llm.Gateway
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) (*Router, error) {
	gateway, err := llm.NewGateway(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("build llm gateway: %w", err)
	}

	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		llmGW: gateway,
	}, nil
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	qaStore := qa.NewStore(rt.db)
	docSvc := document.NewService(rt.db)
	queueClient := queue.NewClient(rt.cfg.Redis)
	sessionCache := cache.NewCache(rt.redis)

	vs := vectorstore.NewPgVectorStore(rt.db)
	embedSvc := embedding.NewService(rt.llmGW, rt.cfg.LLM.EmbeddingModel)
	completion := llm.NewCompletionClient(rt.llmGW, rt.cfg.LLM.ChatModel)
	ragPipeline := rag.NewPipeline(qaStore, vs, embedSvc, completion, rt.cfg.LLM.ChatModel)

	classifierSvc := classifier.NewService(rt.llmGW, rt.cfg.LLM.ClassifyModel)
	reportCache := report.NewCache(rt.cfg.Report.CacheMaxAge, rt.cfg.Report.RebuildThreshold)
	aggregator := report.NewAggregator(qaStore, classifierSvc, reportCache)

	questionH := handlers.NewQuestionHandler(qaStore, ragPipeline, aggregator, sessionCache)
	documentH := handlers.NewDocumentHandler(docSvc, qaStore, queueClient, rt.cfg.Upload.Dir)
	sessionH := handlers.NewSessionHandler(qaStore, aggregator, sessionCache)

	// Per-actor limiter in front of the question endpoint; every ask fans
	// out into embedding and completion calls.
	askLimiter := middleware.NewRateLimiter(1, 5, func(req *http.Request) string {
		if actor := auth.ActorFromContext(req.Context()); actor != nil {
			return actor.ID.String()
		}
		return req.RemoteAddr
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleStudent))

			r.With(askLimiter.Limit).Post("/sessions/{sessionID}/questions", questionH.Ask)
			r.Get("/sessions/{sessionID}/questions/mine", questionH.MyQuestions)
			r.Get("/sessions/{sessionID}/report", questionH.ClassReport)
			r.Post("/answers/{answerID}/feedback", questionH.Feedback)
			r.Patch("/questions/{questionID}/publication", questionH.SetPublication)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleProfessor))

			r.Route("/professor", func(r chi.Router) {
				r.Post("/documents", documentH.Upload)
				r.Post("/documents/text", documentH.CreateText)
				r.Get("/documents/{id}/status", documentH.Status)
				r.Get("/courses/{courseID}/documents", documentH.List)

				r.Route("/sessions/{sessionID}", func(r chi.Router) {
					r.Get("/", sessionH.Get)
					r.Patch("/status", sessionH.UpdateStatus)
					r.Get("/report", sessionH.Report)
					r.Get("/questions", sessionH.Questions)
					r.Patch("/questions/{questionID}/review", sessionH.Review)
					r.Post("/documents/{documentID}", documentH.Link)
					r.Patch("/documents/{documentID}", documentH.SetLinkActive)
				})
			})
		})
	})

	return r
}
