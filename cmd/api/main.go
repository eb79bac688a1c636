// Command api serves the multi-tenant RAG HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/livingtwin/ragsvc/internal/apperr"
	"github.com/livingtwin/ragsvc/internal/authz"
	"github.com/livingtwin/ragsvc/internal/chat"
	"github.com/livingtwin/ragsvc/internal/config"
	"github.com/livingtwin/ragsvc/internal/convrag"
	"github.com/livingtwin/ragsvc/internal/convstore"
	"github.com/livingtwin/ragsvc/internal/domain"
	"github.com/livingtwin/ragsvc/internal/embed"
	"github.com/livingtwin/ragsvc/internal/eventbus"
	"github.com/livingtwin/ragsvc/internal/health"
	"github.com/livingtwin/ragsvc/internal/jobmanager"
	"github.com/livingtwin/ragsvc/internal/jobstore"
	"github.com/livingtwin/ragsvc/internal/ports"
	"github.com/livingtwin/ragsvc/internal/rag"
	"github.com/livingtwin/ragsvc/internal/ratelimiter"
	"github.com/livingtwin/ragsvc/internal/vectorstore"
	"github.com/livingtwin/ragsvc/pkg/mid"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/openai/openai-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = 50
			c.ConnectionAcquisitionTimeout = 30 * time.Second
		})
	if err != nil {
		return fmt.Errorf("connect neo4j: %w", err)
	}
	defer driver.Close(context.Background())

	store, err := buildVectorStore(cfg, driver)
	if err != nil {
		return fmt.Errorf("build vector store: %w", err)
	}

	embedder := buildEmbedder(cfg)
	chatModel := buildChatModel(cfg)

	convos := convstore.NewNeo4j(driver)

	var jobs ports.JobStore
	if cfg.UseLocalMock {
		jobs = jobstore.NewMemory()
	} else {
		jobs = jobstore.NewNeo4j(driver)
	}

	ragOpts := rag.DefaultOptions()
	ragOpts.RagOnly = cfg.RagOnly
	ragSvc := rag.New(embedder, chatModel, store, ragOpts)
	convSvc := convrag.New(ragSvc, convos, cfg.RagOnly)

	var eventPublisher ports.EventPublisher
	if nc, err := nats.Connect(cfg.NATSURL); err == nil {
		bus, berr := eventbus.NewBus(nc, eventbus.NewMemoryKeyStore(), log)
		if berr != nil {
			log.Warn("event bus disabled", "error", berr)
		} else {
			eventPublisher = bus
		}
	} else {
		log.Warn("nats unavailable, events disabled", "error", err)
	}

	jobMgr := jobmanager.New(jobs, ragSvc, eventPublisher, log, cfg.IngestWorkers)
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	go jobMgr.Start(workerCtx)
	defer cancelWorkers()

	limiter := buildRateLimiter(cfg)
	metrics := health.NewMetrics(prometheus.DefaultRegisterer)

	srv := newServer(cfg, log, metrics, ragSvc, convSvc, jobs, jobMgr, limiter)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mid.Chain(srv, mid.Recover(log), mid.Logger(log), mid.CORS(cfg.CORSOrigin), mid.OTel("ragsvc-api")),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("serve failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func buildVectorStore(cfg config.Config, driver neo4j.DriverWithContext) (ports.VectorStore, error) {
	switch cfg.VectorStoreBackend {
	case "qdrant":
		return vectorstore.NewQdrant(cfg.QdrantAddr, cfg.QdrantCollection)
	default:
		return vectorstore.NewNeo4j(driver, cfg.VectorIndexName), nil
	}
}

func buildEmbedder(cfg config.Config) ports.Embedder {
	if cfg.LocalEmbeddings {
		return embed.NewLocal(cfg.EmbeddingDimensions)
	}
	switch cfg.LLMProvider {
	case "openai":
		return embed.NewOpenAI(cfg.OpenAIAPIKey, openai.EmbeddingModel(cfg.OpenAIEmbedModel), cfg.EmbeddingDimensions)
	case "ollama":
		return embed.NewOllama(cfg.OllamaBaseURL, cfg.OllamaEmbedModel, cfg.EmbeddingDimensions)
	default:
		return embed.NewLocal(cfg.EmbeddingDimensions)
	}
}

func buildChatModel(cfg config.Config) ports.ChatModel {
	if cfg.RagOnly {
		return chat.Stub{}
	}
	switch cfg.LLMProvider {
	case "openai":
		return chat.NewOpenAI(cfg.OpenAIAPIKey, openai.ChatModel(cfg.OpenAIModel))
	case "ollama":
		return chat.NewOllama(cfg.OllamaBaseURL, cfg.OllamaChatModel)
	default:
		return chat.Stub{}
	}
}

func buildRateLimiter(cfg config.Config) *ratelimiter.TenantRateLimiter {
	var store ratelimiter.Store
	if cfg.UseLocalMock {
		store = ratelimiter.NewMemory()
	} else {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store = ratelimiter.NewRedis(client, "ragsvc")
	}
	return ratelimiter.New(store, cfg.RateLimits())
}

// server holds everything the HTTP handlers need.
type server struct {
	chi.Router
	cfg     config.Config
	log     *slog.Logger
	metrics *health.Metrics
	rag     *rag.Service
	conv    *convrag.Service
	jobs    ports.JobStore
	jobMgr  *jobmanager.Manager
	limiter *ratelimiter.TenantRateLimiter
}

func newServer(cfg config.Config, log *slog.Logger, metrics *health.Metrics, ragSvc *rag.Service, convSvc *convrag.Service, jobs ports.JobStore, jobMgr *jobmanager.Manager, limiter *ratelimiter.TenantRateLimiter) *server {
	s := &server{cfg: cfg, log: log, metrics: metrics, rag: ragSvc, conv: convSvc, jobs: jobs, jobMgr: jobMgr, limiter: limiter}
	r := chi.NewRouter()

	r.Get("/api/health", health.HandleHealthz)
	r.Handle("/metrics", health.Handler())

	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/conversations/{id}/query", s.handleConversationalQuery)
	r.Post("/api/v1/conversations/query", s.handleConversationalQuery)
	r.Post("/api/v1/documents", s.handleIngestText)
	r.Get("/api/v1/documents", s.handleRecentDocuments)
	r.Post("/api/v1/jobs", s.handleSubmitJob)
	r.Get("/api/v1/jobs/{id}", s.handleGetJob)
	r.Get("/api/v1/jobs", s.handleListJobs)

	s.Router = r
	return s
}

// callerFromRequest resolves the caller identity. When BYPASS_AUTH is off
// and an Authorization header is present, the bearer token carries it;
// otherwise it comes from the X-Tenant-Id, X-User-Id and X-User-Role
// headers, with the demo tenant when X-Tenant-Id is empty.
func (s *server) callerFromRequest(r *http.Request) (domain.UserContext, error) {
	if auth := r.Header.Get("Authorization"); auth != "" && !s.cfg.BypassAuth {
		return authz.ParseBearer(auth)
	}

	tenant := r.Header.Get("X-Tenant-Id")
	if tenant == "" {
		tenant = string(domain.DemoTenant)
	}
	return domain.UserContext{
		UserID:   r.Header.Get("X-User-Id"),
		TenantID: domain.TenantID(tenant),
		Role:     r.Header.Get("X-User-Role"),
	}, nil
}

func (s *server) checkRateLimit(w http.ResponseWriter, r *http.Request, caller domain.UserContext) bool {
	allowed, err := s.limiter.Allow(r.Context(), caller.TenantID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInternal, err))
		return false
	}
	if !allowed {
		writeError(w, apperr.New(apperr.KindRateLimited, "rate limit exceeded"))
		return false
	}
	return true
}

type queryRequest struct {
	Question     string `json:"question"`
	ContextLimit int    `json:"contextLimit"`
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerFromRequest(r)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindUnauthorized, err))
		return
	}
	if !s.checkRateLimit(w, r, caller) {
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Field(apperr.KindValidation, "body", "invalid JSON"))
		return
	}

	answer, err := s.rag.Query(r.Context(), caller.TenantID, req.Question, req.ContextLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

type conversationalQueryRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId"`
	MemoryWindow   int    `json:"memoryWindow"`
}

func (s *server) handleConversationalQuery(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerFromRequest(r)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindUnauthorized, err))
		return
	}
	if !s.checkRateLimit(w, r, caller) {
		return
	}

	var req conversationalQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Field(apperr.KindValidation, "body", "invalid JSON"))
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = chi.URLParam(r, "id")
	}

	resp, err := s.conv.Query(r.Context(), caller, req.ConversationID, req.Question, req.MemoryWindow)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type ingestTextRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (s *server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerFromRequest(r)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindUnauthorized, err))
		return
	}

	var req ingestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Field(apperr.KindValidation, "body", "invalid JSON"))
		return
	}

	source, _, err := s.rag.IngestText(r.Context(), caller.TenantID, req.Title, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, source)
}

func (s *server) handleRecentDocuments(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerFromRequest(r)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindUnauthorized, err))
		return
	}
	sources, err := s.rag.GetRecentDocuments(r.Context(), caller.TenantID, 20)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerFromRequest(r)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindUnauthorized, err))
		return
	}

	var req ingestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Field(apperr.KindValidation, "body", "invalid JSON"))
		return
	}

	job, err := s.jobMgr.Submit(r.Context(), caller, req.Title, req.Text)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInternal, err))
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerFromRequest(r)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindUnauthorized, err))
		return
	}
	id := chi.URLParam(r, "id")

	job, err := s.jobs.GetJob(r.Context(), caller.TenantID, caller.UserID, id)
	if err != nil {
		if errors.Is(err, jobstore.ErrForbidden) {
			writeError(w, apperr.New(apperr.KindForbidden, "cannot access this job"))
			return
		}
		writeError(w, apperr.Wrap(apperr.KindNotFound, err))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerFromRequest(r)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindUnauthorized, err))
		return
	}
	jobs, err := s.jobs.ListJobs(r.Context(), caller.TenantID, caller.UserID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:   http.StatusBadRequest,
	apperr.KindUnauthorized: http.StatusUnauthorized,
	apperr.KindForbidden:    http.StatusForbidden,
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindTimeout:      http.StatusGatewayTimeout,
	apperr.KindUnavailable:  http.StatusServiceUnavailable,
	apperr.KindRateLimited:  http.StatusTooManyRequests,
	apperr.KindInternal:     http.StatusInternalServerError,
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperr.As(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": string(kind)})
}
