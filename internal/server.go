package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/fitnesstracker/internal/config"
	"github.com/2beens/fitnesstracker/internal/docstore"
	"github.com/2beens/fitnesstracker/internal/ingest"
	"github.com/2beens/fitnesstracker/internal/mcp"
	"github.com/2beens/fitnesstracker/internal/middleware"
	"github.com/2beens/fitnesstracker/internal/telemetry/metrics"
	"github.com/2beens/fitnesstracker/internal/telemetry/tracing"
	"github.com/2beens/fitnesstracker/internal/users"
	"github.com/2beens/fitnesstracker/internal/workouts"
	"github.com/2beens/fitnesstracker/pkg"
)

const mainRouterName = "main-router"

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	store  docstore.Store
	dbPool *pgxpool.Pool

	// nil when redis is not configured: no user cache and no rate limiting
	redisClient *redis.Client

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	PostgresPassword        string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	store, dbPool, err := OpenStore(ctx, OpenStoreParams{
		Config:           cfg,
		PostgresPassword: params.PostgresPassword,
		TracingEnabled:   params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var extraCollectors []prometheus.Collector
	if dbPool != nil {
		extraCollectors = append(extraCollectors, pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		))
	}
	promRegistry := metrics.SetupPrometheus(extraCollectors...)
	metricsManager := metrics.NewManager("fitness", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	var rdb *redis.Client
	if cfg.RedisHost != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       0,
		})
		rdbStatus := rdb.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}
	} else {
		log.Warnln("redis not configured, user cache and rate limiting disabled")
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "fitnesstracker", rdb)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:      cfg,
		store:       store,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,

		redisClient: rdb,

		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware(mainRouterName))

	usersRepo := users.NewRepo(s.store)
	usersHandler := users.NewHandler(usersRepo)
	if s.redisClient != nil {
		usersHandler = users.NewHandler(users.NewCachedRepo(
			usersRepo,
			s.redisClient,
			time.Duration(s.config.UserCacheTTLSeconds)*time.Second,
			s.metricsManager,
		))
	}
	r.HandleFunc("/getUser/{id}", usersHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-user")
	r.HandleFunc("/getUserV2/{id}", usersHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-user-v2")
	r.HandleFunc("/getUsers", usersHandler.HandleList).Methods("GET", "OPTIONS").Name("list-users")
	r.HandleFunc("/checkUserByPhone", usersHandler.HandleCheckPhone).Methods("POST", "OPTIONS").Name("check-user-phone")
	r.HandleFunc("/createUser", usersHandler.HandleCreate).Methods("POST", "OPTIONS").Name("new-user")
	r.HandleFunc("/updateUser/{id}", usersHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-user")
	r.HandleFunc("/deleteUser/{id}", usersHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-user")

	workoutsRepo := workouts.NewRepo(s.store)
	prsRepo := ingest.NewPRRepo(s.store)
	templates := workouts.NewTemplateCache(
		workoutsRepo,
		s.config.TemplateCacheSizeMB*1024*1024,
		s.metricsManager,
	)
	workoutsService := workouts.NewService(
		workoutsRepo,
		templates,
		ingest.NewProcessor(prsRepo, s.metricsManager),
	)
	workoutsHandler := workouts.NewHandler(workoutsRepo, workoutsService, templates, prsRepo)

	r.HandleFunc("/users/{userId}/exercises", workoutsHandler.HandleCreateExercise).Methods("POST", "OPTIONS").Name("new-exercise")
	r.HandleFunc("/users/{userId}/exercises", workoutsHandler.HandleListExercises).Methods("GET", "OPTIONS").Name("list-exercises")
	r.HandleFunc("/users/{userId}/exercises/{exerciseId}", workoutsHandler.HandleGetExercise).Methods("GET", "OPTIONS").Name("get-exercise")
	r.HandleFunc("/users/{userId}/exercises/{exerciseId}", workoutsHandler.HandleUpdateExercise).Methods("PUT", "OPTIONS").Name("update-exercise")
	r.HandleFunc("/users/{userId}/exercises/{exerciseId}", workoutsHandler.HandleDeleteExercise).Methods("DELETE", "OPTIONS").Name("delete-exercise")

	r.HandleFunc("/users/{userId}/workouts", workoutsHandler.HandleSaveWorkout).Methods("POST", "OPTIONS").Name("new-workout")
	r.HandleFunc("/users/{userId}/workouts", workoutsHandler.HandleListWorkouts).Methods("GET", "OPTIONS").Name("list-workouts")
	r.HandleFunc("/users/{userId}/workouts/start", workoutsHandler.HandleStartWorkout).Methods("POST", "OPTIONS").Name("start-workout")
	r.HandleFunc("/users/{userId}/workouts/{workoutId}", workoutsHandler.HandleGetWorkout).Methods("GET", "OPTIONS").Name("get-workout")
	r.HandleFunc("/users/{userId}/workouts/{workoutId}", workoutsHandler.HandleUpdateWorkout).Methods("PUT", "OPTIONS").Name("update-workout")
	r.HandleFunc("/users/{userId}/workouts/{workoutId}", workoutsHandler.HandleDeleteWorkout).Methods("DELETE", "OPTIONS").Name("delete-workout")
	r.HandleFunc("/users/{userId}/workouts/{workoutId}/items", workoutsHandler.HandleListItems).Methods("GET", "OPTIONS").Name("list-workout-items")
	r.HandleFunc("/users/{userId}/workouts/{workoutId}/items/{itemId}", workoutsHandler.HandleGetItem).Methods("GET", "OPTIONS").Name("get-workout-item")
	r.HandleFunc("/users/{userId}/workouts/{workoutId}/prs/recompute", workoutsHandler.HandleRecomputePRs).Methods("POST", "OPTIONS").Name("recompute-prs")

	r.HandleFunc("/users/{userId}/prs", workoutsHandler.HandleListPRs).Methods("GET", "OPTIONS").Name("list-prs")
	r.HandleFunc("/users/{userId}/prs/{exerciseId}", workoutsHandler.HandleGetPR).Methods("GET", "OPTIONS").Name("get-pr")

	r.HandleFunc("/createWorkout", workoutsHandler.HandleCreateTemplate).Methods("POST", "OPTIONS").Name("new-template")
	r.HandleFunc("/getWorkout/{id}", workoutsHandler.HandleGetTemplate).Methods("GET", "OPTIONS").Name("get-template")
	r.HandleFunc("/getAllWorkouts", workoutsHandler.HandleListTemplates).Methods("GET", "OPTIONS").Name("list-templates")

	if s.config.MCPEnabled {
		mcpServer := mcp.NewServer(prsRepo, workoutsRepo)
		r.PathPrefix("/mcp").Handler(mcp.NewHTTPHandler(mcpServer)).Name("mcp")
	}

	r.HandleFunc("/version", s.handleVersion).Methods("GET", "OPTIONS").Name("version")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	if s.redisClient != nil {
		r.Use(middleware.RateLimit(
			redis_rate.NewLimiter(s.redisClient),
			mainRouterName,
			s.config.WritesRateLimitPerMin,
			s.metricsManager,
		))
	}
	r.Use(middleware.LimitAndDrainBody(int64(s.config.MaxRequestBodyKB) * 1024))

	return r
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, map[string]string{"version": s.versionInfo}, http.StatusOK)
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", otelhttp.NewHandler(
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
		"metrics",
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Duration(s.config.GracefulShutdownTimeout) * time.Second
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	if s.otelShutdown != nil {
		s.otelShutdown()
		log.Trace("otel shut down ...")
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Errorf("failed to close document store: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
