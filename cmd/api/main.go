package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gatehousehq/gatehouse/x/core"
	"github.com/gatehousehq/gatehouse/x/route"
	"github.com/gatehousehq/gatehouse/x/util"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/plugin/opentelemetry/tracing"
)

type CustomHandler struct {
	slog.Handler
}

func (h *CustomHandler) Handle(ctx context.Context, r slog.Record) error {

	r.AddAttrs(slog.String("type", "app"))

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(slog.String("traceID", span.SpanContext().TraceID().String()))
		r.AddAttrs(slog.String("spanID", span.SpanContext().SpanID().String()))
	}

	return h.Handler.Handle(ctx, r)
}

var version = "unknown"

func main() {

	handler := &CustomHandler{Handler: slog.NewJSONHandler(os.Stdout, nil)}
	slogger := slog.New(handler)
	slog.SetDefault(slogger)

	slog.Info(fmt.Sprintf("Gatehouse %s (%s) starting...", version, util.GetGitHash()))

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	config := util.Config{}
	configPath := os.Getenv("GATEHOUSE_CONFIG")
	if configPath == "" {
		configPath = "/etc/gatehouse/config.yaml"
	}

	err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if config.Server.EnableTrace {
		cleanup, err := setupTraceProvider(config.Server.TraceEndpoint, "gatehouse/api", version)
		if err != nil {
			panic(err)
		}
		defer cleanup()

		skipper := otelecho.WithSkipper(
			func(c echo.Context) bool {
				return c.Path() == "/metrics" || c.Path() == "/health"
			},
		)
		e.Use(otelecho.Middleware("api", skipper))
	}

	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace: "gatehouse",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
	}))

	e.Use(middleware.Recover())

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(config.Server.Dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		panic("failed to connect database")
	}
	sqlDB, err := db.DB() // for pinging
	if err != nil {
		panic("failed to connect database")
	}
	defer sqlDB.Close()

	err = db.Use(tracing.NewPlugin(
		tracing.WithDBName("postgres"),
	))
	if err != nil {
		panic("failed to setup tracing plugin")
	}

	slog.Info("start migrate")
	db.AutoMigrate(
		&core.User{},
		&core.RoleAssignment{},
	)

	rdb := redis.NewClient(&redis.Options{
		Addr: config.Server.RedisAddr,
	})
	err = redisotel.InstrumentTracing(
		rdb,
		redisotel.WithAttributes(
			attribute.KeyValue{
				Key:   "db.name",
				Value: attribute.StringValue("redis"),
			},
		),
	)
	if err != nil {
		panic("failed to setup tracing plugin")
	}

	table, err := route.NewTable(config.Gate.PublicPrefixes, config.Gate.AuthFlowPrefixes)
	if err != nil {
		slog.Error("invalid route configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	bootstrapService := SetupBootstrapService(db)
	sessionGate := SetupGate(table, db, rdb, bootstrapService, config)
	loginHandler := SetupLoginHandler(db, rdb, bootstrapService, config)

	e.GET("/health", func(c echo.Context) (err error) {
		ctx := c.Request().Context()

		err = sqlDB.Ping()
		if err != nil {
			return c.String(http.StatusInternalServerError, "db error")
		}

		err = rdb.Ping(ctx).Err()
		if err != nil {
			return c.String(http.StatusInternalServerError, "redis error")
		}

		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echoprometheus.NewHandler())

	// every other route passes the gate
	guarded := e.Group("", sessionGate.Middleware())

	guarded.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "content": "gatehouse " + version})
	})

	// login surface (AuthFlow)
	guarded.POST("/auth/login", loginHandler.Login)
	guarded.POST("/auth/logout", loginHandler.Logout)
	guarded.POST("/auth/bootstrap", loginHandler.Bootstrap)
	guarded.GET("/auth/status", loginHandler.Status)

	// admin surface (Protected + admin role)
	admin := guarded.Group("/admin", sessionGate.RequireAdmin())
	admin.GET("/dashboard", func(c echo.Context) error {
		actor, _ := c.Get(core.IdentityCtxKey).(*core.Identity)
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "content": actor})
	})
	admin.POST("/users", loginHandler.CreateUser)

	var adminCountMetrics = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gatehouse_admin_count",
			Help: "administrators in the authority of record",
		},
	)
	prometheus.MustRegister(adminCountMetrics)

	go func() {
		for {
			time.Sleep(15 * time.Second)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			exists, err := bootstrapService.AdminsExist(ctx)
			cancel()
			if err != nil {
				slog.Error(fmt.Sprintf("failed to check admin existence: %v", err))
				continue
			}
			if exists {
				adminCountMetrics.Set(1)
			} else {
				adminCountMetrics.Set(0)
			}
		}
	}()

	e.Logger.Fatal(e.Start(config.Server.Bind))
}

func setupTraceProvider(endpoint string, serviceName string, serviceVersion string) (func(), error) {

	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)

	if err != nil {
		return nil, err
	}

	resource := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(serviceVersion),
	)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(resource),
	)
	otel.SetTracerProvider(tracerProvider)

	propagator := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(propagator)

	cleanup := func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			slog.Error(fmt.Sprintf("Failed to shutdown tracer provider: %v", err))
		}
	}
	return cleanup, nil
}
