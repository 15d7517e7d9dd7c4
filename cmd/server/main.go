// Command server runs the orchestrator master: the control API and the
// scheduler tick loop, in one process.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nats-io/nats.go"

	"github.com/airflow-mini/orchestrator/internal/circuitbreaker"
	"github.com/airflow-mini/orchestrator/internal/dispatch"
	"github.com/airflow-mini/orchestrator/internal/dlq"
	"github.com/airflow-mini/orchestrator/internal/health"
	"github.com/airflow-mini/orchestrator/internal/intake"
	"github.com/airflow-mini/orchestrator/internal/retry"
	"github.com/airflow-mini/orchestrator/internal/scheduler"
	"github.com/airflow-mini/orchestrator/internal/state"
	"github.com/airflow-mini/orchestrator/internal/storage"
	"github.com/airflow-mini/orchestrator/pkg/api"
	"github.com/airflow-mini/orchestrator/pkg/api/middleware"
)

const version = "1.0.0"

func main() {
	log.Printf("starting orchestrator master v%s", version)

	apiKey := getEnv("MASTER_API_KEY", "airflow-mini-secret-key")
	dbPath := getEnv("MASTER_DB_PATH", "")
	host := getEnv("MASTER_HOST", "127.0.0.1")
	port := getEnv("MASTER_PORT", "8000")
	workers := parseWorkers(getEnv("MASTER_WORKERS", "8001,8002"))
	interval := parseInterval(getEnv("SCHEDULER_INTERVAL", "2.0"))

	db := mustConnectDB(dbPath)
	defer db.Close()

	if err := storage.RunMigrations(migrateConfigFromDSN(dbPath), "./migrations"); err != nil {
		log.Printf("warning: failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", getEnv("REDIS_HOST", "localhost"), getEnv("REDIS_PORT", "6379")),
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("warning: failed to connect to redis: %v", err)
	}
	cancel()

	redisPublisher := state.NewRedisPublisher(redisClient)
	historyPublisher := state.NewHistoryPublisher(db.DB)
	stateMgr := state.NewManager(state.NewMultiPublisher(redisPublisher, historyPublisher))

	workflowRepo := storage.NewWorkflowRepository(db.DB)
	runRepo := storage.NewRunRepository(db.DB)
	taskRepo := storage.NewTaskInstanceRepository(db.DB)
	dlqRepo := storage.NewDLQRepository(db.DB)

	dlqMgr := dlq.NewManager(dlqRepo, retry.DefaultReplayConfig())

	callbackURL := fmt.Sprintf("http://%s:%s/internal/task-result", host, port)
	dispatchClient := dispatch.New(workers, callbackURL, taskRepo, stateMgr)

	workerHealth := health.NewRegistry(workers, circuitbreaker.DefaultConfig())
	dispatchClient.SetHealthRegistry(workerHealth)

	natsConn := connectNATS(getEnv("NATS_URL", ""))
	if natsConn != nil {
		defer natsConn.Close()
	}
	heartbeats, err := health.NewHeartbeatTracker(natsConn)
	if err != nil {
		log.Printf("warning: failed to subscribe to worker heartbeats: %v", err)
		heartbeats = nil
	}

	sched := scheduler.New(interval, workflowRepo, runRepo, taskRepo, dispatchClient, stateMgr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	sched.Start(ctx)
	defer sched.Stop()

	in := intake.New(taskRepo, runRepo, workflowRepo, stateMgr, dlqMgr)

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	if getEnv("ENV", "development") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.Config{
		APIKey:    apiKey,
		Workflows: workflowRepo,
		Runs:      runRepo,
		Tasks:     taskRepo,
		Intake:    in,
		DLQ:       dlqMgr,
		Logger:    logger,
		RateLimit: middleware.NewRateLimiter(10, 20),
		Health: map[string]func() error{
			"database": func() error {
				sqlDB, err := db.DB.DB()
				if err != nil {
					return err
				}
				return sqlDB.Ping()
			},
			"redis": func() error {
				pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return redisClient.Ping(pingCtx).Err()
			},
		},
		Workers:    workerHealth,
		Heartbeats: heartbeats,
	})

	addr := fmt.Sprintf("%s:%s", host, port)
	log.Printf("master listening on %s, %d worker(s) configured, tick interval %s", addr, len(workers), interval)

	if err := router.Run(addr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func mustConnectDB(dbPath string) *storage.DB {
	if dbPath != "" {
		db, err := storage.NewDBFromDSN(dbPath)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		return db
	}

	db, err := storage.NewDB(storage.DefaultConfig())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return db
}

func migrateConfigFromDSN(dbPath string) *storage.MigrateConfig {
	cfg := storage.DefaultConfig()
	if dbPath == "" {
		return &storage.MigrateConfig{
			Host: cfg.Host, Port: cfg.Port, User: cfg.User,
			Password: cfg.Password, DBName: cfg.DBName, SSLMode: cfg.SSLMode,
		}
	}
	return dsnToMigrateConfig(dbPath, cfg)
}

// dsnToMigrateConfig extracts key=value pairs from a libpq-style DSN; any
// field it cannot find falls back to the default config's value.
func dsnToMigrateConfig(dsn string, fallback *storage.Config) *storage.MigrateConfig {
	cfg := &storage.MigrateConfig{
		Host: fallback.Host, Port: fallback.Port, User: fallback.User,
		Password: fallback.Password, DBName: fallback.DBName, SSLMode: fallback.SSLMode,
	}
	for _, part := range strings.Fields(dsn) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "host":
			cfg.Host = kv[1]
		case "port":
			cfg.Port = kv[1]
		case "user":
			cfg.User = kv[1]
		case "password":
			cfg.Password = kv[1]
		case "dbname":
			cfg.DBName = kv[1]
		case "sslmode":
			cfg.SSLMode = kv[1]
		}
	}
	return cfg
}

func parseWorkers(raw string) []string {
	var urls []string
	for _, part := range strings.Split(raw, ",") {
		port := strings.TrimSpace(part)
		if port == "" {
			continue
		}
		urls = append(urls, fmt.Sprintf("http://127.0.0.1:%s", port))
	}
	return urls
}

func parseInterval(raw string) time.Duration {
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds <= 0 {
		seconds = 2.0
	}
	return time.Duration(seconds * float64(time.Second))
}

// connectNATS dials url if set. Worker heartbeats are a liveness
// supplement, not a correctness requirement, so a missing or unreachable
// NATS server only disables the heartbeat view of /health.
func connectNATS(url string) *nats.Conn {
	if url == "" {
		return nil
	}
	conn, err := nats.Connect(url)
	if err != nil {
		log.Printf("warning: failed to connect to nats at %s: %v", url, err)
		return nil
	}
	return conn
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
