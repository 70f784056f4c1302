package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"genstudio/internal/config"
	"genstudio/internal/httpapi"
	"genstudio/internal/jobs"
	"genstudio/internal/ledger"
	"genstudio/internal/logging"
	"genstudio/internal/queue"
	"genstudio/internal/ratelimit"
	"genstudio/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	deps := &httpapi.Dependencies{JWTSecret: cfg.JWTSecret}

	// Pricing store: Postgres when configured, otherwise in memory
	var db *storage.DB
	if cfg.Database.URL != "" {
		dbCfg := storage.DefaultDBConfig(cfg.Database.URL)
		dbCfg.MaxOpenConns = cfg.Database.MaxOpenConns
		dbCfg.MaxIdleConns = cfg.Database.MaxIdleConns
		dbCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
		dbCfg.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
		dbCfg.PricingCacheSize = cfg.Cache.PricingCacheSize
		dbCfg.PricingCacheTTL = cfg.Cache.PricingCacheTTL

		db, err = storage.NewDB(dbCfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare schema: %v", err)
		}
		deps.Store = db.NewPricingRepository()
		deps.Health = db.Health
		go cleanupCache(ctx, db, cfg.Cache.PricingCacheTTL)
	} else {
		log.Println("DATABASE_URL not set, using in-memory pricing store")
		deps.Store = storage.NewMemoryPricingStore()
	}

	// Credits, job queue and rate limiting: Redis when configured
	qcfg := queue.DefaultConfig(cfg.Jobs.QueueName)
	qcfg.BatchSize = cfg.Jobs.BatchSize
	qcfg.BatchTimeout = cfg.Jobs.BatchTimeout
	qcfg.MaxRetries = cfg.Jobs.MaxRetries
	qcfg.RetryBackoff = cfg.Jobs.RetryBackoff
	qcfg.Capacity = cfg.Jobs.BufferSize

	var (
		rdb     *redis.Client
		q       queue.Queue[jobs.Descriptor]
		dlq     queue.DeadLetterQueue[jobs.Descriptor]
		limiter ratelimit.Limiter
	)
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		deps.Ledger = ledger.NewRedisLedger(rdb, cfg.Jobs.LedgerRefTTL)
		q = queue.NewRedisQueue[jobs.Descriptor](rdb, qcfg.Name)
		dlq = queue.NewRedisDeadLetterQueue[jobs.Descriptor](rdb, qcfg.Name)
		limiter = ratelimit.NewRateLimiter(rdb)
	} else {
		log.Println("REDIS_ADDRESS not set, credits are not enforced and jobs are kept in memory")
		deps.Ledger = ledger.NewNoopLedger()
		q = queue.NewMemoryQueue[jobs.Descriptor](qcfg.Capacity)
		dlq = queue.NewMemoryDeadLetterQueue[jobs.Descriptor]()
		limiter = ratelimit.NewNoopLimiter()
	}
	deps.Submitter = jobs.NewQueueSubmitter(q, deps.Ledger, limiter, cfg.Jobs.SubmitRateLimit)

	// The dispatcher only forwards jobs when a generator endpoint is set;
	// otherwise an external worker drains the queue.
	var generator jobs.Generator = jobs.GeneratorFunc(func(context.Context, jobs.Descriptor) error {
		return jobs.ErrNoGenerator
	})
	if cfg.Jobs.GeneratorURL != "" {
		generator = jobs.NewHTTPGenerator(cfg.Jobs.GeneratorURL, cfg.Jobs.GeneratorToken, cfg.Jobs.GeneratorTimeout)
	}
	dispatcher := jobs.NewDispatcher(q, dlq, generator, deps.Ledger, qcfg)
	deps.Jobs = dispatcher
	if cfg.Jobs.GeneratorURL != "" {
		dispatcher.Start(ctx)
	}

	// Audit log for pricing edits
	if cfg.Audit.Enabled {
		audit, err := logging.NewAuditLogger(
			cfg.Audit.FilePathTemplate,
			cfg.Audit.MaxSize,
			cfg.Audit.MaxFiles,
			cfg.Audit.BufferSize,
			cfg.Audit.FlushInterval,
		)
		if err != nil {
			log.Fatalf("Failed to open audit log: %v", err)
		}
		if cfg.Audit.S3Bucket != "" {
			archiver, err := logging.NewS3Archiver(ctx, logging.S3ArchiverConfig{
				Bucket:   cfg.Audit.S3Bucket,
				Region:   cfg.Audit.S3Region,
				Prefix:   cfg.Audit.S3Prefix,
				PodName:  cfg.Audit.PodName,
				Endpoint: cfg.Audit.S3Endpoint,
			})
			if err != nil {
				log.Fatalf("Failed to create audit archiver: %v", err)
			}
			audit.SetArchiver(archiver)
		}
		deps.Audit = audit
	}

	// Create HTTP server
	addr := ":" + cfg.HTTPPort
	server := &http.Server{
		Addr:         addr,
		Handler:      httpapi.NewRouter(deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Pricing service listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Let the dispatcher finish its current batch
	if cfg.Jobs.GeneratorURL != "" {
		dispatcher.Stop()
	}
	cancelWorkers()

	// Flush remaining audit entries
	if deps.Audit != nil {
		deps.Audit.Shutdown()
	}

	if err := q.Close(); err != nil {
		log.Printf("Failed to close job queue: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if db != nil {
		_ = db.Close()
	}

	log.Println("Server exited")
}

// cleanupCache drops expired pricing cache entries once per TTL.
func cleanupCache(ctx context.Context, db *storage.DB, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := db.CleanupExpiredCacheEntries(); n > 0 {
				log.Printf("Removed %d expired pricing cache entries", n)
			}
		}
	}
}
