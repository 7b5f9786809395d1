package main

import (
    "context"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/rs/zerolog/log"

    "github.com/local/pageforge/internal/cache"
    cfgpkg "github.com/local/pageforge/internal/config"
    "github.com/local/pageforge/internal/httpapi"
    "github.com/local/pageforge/internal/jobs"
    logpkg "github.com/local/pageforge/internal/logger"
    "github.com/local/pageforge/internal/metrics"
    "github.com/local/pageforge/internal/session"
    "github.com/local/pageforge/internal/storage"
    "github.com/local/pageforge/internal/store"
    "github.com/local/pageforge/internal/thumb"
)

func main() {
    _ = godotenv.Load()
    cfg := cfgpkg.FromEnv()

    // Init logging
    _ = logpkg.Init(logpkg.Options{
        Level: cfg.Logging.Level,
        Pretty: cfg.Logging.Pretty,
        File: cfg.Logging.File,
        MaxSizeMB: cfg.Logging.MaxSizeMB,
        MaxBackups: cfg.Logging.MaxBackups,
        MaxAgeDays: cfg.Logging.MaxAgeDays,
        Compress: cfg.Logging.Compress,
        SendToAxiom: cfg.Axiom.Send && cfg.Axiom.APIKey != "",
        AxiomAPIKey: cfg.Axiom.APIKey,
        AxiomOrgID: cfg.Axiom.OrgID,
        AxiomDataset: cfg.Axiom.Dataset,
        AxiomFlush: cfg.Axiom.FlushInterval,
    })
    defer logpkg.Close()

    metrics.Init()

    // Thumbnail cache
    cacheStore, err := cache.NewStore(cfg.Cache.Dir, cfg.Cache.MemoryCapacity)
    if err != nil {
        log.Fatal().Err(err).Str("dir", cfg.Cache.Dir).Msg("failed to init thumbnail cache")
    }

    // Job status store: Redis when configured, in-process otherwise
    var statusStore store.StatusStore
    if cfg.Store.RedisURL != "" {
        rs, err := store.NewRedisStatus(cfg.Store.RedisURL)
        if err != nil {
            log.Fatal().Err(err).Msg("failed to init redis status store")
        }
        statusStore = rs
    } else {
        statusStore = store.NewMemoryStatus()
        log.Info().Msg("no REDIS_URL set, job status kept in memory")
    }
    defer statusStore.Close()

    sessions := session.NewManager(cacheStore, session.Options{
        UndoDepth:  cfg.Engine.UndoDepth,
        AllowEmpty: cfg.Engine.AllowEmpty,
        Thumbnail:  thumb.Options{MaxSize: cfg.Thumbnail.MaxSize, Quality: cfg.Thumbnail.Quality},
    })
    defer sessions.CloseAll()

    runner := jobs.New(jobs.Config{Concurrency: cfg.Engine.AssemblyWorkers}, statusStore)
    runner.Start()
    defer runner.Stop(context.Background())

    if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
        log.Fatal().Err(err).Str("dir", cfg.Output.Dir).Msg("failed to create output dir")
    }

    api := httpapi.New(httpapi.Config{
        OutputDir:      cfg.Output.Dir,
        SmartThreshold: cfg.Engine.SmartThreshold,
    }, sessions, runner)
    if cfg.Output.S3Bucket != "" {
        outputs, err := storage.NewOutputStore(context.Background(), cfg.Output.S3Bucket)
        if err != nil {
            log.Fatal().Err(err).Str("bucket", cfg.Output.S3Bucket).Msg("failed to init output store")
        }
        api = api.WithOutputStore(outputs)
    }
    mux := http.NewServeMux()
    api.RegisterRoutes(mux)
    mux.Handle("/metrics", metrics.Handler())

    // Periodic disk cache cleanup
    cleanupStop := make(chan struct{})
    go func() {
        t := time.NewTicker(cfg.Cache.CleanupEvery)
        defer t.Stop()
        for {
            select {
            case <-cleanupStop:
                return
            case <-t.C:
                removed := cacheStore.Cleanup(cfg.Cache.MaxAge)
                if removed > 0 {
                    log.Info().Int("removed", removed).Msg("cache cleanup pass")
                }
            }
        }
    }()
    defer close(cleanupStop)

    port := os.Getenv("PORT")
    if port == "" { port = "8080" }
    srv := &http.Server{Addr: ":"+port, Handler: mux}

    go func(){
        log.Info().Msgf("HTTP server listening on :%s", port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("http server error")
        }
    }()

    // Graceful shutdown
    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    <-stop
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    _ = srv.Shutdown(ctx)
    fmt.Println("shutdown complete")
}
