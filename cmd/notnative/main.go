package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/k4ditano/notnative-app/internal/chunker"
	"github.com/k4ditano/notnative-app/internal/config"
	"github.com/k4ditano/notnative-app/internal/db/sqlitedb"
	"github.com/k4ditano/notnative-app/internal/domain"
	"github.com/k4ditano/notnative-app/internal/embedding"
	logpkg "github.com/k4ditano/notnative-app/internal/logger"
	"github.com/k4ditano/notnative-app/internal/metrics"
	"github.com/k4ditano/notnative-app/internal/repository/embcache"
	notesrepo "github.com/k4ditano/notnative-app/internal/repository/notes"
	healthuc "github.com/k4ditano/notnative-app/internal/usecase/health"
	memoryuc "github.com/k4ditano/notnative-app/internal/usecase/memory"
	reindexuc "github.com/k4ditano/notnative-app/internal/usecase/reindex"
	"github.com/k4ditano/notnative-app/internal/version"
)

func main() {
	cmd := &cli.Command{
		Name:    "notnative",
		Usage:   "semantic retrieval over a personal note collection",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "configuration environment (local, dev, prod)",
				Sources: cli.EnvVars("ENV"),
				Value:   "local",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "expose Prometheus metrics on this address (empty = disabled)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "index every .md note under a directory",
				ArgsUsage: "<dir>",
				Action:    runIndex,
			},
			{
				Name:      "search",
				Usage:     "semantic search over indexed notes",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "maximum results", Value: 5},
				},
				Action: runSearch,
			},
			{
				Name:      "remove",
				Usage:     "remove a note from the index",
				ArgsUsage: "<id>",
				Action:    runRemove,
			},
			{
				Name:   "clear",
				Usage:  "drop and recreate the whole index",
				Action: runClear,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err.Error())
	}
}

// app bundles the wired components shared by all subcommands.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	db     *sql.DB
	memory *memoryuc.NoteMemory
}

func newApp(cmd *cli.Command) (*app, error) {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	env := cmd.String("env")
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting notnative retrieval core",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("db_path", cfg.Storage.Path),
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
	)

	metrics.RegisterEmbeddingMetrics()

	db, err := sqlitedb.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	repo, err := notesrepo.New(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	client, err := embedding.NewClient(cfg.Embedding, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var embedder memoryuc.Embedder = client
	if cfg.Embedding.CacheEnabled {
		kv, err := sqlitedb.NewKV(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		embedder = embcache.New(client, kv, metrics.EmbeddingCacheTotal, logger)
	}

	mem := memoryuc.New(repo, embedder, client.Dimension(), cfg.Embedding.MinSimilarity, logger)

	if addr := cmd.String("metrics-addr"); addr != "" {
		startOpsListener(addr, healthuc.New(dbPinger{db}, repo), logger)
	}

	return &app{cfg: cfg, logger: logger, db: db, memory: mem}, nil
}

// dbPinger adapts *sql.DB to the health check contract.
type dbPinger struct {
	db *sql.DB
}

func (p dbPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (a *app) close() {
	_ = a.db.Close()
	_ = a.logger.Sync()
}

func startOpsListener(addr string, h *healthuc.Service, logger *zap.Logger) {
	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(logpkg.WithContext(req.Context(), logger)))
		})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		report := h.Check(req.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status != healthuc.Healthy {
			logpkg.FromContext(req.Context()).Warn("Health check degraded")
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	})

	go func() {
		logger.Info("Ops listener started", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, r); err != nil {
			logger.Warn("Ops listener stopped", zap.Error(err))
		}
	}()
}

func runIndex(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("usage: notnative index <dir>")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	notes, err := collectNotes(dir)
	if err != nil {
		return err
	}

	c := chunker.WithConfig(chunker.Config{
		MaxTokens:     a.cfg.Embedding.MaxChunkTokens,
		OverlapTokens: a.cfg.Embedding.OverlapTokens,
		CharsPerToken: chunker.DefaultConfig().CharsPerToken,
	})

	stats, err := reindexuc.New(a.memory, c, a.logger).Reindex(ctx, notes)
	if err != nil {
		return err
	}

	printStats(stats)
	return nil
}

// collectNotes reads every .md file under dir; the note id is the
// path relative to dir without the extension.
func collectNotes(dir string) ([]reindexuc.Note, error) {
	var notes []reindexuc.Note

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read note %s: %w", path, err)
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		id := strings.TrimSuffix(filepath.ToSlash(rel), ".md")

		notes = append(notes, reindexuc.Note{
			ID:      id,
			Content: string(content),
			Metadata: map[string]any{
				"path": filepath.ToSlash(rel),
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk notes dir %s: %w", dir, err)
	}
	return notes, nil
}

func printStats(stats domain.IndexStats) {
	fmt.Printf("notes: %d indexed, %d skipped, %d failed (%.0f%% success)\n",
		stats.IndexedNotes, stats.SkippedNotes, len(stats.Errors), stats.SuccessRate())
	fmt.Printf("chunks: %d, estimated tokens: %d\n", stats.TotalChunks, stats.TotalTokens)
	for _, e := range stats.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}

func runSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if query == "" {
		return fmt.Errorf("usage: notnative search <query>")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	results, err := a.memory.Search(ctx, query, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for _, r := range results {
		meta, _ := json.Marshal(r.Metadata)
		fmt.Printf("%.3f  %s  %s\n", r.Score, r.ID, meta)
	}
	return nil
}

func runRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: notnative remove <id>")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	return a.memory.RemoveNote(ctx, id)
}

func runClear(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	return a.memory.ClearAll(ctx)
}
