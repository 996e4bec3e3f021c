package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amiralserge/homevec/internal/config"
	"github.com/amiralserge/homevec/internal/db"
	dbredis "github.com/amiralserge/homevec/internal/db/redis"
	"github.com/amiralserge/homevec/internal/domain"
	"github.com/amiralserge/homevec/internal/domain/listing"
	"github.com/amiralserge/homevec/internal/index"
	"github.com/amiralserge/homevec/internal/ingest"
	logpkg "github.com/amiralserge/homevec/internal/logger"
	"github.com/amiralserge/homevec/internal/metrics"
	"github.com/amiralserge/homevec/internal/repository/embcache"
	listingsrepo "github.com/amiralserge/homevec/internal/repository/listings"
	"github.com/amiralserge/homevec/internal/transport/clip"
	openaiemb "github.com/amiralserge/homevec/internal/transport/openai"
	searchuc "github.com/amiralserge/homevec/internal/usecase/search"
	"github.com/amiralserge/homevec/internal/version"
)

const usage = `usage: homevec <command> [flags]

commands:
  init    create the listings index and load the extracts (-reset rebuilds from scratch)
  search  search listings by text, image, or both
  get     fetch one listing by id
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting homevec",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("command", command),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	domain.KeyPrefix = cfg.Storage.KeyPrefix

	// Create database store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbredis.NewStore(dbredis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver",
			zap.Error(fmt.Errorf("%w: %s", domain.ErrUnknownEngine, cfg.Database.Driver)))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register embedding metrics explicitly (no init())
	metrics.Register()

	// Build embedder chains — composition root
	oai := openaiemb.NewEmbedder(&openaiemb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})

	clipEmb, err := clip.NewEmbedder(&clip.Config{
		ModelPath:  cfg.Image.ModelPath,
		ModelName:  cfg.Image.ModelName,
		Dimensions: cfg.Image.Dimensions,
	})
	if err != nil {
		logger.Fatal("Failed to create image embedder", zap.Error(err))
	}
	defer clipEmb.Close()

	var textEmbedder domain.TextEmbedder = oai
	var imageEmbedder domain.ImageEmbedder = clipEmb
	if cfg.Embedding.CacheEnabled {
		textEmbedder = embcache.NewText(oai, oai.Model(), store, metrics.EmbeddingCacheTotal, logger)
		imageEmbedder = embcache.NewImage(clipEmb, clipEmb.Model(), store, metrics.EmbeddingCacheTotal, logger)
		logger.Info("Embedding cache enabled")
	}

	schema := listing.Schema(cfg.Embedding.Dimensions, cfg.Image.Dimensions)
	extract := ingest.New(cfg.Data.ListingsFile, cfg.Data.PicturesFile, cfg.Data.PicturesDir)

	repo := listingsrepo.New(store, extract, textEmbedder, imageEmbedder, schema, logger).
		WithBatchSize(cfg.Data.BatchSize).
		WithCandidateLimit(cfg.Search.CandidateLimit)

	manager := index.NewManager(repo, logger)
	if err := manager.Register(listing.Table, schema, index.TableHooks{
		Create:   repo.CreateTable,
		Populate: repo.PopulateTable,
	}); err != nil {
		logger.Fatal("Failed to register listings table", zap.Error(err))
	}

	svc := searchuc.New(repo)

	switch command {
	case "init":
		err = runInit(ctx, manager, args)
	case "search":
		err = runSearch(ctx, svc, args)
	case "get":
		err = runGet(ctx, svc, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("Command failed", zap.String("command", command), zap.Error(err))
	}
}

func runInit(ctx context.Context, manager *index.Manager, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	reset := fs.Bool("reset", false, "drop the index and stored rows before loading")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return manager.Init(ctx, *reset)
}

func runSearch(ctx context.Context, svc *searchuc.Service, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	text := fs.String("text", "", "query text")
	imagePath := fs.String("image", "", "path to a query image")
	limit := fs.Int("limit", 0, "maximum number of results (default 3)")
	textField := fs.String("text-field", "", "field used as document content (default summary)")
	columns := fs.String("columns", "", "comma-separated metadata columns (default: all non-vector fields)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var img []byte
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			return fmt.Errorf("read query image: %w", err)
		}
		img = data
	}

	docs, err := svc.Search(ctx, &searchuc.Query{
		Text:      *text,
		Image:     img,
		TextField: *textField,
		Columns:   splitColumns(*columns),
		Limit:     *limit,
	})
	if err != nil {
		return err
	}
	return printJSON(docs)
}

func runGet(ctx context.Context, svc *searchuc.Service, args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	id := fs.String("id", "", "listing id")
	textField := fs.String("text-field", "", "field used as document content (default summary)")
	columns := fs.String("columns", "", "comma-separated metadata columns (default: all non-vector fields)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: -id is required", domain.ErrInvalidSearchArgs)
	}

	doc, err := svc.GetByID(ctx, *id, &searchuc.GetOptions{
		TextField: *textField,
		Columns:   splitColumns(*columns),
	})
	if err != nil {
		return err
	}
	return printJSON(doc)
}

func splitColumns(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cols = append(cols, p)
		}
	}
	return cols
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
