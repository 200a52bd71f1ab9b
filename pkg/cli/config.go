package cli

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/adapter"
	"github.com/m-mizutani/mnemo/pkg/interfaces"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/usecase/rag"
	"github.com/m-mizutani/mnemo/pkg/usecase/recall"
	"github.com/m-mizutani/mnemo/pkg/usecase/router"
	"github.com/m-mizutani/mnemo/pkg/usecase/summary"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	logLevel string
	dataDir  string

	// Memory store
	store             string
	boltPath          string
	firestoreProject  string
	firestoreDatabase string
	collection        string

	// LLM
	llm             string
	embedder        string
	geminiAPIKey    string
	geminiProject   string
	geminiLocation  string
	geminiModel     string
	embeddingModel  string
	embeddingDim    int64
	cacheSize       int64
	anthropicAPIKey string
	claudeModel     string

	// Profile
	profilePath string

	// History
	historyDir    string
	historyBucket string

	// Collaborators
	ipinfoToken string

	gemini *adapter.Gemini
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("MNEMO_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Directory for local data (bolt database, profile, histories)",
			Value:       ".mnemo",
			Sources:     cli.EnvVars("MNEMO_DATA_DIR"),
			Destination: &cfg.dataDir,
		},
	}
}

// storeFlags returns flags for the memory store
func storeFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Memory store backend (memory, bolt, firestore)",
			Value:       "bolt",
			Sources:     cli.EnvVars("MNEMO_STORE"),
			Destination: &cfg.store,
		},
		&cli.StringFlag{
			Name:        "bolt-path",
			Usage:       "Path of the bolt database (default: <data-dir>/memory.db)",
			Sources:     cli.EnvVars("MNEMO_BOLT_PATH"),
			Destination: &cfg.boltPath,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for Firestore",
			Sources:     cli.EnvVars("MNEMO_FIRESTORE_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("MNEMO_FIRESTORE_DATABASE"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection for memory records",
			Value:       "memories",
			Sources:     cli.EnvVars("MNEMO_FIRESTORE_COLLECTION"),
			Destination: &cfg.collection,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm",
			Usage:       "Generation backend (gemini, claude)",
			Value:       "gemini",
			Sources:     cli.EnvVars("MNEMO_LLM"),
			Destination: &cfg.llm,
		},
		&cli.StringFlag{
			Name:        "embedder",
			Usage:       "Embedding backend (gemini, hash). hash needs no credentials but has no semantics",
			Value:       "gemini",
			Sources:     cli.EnvVars("MNEMO_EMBEDDER"),
			Destination: &cfg.embedder,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini generative model",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("MNEMO_GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Gemini embedding model",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("MNEMO_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.IntFlag{
			Name:        "embedding-dim",
			Usage:       "Embedding dimensions",
			Value:       768,
			Sources:     cli.EnvVars("MNEMO_EMBEDDING_DIM"),
			Destination: &cfg.embeddingDim,
		},
		&cli.IntFlag{
			Name:        "embedding-cache",
			Usage:       "Number of embeddings kept in memory",
			Value:       10000,
			Sources:     cli.EnvVars("MNEMO_EMBEDDING_CACHE"),
			Destination: &cfg.cacheSize,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "claude-model",
			Usage:       "Claude model",
			Value:       "claude-sonnet-4-5",
			Sources:     cli.EnvVars("MNEMO_CLAUDE_MODEL"),
			Destination: &cfg.claudeModel,
		},
		&cli.StringFlag{
			Name:        "ipinfo-token",
			Usage:       "ipinfo.io token for IP location lookup",
			Sources:     cli.EnvVars("MNEMO_IPINFO_TOKEN"),
			Destination: &cfg.ipinfoToken,
		},
	}
}

// profileFlags returns flags for the profile store
func profileFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "profile",
			Usage:       "Path of the profile YAML file (default: <data-dir>/profile.yaml)",
			Sources:     cli.EnvVars("MNEMO_PROFILE"),
			Destination: &cfg.profilePath,
		},
	}
}

// historyFlags returns flags for conversation transcript storage
func historyFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "history-dir",
			Usage:       "Directory for conversation transcripts (default: <data-dir>)",
			Sources:     cli.EnvVars("MNEMO_HISTORY_DIR"),
			Destination: &cfg.historyDir,
		},
		&cli.StringFlag{
			Name:        "history-bucket",
			Usage:       "Cloud Storage bucket for conversation transcripts. Overrides --history-dir",
			Sources:     cli.EnvVars("MNEMO_HISTORY_BUCKET"),
			Destination: &cfg.historyBucket,
		},
	}
}

// withLogger attaches a logger built from --log-level to ctx
func (cfg *config) withLogger(ctx context.Context, w io.Writer) context.Context {
	logger := logging.New(cfg.logLevel, w)
	logging.SetDefault(logger)
	slog.SetDefault(logger)
	return logging.With(ctx, logger)
}

func (cfg *config) newGemini(ctx context.Context) (*adapter.Gemini, error) {
	if cfg.gemini != nil {
		return cfg.gemini, nil
	}

	opts := []adapter.GeminiOption{
		adapter.WithGenerativeModel(cfg.geminiModel),
		adapter.WithEmbeddingModel(cfg.embeddingModel),
		adapter.WithEmbeddingDimensions(int32(cfg.embeddingDim)),
	}
	switch {
	case cfg.geminiAPIKey != "":
		opts = append(opts, adapter.WithAPIKey(cfg.geminiAPIKey))
	case cfg.geminiProject != "":
		if cfg.geminiLocation == "" {
			return nil, goerr.New("gemini-location is required")
		}
		opts = append(opts, adapter.WithVertexAI(cfg.geminiProject, cfg.geminiLocation))
	default:
		return nil, goerr.New("gemini-api-key or gemini-project is required")
	}

	gemini, err := adapter.NewGemini(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	cfg.gemini = gemini
	return gemini, nil
}

// newEmbedder creates the embedding function shared by the memory store and profile index
func (cfg *config) newEmbedder(ctx context.Context) (*adapter.CachedEmbedder, error) {
	var base interfaces.Embedder
	switch cfg.embedder {
	case "gemini":
		gemini, err := cfg.newGemini(ctx)
		if err != nil {
			return nil, err
		}
		base = gemini
	case "hash":
		base = adapter.NewHashEmbedder(int(cfg.embeddingDim))
	default:
		return nil, goerr.New("unsupported embedder", goerr.V("embedder", cfg.embedder))
	}

	cached, err := adapter.NewCachedEmbedder(base, cfg.cacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

// newGenerator creates the generation backend selected by --llm
func (cfg *config) newGenerator(ctx context.Context) (interfaces.Generator, error) {
	switch cfg.llm {
	case "gemini":
		gemini, err := cfg.newGemini(ctx)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	case "claude":
		if cfg.anthropicAPIKey == "" {
			return nil, goerr.New("anthropic-api-key is required")
		}
		return adapter.NewClaude(cfg.anthropicAPIKey, adapter.WithClaudeModel(cfg.claudeModel)), nil
	default:
		return nil, goerr.New("unsupported llm", goerr.V("llm", cfg.llm))
	}
}

// newStore creates the memory store selected by --store. The returned func releases it.
func (cfg *config) newStore(ctx context.Context, embedder interfaces.Embedder) (repository.MemoryStore, func(), error) {
	switch cfg.store {
	case "memory":
		return repository.NewMemory(embedder), func() {}, nil

	case "bolt":
		path := cfg.boltPath
		if path == "" {
			path = filepath.Join(cfg.dataDir, "memory.db")
		}
		store, err := repository.NewBolt(path, embedder)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to open bolt store")
		}
		return store, func() { _ = store.Close() }, nil

	case "firestore":
		if cfg.firestoreProject == "" {
			return nil, nil, goerr.New("firestore-project is required")
		}
		if cfg.firestoreDatabase == "" {
			return nil, nil, goerr.New("firestore-database is required")
		}
		store, err := repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase, embedder,
			repository.WithCollection(cfg.collection))
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create firestore store")
		}
		return store, func() { _ = store.Close() }, nil

	default:
		return nil, nil, goerr.New("unsupported store", goerr.V("store", cfg.store))
	}
}

func (cfg *config) newProfiles() *repository.ProfileFile {
	path := cfg.profilePath
	if path == "" {
		path = filepath.Join(cfg.dataDir, "profile.yaml")
	}
	return repository.NewProfileFile(path)
}

// newStorage creates transcript storage. GCS takes precedence over the local directory.
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, func(), error) {
	if cfg.historyBucket != "" {
		storage, err := adapter.NewCloudStorage(ctx, cfg.historyBucket, "mnemo")
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create storage")
		}
		return storage, func() { _ = storage.Close() }, nil
	}

	dir := cfg.historyDir
	if dir == "" {
		dir = cfg.dataDir
	}
	return adapter.NewFileStorage(dir), func() {}, nil
}

// app is the wired set of components shared by commands
type app struct {
	embedder  *adapter.CachedEmbedder
	store     repository.MemoryStore
	profiles  repository.ProfileStore
	generator interfaces.Generator
	locator   interfaces.Locator
	recall    *recall.Retriever
	rag       *rag.RAG
	router    *router.Router

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newRetrieval wires the store, profile and retrievers. It needs no generation backend.
func (cfg *config) newRetrieval(ctx context.Context) (*app, error) {
	embedder, err := cfg.newEmbedder(ctx)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := cfg.newStore(ctx, embedder)
	if err != nil {
		embedder.Close()
		return nil, err
	}

	profiles := cfg.newProfiles()
	return &app{
		embedder: embedder,
		store:    store,
		profiles: profiles,
		recall:   recall.New(store),
		rag:      rag.New(profiles, embedder),
		closers:  []func(){embedder.Close, closeStore},
	}, nil
}

// newApp wires every component including the router
func (cfg *config) newApp(ctx context.Context) (*app, error) {
	a, err := cfg.newRetrieval(ctx)
	if err != nil {
		return nil, err
	}

	generator, err := cfg.newGenerator(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	classifier, err := cfg.newGemini(ctx)
	if err != nil {
		a.Close()
		return nil, goerr.Wrap(err, "intent classification requires gemini")
	}

	var locOpts []adapter.IPLocatorOption
	if cfg.ipinfoToken != "" {
		locOpts = append(locOpts, adapter.WithIPInfoToken(cfg.ipinfoToken))
	}
	a.generator = generator
	a.locator = adapter.NewIPLocator(locOpts...)

	summarizer := summary.New(generator)
	r, err := router.New(router.Deps{
		Recall:        a.recall,
		Profile:       a.rag,
		Profiles:      a.profiles,
		Classifier:    classifier,
		Generator:     generator,
		WebSearch:     adapter.NewWebSearch(),
		Locator:       a.locator,
		Summarizer:    summarizer,
		WebSummarizer: summarizer,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.router = r

	return a, nil
}
