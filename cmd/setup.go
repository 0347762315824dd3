package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/ai"
	"github.com/spigell/internship-recommender/internal/ai/gemini"
	"github.com/spigell/internship-recommender/internal/ai/openai"
	"github.com/spigell/internship-recommender/internal/logger"
	"github.com/spigell/internship-recommender/internal/ranking"
	"github.com/spigell/internship-recommender/internal/recommender"
	"github.com/spigell/internship-recommender/internal/secrets"
	"github.com/spigell/internship-recommender/internal/vectorcache"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

// bootstrap builds the logger and reads the config. Any failure is fatal.
func bootstrap() (*Config, *zap.Logger) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}
	if config.Embedder == nil {
		config.Embedder = &EmbedderConfig{}
	}
	if config.Watch == nil {
		config.Watch = &WatchConfig{}
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return config, logger
}

func redacted(config *Config) Config {
	out := *config
	if config.Embedder != nil {
		embedder := *config.Embedder
		if embedder.APIKey != "" {
			embedder.APIKey = "***"
		}
		out.Embedder = &embedder
	}
	return out
}

// newEmbedder creates the configured provider wrapped in the query cache.
func newEmbedder(ctx context.Context, config *EmbedderConfig, log *zap.Logger) (ai.Embedder, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))

	var (
		embedder ai.Embedder
		err      error
	)
	switch provider {
	case gemini.Provider, "":
		var key string
		key, err = secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: config.APIKey,
			File:  config.APIKeyFile,
			Env:   []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"},
		})
		if err != nil {
			return nil, err
		}
		embedder, err = gemini.NewEmbedder(ctx, key, config.Model, config.Dimensions, log)
	case openai.Provider:
		var key string
		key, err = secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: config.APIKey,
			File:  config.APIKeyFile,
			Env:   []string{"OPENAI_API_KEY"},
		})
		if err != nil {
			return nil, err
		}
		embedder, err = openai.NewEmbedder(key, config.Model, config.Dimensions, log)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", config.Provider)
	}
	if err != nil {
		return nil, err
	}

	if config.QueryCache != nil {
		embedder = ai.NewQueryCache(embedder, config.QueryCache.Size, config.QueryCache.TTL, log)
	}
	return embedder, nil
}

// newService wires the store, the ranker and the service. Failures are fatal.
func newService(ctx context.Context, config *Config, log *zap.Logger) *recommender.Service {
	embedder, err := newEmbedder(ctx, config.Embedder, log)
	if err != nil {
		log.Fatal(
			"creating the embedding provider",
			zap.Error(err),
			zap.String("hint", "set GOOGLE_API_KEY or OPENAI_API_KEY, or the 'embedder.api-key-file' key in the configuration file"),
		)
	}

	store := vectorcache.NewStore(config.Catalog, config.Embeddings, embedder, log)
	return recommender.New(store, ranking.NewRanker(embedder, log), log)
}

// newOfflineService works on the files only and never calls the provider.
func newOfflineService(config *Config, log *zap.Logger) *recommender.Service {
	store := vectorcache.NewStore(config.Catalog, config.Embeddings, nil, log)
	return recommender.New(store, nil, log)
}

func printJSON(v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(pretty))
	return err
}

// confirm asks a yes/no question unless autoApprove is set.
func confirm(label string, autoApprove bool) (bool, error) {
	if autoApprove {
		return true, nil
	}

	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptYes, PromptNo},
	}
	_, answer, err := prompt.Run()
	if err != nil {
		return false, err
	}
	return answer == PromptYes, nil
}

// fatalOnServiceError logs a failed operation without echoing provider text
// as the message.
func fatalOnServiceError(log *zap.Logger, op string, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, recommender.ErrNoInternships):
		log.Fatal(op+" failed", zap.String("reason", "no internships data available"), zap.Error(err))
	case errors.Is(err, ai.ErrProvider):
		log.Fatal(op+" failed", zap.String("reason", "embedding provider error"), zap.Error(err))
	default:
		log.Fatal(op+" failed", zap.String("reason", "internal error"), zap.Error(err))
	}
}
