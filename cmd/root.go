package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "internship-recommender"
	envPrefix = "RECOMMENDER"
)

type Config struct {
	Catalog    string          `mapstructure:"catalog"`
	Embeddings string          `mapstructure:"embeddings"`
	Backup     string          `mapstructure:"backup"`
	TopK       int             `mapstructure:"top-k"`
	Embedder   *EmbedderConfig `mapstructure:"embedder"`
	Watch      *WatchConfig    `mapstructure:"watch"`
}

type EmbedderConfig struct {
	Provider   string            `mapstructure:"provider"`
	Model      string            `mapstructure:"model"`
	Dimensions int               `mapstructure:"dimensions"`
	APIKey     string            `mapstructure:"api-key"`
	APIKeyFile string            `mapstructure:"api-key-file"`
	QueryCache *QueryCacheConfig `mapstructure:"query-cache"`
}

type QueryCacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "internship-recommender ranks internship postings for a candidate profile",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is "+app+".yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("catalog", "", "internships catalog file")
	rootCmd.PersistentFlags().String("embeddings", "", "vector cache file")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("catalog", rootCmd.PersistentFlags().Lookup("catalog"))
	viper.BindPFlag("embeddings", rootCmd.PersistentFlags().Lookup("embeddings"))
}

func setDefaults() {
	viper.SetDefault("catalog", "internships.json")
	viper.SetDefault("embeddings", "embeddings.json")
	viper.SetDefault("backup", "embeddings_backup.json")
	viper.SetDefault("top-k", 5)
	viper.SetDefault("embedder.provider", "gemini")
	viper.SetDefault("embedder.model", "")
	viper.SetDefault("embedder.dimensions", 32)
	viper.SetDefault("embedder.api-key", "")
	viper.SetDefault("embedder.api-key-file", "")
	viper.SetDefault("embedder.query-cache.size", 256)
	viper.SetDefault("embedder.query-cache.ttl", "10m")
	viper.SetDefault("watch.debounce", "500ms")
}

func initConfig() {
	// A missing .env is fine; variables may come from the environment itself.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) && cfgFile == "" {
		return
	}
	// We can't proceed if the config file parsed with error.
	if err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
