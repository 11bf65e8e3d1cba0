package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Asset backends. S3 talks to a MinIO/S3-compatible object store; Database
// keeps blobs in the primary database, which is only meant for development.
const (
	AssetBackendS3       = "s3"
	AssetBackendDatabase = "database"
)

type Config struct {
	Environment string `koanf:"environment"`
	Hostname    string `koanf:"-"`

	ServerHost string `koanf:"server.host"`
	ServerPort int    `koanf:"server.port"`

	DatabaseFilePath          string        `koanf:"database.file_path"`
	DatabaseDebug             bool          `koanf:"database.debug"`
	DatabaseConnectRetryCount int           `koanf:"database.connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database.connect_retry_delay"`
	DatabaseMaxRetries        int           `koanf:"database.max_retries"`
	DatabaseBusyTimeout       time.Duration `koanf:"database.busy_timeout"`

	JWTSecret string `koanf:"auth.jwt_secret"`

	// AssetBackend selects the object-storage variant at startup.
	AssetBackend   string `koanf:"assets.backend"`
	JSONBucket     string `koanf:"assets.json_bucket"`
	OriginalBucket string `koanf:"assets.original_bucket"`
	ImagesBucket   string `koanf:"assets.images_bucket"`

	MinioEndpoint  string `koanf:"minio.endpoint"`
	MinioAccessKey string `koanf:"minio.access_key"`
	MinioSecretKey string `koanf:"minio.secret_key"`
	MinioUseSSL    bool   `koanf:"minio.use_ssl"`

	// BookCacheSize bounds the in-memory cache of downloaded book JSON.
	BookCacheSize int `koanf:"book_cache_size"`
}

const (
	environmentENV = "ENVIRONMENT"
	configFileENV  = "CONFIG_FILE"
	envPrefix      = "BOOKA_"
)

// New loads the configuration: built-in defaults for the current
// environment, then an optional yaml config file, then BOOKA_* environment
// variable overrides.
func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		Hostname:                  hostname,
		ServerPort:                3141,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        5,
		DatabaseBusyTimeout:       5 * time.Second,
		JSONBucket:                "booka-lib-json",
		OriginalBucket:            "booka-lib-epub",
		ImagesBucket:              "booka-lib-images",
		AssetBackend:              AssetBackendS3,
		BookCacheSize:             128,
	}

	cfg.Environment = os.Getenv(environmentENV)
	switch cfg.Environment {
	case "development", "":
		cfg.Environment = "development"
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	k := koanf.New(".")

	if path := configFilePath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file: %s", path)
		}
	}

	err = k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return cfg, nil
}

func configFilePath() string {
	if path := os.Getenv(configFileENV); path != "" {
		return path
	}
	if _, err := os.Stat("booka.yaml"); err == nil {
		return "booka.yaml"
	}
	return ""
}
