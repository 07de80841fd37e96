package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sobia-kanwal/closet-on-wheels/internal/orders"
	"github.com/sobia-kanwal/closet-on-wheels/internal/pricing"
	"github.com/spf13/viper"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"

	OrdersStore    = "store"
	OrdersPostgres = "postgres"

	CatalogStore  = "store"
	CatalogSQLite = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	HTTPPort string `mapstructure:"HTTP_PORT"`
	GRPCPort string `mapstructure:"GRPC_PORT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	StoreBackend  string        `mapstructure:"STORE_BACKEND"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	MongoURI      string        `mapstructure:"MONGO_URI"`
	MongoDBName   string        `mapstructure:"MONGO_DB_NAME"`
	CartTTL       time.Duration `mapstructure:"CART_TTL"`

	OrdersBackend        string `mapstructure:"ORDERS_BACKEND"`
	DBHost               string `mapstructure:"DB_HOST"`
	DBPort               int    `mapstructure:"DB_PORT"`
	DBUser               string `mapstructure:"DB_USER"`
	DBPassword           string `mapstructure:"DB_PASSWORD"`
	DBName               string `mapstructure:"DB_NAME"`
	OrdersMigrationsPath string `mapstructure:"ORDERS_MIGRATIONS_PATH"`

	CatalogBackend        string `mapstructure:"CATALOG_BACKEND"`
	CatalogDBPath         string `mapstructure:"CATALOG_DB_PATH"`
	CatalogMigrationsPath string `mapstructure:"CATALOG_MIGRATIONS_PATH"`

	KafkaBrokers      string        `mapstructure:"KAFKA_BROKERS"`
	OrderEventsTopic  string        `mapstructure:"ORDER_EVENTS_TOPIC"`
	OutboxInterval    time.Duration `mapstructure:"OUTBOX_INTERVAL"`
	OutboxMaxAttempts int           `mapstructure:"OUTBOX_MAX_ATTEMPTS"`

	AdminAPIKey    string `mapstructure:"ADMIN_API_KEY"`
	TaxRate        string `mapstructure:"TAX_RATE"`
	CODDeliveryFee string `mapstructure:"COD_DELIVERY_FEE"`

	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var defaults = map[string]any{
	"HTTP_PORT":               "8080",
	"GRPC_PORT":               "50051",
	"LOG_LEVEL":               "info",
	"LOG_PRETTY":              false,
	"STORE_BACKEND":           StoreMemory,
	"REDIS_ADDR":              "localhost:6379",
	"REDIS_PASSWORD":          "",
	"MONGO_URI":               "mongodb://localhost:27017",
	"MONGO_DB_NAME":           "closet_on_wheels",
	"CART_TTL":                "168h",
	"ORDERS_BACKEND":          OrdersStore,
	"DB_HOST":                 "localhost",
	"DB_PORT":                 5432,
	"DB_USER":                 "postgres",
	"DB_PASSWORD":             "postgres",
	"DB_NAME":                 "orders",
	"ORDERS_MIGRATIONS_PATH":  "internal/orders/migrations",
	"CATALOG_BACKEND":         CatalogStore,
	"CATALOG_DB_PATH":         "catalog.db",
	"CATALOG_MIGRATIONS_PATH": "internal/catalog/migrations",
	"KAFKA_BROKERS":           "",
	"ORDER_EVENTS_TOPIC":      "order-confirmed",
	"OUTBOX_INTERVAL":         "1s",
	"OUTBOX_MAX_ATTEMPTS":     10,
	"ADMIN_API_KEY":           "",
	"TAX_RATE":                "0.05",
	"COD_DELIVERY_FEE":        "100",
	"REQUEST_TIMEOUT":         "30s",
	"SHUTDOWN_TIMEOUT":        "10s",
}

// Load reads configuration from defaults, an optional config file and the environment,
// in increasing order of precedence. An empty path looks for ./config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case StoreMemory, StoreRedis, StoreMongo:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown STORE_BACKEND %q", ErrInvalidConfig, c.StoreBackend))
	}
	switch c.OrdersBackend {
	case OrdersStore, OrdersPostgres:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown ORDERS_BACKEND %q", ErrInvalidConfig, c.OrdersBackend))
	}
	switch c.CatalogBackend {
	case CatalogStore, CatalogSQLite:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown CATALOG_BACKEND %q", ErrInvalidConfig, c.CatalogBackend))
	}
	if _, err := c.Calculator(); err != nil {
		errs = append(errs, err)
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: REQUEST_TIMEOUT must be positive", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// Calculator builds the pricing calculator from TAX_RATE and COD_DELIVERY_FEE.
func (c *Config) Calculator() (pricing.Calculator, error) {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil || rate.IsNegative() {
		return pricing.Calculator{}, fmt.Errorf("%w: TAX_RATE %q", ErrInvalidConfig, c.TaxRate)
	}
	fee, err := decimal.NewFromString(c.CODDeliveryFee)
	if err != nil || fee.IsNegative() {
		return pricing.Calculator{}, fmt.Errorf("%w: COD_DELIVERY_FEE %q", ErrInvalidConfig, c.CODDeliveryFee)
	}
	return pricing.Calculator{TaxRate: rate, CODFee: fee}, nil
}

// Brokers splits KAFKA_BROKERS on commas. Empty means publishing goes to the log only.
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (c *Config) OrdersCredentials() *orders.Credentials {
	return &orders.Credentials{
		Host:              c.DBHost,
		Port:              c.DBPort,
		User:              c.DBUser,
		Password:          c.DBPassword,
		DBName:            c.DBName,
		MigrationsDirPath: c.OrdersMigrationsPath,
	}
}
