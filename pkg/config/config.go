package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	HTTP     HTTPConfig     `yaml:"http"`
	Report   ReportConfig   `yaml:"report"`
	Log      LogConfig      `yaml:"log"`
}

type DatabaseConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	DBName        string `yaml:"dbname"`
	SSLMode       string `yaml:"sslmode"`
	MaxOpenConns  int    `yaml:"maxOpenConns"`
	MaxIdleConns  int    `yaml:"maxIdleConns"`
	MigrationsDir string `yaml:"migrationsDir"`
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// RedisConfig configures the job store. When disabled, jobs live in process memory.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KafkaConfig configures request dispatch. When disabled, the server runs reports in process.
type KafkaConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Brokers           []string `yaml:"brokers"`
	TopicReports      string   `yaml:"topicReports"`
	GroupID           string   `yaml:"groupID"`
	NumPartitions     int      `yaml:"numPartitions"`
	ReplicationFactor int      `yaml:"replicationFactor"`
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	MetricsPort     int           `yaml:"metricsPort"` // reporter's /metrics listener
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type ReportConfig struct {
	MaxLocations int           `yaml:"maxLocations"` // <= 0 means every store
	Workers      int           `yaml:"workers"`
	QueryRate    float64       `yaml:"queryRate"` // source calls per second, 0 = unlimited
	QueryBurst   int           `yaml:"queryBurst"`
	Attribution  string        `yaml:"attribution"` // segment-start or clip
	Format       string        `yaml:"format"`      // csv or xlsx
	Dir          string        `yaml:"dir"`
	RunTimeout   time.Duration `yaml:"runTimeout"`
	JobTimeout   time.Duration `yaml:"jobTimeout"`
	JobTTL       time.Duration `yaml:"jobTTL"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables (including a .env file).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}

	applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			User:          "store_user",
			Password:      "store_pass",
			DBName:        "store_monitor",
			SSLMode:       "disable",
			MaxOpenConns:  25,
			MaxIdleConns:  5,
			MigrationsDir: "migrations",
		},
		Redis: RedisConfig{
			Enabled: true,
			Addr:    "localhost:6379",
		},
		Kafka: KafkaConfig{
			Brokers:           []string{"localhost:9092"},
			TopicReports:      "store-monitor.reports",
			GroupID:           "store-monitor-reporter",
			NumPartitions:     3,
			ReplicationFactor: 1,
		},
		HTTP: HTTPConfig{
			Port:            8000,
			MetricsPort:     9102,
			ShutdownTimeout: 15 * time.Second,
		},
		Report: ReportConfig{
			MaxLocations: 200,
			Workers:      8,
			QueryBurst:   1,
			Attribution:  "segment-start",
			Format:       "csv",
			Dir:          "reports",
			RunTimeout:   30 * time.Minute,
			JobTimeout:   time.Hour,
			JobTTL:       24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s not found: %w", path, err)
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.MigrationsDir = getEnv("DB_MIGRATIONS_DIR", c.Database.MigrationsDir)

	c.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Kafka.Enabled = getEnvAsBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = getEnvAsSlice("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.TopicReports = getEnv("KAFKA_TOPIC_REPORTS", c.Kafka.TopicReports)
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)
	c.Kafka.NumPartitions = getEnvAsInt("KAFKA_NUM_PARTITIONS", c.Kafka.NumPartitions)
	c.Kafka.ReplicationFactor = getEnvAsInt("KAFKA_REPLICATION_FACTOR", c.Kafka.ReplicationFactor)

	c.HTTP.Port = getEnvAsInt("HTTP_PORT", c.HTTP.Port)
	c.HTTP.MetricsPort = getEnvAsInt("HTTP_METRICS_PORT", c.HTTP.MetricsPort)
	c.HTTP.ShutdownTimeout = getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", c.HTTP.ShutdownTimeout)

	c.Report.MaxLocations = getEnvAsInt("REPORT_MAX_LOCATIONS", c.Report.MaxLocations)
	c.Report.Workers = getEnvAsInt("REPORT_WORKERS", c.Report.Workers)
	c.Report.QueryRate = getEnvAsFloat("REPORT_QUERY_RATE", c.Report.QueryRate)
	c.Report.QueryBurst = getEnvAsInt("REPORT_QUERY_BURST", c.Report.QueryBurst)
	c.Report.Attribution = getEnv("REPORT_ATTRIBUTION", c.Report.Attribution)
	c.Report.Format = getEnv("REPORT_FORMAT", c.Report.Format)
	c.Report.Dir = getEnv("REPORT_DIR", c.Report.Dir)
	c.Report.RunTimeout = getEnvAsDuration("REPORT_RUN_TIMEOUT", c.Report.RunTimeout)
	c.Report.JobTimeout = getEnvAsDuration("REPORT_JOB_TIMEOUT", c.Report.JobTimeout)
	c.Report.JobTTL = getEnvAsDuration("REPORT_JOB_TTL", c.Report.JobTTL)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate rejects settings the services cannot start with
func (c *Config) Validate() error {
	if c.Report.Workers <= 0 {
		return fmt.Errorf("report workers must be positive, got %d", c.Report.Workers)
	}
	if c.Report.QueryRate < 0 {
		return fmt.Errorf("report query rate must not be negative")
	}
	if c.Report.Dir == "" {
		return fmt.Errorf("report directory is required")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.TopicReports == "") {
		return fmt.Errorf("kafka brokers and topic are required when kafka is enabled")
	}
	// Jobs are created by the server and completed by the reporter, so they must be shared.
	if c.Kafka.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("redis must be enabled when kafka is enabled")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
