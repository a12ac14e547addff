package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/greenpoints/internal/events"
	"github.com/nkiryanov/greenpoints/internal/logger"
)

const (
	defaultListenAddr        = "localhost:8000"
	defaultLoggingLevel      = logger.LevelInfo
	defaultEnvironment       = logger.EnvProduction
	defaultTxTimeout         = 5 * time.Second
	defaultSubmissionsTopic  = "recycling.submissions"
	defaultSubmissionWorkers = 4
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the ledger service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Upper bound for pool connections, zero keeps the pgxpool default
	DatabaseMaxConns int

	// Secret key shared with the session service, used to verify access tokens (HS256)
	SecretKey string

	// Environment
	Environment string

	// Upper bound for a ledger transaction
	TxTimeout time.Duration

	// Optional. Balance cache, disabled if empty
	RedisURL string

	// Optional. Ledger events are published to RabbitMQ, dropped if empty
	RabbitMQURL   string
	RabbitMQQueue string

	// Optional. Recycling submissions are consumed from Kafka, intake disabled if no brokers
	KafkaBrokers      []string
	KafkaTopic        string
	SubmissionWorkers int
}

func NewConfig() *Config {
	return &Config{
		LogLevel:          defaultLoggingLevel,
		ListenAddr:        defaultListenAddr,
		Environment:       defaultEnvironment,
		TxTimeout:         defaultTxTimeout,
		RabbitMQQueue:     events.DefaultQueue,
		KafkaTopic:        defaultSubmissionsTopic,
		SubmissionWorkers: defaultSubmissionWorkers,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}
	setList := func(o *[]string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = splitList(value)
			}
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":             setString(&c.ListenAddr),
		"DATABASE_URI":            setString(&c.DatabaseDSN),
		"DATABASE_MAX_CONNS":      setInt(&c.DatabaseMaxConns),
		"SECRET_KEY":              setString(&c.SecretKey),
		"LOG_LEVEL":               setString(&c.LogLevel),
		"ENVIRONMENT":             setString(&c.Environment),
		"TX_TIMEOUT":              setDuration(&c.TxTimeout),
		"REDIS_URL":               setString(&c.RedisURL),
		"RABBITMQ_URL":            setString(&c.RabbitMQURL),
		"RABBITMQ_QUEUE":          setString(&c.RabbitMQQueue),
		"KAFKA_BROKERS":           setList(&c.KafkaBrokers),
		"KAFKA_SUBMISSIONS_TOPIC": setString(&c.KafkaTopic),
		"SUBMISSION_WORKERS":      setInt(&c.SubmissionWorkers),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("env %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("greenpoints", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.IntVar(&c.DatabaseMaxConns, "db-max-conns", c.DatabaseMaxConns, "Max database pool connections")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.DurationVar(&c.TxTimeout, "tx-timeout", c.TxTimeout, "Ledger transaction timeout")
	fs.StringVar(&c.RedisURL, "redis", c.RedisURL, "Redis URL for the balance cache")
	fs.StringVar(&c.RabbitMQURL, "rabbitmq", c.RabbitMQURL, "RabbitMQ URL for ledger events")
	fs.StringVar(&c.RabbitMQQueue, "rabbitmq-queue", c.RabbitMQQueue, "RabbitMQ queue for ledger events")
	fs.StringSliceVar(&c.KafkaBrokers, "kafka-brokers", c.KafkaBrokers, "Kafka brokers, comma separated")
	fs.StringVar(&c.KafkaTopic, "kafka-topic", c.KafkaTopic, "Kafka topic with recycling submissions")
	fs.IntVarP(&c.SubmissionWorkers, "workers", "w", c.SubmissionWorkers, "Submission workers count")

	return fs.Parse(args)
}

// Check options that have no usable default
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.TxTimeout <= 0 {
		errs = append(errs, errors.New("transaction timeout has to be positive"))
	}
	if c.DatabaseMaxConns < 0 {
		errs = append(errs, errors.New("database max connections can't be negative"))
	}
	if c.SubmissionWorkers <= 0 {
		errs = append(errs, errors.New("submission workers count has to be positive"))
	}

	return errors.Join(errs...)
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
