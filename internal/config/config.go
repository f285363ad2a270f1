// Package config loads odpcore's runtime configuration from the
// environment, following the same getenv/getint/getduration idiom used
// throughout this repo's other services.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full set of tunables for an odpcore portal instance.
type Config struct {
	Addr     string
	LogLevel string

	OpensearchURL string
	ODDURL        string
	ReadCatalogue bool

	HTTPMaxConns      int
	HTTPNumRetries    int
	HTTPBackoffBase   time.Duration
	HTTPBackoffMax    time.Duration
	HTTPTimeout       time.Duration

	OpensearchPageParallelism int

	RedisAddr     string
	RedisPoolSize int

	KafkaBrokers        string
	KafkaInvalidateTopic string

	DatasetCacheSize int
	OpendapMemoSize  int
}

// FromEnv builds a Config from the process environment, applying defaults
// that match the public CCI Open Data Portal deployment.
func FromEnv() Config {
	return Config{
		Addr:     getenv("ADDR", ":8090"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		OpensearchURL: getenv("CEDA_OPENSEARCH_URL", "https://archive.opensearch.ceda.ac.uk/opensearch/request"),
		ODDURL:        getenv("CEDA_ODD_URL", "https://archive.opensearch.ceda.ac.uk/opensearch/description.xml"),
		ReadCatalogue: getbool("READ_CEDA_CATALOGUE", true),

		HTTPMaxConns:    getint("HTTP_MAX_CONNS", 50),
		HTTPNumRetries:  getint("HTTP_NUM_RETRIES", 3),
		HTTPBackoffBase: getduration("HTTP_BACKOFF_BASE_MS", 500*time.Millisecond),
		HTTPBackoffMax:  getduration("HTTP_BACKOFF_MAX_MS", 20*time.Second),
		HTTPTimeout:     getduration("HTTP_TIMEOUT", 30*time.Second),

		OpensearchPageParallelism: getint("OPENSEARCH_PAGE_PARALLELISM", 4),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPoolSize: getint("REDIS_POOL_SIZE", 10),

		KafkaBrokers:         getenv("KAFKA_BROKERS", ""),
		KafkaInvalidateTopic: getenv("KAFKA_INVALIDATE_TOPIC", "odpcore.cache-invalidate"),

		DatasetCacheSize: getint("DATASET_CACHE_SIZE", 4096),
		OpendapMemoSize:  getint("OPENDAP_MEMO_SIZE", 512),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		// A plain integer is read as a millisecond count for every key
		// (as HTTP_BACKOFF_BASE_MS-style keys carry); anything else is
		// parsed as a Go duration string.
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
