package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	SQLitePath  string
	LogLevel    string
	Geocode     GeocodeConfig
	S3          S3Config
	Scheduler   SchedulerConfig
	Browser     BrowserConfig
	Search      SearchConfig
}

type GeocodeConfig struct {
	BaseURL string
	APIKey  string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for MinIO / DO Spaces / R2
	AccessKeyID     string
	SecretAccessKey string
}

type SchedulerConfig struct {
	Cron string
}

type BrowserConfig struct {
	Headless  bool
	TimeoutMS int
}

// SearchConfig tunes the geographic search. Loaded from config/search.yaml
// when present; the defaults target the Brisbane rental market.
type SearchConfig struct {
	CentreLatitude  float64 `yaml:"centre_latitude"`
	CentreLongitude float64 `yaml:"centre_longitude"`
	MaxDistanceKM   float64 `yaml:"max_distance_km"`
	State           string  `yaml:"state"`
	DepartureTime   string  `yaml:"departure_time"`
	PostcodeStart   int     `yaml:"postcode_start"`
	PostcodeEnd     int     `yaml:"postcode_end"`
}

const searchConfigPath = "config/search.yaml"

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "rent-finder.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Geocode: GeocodeConfig{
			BaseURL: getEnv("GEOCODE_BASE_URL", "https://geocode.maps.co"),
			APIKey:  os.Getenv("GEOCODE_API_KEY"),
		},
		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET", "rent-finder"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT_URL"),
			AccessKeyID:     os.Getenv("S3_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_ACCESS_KEY"),
		},
		Scheduler: SchedulerConfig{
			Cron: getEnv("SEARCH_CRON", "0 3 * * *"),
		},
		Browser: BrowserConfig{
			Headless:  os.Getenv("BROWSER_HEADLESS") != "false",
			TimeoutMS: getEnvInt("BROWSER_TIMEOUT_MS", 10000),
		},
		Search: SearchConfig{
			CentreLatitude:  -27.4681,
			CentreLongitude: 153.0265,
			MaxDistanceKM:   15,
			State:           "qld",
			DepartureTime:   "9:00 am",
			PostcodeStart:   4000,
			PostcodeEnd:     4999,
		},
	}

	if err := cfg.loadSearchConfig(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadSearchConfig() error {
	data, err := os.ReadFile(searchConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, &c.Search)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
