package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cardiorisk/logging"
	"gopkg.in/yaml.v2"
)

const envPrefix = "CARDIORISK_"

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log logging.Config `yaml:"log"`
	ML  struct {
		ModelPath  string `yaml:"model_path"`
		ScalerPath string `yaml:"scaler_path"`
		CacheSize  int    `yaml:"cache_size"`
		Watch      bool   `yaml:"watch"`
	} `yaml:"ml"`
}

func Default() *Config {
	c := &Config{}
	c.Http.Port = 8080
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	c.Http.MaxBodyBytes = 1 << 20
	c.Database.Path = "data/cardiorisk.db"
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.ML.ModelPath = "models/heart_model.json"
	c.ML.ScalerPath = "models/heart_scaler.json"
	c.ML.CacheSize = 1024
	return c
}

// Load reads path over the defaults, then applies CARDIORISK_* environment
// overrides. An empty path or a missing file yields defaults plus env.
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		payload, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(payload, config); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(envPrefix + "PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", envPrefix, err)
		}
		c.Http.Port = port
	}
	if v, ok := lookup(envPrefix + "ALLOWED_ORIGINS"); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Http.AllowedOrigins = origins
	}
	if v, ok := lookup(envPrefix + "DB_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := lookup(envPrefix + "MODEL_PATH"); ok {
		c.ML.ModelPath = v
	}
	if v, ok := lookup(envPrefix + "SCALER_PATH"); ok {
		c.ML.ScalerPath = v
	}
	if v, ok := lookup(envPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.ML.CacheSize < 0 {
		return errors.New("ml.cache_size must not be negative")
	}
	return nil
}
