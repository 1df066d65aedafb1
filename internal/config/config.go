package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultSecret = "dev-secret-change-me"

// Config describes all runtime settings of the bridge. It is loaded once in
// main and passed down; optional backends are disabled by leaving their
// address empty.
type Config struct {
	Env string `yaml:"env" env:"APP_ENV" env-default:"dev"` // dev|stage|prod

	Log struct {
		Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"` // text|json
		Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	} `yaml:"log"`

	API struct {
		URL          string        `yaml:"url" env:"API_URL"`
		Mode         string        `yaml:"mode" env:"API_MODE" env-default:"puyo:duel"`
		PollInterval time.Duration `yaml:"poll-interval" env:"API_POLL_INTERVAL" env-default:"200ms"`
		RestartDelay time.Duration `yaml:"restart-delay" env:"API_RESTART_DELAY" env-default:"1s"`
		Timeout      time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"30s"`
		PollTimeout  time.Duration `yaml:"poll-timeout" env:"API_POLL_TIMEOUT" env-default:"0s"` // 0: polls wait as long as the provider holds them
		Retries      uint64        `yaml:"retries" env:"API_RETRIES" env-default:"3"`
		RetryDelay   time.Duration `yaml:"retry-delay" env:"API_RETRY_DELAY" env-default:"500ms"`
		Secret       string        `yaml:"secret" env:"JWT_SECRET"`
		TokenTTL     time.Duration `yaml:"token-ttl" env:"JWT_TTL" env-default:"24h"`
	} `yaml:"api"`

	Bot struct {
		Command  string   `yaml:"command" env:"BOT_COMMAND"`
		Args     []string `yaml:"args" env:"BOT_ARGS" env-separator:" "`
		Name     string   `yaml:"name" env:"BOT_NAME"`
		Dir      string   `yaml:"dir" env:"BOT_DIR"`
		AutoJoin bool     `yaml:"autojoin" env:"BOT_AUTOJOIN" env-default:"false"`
	} `yaml:"bot"`

	Redis struct {
		Addr       string        `yaml:"addr" env:"REDIS_ADDR"`
		DB         int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
		JournalTTL time.Duration `yaml:"journal-ttl" env:"JOURNAL_TTL" env-default:"24h"`
	} `yaml:"redis"`

	Postgres struct {
		URL           string `yaml:"url" env:"DATABASE_URL"`
		RunMigrations bool   `yaml:"run-migrations" env:"RUN_MIGRATIONS" env-default:"false"`
	} `yaml:"postgres"`

	Monitor struct {
		Addr            string        `yaml:"addr" env:"MONITOR_ADDR"`
		User            string        `yaml:"user" env:"MONITOR_USER" env-default:"admin"`
		PasswordHash    string        `yaml:"password-hash" env:"MONITOR_PASSWORD_HASH"`
		ShutdownTimeout time.Duration `yaml:"shutdown-timeout" env:"MONITOR_SHUTDOWN_TIMEOUT" env-default:"10s"`
	} `yaml:"monitor"`
}

// Load reads the YAML file at path, if any, then applies environment
// overrides and defaults. It does not validate: flags may still fill in the
// bot command and API URL.
func Load(path string) (Config, error) {
	var c Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &c)
	} else {
		err = cleanenv.ReadEnv(&c)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.API.URL == "" {
		return errors.New("API URL is empty")
	}
	if c.Bot.Command == "" {
		return errors.New("bot command is empty")
	}
	if c.API.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.API.PollInterval)
	}
	if c.API.Timeout < 0 || c.API.PollTimeout < 0 {
		return fmt.Errorf("api timeouts must not be negative, got %s and %s", c.API.Timeout, c.API.PollTimeout)
	}
	if c.API.RestartDelay < 0 {
		return fmt.Errorf("restart delay must not be negative, got %s", c.API.RestartDelay)
	}
	if c.Env != "dev" && c.API.Secret == defaultSecret {
		return fmt.Errorf("refuse to run with default JWT_SECRET in %s", c.Env)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported LOG_FORMAT=%q (want text|json)", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported LOG_LEVEL=%q (want debug|info|warn|error)", c.Log.Level)
	}
	if c.Monitor.PasswordHash != "" && c.Monitor.Addr == "" {
		return errors.New("MONITOR_PASSWORD_HASH is set but MONITOR_ADDR is empty")
	}
	return nil
}
