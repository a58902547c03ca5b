package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. COOP_REDIS_ADDR.
const EnvPrefix = "COOP"

// aliases maps config keys to the environment names used by earlier deployments.
var aliases = map[string][]string{
	"whatsapp.token":           {"WHATSAPP_TOKEN"},
	"whatsapp.phone_number_id": {"WHATSAPP_PHONE_NUMBER_ID"},
	"whatsapp.verify_token":    {"WHATSAPP_VERIFY_TOKEN"},
	"sheets.spreadsheet_id":    {"SPREADSHEET_ID"},
	"sheets.credentials":       {"SA_JSON", "GOOGLE_APPLICATION_CREDENTIALS"},
	"agent.api_key":            {"GOOGLE_API_KEY"},
	"agent.model":              {"GENAI_MODEL"},
	"coop.application_link":    {"PIPEFY_URL"},
}

// SetDefaults registers every key with its default so env overrides apply.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "3m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("state.backend", StateRedis)
	v.SetDefault("state.ttl", "120h")

	v.SetDefault("whatsapp.token", "")
	v.SetDefault("whatsapp.phone_number_id", "")
	v.SetDefault("whatsapp.verify_token", "verify-me")
	v.SetDefault("whatsapp.base_url", "https://graph.facebook.com/v20.0")

	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.positions_tab", "Vagas")
	v.SetDefault("sheets.leads_tab", "Leads")
	v.SetDefault("sheets.credentials", "")

	v.SetDefault("speech.provider", SpeechGemini)
	v.SetDefault("speech.model", "gemini-2.0-flash")
	v.SetDefault("speech.language", "pt-BR")
	v.SetDefault("speech.api_key", "")
	v.SetDefault("speech.credentials", "")

	v.SetDefault("agent.driver", DriverDeterministic)
	v.SetDefault("agent.app_name", "coop_agent")
	v.SetDefault("agent.model", "gemini-2.0-flash")
	v.SetDefault("agent.api_key", "")

	v.SetDefault("coop.info_path", "")
	v.SetDefault("coop.application_link", "https://app.pipefy.com")

	v.SetDefault("ledger.journal_path", "coopfunnel.db")

	v.SetDefault("timeouts.sheets", "15s")
	v.SetDefault("timeouts.whatsapp", "30s")
	v.SetDefault("timeouts.speech", "60s")
	v.SetDefault("timeouts.redis", "3s")
	v.SetDefault("timeouts.turn", "2m")

	v.SetDefault("log.debug", false)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process environment.
// Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the YAML config file at path (optional when empty), applies environment
// overrides, validates the result against the schema and decodes it.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range aliases {
		args := append([]string{key, EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := ValidateSettings(v.AllSettings()); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.State.TTL <= 0 {
		cfg.State.TTL = 120 * time.Hour
	}
	return cfg, nil
}
