// Package config provides configuration loading and validation for coopfunnel.
package config

import (
	"fmt"
	"strings"
	"time"
)

// State backends.
const (
	StateRedis  = "redis"
	StateMemory = "memory"
)

// Conversation drivers.
const (
	DriverDeterministic = "deterministic"
	DriverADK           = "adk"
)

// Speech providers.
const (
	SpeechGemini = "gemini"
	SpeechCloud  = "gcp"
	SpeechNone   = "none"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `json:"server"   mapstructure:"server"`
	Redis    RedisConfig    `json:"redis"    mapstructure:"redis"`
	State    StateConfig    `json:"state"    mapstructure:"state"`
	WhatsApp WhatsAppConfig `json:"whatsapp" mapstructure:"whatsapp"`
	Sheets   SheetsConfig   `json:"sheets"   mapstructure:"sheets"`
	Speech   SpeechConfig   `json:"speech"   mapstructure:"speech"`
	Agent    AgentConfig    `json:"agent"    mapstructure:"agent"`
	Coop     CoopConfig     `json:"coop"     mapstructure:"coop"`
	Ledger   LedgerConfig   `json:"ledger"   mapstructure:"ledger"`
	Timeouts Timeouts       `json:"timeouts" mapstructure:"timeouts"`
	Log      LogConfig      `json:"log"      mapstructure:"log"`
}

// ServerConfig configures the webhook listener.
type ServerConfig struct {
	Addr         string        `json:"addr"          mapstructure:"addr"`
	ReadTimeout  time.Duration `json:"read_timeout"  mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
}

// RedisConfig locates the state store.
type RedisConfig struct {
	Addr     string `json:"addr"               mapstructure:"addr"`
	Username string `json:"username,omitempty" mapstructure:"username"`
	Password string `json:"password,omitempty" mapstructure:"password"`
	DB       int    `json:"db"                 mapstructure:"db"`
}

// StateConfig selects where user state lives and for how long.
type StateConfig struct {
	Backend string        `json:"backend" mapstructure:"backend"`
	TTL     time.Duration `json:"ttl"     mapstructure:"ttl"`
}

// WhatsAppConfig holds Cloud API credentials.
type WhatsAppConfig struct {
	Token         string `json:"token"           mapstructure:"token"`
	PhoneNumberID string `json:"phone_number_id" mapstructure:"phone_number_id"`
	VerifyToken   string `json:"verify_token"    mapstructure:"verify_token"`
	BaseURL       string `json:"base_url"        mapstructure:"base_url"`
}

// SheetsConfig locates the positions and leads spreadsheet.
type SheetsConfig struct {
	SpreadsheetID string `json:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	PositionsTab  string `json:"positions_tab"  mapstructure:"positions_tab"`
	LeadsTab      string `json:"leads_tab"      mapstructure:"leads_tab"`
	// Credentials is inline service account JSON or a key file path; empty uses ADC.
	Credentials string `json:"credentials" mapstructure:"credentials"`
}

// SpeechConfig selects the voice note transcriber.
type SpeechConfig struct {
	Provider    string `json:"provider"    mapstructure:"provider"`
	Model       string `json:"model"       mapstructure:"model"`
	Language    string `json:"language"    mapstructure:"language"`
	APIKey      string `json:"api_key"     mapstructure:"api_key"`
	Credentials string `json:"credentials" mapstructure:"credentials"`
}

// AgentConfig selects the conversation driver.
type AgentConfig struct {
	Driver  string `json:"driver"   mapstructure:"driver"`
	AppName string `json:"app_name" mapstructure:"app_name"`
	Model   string `json:"model"    mapstructure:"model"`
	APIKey  string `json:"api_key"  mapstructure:"api_key"`
}

// CoopConfig points at the cooperative presentation and enrollment link.
type CoopConfig struct {
	InfoPath        string `json:"info_path"        mapstructure:"info_path"`
	ApplicationLink string `json:"application_link" mapstructure:"application_link"`
}

// LedgerConfig configures the local lead journal. An empty path disables it.
type LedgerConfig struct {
	JournalPath string `json:"journal_path" mapstructure:"journal_path"`
}

// Timeouts bound each collaborator call.
type Timeouts struct {
	Sheets   time.Duration `json:"sheets"   mapstructure:"sheets"`
	WhatsApp time.Duration `json:"whatsapp" mapstructure:"whatsapp"`
	Speech   time.Duration `json:"speech"   mapstructure:"speech"`
	Redis    time.Duration `json:"redis"    mapstructure:"redis"`
	Turn     time.Duration `json:"turn"     mapstructure:"turn"`
}

// LogConfig controls logging.
type LogConfig struct {
	Debug bool `json:"debug" mapstructure:"debug"`
}

// ValidateServe checks the settings the webhook service cannot run without.
func (c Config) ValidateServe() error {
	var errs []string
	if strings.TrimSpace(c.Sheets.SpreadsheetID) == "" {
		errs = append(errs, "sheets.spreadsheet_id is required")
	}
	if strings.TrimSpace(c.WhatsApp.VerifyToken) == "" {
		errs = append(errs, "whatsapp.verify_token is required")
	}
	if c.State.Backend == StateRedis && strings.TrimSpace(c.Redis.Addr) == "" {
		errs = append(errs, "redis.addr is required for the redis state backend")
	}
	if c.Agent.Driver == DriverADK && c.geminiKey(c.Agent.APIKey) == "" {
		errs = append(errs, "agent.api_key is required for the adk driver")
	}
	if c.Speech.Provider == SpeechGemini && c.geminiKey(c.Speech.APIKey) == "" {
		errs = append(errs, "speech.api_key (or agent.api_key) is required for gemini transcription")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SpeechAPIKey returns the key used for Gemini transcription.
func (c Config) SpeechAPIKey() string {
	return c.geminiKey(c.Speech.APIKey)
}

// AgentAPIKey returns the key used by the ADK driver.
func (c Config) AgentAPIKey() string {
	return c.geminiKey(c.Agent.APIKey)
}

// geminiKey falls back to the agent key so one GOOGLE_API_KEY serves both.
func (c Config) geminiKey(primary string) string {
	if k := strings.TrimSpace(primary); k != "" {
		return k
	}
	return strings.TrimSpace(c.Agent.APIKey)
}

// WhatsAppEnabled reports whether outbound messaging is configured.
func (c Config) WhatsAppEnabled() bool {
	return strings.TrimSpace(c.WhatsApp.Token) != "" && strings.TrimSpace(c.WhatsApp.PhoneNumberID) != ""
}
