// Package profile holds the read-only runtime configuration for the planning core.
package profile

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// InjectMode selects the injection decision strategy.
type InjectMode string

const (
	InjectModeSmart       InjectMode = "smart"
	InjectModeRule        InjectMode = "rule"
	InjectModeTraditional InjectMode = "traditional"
)

// Profile is the configuration used to start the planning core.
// It is populated once at startup and treated as read-only afterwards.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the HTTP surface
	Addr string
	// Port is the binding port for the HTTP surface
	Port int
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// DSN points to where planweaver stores its data
	DSN string
	// Version is the current version of the binary
	Version string

	// LLM provider settings
	LLMProvider string // PLANWEAVER_LLM_PROVIDER (openai-compatible endpoints)
	LLMAPIKey   string // PLANWEAVER_LLM_API_KEY
	LLMBaseURL  string // PLANWEAVER_LLM_BASE_URL
	LLMModel    string // PLANWEAVER_LLM_MODEL
	LLMMaxTok   int    // PLANWEAVER_LLM_MAX_TOKENS

	// Persona settings for schedule generation
	PersonaName   string // PLANWEAVER_PERSONA_NAME
	PersonaPrompt string // PLANWEAVER_PERSONA_PROMPT (extra prompt text, optional)

	// Generation settings
	UseMultiRound     bool          // PLANWEAVER_USE_MULTI_ROUND
	MaxRounds         int           // PLANWEAVER_MAX_ROUNDS
	QualityThreshold  float64       // PLANWEAVER_QUALITY_THRESHOLD
	MinActivities     int           // PLANWEAVER_MIN_ACTIVITIES
	MaxActivities     int           // PLANWEAVER_MAX_ACTIVITIES
	MinDescriptionLen int           // PLANWEAVER_MIN_DESCRIPTION_LENGTH
	MaxDescriptionLen int           // PLANWEAVER_MAX_DESCRIPTION_LENGTH
	GenerationTimeout time.Duration // PLANWEAVER_GENERATION_TIMEOUT

	// Cache settings
	CacheTTL     time.Duration // PLANWEAVER_CACHE_TTL
	CacheMaxSize int           // PLANWEAVER_CACHE_MAX_SIZE

	// Auto scheduling settings
	AutoScheduleTime string // PLANWEAVER_AUTO_SCHEDULE_TIME, "HH:MM"
	Timezone         string // PLANWEAVER_TIMEZONE, IANA name
	RetentionDays    int    // PLANWEAVER_RETENTION_DAYS

	// Conversation context settings
	ContextMaxTurns  int           // PLANWEAVER_CONTEXT_MAX_TURNS
	ContextTTL       time.Duration // PLANWEAVER_CONTEXT_TTL
	ContinuityWindow time.Duration // PLANWEAVER_CONTINUITY_WINDOW

	// Injection settings
	InjectMode        InjectMode // PLANWEAVER_INJECT_MODE
	InjectPolicy      string     // PLANWEAVER_INJECT_POLICY, CEL expression for rule mode
	CasualInjectProb  float64    // PLANWEAVER_CASUAL_INJECT_PROBABILITY
	MaxFutureInDecide int        // PLANWEAVER_MAX_FUTURE_ACTIVITIES
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Default returns a profile with the defaults the original deployment shipped with.
func Default() *Profile {
	return &Profile{
		Mode:              "dev",
		Addr:              "",
		Port:              8081,
		Driver:            "sqlite",
		DSN:               "planweaver.db",
		LLMProvider:       "openai",
		LLMModel:          "gpt-4o-mini",
		LLMBaseURL:        "https://api.openai.com/v1",
		LLMMaxTok:         8192,
		PersonaName:       "麦麦",
		UseMultiRound:     true,
		MaxRounds:         3,
		QualityThreshold:  0.80,
		MinActivities:     8,
		MaxActivities:     15,
		MinDescriptionLen: 15,
		MaxDescriptionLen: 50,
		GenerationTimeout: 3 * time.Minute,
		CacheTTL:          5 * time.Minute,
		CacheMaxSize:      100,
		AutoScheduleTime:  "06:30",
		Timezone:          "Asia/Shanghai",
		RetentionDays:     30,
		ContextMaxTurns:   3,
		ContextTTL:        10 * time.Minute,
		ContinuityWindow:  time.Minute,
		InjectMode:        InjectModeSmart,
		CasualInjectProb:  0.5,
		MaxFutureInDecide: 3,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// FromEnv overrides profile fields from PLANWEAVER_* environment variables.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("PLANWEAVER_MODE", p.Mode)
	p.Addr = getEnvOrDefault("PLANWEAVER_ADDR", p.Addr)
	p.Port = getEnvInt("PLANWEAVER_PORT", p.Port)
	p.Driver = getEnvOrDefault("PLANWEAVER_DRIVER", p.Driver)
	p.DSN = getEnvOrDefault("PLANWEAVER_DSN", p.DSN)

	p.LLMProvider = getEnvOrDefault("PLANWEAVER_LLM_PROVIDER", p.LLMProvider)
	p.LLMAPIKey = getEnvOrDefault("PLANWEAVER_LLM_API_KEY", p.LLMAPIKey)
	p.LLMBaseURL = getEnvOrDefault("PLANWEAVER_LLM_BASE_URL", p.LLMBaseURL)
	p.LLMModel = getEnvOrDefault("PLANWEAVER_LLM_MODEL", p.LLMModel)
	p.LLMMaxTok = getEnvInt("PLANWEAVER_LLM_MAX_TOKENS", p.LLMMaxTok)

	p.PersonaName = getEnvOrDefault("PLANWEAVER_PERSONA_NAME", p.PersonaName)
	p.PersonaPrompt = getEnvOrDefault("PLANWEAVER_PERSONA_PROMPT", p.PersonaPrompt)

	p.UseMultiRound = getEnvBool("PLANWEAVER_USE_MULTI_ROUND", p.UseMultiRound)
	p.MaxRounds = getEnvInt("PLANWEAVER_MAX_ROUNDS", p.MaxRounds)
	p.QualityThreshold = getEnvFloat("PLANWEAVER_QUALITY_THRESHOLD", p.QualityThreshold)
	p.MinActivities = getEnvInt("PLANWEAVER_MIN_ACTIVITIES", p.MinActivities)
	p.MaxActivities = getEnvInt("PLANWEAVER_MAX_ACTIVITIES", p.MaxActivities)
	p.MinDescriptionLen = getEnvInt("PLANWEAVER_MIN_DESCRIPTION_LENGTH", p.MinDescriptionLen)
	p.MaxDescriptionLen = getEnvInt("PLANWEAVER_MAX_DESCRIPTION_LENGTH", p.MaxDescriptionLen)
	p.GenerationTimeout = getEnvDuration("PLANWEAVER_GENERATION_TIMEOUT", p.GenerationTimeout)

	p.CacheTTL = getEnvDuration("PLANWEAVER_CACHE_TTL", p.CacheTTL)
	p.CacheMaxSize = getEnvInt("PLANWEAVER_CACHE_MAX_SIZE", p.CacheMaxSize)

	p.AutoScheduleTime = getEnvOrDefault("PLANWEAVER_AUTO_SCHEDULE_TIME", p.AutoScheduleTime)
	p.Timezone = getEnvOrDefault("PLANWEAVER_TIMEZONE", p.Timezone)
	p.RetentionDays = getEnvInt("PLANWEAVER_RETENTION_DAYS", p.RetentionDays)

	p.ContextMaxTurns = getEnvInt("PLANWEAVER_CONTEXT_MAX_TURNS", p.ContextMaxTurns)
	p.ContextTTL = getEnvDuration("PLANWEAVER_CONTEXT_TTL", p.ContextTTL)
	p.ContinuityWindow = getEnvDuration("PLANWEAVER_CONTINUITY_WINDOW", p.ContinuityWindow)

	p.InjectMode = InjectMode(getEnvOrDefault("PLANWEAVER_INJECT_MODE", string(p.InjectMode)))
	p.InjectPolicy = getEnvOrDefault("PLANWEAVER_INJECT_POLICY", p.InjectPolicy)
	p.CasualInjectProb = getEnvFloat("PLANWEAVER_CASUAL_INJECT_PROBABILITY", p.CasualInjectProb)
	p.MaxFutureInDecide = getEnvInt("PLANWEAVER_MAX_FUTURE_ACTIVITIES", p.MaxFutureInDecide)
}

// Validate checks the profile for settings the core cannot run with.
func (p *Profile) Validate() error {
	switch p.Driver {
	case "sqlite", "postgres":
	default:
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}
	if p.DSN == "" {
		return errors.New("dsn is required")
	}
	if p.MaxRounds < 1 {
		return errors.New("max_rounds must be at least 1")
	}
	if p.QualityThreshold < 0 || p.QualityThreshold > 1 {
		return errors.Errorf("quality_threshold must be within [0,1], got %v", p.QualityThreshold)
	}
	if p.MinActivities < 1 || p.MaxActivities < p.MinActivities {
		return errors.Errorf("invalid activity count range [%d,%d]", p.MinActivities, p.MaxActivities)
	}
	if p.MinDescriptionLen < 0 || p.MaxDescriptionLen < p.MinDescriptionLen {
		return errors.Errorf("invalid description length range [%d,%d]", p.MinDescriptionLen, p.MaxDescriptionLen)
	}
	if p.GenerationTimeout <= 0 {
		return errors.New("generation_timeout must be positive")
	}
	if _, err := ParseClock(p.AutoScheduleTime); err != nil {
		return err
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return errors.Wrapf(err, "invalid timezone %q", p.Timezone)
	}
	switch p.InjectMode {
	case InjectModeSmart, InjectModeRule, InjectModeTraditional:
	default:
		return errors.Errorf("unsupported inject_mode %q", p.InjectMode)
	}
	if p.CasualInjectProb < 0 || p.CasualInjectProb > 1 {
		return errors.Errorf("casual inject probability must be within [0,1], got %v", p.CasualInjectProb)
	}
	return nil
}

// Clock is a time of day in minutes from midnight.
type Clock int

// ParseClock parses a "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, errors.Errorf("invalid time of day %q, want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, errors.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, errors.Errorf("invalid minute in %q", s)
	}
	return Clock(hour*60 + minute), nil
}

// Hour returns the hour component.
func (c Clock) Hour() int { return int(c) / 60 }

// Minute returns the minute component.
func (c Clock) Minute() int { return int(c) % 60 }

// Location resolves the configured timezone, falling back to Asia/Shanghai
// the way the original deployment did.
func (p *Profile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		loc, _ = time.LoadLocation("Asia/Shanghai")
	}
	return loc
}
