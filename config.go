package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SlackBotToken   string `yaml:"slack_bot_token"`
	SlackAppToken   string `yaml:"slack_app_token"`
	TriageChannelID string `yaml:"triage_channel_id"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AIModel         string `yaml:"ai_model"`
	AIEnabled       bool   `yaml:"ai_enabled"`
	AIExampleCount  int    `yaml:"ai_example_count"`
	AIExampleMaxLen int    `yaml:"ai_example_max_chars"`
	MaxBodyChars    int    `yaml:"max_body_chars"`

	DBPath    string `yaml:"db_path"`
	RulesPath string `yaml:"rules_path"`
	SpoolDir  string `yaml:"spool_dir"`

	TriageSchedule   string   `yaml:"triage_schedule"`
	NudgeDay         string   `yaml:"nudge_day"`
	NudgeTime        string   `yaml:"nudge_time"`
	ArchiveOlderThan int      `yaml:"archive_older_than_days"`
	ArchiveStatuses  []string `yaml:"archive_statuses"`
	Timezone         string   `yaml:"timezone"`

	Scoring  ScoringWeights `yaml:"scoring"`
	Priority PriorityRules  `yaml:"priority"`

	Location *time.Location `yaml:"-"`
}

func LoadConfig() Config {
	// Scoring is pre-seeded so the yaml overlay only touches keys present
	// in the document; an explicit zero (e.g. min_score: 0) is kept.
	cfg := Config{Scoring: DefaultScoringWeights()}

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.TriageChannelID, "TRIAGE_CHANNEL_ID")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.AIModel, "AI_MODEL")
	envOverrideInt(&cfg.AIExampleCount, "AI_EXAMPLE_COUNT")
	envOverrideInt(&cfg.AIExampleMaxLen, "AI_EXAMPLE_MAX_CHARS")
	envOverrideInt(&cfg.MaxBodyChars, "MAX_BODY_CHARS")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.RulesPath, "RULES_PATH")
	envOverride(&cfg.SpoolDir, "SPOOL_DIR")
	envOverride(&cfg.TriageSchedule, "TRIAGE_SCHEDULE")
	envOverride(&cfg.NudgeDay, "NUDGE_DAY")
	envOverride(&cfg.NudgeTime, "NUDGE_TIME")
	envOverrideInt(&cfg.ArchiveOlderThan, "ARCHIVE_OLDER_THAN_DAYS")
	envOverride(&cfg.Timezone, "TIMEZONE")

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "./mailtriage.db"
	}
	if cfg.RulesPath == "" {
		cfg.RulesPath = "./rules.yaml"
	}
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = "./spool"
	}
	if cfg.AIModel == "" {
		cfg.AIModel = defaultAnthropicModel
	}
	if cfg.AIExampleCount == 0 {
		cfg.AIExampleCount = 10
	}
	if cfg.AIExampleMaxLen == 0 {
		cfg.AIExampleMaxLen = 140
	}
	if cfg.MaxBodyChars == 0 {
		cfg.MaxBodyChars = 10000
	}
	if cfg.NudgeDay == "" {
		cfg.NudgeDay = "Friday"
	}
	if cfg.NudgeTime == "" {
		cfg.NudgeTime = "10:00"
	}
	if cfg.ArchiveOlderThan == 0 {
		cfg.ArchiveOlderThan = 14
	}
	if len(cfg.ArchiveStatuses) == 0 {
		cfg.ArchiveStatuses = []string{"Replied", "Done", "Closed", "Archived"}
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.Priority.Default == "" {
		cfg.Priority.Default = "Medium"
	}

	if cfg.AIEnabled && cfg.AnthropicAPIKey == "" {
		log.Fatalf("anthropic_api_key is required when ai_enabled is set")
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if _, _, err := parseClock(cfg.NudgeTime); err != nil {
		log.Fatalf("invalid nudge_time '%s': %v", cfg.NudgeTime, err)
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func parseClock(s string) (int, int, error) {
	var hour, min int
	_, err := fmt.Sscanf(s, "%d:%d", &hour, &min)
	if err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("time out of range: %02d:%02d", hour, min)
	}
	return hour, min, nil
}
