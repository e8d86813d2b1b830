package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	InputDir     string
	WorkDir      string
	Output       string
	ReportPath   string
	Owner        string
	Labels       []string
	LabelFile    string
	Dialect      string
	Workers      int
	Port         int
	LogLevel     string
	DatabaseURL  string
	NatsURL      string
	NatsToken    string
	SlackToken   string
	SlackChannel string
}

// Load reads the configuration from the environment. Values in a .env file in
// the working directory are applied first; real environment variables win.
// A missing .env is ignored. Any other .env error is returned alongside a
// Config built from the environment alone, so callers can log it and go on.
func Load() (Config, error) {
	var envErr error
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		envErr = fmt.Errorf("load .env: %w", err)
	}

	inputDir := envStr("CHATLOG_INPUT_DIR", "./chat_data")
	return Config{
		InputDir:     inputDir,
		WorkDir:      envStr("CHATLOG_WORK_DIR", inputDir),
		Output:       envStr("CHATLOG_OUTPUT", "./all_chats.csv"),
		ReportPath:   envStr("CHATLOG_REPORT", ""),
		Owner:        envStr("CHATLOG_OWNER", ""),
		Labels:       envList("CHATLOG_LABELS", []string{"prompt"}),
		LabelFile:    envStr("CHATLOG_LABEL_FILE", ""),
		Dialect:      envStr("CHATLOG_DIALECT", "dotted"),
		Workers:      envInt("CHATLOG_WORKERS", 1),
		Port:         envInt("CHATLOG_PORT", 8760),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		DatabaseURL:  envStr("DATABASE_URL", ""),
		NatsURL:      envStr("NATS_URL", ""),
		NatsToken:    envStr("NATS_TOKEN", ""),
		SlackToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel: envStr("SLACK_CHANNEL", ""),
	}, envErr
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
