package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Kind selects which pipeline a configuration is validated for.
type Kind string

const (
	KindEmails Kind = "emails"
	KindNews   Kind = "news"
)

// Sink backends accepted in SINK_BACKEND.
const (
	BackendSupabase  = "supabase"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Defaults.
const (
	DefaultPipelineName      = "news_digest_pipeline"
	DefaultSinkBackend       = BackendSupabase
	DefaultEmailsTable       = "emails"
	DefaultEmailOutcomes     = "pipeline_runs"
	DefaultNewsTable         = "news_daily"
	DefaultGmailMaxMessages  = 100
	DefaultGmailRPS          = 5.0
	DefaultNewsCountry       = "in"
	DefaultGeminiModel       = "gemini-1.5-flash"
	DefaultTweetMaxChars     = 280
	DefaultRequestTimeout    = 30 * time.Second
	DefaultSQLitePath        = "ingestly.db"
	DefaultPushgatewayJob    = "ingestly"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultSentryEnvironment = "production"
)

// MinTweetMaxChars is the smallest post cap that still fits one character
// before the "..." marker.
const MinTweetMaxChars = 4

// ConfigError reports a missing or malformed setting. It is returned before
// any pipeline work starts.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// GmailConfig holds the mailbox credentials and query limits.
type GmailConfig struct {
	ClientID          string
	ClientSecret      string
	RefreshToken      string
	TargetEmail       string
	MaxMessages       int64
	RequestsPerSecond float64
}

// NewsConfig holds the headline API and feed settings.
type NewsConfig struct {
	APIKey  string
	BaseURL string
	Country string
	Feeds   []string
}

// EnrichConfig holds the generative service settings.
type EnrichConfig struct {
	GeminiAPIKey string
	Model        string
	MaxChars     int
}

// SinkConfig holds the credentials of every sink backend. Only the fields
// of the selected backend are used.
type SinkConfig struct {
	Backend          string
	SupabaseURL      string
	SupabaseKey      string
	NewsSupabaseURL  string
	NewsSupabaseKey  string
	DatabaseURL      string
	SQLitePath       string
	FirestoreProject string
}

// For returns the settings used by a pipeline of kind. The news pipeline
// uses its own Supabase project when either half of it is configured; URL
// and key are never mixed across projects.
func (s SinkConfig) For(kind Kind) SinkConfig {
	if kind == KindNews && s.hasNewsProject() {
		s.SupabaseURL = s.NewsSupabaseURL
		s.SupabaseKey = s.NewsSupabaseKey
	}
	return s
}

func (s SinkConfig) hasNewsProject() bool {
	return s.NewsSupabaseURL != "" || s.NewsSupabaseKey != ""
}

// TablesConfig names the sink tables.
type TablesConfig struct {
	Emails        string
	EmailOutcomes string
	News          string
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string
	Format string
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN         string
	Environment string
}

// MetricsConfig points batch runs at a Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string
	PushJob        string
}

// Config is the whole process configuration. It is built once by Load and
// passed around by value.
type Config struct {
	PipelineName   string
	RequestTimeout time.Duration

	Gmail   GmailConfig
	News    NewsConfig
	Enrich  EnrichConfig
	Sink    SinkConfig
	Tables  TablesConfig
	Log     LogConfig
	Sentry  SentryConfig
	Metrics MetricsConfig
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// ConfigFile is an optional TOML file of non-secret settings.
	ConfigFile string
	// EnvFile is a dotenv file. A missing file is ignored unless
	// RequireEnvFile is set.
	EnvFile        string
	RequireEnvFile bool
	// LookupEnv reads the process environment; os.LookupEnv when nil.
	LookupEnv func(string) (string, bool)
}

// Load builds a Config from, in increasing precedence: defaults, the TOML
// file, the dotenv file, and the process environment.
func Load(opts LoadOptions) (Config, error) {
	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	file, err := readFile(opts.ConfigFile)
	if err != nil {
		return Config{}, err
	}

	dotenv := map[string]string{}
	if opts.EnvFile != "" {
		dotenv, err = godotenv.Read(opts.EnvFile)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) || opts.RequireEnvFile {
				return Config{}, fmt.Errorf("failed to read env file %s: %w", opts.EnvFile, err)
			}
			dotenv = map[string]string{}
		}
	}

	src := source{env: lookupEnv, dotenv: dotenv, file: file.values()}
	return src.build()
}

type source struct {
	env    func(string) (string, bool)
	dotenv map[string]string
	file   map[string]string
	err    error
}

func (s *source) lookup(key string) (string, bool) {
	if v, ok := s.env(key); ok && v != "" {
		return v, true
	}
	if v, ok := s.dotenv[key]; ok && v != "" {
		return v, true
	}
	if v, ok := s.file[key]; ok && v != "" {
		return v, true
	}
	return "", false
}

func (s *source) str(key, def string) string {
	if v, ok := s.lookup(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

// first returns the value of the first key that is set.
func (s *source) first(keys ...string) string {
	for _, k := range keys {
		if v := s.str(k, ""); v != "" {
			return v
		}
	}
	return ""
}

func (s *source) integer(key string, def int) int {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		s.fail(key, "must be a positive integer")
		return def
	}
	return n
}

func (s *source) atLeast(key string, def, floor int) int {
	n := s.integer(key, def)
	if n < floor {
		s.fail(key, fmt.Sprintf("must be at least %d", floor))
		return def
	}
	return n
}

func (s *source) decimal(key string, def float64) float64 {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		s.fail(key, "must be a non-negative number")
		return def
	}
	return f
}

func (s *source) duration(key string, def time.Duration) time.Duration {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	s.fail(key, "must be a positive duration such as 30s")
	return def
}

func (s *source) list(key string) []string {
	v, ok := s.lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (s *source) fail(key, reason string) {
	if s.err == nil {
		s.err = &ConfigError{Key: key, Reason: reason}
	}
}

func (s *source) build() (Config, error) {
	cfg := Config{
		PipelineName:   s.str("PIPELINE_NAME", DefaultPipelineName),
		RequestTimeout: s.duration("REQUEST_TIMEOUT", DefaultRequestTimeout),
		Gmail: GmailConfig{
			ClientID:          s.str("GMAIL_CLIENT_ID", ""),
			ClientSecret:      s.str("GMAIL_CLIENT_SECRET", ""),
			RefreshToken:      s.str("GMAIL_REFRESH_TOKEN", ""),
			TargetEmail:       s.str("TARGET_EMAIL", ""),
			MaxMessages:       int64(s.integer("GMAIL_MAX_MESSAGES", DefaultGmailMaxMessages)),
			RequestsPerSecond: s.decimal("GMAIL_REQUESTS_PER_SECOND", DefaultGmailRPS),
		},
		News: NewsConfig{
			APIKey:  s.str("NEWS_API_KEY", ""),
			BaseURL: s.str("NEWS_API_BASE_URL", ""),
			Country: s.str("NEWS_COUNTRY", DefaultNewsCountry),
			Feeds:   s.list("NEWS_FEEDS"),
		},
		Enrich: EnrichConfig{
			GeminiAPIKey: s.str("GEMINI_API_KEY", ""),
			Model:        s.str("GEMINI_MODEL", DefaultGeminiModel),
			MaxChars:     s.atLeast("TWEET_MAX_CHARS", DefaultTweetMaxChars, MinTweetMaxChars),
		},
		Sink: SinkConfig{
			Backend:          strings.ToLower(s.str("SINK_BACKEND", DefaultSinkBackend)),
			SupabaseURL:      s.str("SUPABASE_URL", ""),
			SupabaseKey:      s.str("SUPABASE_KEY", ""),
			NewsSupabaseURL:  s.first("SUPABASE_DATA_PIP_PROJECT_URL", "SUPARBASE_DATA_PIP_PROJECT_URL"),
			NewsSupabaseKey:  s.str("SUPABASE_DATA_PIP_KEY", ""),
			DatabaseURL:      s.str("DATABASE_URL", ""),
			SQLitePath:       s.str("SQLITE_PATH", DefaultSQLitePath),
			FirestoreProject: s.str("FIRESTORE_PROJECT_ID", ""),
		},
		Tables: TablesConfig{
			Emails:        s.str("EMAILS_TABLE", DefaultEmailsTable),
			EmailOutcomes: s.str("EMAIL_OUTCOMES_TABLE", DefaultEmailOutcomes),
			News:          s.str("NEWS_TABLE", DefaultNewsTable),
		},
		Log: LogConfig{
			Level:  s.str("LOG_LEVEL", DefaultLogLevel),
			Format: s.str("LOG_FORMAT", DefaultLogFormat),
		},
		Sentry: SentryConfig{
			DSN:         s.str("SENTRY_DSN", ""),
			Environment: s.str("SENTRY_ENVIRONMENT", DefaultSentryEnvironment),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: s.str("PUSHGATEWAY_URL", ""),
			PushJob:        s.str("PUSHGATEWAY_JOB", DefaultPushgatewayJob),
		},
	}
	if s.err != nil {
		return Config{}, s.err
	}
	return cfg, nil
}

// WithSinkBackend returns a copy of c writing to backend.
func (c Config) WithSinkBackend(backend string) Config {
	c.Sink.Backend = backend
	return c
}

// ValidateFor checks that every setting the pipeline of kind needs is
// present, reporting the first missing one.
func (c Config) ValidateFor(kind Kind) error {
	var required []field
	switch kind {
	case KindEmails:
		required = []field{
			{"GMAIL_CLIENT_ID", c.Gmail.ClientID},
			{"GMAIL_CLIENT_SECRET", c.Gmail.ClientSecret},
			{"GMAIL_REFRESH_TOKEN", c.Gmail.RefreshToken},
			{"TARGET_EMAIL", c.Gmail.TargetEmail},
		}
	case KindNews:
		required = []field{
			{"GEMINI_API_KEY", c.Enrich.GeminiAPIKey},
		}
	default:
		return &ConfigError{Key: "kind", Reason: fmt.Sprintf("unknown pipeline %q", kind)}
	}

	for _, f := range required {
		if f.value == "" {
			return &ConfigError{Key: f.key, Reason: "is required"}
		}
	}
	return c.Sink.validate(kind)
}

type field struct {
	key   string
	value string
}

func (s SinkConfig) validate(kind Kind) error {
	var required []field
	switch s.Backend {
	case BackendSupabase:
		shared := []field{{"SUPABASE_URL", s.SupabaseURL}, {"SUPABASE_KEY", s.SupabaseKey}}
		news := []field{{"SUPABASE_DATA_PIP_PROJECT_URL", s.NewsSupabaseURL}, {"SUPABASE_DATA_PIP_KEY", s.NewsSupabaseKey}}
		switch {
		case kind != KindNews:
			required = shared
		case s.hasNewsProject():
			required = news
		case s.SupabaseURL != "" || s.SupabaseKey != "":
			required = shared
		default:
			required = news
		}
	case BackendPostgres:
		required = []field{{"DATABASE_URL", s.DatabaseURL}}
	case BackendSQLite:
		required = []field{{"SQLITE_PATH", s.SQLitePath}}
	case BackendFirestore:
		required = []field{{"FIRESTORE_PROJECT_ID", s.FirestoreProject}}
	case BackendMemory:
	default:
		return &ConfigError{Key: "SINK_BACKEND", Reason: fmt.Sprintf("unknown backend %q", s.Backend)}
	}

	for _, f := range required {
		if f.value == "" {
			return &ConfigError{Key: f.key, Reason: "is required"}
		}
	}
	return nil
}
