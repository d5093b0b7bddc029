package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{LookupEnv: envOf(nil)})
	require.NoError(t, err)

	assert.Equal(t, DefaultPipelineName, cfg.PipelineName)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, BackendSupabase, cfg.Sink.Backend)
	assert.Equal(t, int64(100), cfg.Gmail.MaxMessages)
	assert.Equal(t, 5.0, cfg.Gmail.RequestsPerSecond)
	assert.Equal(t, "in", cfg.News.Country)
	assert.Equal(t, 280, cfg.Enrich.MaxChars)
	assert.Equal(t, "gemini-1.5-flash", cfg.Enrich.Model)
	assert.Equal(t, TablesConfig{Emails: "emails", EmailOutcomes: "pipeline_runs", News: "news_daily"}, cfg.Tables)
	assert.Equal(t, "ingestly.db", cfg.Sink.SQLitePath)
}

func TestLoad_EnvValues(t *testing.T) {
	cfg, err := Load(LoadOptions{LookupEnv: envOf(map[string]string{
		"PIPELINE_NAME":             "morning_digest",
		"GMAIL_CLIENT_ID":           "id",
		"GMAIL_MAX_MESSAGES":        "25",
		"GMAIL_REQUESTS_PER_SECOND": "0.5",
		"REQUEST_TIMEOUT":           "10",
		"NEWS_FEEDS":                "https://a/rss, https://b/rss,",
		"SINK_BACKEND":              "Postgres",
	})})
	require.NoError(t, err)

	assert.Equal(t, "morning_digest", cfg.PipelineName)
	assert.Equal(t, "id", cfg.Gmail.ClientID)
	assert.Equal(t, int64(25), cfg.Gmail.MaxMessages)
	assert.Equal(t, 0.5, cfg.Gmail.RequestsPerSecond)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"https://a/rss", "https://b/rss"}, cfg.News.Feeds)
	assert.Equal(t, BackendPostgres, cfg.Sink.Backend)
}

func TestLoad_MalformedNumberIsConfigError(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "GMAIL_MAX_MESSAGES", value: "many"},
		{key: "TWEET_MAX_CHARS", value: "-1"},
		{key: "GMAIL_REQUESTS_PER_SECOND", value: "fast"},
		{key: "REQUEST_TIMEOUT", value: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, err := Load(LoadOptions{LookupEnv: envOf(map[string]string{tt.key: tt.value})})
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.key, ce.Key)
		})
	}
}

func TestLoad_Layering(t *testing.T) {
	tomlPath := writeFile(t, "ingestly.toml", `
pipeline_name = "from_file"
sink_backend = "sqlite"
request_timeout = "45s"

[gmail]
max_messages = 10
target_email = "file@example.com"

[news]
feeds = ["https://file/rss"]

[tables]
news = "file_news"
`)
	envPath := writeFile(t, ".env", `
PIPELINE_NAME=from_dotenv
TARGET_EMAIL=dotenv@example.com
GEMINI_API_KEY=dotenv-key
`)

	cfg, err := Load(LoadOptions{
		ConfigFile: tomlPath,
		EnvFile:    envPath,
		LookupEnv:  envOf(map[string]string{"PIPELINE_NAME": "from_env"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.PipelineName)
	assert.Equal(t, "dotenv@example.com", cfg.Gmail.TargetEmail)
	assert.Equal(t, "dotenv-key", cfg.Enrich.GeminiAPIKey)
	assert.Equal(t, BackendSQLite, cfg.Sink.Backend)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(10), cfg.Gmail.MaxMessages)
	assert.Equal(t, []string{"https://file/rss"}, cfg.News.Feeds)
	assert.Equal(t, "file_news", cfg.Tables.News)
	assert.Equal(t, "emails", cfg.Tables.Emails)
}

func TestLoad_EnvFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	_, err := Load(LoadOptions{EnvFile: missing, LookupEnv: envOf(nil)})
	require.NoError(t, err)

	_, err = Load(LoadOptions{EnvFile: missing, RequireEnvFile: true, LookupEnv: envOf(nil)})
	require.Error(t, err)
}

func TestLoad_BadConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: writeFile(t, "bad.toml", "pipeline_name = ")})
	require.Error(t, err)

	_, err = Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.toml")})
	require.Error(t, err)
}

func TestLoad_NewsSupabaseKeys(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantURL string
	}{
		{
			name:    "preferred key",
			env:     map[string]string{"SUPABASE_DATA_PIP_PROJECT_URL": "https://news.supabase.co", "SUPABASE_URL": "https://main.supabase.co"},
			wantURL: "https://news.supabase.co",
		},
		{
			name:    "historical spelling",
			env:     map[string]string{"SUPARBASE_DATA_PIP_PROJECT_URL": "https://legacy.supabase.co"},
			wantURL: "https://legacy.supabase.co",
		},
		{
			name:    "falls back to shared project",
			env:     map[string]string{"SUPABASE_URL": "https://main.supabase.co"},
			wantURL: "https://main.supabase.co",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(LoadOptions{LookupEnv: envOf(tt.env)})
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, cfg.Sink.For(KindNews).SupabaseURL)
		})
	}
}

func validEmailEnv() map[string]string {
	return map[string]string{
		"GMAIL_CLIENT_ID":     "id",
		"GMAIL_CLIENT_SECRET": "secret",
		"GMAIL_REFRESH_TOKEN": "refresh",
		"TARGET_EMAIL":        "news@example.com",
		"SUPABASE_URL":        "https://x.supabase.co",
		"SUPABASE_KEY":        "key",
	}
}

func TestValidateFor(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		env     map[string]string
		drop    string
		wantKey string
	}{
		{name: "emails ok", kind: KindEmails, env: validEmailEnv()},
		{name: "emails missing client id", kind: KindEmails, env: validEmailEnv(), drop: "GMAIL_CLIENT_ID", wantKey: "GMAIL_CLIENT_ID"},
		{name: "emails missing target", kind: KindEmails, env: validEmailEnv(), drop: "TARGET_EMAIL", wantKey: "TARGET_EMAIL"},
		{name: "emails missing sink key", kind: KindEmails, env: validEmailEnv(), drop: "SUPABASE_KEY", wantKey: "SUPABASE_KEY"},
		{
			name:    "news missing gemini",
			kind:    KindNews,
			env:     map[string]string{"SUPABASE_DATA_PIP_PROJECT_URL": "u", "SUPABASE_DATA_PIP_KEY": "k"},
			wantKey: "GEMINI_API_KEY",
		},
		{
			name:    "news missing sink",
			kind:    KindNews,
			env:     map[string]string{"GEMINI_API_KEY": "g"},
			wantKey: "SUPABASE_DATA_PIP_PROJECT_URL",
		},
		{
			name:    "news url without news key",
			kind:    KindNews,
			env:     map[string]string{"GEMINI_API_KEY": "g", "SUPABASE_URL": "https://main.supabase.co", "SUPABASE_KEY": "main-key", "SUPABASE_DATA_PIP_PROJECT_URL": "https://news.supabase.co"},
			wantKey: "SUPABASE_DATA_PIP_KEY",
		},
		{
			name:    "news key without news url",
			kind:    KindNews,
			env:     map[string]string{"GEMINI_API_KEY": "g", "SUPABASE_URL": "https://main.supabase.co", "SUPABASE_KEY": "main-key", "SUPABASE_DATA_PIP_KEY": "news-key"},
			wantKey: "SUPABASE_DATA_PIP_PROJECT_URL",
		},
		{
			name: "news on shared project",
			kind: KindNews,
			env:  map[string]string{"GEMINI_API_KEY": "g", "SUPABASE_URL": "https://main.supabase.co", "SUPABASE_KEY": "main-key"},
		},
		{
			name:    "news shared project missing key",
			kind:    KindNews,
			env:     map[string]string{"GEMINI_API_KEY": "g", "SUPABASE_URL": "https://main.supabase.co"},
			wantKey: "SUPABASE_KEY",
		},
		{
			name: "news without newsapi key",
			kind: KindNews,
			env:  map[string]string{"GEMINI_API_KEY": "g", "SUPABASE_DATA_PIP_PROJECT_URL": "u", "SUPABASE_DATA_PIP_KEY": "k"},
		},
		{
			name:    "postgres needs dsn",
			kind:    KindNews,
			env:     map[string]string{"GEMINI_API_KEY": "g", "SINK_BACKEND": "postgres"},
			wantKey: "DATABASE_URL",
		},
		{
			name:    "firestore needs project",
			kind:    KindNews,
			env:     map[string]string{"GEMINI_API_KEY": "g", "SINK_BACKEND": "firestore"},
			wantKey: "FIRESTORE_PROJECT_ID",
		},
		{
			name: "memory needs nothing",
			kind: KindNews,
			env:  map[string]string{"GEMINI_API_KEY": "g", "SINK_BACKEND": "memory"},
		},
		{
			name:    "unknown backend",
			kind:    KindNews,
			env:     map[string]string{"GEMINI_API_KEY": "g", "SINK_BACKEND": "mongo"},
			wantKey: "SINK_BACKEND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.drop != "" {
				delete(tt.env, tt.drop)
			}
			cfg, err := Load(LoadOptions{LookupEnv: envOf(tt.env)})
			require.NoError(t, err)

			err = cfg.ValidateFor(tt.kind)
			if tt.wantKey == "" {
				assert.NoError(t, err)
				return
			}
			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.wantKey, ce.Key)
		})
	}
}

func TestWithSinkBackend(t *testing.T) {
	cfg, err := Load(LoadOptions{LookupEnv: envOf(map[string]string{"GEMINI_API_KEY": "g"})})
	require.NoError(t, err)

	require.Error(t, cfg.ValidateFor(KindNews))
	dry := cfg.WithSinkBackend(BackendMemory)
	assert.NoError(t, dry.ValidateFor(KindNews))
	assert.Equal(t, BackendSupabase, cfg.Sink.Backend)
}

func TestSinkConfig_ForNeverMixesProjects(t *testing.T) {
	shared := SinkConfig{
		Backend:     BackendSupabase,
		SupabaseURL: "https://main.supabase.co",
		SupabaseKey: "main-key",
	}

	urlOnly := shared
	urlOnly.NewsSupabaseURL = "https://news.supabase.co"
	got := urlOnly.For(KindNews)
	assert.Equal(t, "https://news.supabase.co", got.SupabaseURL)
	assert.Empty(t, got.SupabaseKey)

	both := urlOnly
	both.NewsSupabaseKey = "news-key"
	got = both.For(KindNews)
	assert.Equal(t, "https://news.supabase.co", got.SupabaseURL)
	assert.Equal(t, "news-key", got.SupabaseKey)

	got = shared.For(KindNews)
	assert.Equal(t, "https://main.supabase.co", got.SupabaseURL)
	assert.Equal(t, "main-key", got.SupabaseKey)

	got = both.For(KindEmails)
	assert.Equal(t, "https://main.supabase.co", got.SupabaseURL)
	assert.Equal(t, "main-key", got.SupabaseKey)
}

func TestLoad_TweetCapLeavesRoomForEllipsis(t *testing.T) {
	for _, v := range []string{"1", "3"} {
		_, err := Load(LoadOptions{LookupEnv: envOf(map[string]string{"TWEET_MAX_CHARS": v})})
		var ce *ConfigError
		require.True(t, errors.As(err, &ce), "TWEET_MAX_CHARS=%s: %v", v, err)
		assert.Equal(t, "TWEET_MAX_CHARS", ce.Key)
	}

	cfg, err := Load(LoadOptions{LookupEnv: envOf(map[string]string{"TWEET_MAX_CHARS": "4"})})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Enrich.MaxChars)
}
