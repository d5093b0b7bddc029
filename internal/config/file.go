package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the TOML layout. It carries tunables only; credentials
// come from the environment.
//
//	pipeline_name = "news_digest_pipeline"
//	sink_backend = "postgres"
//	request_timeout = "20s"
//
//	[gmail]
//	max_messages = 50
//	requests_per_second = 2.5
//
//	[news]
//	country = "in"
//	feeds = ["https://example.com/rss"]
type fileConfig struct {
	PipelineName   string `toml:"pipeline_name"`
	SinkBackend    string `toml:"sink_backend"`
	RequestTimeout string `toml:"request_timeout"`
	SQLitePath     string `toml:"sqlite_path"`

	Gmail struct {
		TargetEmail       string  `toml:"target_email"`
		MaxMessages       int64   `toml:"max_messages"`
		RequestsPerSecond float64 `toml:"requests_per_second"`
	} `toml:"gmail"`

	News struct {
		BaseURL string   `toml:"api_base_url"`
		Country string   `toml:"country"`
		Feeds   []string `toml:"feeds"`
	} `toml:"news"`

	Enrich struct {
		Model    string `toml:"model"`
		MaxChars int    `toml:"max_chars"`
	} `toml:"enrich"`

	Tables struct {
		Emails        string `toml:"emails"`
		EmailOutcomes string `toml:"email_outcomes"`
		News          string `toml:"news"`
	} `toml:"tables"`

	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`

	Sentry struct {
		Environment string `toml:"environment"`
	} `toml:"sentry"`

	Metrics struct {
		PushgatewayURL string `toml:"pushgateway_url"`
		PushJob        string `toml:"push_job"`
	} `toml:"metrics"`
}

func readFile(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	if path == "" {
		return fc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

// values flattens the file onto the environment key names so every layer
// is looked up the same way.
func (fc *fileConfig) values() map[string]string {
	v := map[string]string{
		"PIPELINE_NAME":        fc.PipelineName,
		"SINK_BACKEND":         fc.SinkBackend,
		"REQUEST_TIMEOUT":      fc.RequestTimeout,
		"SQLITE_PATH":          fc.SQLitePath,
		"TARGET_EMAIL":         fc.Gmail.TargetEmail,
		"NEWS_API_BASE_URL":    fc.News.BaseURL,
		"NEWS_COUNTRY":         fc.News.Country,
		"NEWS_FEEDS":           strings.Join(fc.News.Feeds, ","),
		"GEMINI_MODEL":         fc.Enrich.Model,
		"EMAILS_TABLE":         fc.Tables.Emails,
		"EMAIL_OUTCOMES_TABLE": fc.Tables.EmailOutcomes,
		"NEWS_TABLE":           fc.Tables.News,
		"LOG_LEVEL":            fc.Log.Level,
		"LOG_FORMAT":           fc.Log.Format,
		"SENTRY_ENVIRONMENT":   fc.Sentry.Environment,
		"PUSHGATEWAY_URL":      fc.Metrics.PushgatewayURL,
		"PUSHGATEWAY_JOB":      fc.Metrics.PushJob,
	}
	if fc.Gmail.MaxMessages != 0 {
		v["GMAIL_MAX_MESSAGES"] = strconv.FormatInt(fc.Gmail.MaxMessages, 10)
	}
	if fc.Gmail.RequestsPerSecond != 0 {
		v["GMAIL_REQUESTS_PER_SECOND"] = strconv.FormatFloat(fc.Gmail.RequestsPerSecond, 'f', -1, 64)
	}
	if fc.Enrich.MaxChars != 0 {
		v["TWEET_MAX_CHARS"] = strconv.Itoa(fc.Enrich.MaxChars)
	}
	return v
}
