package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ingestly/ingestly/internal/config"
	"github.com/ingestly/ingestly/internal/enrich"
	"github.com/ingestly/ingestly/internal/logging"
	"github.com/ingestly/ingestly/internal/news"
	"github.com/ingestly/ingestly/internal/pipeline"
)

func newNewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "news",
		Short: "Store a daily news digest with a generated post",
		Long: `Fetch national top headlines (NewsAPI when NEWS_API_KEY is set, otherwise
or on failure the syndication feeds), write a short post about them with
Gemini, and insert one digest row into NEWS_TABLE.

Required: GEMINI_API_KEY and the credentials of the selected sink.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(config.KindNews, flags, cmd.Flags().Changed("env-file"))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := bootstrap(ctx, cfg, config.KindNews)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.close(ctx, news.JobName); err != nil {
					rt.logger.Error("shutdown failed", logging.Err(err))
				}
			}()

			gen, err := enrich.NewGemini(ctx, cfg.Enrich.GeminiAPIKey, cfg.Enrich.Model)
			if err != nil {
				return rt.abort(cmd.OutOrStdout(), news.JobName, err)
			}
			defer gen.Close()

			enricher := enrich.NewTweetEnricher(gen, rt.logger, rt.provider.Metrics())
			enricher.MaxChars = cfg.Enrich.MaxChars
			enricher.Timeout = cfg.RequestTimeout

			adapter := logging.NewSlogAdapter(logging.WithPipeline(rt.logger, news.JobName))
			var headlines *news.HeadlinesClient
			if cfg.News.APIKey != "" {
				headlines = news.NewHeadlinesClient(cfg.News.BaseURL, cfg.News.APIKey, cfg.News.Country, cfg.RequestTimeout, adapter)
			} else {
				rt.logger.Info("NEWS_API_KEY not set, reading feeds only")
			}

			feeds := cfg.News.Feeds
			if len(feeds) == 0 {
				feeds = news.DefaultFeeds
			}

			out, runErr := pipeline.Run(ctx, rt.orchestrator, news.NewJob(news.JobConfig{
				Headlines: headlines,
				Quotas:    news.DefaultQuotas,
				Feeds:     news.NewFeedFetcher(feeds, cfg.RequestTimeout, adapter),
				Enricher:  enricher,
				Label:     cfg.PipelineName,
				Table:     cfg.Tables.News,
			}))
			if out.Success && out.GeneratedText != "" {
				rt.logger.Info("generated post", "text", out.GeneratedText)
			}
			if err := rt.finish(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			return runErr
		},
	}
}
