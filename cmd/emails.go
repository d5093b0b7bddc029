package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ingestly/ingestly/internal/config"
	"github.com/ingestly/ingestly/internal/gmail"
	"github.com/ingestly/ingestly/internal/google"
	"github.com/ingestly/ingestly/internal/logging"
	"github.com/ingestly/ingestly/internal/pipeline"
)

func newEmailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "emails",
		Short: "Store mail from one sender",
		Long: `Search the mailbox for messages from TARGET_EMAIL and insert each one
into EMAILS_TABLE. A summary row for the run goes to EMAIL_OUTCOMES_TABLE.

Required: GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET, GMAIL_REFRESH_TOKEN,
TARGET_EMAIL and the credentials of the selected sink.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(config.KindEmails, flags, cmd.Flags().Changed("env-file"))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := bootstrap(ctx, cfg, config.KindEmails)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.close(ctx, gmail.JobName); err != nil {
					rt.logger.Error("shutdown failed", logging.Err(err))
				}
			}()

			session, err := google.NewSession(ctx, google.Credentials{
				ClientID:     cfg.Gmail.ClientID,
				ClientSecret: cfg.Gmail.ClientSecret,
				RefreshToken: cfg.Gmail.RefreshToken,
				Timeout:      cfg.RequestTimeout,
			})
			if err != nil {
				return rt.abort(cmd.OutOrStdout(), gmail.JobName, fmt.Errorf("invalid Gmail credentials: %w", err))
			}
			if err := session.Authorize(ctx); err != nil {
				return rt.abort(cmd.OutOrStdout(), gmail.JobName, err)
			}
			if tok, err := session.TokenSource().Token(); err == nil {
				rt.logger.Debug("gmail session authorized", "access_token", logging.SanitizeToken(tok.AccessToken))
			}

			client, err := gmail.NewClient(ctx, session.HTTPClient(ctx), gmail.ClientConfig{
				RequestsPerSecond: cfg.Gmail.RequestsPerSecond,
				Timeout:           cfg.RequestTimeout,
			})
			if err != nil {
				return rt.abort(cmd.OutOrStdout(), gmail.JobName, err)
			}

			rt.logger.Info("searching mailbox", logging.Pipeline(gmail.JobName), logging.UserHash(cfg.Gmail.TargetEmail), logging.Domain(cfg.Gmail.TargetEmail))
			out, runErr := pipeline.Run(ctx, rt.orchestrator, gmail.NewJob(client, gmail.JobConfig{
				TargetEmail:  cfg.Gmail.TargetEmail,
				Label:        cfg.PipelineName,
				MaxMessages:  cfg.Gmail.MaxMessages,
				Table:        cfg.Tables.Emails,
				OutcomeTable: cfg.Tables.EmailOutcomes,
			}))
			if err := rt.finish(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			return runErr
		},
	}
}
