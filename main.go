package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// openChannel starts the browser; tests replace it with a stub.
var openChannel = func(config BrowserConfig, log *Logger) (Channel, error) {
	return NewChromeChannel(config, log)
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	dryRun := flag.Bool("dry-run", false, "Resolve messages and print deep links without opening a browser")
	flag.Parse()

	os.Exit(run(*configPath, *dryRun))
}

// run returns the process exit code. Deferred releases run before main
// calls os.Exit.
func run(configPath string, dryRun bool) int {
	config, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log, err := NewLogger(config.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("config", configPath).Msg("WhatsApp campaign started")

	src, err := openSource(ctx, config.Source)
	if err != nil {
		logFatalSourceError(log, err)
		return 1
	}

	records, resolver, err := loadCampaign(ctx, src, config.Source)
	if err != nil {
		logFatalSourceError(log, err)
		return 1
	}
	log.Info().Msgf("Loaded %d contacts", len(records))

	if dryRun {
		DryRun(records, resolver, config.Browser.Host, log)
		return 0
	}

	ch, err := openChannel(config.Browser, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize browser")
		return 1
	}
	defer ch.Close()

	loginOpts := LoginOptions{
		Host:            config.Browser.Host,
		NavigateTimeout: config.Dispatch.NavigateTimeoutDuration(),
		Wait:            config.Browser.LoginWaitDuration(),
		PollInterval:    time.Second,
	}
	if config.Browser.QREnabled() {
		loginOpts.QROut = os.Stdout
	}
	if _, err := Login(ctx, ch, loginOpts, log); err != nil {
		log.Error().Err(err).Msg("Failed to open WhatsApp Web")
		return 1
	}

	dispatcher := NewDispatcher(ch, resolver, DispatchOptionsFromConfig(config), log)

	start := time.Now()
	outcomes, err := dispatcher.Run(ctx, records)
	LogSummary(log, outcomes, time.Since(start))
	if err != nil {
		log.Warn().Err(err).Msg("Campaign interrupted")
		return 1
	}

	log.Info().Msg("WhatsApp campaign completed")
	if config.Dispatch.ConfirmExitEnabled() {
		waitForConfirmation(ctx, os.Stdin, os.Stdout)
	}
	return 0
}

func openSource(ctx context.Context, config SourceConfig) (Source, error) {
	if config.Kind == SourceKindCSV {
		return CSVSource{}, nil
	}
	creds, err := ServiceAccountCredentials(config.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return NewSheetsSource(ctx, creds)
}

// loadCampaign reads the contacts and, in campaign mode, the templates.
func loadCampaign(ctx context.Context, src Source, config SourceConfig) ([]ContactRecord, Resolver, error) {
	contactsTable, campaignsTable := config.Contacts.Path, config.Campaigns.Path
	if config.Kind == SourceKindSheets {
		contactsTable = SheetsTable(config.Contacts.SpreadsheetID, config.Contacts.Sheet)
		campaignsTable = SheetsTable(config.Campaigns.SpreadsheetID, config.Campaigns.Sheet)
	}

	var resolver Resolver
	if config.Mode == SourceModeCampaign {
		templates, err := LoadTemplates(ctx, src, campaignsTable)
		if err != nil {
			return nil, Resolver{}, fmt.Errorf("failed to load campaigns: %w", err)
		}
		resolver.Templates = templates
	}

	records, err := LoadContacts(ctx, src, contactsTable, config.Mode)
	if err != nil {
		return nil, Resolver{}, fmt.Errorf("failed to load contacts: %w", err)
	}
	return records, resolver, nil
}

func logFatalSourceError(log *Logger, err error) {
	switch {
	case errors.Is(err, ErrAuthFailure):
		log.Error().Err(err).Msg("Could not authenticate with the spreadsheet service; check source.credentials_file")
	case errors.Is(err, ErrSourceUnavailable):
		log.Error().Err(err).Msg("Spreadsheet data is unavailable")
	default:
		log.Error().Err(err).Msg("Failed to load spreadsheet data")
	}
}

// DryRun logs what would be sent to each contact and returns how many
// messages resolved.
func DryRun(records []ContactRecord, resolver Resolver, host string, log *Logger) int {
	resolved := 0
	for i, rec := range records {
		text, err := resolver.Resolve(rec)
		if err != nil {
			log.Warn().Int("contact", i+1).Str("phone", rec.DestinationID).Msgf("[DRY RUN] Skipping: %v", err)
			continue
		}
		resolved++
		log.Info().Int("contact", i+1).Str("phone", rec.DestinationID).
			Str("url", BuildDeepLink(host, rec.DestinationID, text)).
			Msgf("[DRY RUN] Would send message:\n%s", text)
	}
	log.Info().Msgf("[DRY RUN] %d of %d messages resolved", resolved, len(records))
	return resolved
}

// waitForConfirmation blocks until the operator presses Enter, in is closed,
// or ctx ends.
func waitForConfirmation(ctx context.Context, in io.Reader, out io.Writer) {
	fmt.Fprint(out, "Press Enter to exit and close browser...")
	done := make(chan struct{})
	go func() {
		bufio.NewReader(in).ReadString('\n')
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	fmt.Fprintln(out)
}
