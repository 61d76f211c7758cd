package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Status is the result of processing one contact.
type Status string

const (
	StatusSent             Status = "sent"
	StatusInvalidNumber    Status = "invalid_number"
	StatusTemplateMissing  Status = "template_missing"
	StatusTransientFailure Status = "transient_failure"
)

// Outcome is produced once per contact and only logged.
type Outcome struct {
	DestinationID string
	Status        Status
	Detail        string
}

type DispatchOptions struct {
	Host string
	// SendMechanism is SendMechanismClick or SendMechanismType.
	SendMechanism string
	// NavigateTimeout bounds a page load; SendTimeout bounds the wait for
	// the send button and each send action.
	NavigateTimeout time.Duration
	ReadyTimeout    time.Duration
	SendTimeout     time.Duration
	PollInterval    time.Duration
	Pause           time.Duration
	// Limiter, when set, is waited on before every navigation.
	Limiter *rate.Limiter
}

// DispatchOptionsFromConfig maps the dispatch and rate limiting sections of
// the config onto DispatchOptions.
func DispatchOptionsFromConfig(config *Config) DispatchOptions {
	opts := DispatchOptions{
		Host:            config.Browser.Host,
		SendMechanism:   config.Dispatch.SendMechanism,
		NavigateTimeout: config.Dispatch.NavigateTimeoutDuration(),
		ReadyTimeout:    config.Dispatch.ReadyTimeoutDuration(),
		SendTimeout:     config.Dispatch.SendTimeoutDuration(),
		PollInterval:    config.Dispatch.PollIntervalDuration(),
		Pause:           config.Dispatch.PauseDuration(),
	}
	if config.RateLimiting.Enabled {
		every := time.Minute / time.Duration(config.RateLimiting.MessagesPerMinute)
		opts.Limiter = rate.NewLimiter(rate.Every(every), 1)
	}
	return opts
}

// Dispatcher owns the browser channel and the read-only templates for the
// duration of a run. Contacts are processed strictly one after another.
type Dispatcher struct {
	channel  Channel
	resolver Resolver
	opts     DispatchOptions
	log      *Logger
	sleep    func(context.Context, time.Duration) error
}

func NewDispatcher(ch Channel, resolver Resolver, opts DispatchOptions, log *Logger) *Dispatcher {
	return &Dispatcher{
		channel:  ch,
		resolver: resolver,
		opts:     opts,
		log:      log,
		sleep:    sleepContext,
	}
}

// Process takes one contact through navigate, wait, send. It never returns
// an error: every failure is folded into the Outcome.
func (d *Dispatcher) Process(ctx context.Context, rec ContactRecord) Outcome {
	out := Outcome{DestinationID: rec.DestinationID}

	text, err := d.resolver.Resolve(rec)
	if err != nil {
		out.Status = StatusTemplateMissing
		out.Detail = err.Error()
		return out
	}

	fail := func(format string, args ...any) Outcome {
		out.Status = StatusTransientFailure
		out.Detail = fmt.Sprintf(format, args...)
		return out
	}

	if d.opts.Limiter != nil {
		if err := d.opts.Limiter.Wait(ctx); err != nil {
			return fail("rate limiter: %v", err)
		}
	}

	// In type mode the text is entered by hand, so the link must not
	// pre-fill it as well.
	linkText := text
	if d.opts.SendMechanism == SendMechanismType {
		linkText = ""
	}
	if err := d.navigate(ctx, BuildDeepLink(d.opts.Host, rec.DestinationID, linkText)); err != nil {
		return fail("%v", err)
	}

	invalid, err := d.awaitChat(ctx)
	if err != nil {
		return fail("%v", err)
	}
	if invalid {
		out.Status = StatusInvalidNumber
		out.Detail = "phone number shared via url is invalid"
		return out
	}

	if err := d.send(ctx, text); err != nil {
		return fail("%v", err)
	}
	out.Status = StatusSent
	return out
}

func (d *Dispatcher) navigate(ctx context.Context, link string) error {
	navCtx, cancel := withTimeout(ctx, d.opts.NavigateTimeout)
	defer cancel()

	err := d.channel.Navigate(navCtx, link)
	if err != nil && ctx.Err() == nil && navCtx.Err() != nil {
		return fmt.Errorf("page did not load within %v: %w", d.opts.NavigateTimeout, err)
	}
	return err
}

// withTimeout bounds ctx by timeout; a non-positive timeout adds no bound.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// awaitChat waits until either the composer or the invalid number notice is
// on the page and reports which one it was.
func (d *Dispatcher) awaitChat(ctx context.Context) (invalid bool, err error) {
	var lastErr error
	err = WaitUntil(ctx, d.opts.ReadyTimeout, d.opts.PollInterval, func(ctx context.Context) (bool, error) {
		// Queries can fail while the page is still loading; keep polling.
		n, err := d.channel.Count(ctx, InvalidNumberLocator)
		if err != nil {
			lastErr = err
			return false, nil
		}
		if n > 0 {
			invalid = true
			return true, nil
		}
		n, err = d.channel.Count(ctx, ComposerLocator)
		if err != nil {
			lastErr = err
			return false, nil
		}
		return n > 0, nil
	})
	if errors.Is(err, ErrWaitTimeout) {
		if lastErr != nil {
			return false, fmt.Errorf("chat did not load within %v: %w", d.opts.ReadyTimeout, lastErr)
		}
		return false, fmt.Errorf("chat did not load within %v", d.opts.ReadyTimeout)
	}
	return invalid, err
}

func (d *Dispatcher) send(ctx context.Context, text string) error {
	if d.opts.SendMechanism == SendMechanismType {
		if err := d.bounded(ctx, "typing", func(ctx context.Context) error {
			return d.channel.TypeText(ctx, ComposerLocator, text)
		}); err != nil {
			return err
		}
		return d.bounded(ctx, "submit", func(ctx context.Context) error {
			return d.channel.SubmitInput(ctx, ComposerLocator)
		})
	}

	err := WaitUntil(ctx, d.opts.SendTimeout, d.opts.PollInterval, func(ctx context.Context) (bool, error) {
		return d.channel.Interactable(ctx, SendButtonLocator)
	})
	if errors.Is(err, ErrWaitTimeout) {
		return fmt.Errorf("send button not clickable within %v", d.opts.SendTimeout)
	}
	if err != nil {
		return err
	}
	return d.bounded(ctx, "click", func(ctx context.Context) error {
		return d.channel.Click(ctx, SendButtonLocator)
	})
}

// bounded runs one send action under SendTimeout.
func (d *Dispatcher) bounded(ctx context.Context, action string, fn func(context.Context) error) error {
	actionCtx, cancel := withTimeout(ctx, d.opts.SendTimeout)
	defer cancel()

	err := fn(actionCtx)
	if err != nil && ctx.Err() == nil && actionCtx.Err() != nil {
		return fmt.Errorf("%s did not finish within %v: %w", action, d.opts.SendTimeout, err)
	}
	return err
}

// Run processes records in order, logging each outcome and pausing between
// records. It stops early only when ctx ends, returning the outcomes so far.
func (d *Dispatcher) Run(ctx context.Context, records []ContactRecord) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(records))

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		d.log.Info().Msgf("Processing contact %d/%d: %s (%s)", i+1, len(records), rec.DisplayName, rec.DestinationID)

		out := d.Process(ctx, rec)
		outcomes = append(outcomes, out)
		d.logOutcome(i+1, rec, out)

		if i < len(records)-1 {
			if err := d.sleep(ctx, d.opts.Pause); err != nil {
				return outcomes, err
			}
		}
	}
	return outcomes, nil
}

func (d *Dispatcher) logOutcome(n int, rec ContactRecord, out Outcome) {
	switch out.Status {
	case StatusSent:
		d.log.Info().Int("contact", n).Str("phone", rec.DestinationID).Str("status", string(out.Status)).
			Msgf("Message sent to %s (%s)", rec.DisplayName, rec.DestinationID)
	case StatusInvalidNumber:
		d.log.Warn().Int("contact", n).Str("phone", rec.DestinationID).Str("status", string(out.Status)).
			Msgf("Number %s is not valid on WhatsApp", rec.DestinationID)
	case StatusTemplateMissing:
		d.log.Warn().Int("contact", n).Str("phone", rec.DestinationID).Str("status", string(out.Status)).
			Str("detail", out.Detail).
			Msgf("No message to send to %s", rec.DestinationID)
	default:
		d.log.Error().Int("contact", n).Str("phone", rec.DestinationID).Str("status", string(out.Status)).
			Str("detail", out.Detail).
			Msgf("Failed to send message to %s", rec.DestinationID)
	}
}

// Summary counts outcomes per status.
type Summary struct {
	Total  int
	Counts map[Status]int
}

func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes), Counts: make(map[Status]int)}
	for _, out := range outcomes {
		s.Counts[out.Status]++
	}
	return s
}

func LogSummary(log *Logger, outcomes []Outcome, duration time.Duration) {
	s := Summarize(outcomes)

	log.Info().Msg("=== Campaign Summary ===")
	log.Info().Msgf("Total contacts: %d", s.Total)
	log.Info().Msgf("Sent: %d", s.Counts[StatusSent])
	log.Info().Msgf("Invalid numbers: %d", s.Counts[StatusInvalidNumber])
	log.Info().Msgf("Missing templates: %d", s.Counts[StatusTemplateMissing])
	log.Info().Msgf("Failed: %d", s.Counts[StatusTransientFailure])
	log.Info().Msgf("Duration: %v", duration.Round(time.Second))

	if s.Counts[StatusSent] < s.Total {
		log.Warn().Msg("Contacts not sent:")
		for _, out := range outcomes {
			if out.Status != StatusSent {
				log.Warn().Msgf("  - %s [%s]: %s", out.DestinationID, out.Status, out.Detail)
			}
		}
	}
}
