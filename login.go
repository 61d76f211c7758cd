package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/mdp/qrterminal/v3"
)

const loginProgressInterval = 10 * time.Second

// attributeReader is implemented by channels that can read element
// attributes; it is used to mirror the login QR code in the terminal.
type attributeReader interface {
	AttributeValue(ctx context.Context, locator, name string) (string, error)
}

// LoginOptions controls the initial authentication pause.
type LoginOptions struct {
	Host string
	// NavigateTimeout bounds the landing page load. Zero means no bound.
	NavigateTimeout time.Duration
	Wait            time.Duration
	PollInterval    time.Duration
	// QROut receives the login QR code rendered as text. Nil disables it.
	QROut io.Writer
}

// Login opens the WhatsApp Web landing page and waits for the operator to
// authenticate. It returns true once the chat list is visible. When the wait
// runs out it logs a warning and returns false; the run continues either way.
func Login(ctx context.Context, ch Channel, opts LoginOptions, log *Logger) (bool, error) {
	log.Info().Msg("Opening WhatsApp Web...")
	navCtx, cancel := withTimeout(ctx, opts.NavigateTimeout)
	err := ch.Navigate(navCtx, "https://"+opts.Host)
	cancel()
	if err != nil {
		return false, err
	}

	log.Info().Msgf("If you see a QR code, please scan it within %v", opts.Wait)

	reader, _ := ch.(attributeReader)
	if opts.QROut == nil {
		reader = nil
	}

	var lastCode string
	start := time.Now()
	lastProgress := start

	err = WaitUntil(ctx, opts.Wait, opts.PollInterval, func(ctx context.Context) (bool, error) {
		n, err := ch.Count(ctx, SidePanelLocator)
		if err != nil {
			log.Debug().Err(err).Msg("Login check failed")
			return false, nil
		}
		if n > 0 {
			return true, nil
		}

		if reader != nil {
			code, err := reader.AttributeValue(ctx, LoginQRLocator, "data-ref")
			if err == nil && code != "" && code != lastCode {
				lastCode = code
				log.Info().Msg("Scan this QR code with WhatsApp on your phone:")
				qrterminal.GenerateHalfBlock(code, qrterminal.L, opts.QROut)
			}
		}

		if time.Since(lastProgress) >= loginProgressInterval {
			lastProgress = time.Now()
			remaining := opts.Wait - time.Since(start)
			if remaining > 0 {
				log.Info().Msgf("Still waiting for WhatsApp Web to load... (%.0f seconds remaining)", remaining.Seconds())
			}
		}
		return false, nil
	})
	switch {
	case err == nil:
		log.Info().Msg("WhatsApp Web loaded successfully!")
		return true, nil
	case errors.Is(err, ErrWaitTimeout):
		log.Warn().Msgf("WhatsApp Web did not finish logging in within %v, continuing anyway", opts.Wait)
		return false, nil
	default:
		return false, err
	}
}
