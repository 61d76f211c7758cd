package main

import "context"

// XPath locators for WhatsApp Web.
const (
	ComposerLocator      = `//div[@contenteditable="true"][@data-tab="10"]`
	InvalidNumberLocator = `//*[contains(text(), "Phone number shared via url is invalid")]`
	SendButtonLocator    = `//span[@data-icon="send"]`
	SidePanelLocator     = `//div[@id="side"]`
	LoginQRLocator       = `//div[@data-ref]`
)

// Channel drives a single browser page. It is owned by one Dispatcher and
// never used concurrently. Locators are XPath expressions.
type Channel interface {
	// Navigate performs a full page load of url.
	Navigate(ctx context.Context, url string) error
	// Count reports how many elements currently match locator. It does not
	// wait.
	Count(ctx context.Context, locator string) (int, error)
	// Interactable reports whether the first element matching locator is
	// visible and enabled. It does not wait.
	Interactable(ctx context.Context, locator string) (bool, error)
	Click(ctx context.Context, locator string) error
	TypeText(ctx context.Context, locator, text string) error
	// SubmitInput sends an end-of-input (Enter) key to the element.
	SubmitInput(ctx context.Context, locator string) error
	Close()
}
