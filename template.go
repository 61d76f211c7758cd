package main

import (
	"errors"
	"fmt"
	"strings"
)

// NamePlaceholder is replaced with the contact's display name in campaign
// templates.
const NamePlaceholder = "{name}"

// ErrTemplateMissing means a contact's campaign key has no message.
var ErrTemplateMissing = errors.New("template missing")

// ErrEmptyMessage means the resolved text is blank, so there is nothing to
// send. It matches ErrTemplateMissing under errors.Is.
var ErrEmptyMessage = fmt.Errorf("%w: message is empty", ErrTemplateMissing)

// Resolver produces the final message text for a contact. A nil Templates
// means single-table mode, where the text comes from the record itself.
type Resolver struct {
	Templates Templates
}

func (r Resolver) Resolve(rec ContactRecord) (string, error) {
	text := rec.RawMessage
	if r.Templates != nil {
		body := r.Templates[rec.CampaignKey]
		if body == "" {
			return "", fmt.Errorf("%w: no message for campaign ID %q", ErrTemplateMissing, rec.CampaignKey)
		}
		text = strings.ReplaceAll(body, NamePlaceholder, rec.DisplayName)
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}
	return text, nil
}
