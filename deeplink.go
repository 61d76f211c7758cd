package main

import (
	"net/url"
	"strings"
)

// BuildDeepLink returns the WhatsApp Web URL that opens a chat with phone and
// pre-fills text. Spaces are encoded as %20 rather than '+'. An empty text
// leaves the parameter out.
func BuildDeepLink(host, phone, text string) string {
	var b strings.Builder
	b.WriteString("https://")
	b.WriteString(host)
	b.WriteString("/send?phone=")
	b.WriteString(percentEncode(phone))
	if text != "" {
		b.WriteString("&text=")
		b.WriteString(percentEncode(text))
	}
	return b.String()
}

func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
