package main

import (
	"net/url"
	"strings"
	"testing"
)

func TestBuildDeepLinkRoundTrip(t *testing.T) {
	tests := []string{
		"Hello",
		"Hi Ana, your order #42 is ready!",
		"Line one\nLine two",
		"a+b=c & d/e?f",
		"100% off — ¡hoy! 🎉",
		"  leading and trailing  ",
	}
	for _, text := range tests {
		link := BuildDeepLink("web.whatsapp.com", "15550001", text)

		raw := link[strings.Index(link, "&text=")+len("&text="):]
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			t.Fatalf("%q: decode: %v", text, err)
		}
		if decoded != text {
			t.Fatalf("round trip mismatch: want %q, got %q", text, decoded)
		}

		u, err := url.Parse(link)
		if err != nil {
			t.Fatalf("%q: parse: %v", text, err)
		}
		if got := u.Query().Get("text"); got != text {
			t.Fatalf("query decode mismatch: want %q, got %q", text, got)
		}
	}
}

func TestBuildDeepLinkFormat(t *testing.T) {
	got := BuildDeepLink("web.whatsapp.com", "15550001", "Hi there")
	want := "https://web.whatsapp.com/send?phone=15550001&text=Hi%20there"
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestBuildDeepLinkWithoutText(t *testing.T) {
	got := BuildDeepLink("web.whatsapp.com", "+1 555 0001", "")
	want := "https://web.whatsapp.com/send?phone=%2B1%20555%200001"
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}
