package roster

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestRenderTextEmptyList(t *testing.T) {
	s := openSession(t, "Trip")
	got := RenderText(s)
	if !strings.Contains(got, "📋 <b>Trip</b>") {
		t.Fatalf("missing title header: %q", got)
	}
	if !strings.Contains(got, "Waiting for names...") {
		t.Fatalf("missing empty-list placeholder: %q", got)
	}
}

func TestRenderTextEntriesAndTicks(t *testing.T) {
	s := openSession(t, "Trip")
	now := time.Now()
	_ = s.Add("Alice", 1, "", false, now)
	_ = s.Add("Bob", 2, "", false, now)
	_ = s.TickByIndex(1)

	got := RenderText(s)
	if !strings.Contains(got, "1. Alice ✅\n\n") {
		t.Fatalf("ticked entry not rendered: %q", got)
	}
	if !strings.Contains(got, "2. Bob\n\n") {
		t.Fatalf("unticked entry not rendered: %q", got)
	}
}

func TestRenderTextEscapesUserText(t *testing.T) {
	s := openSession(t, `<b>Trip & "Co"</b>`)
	_ = s.Add("<i>Mallory</i>", 66, "", false, time.Now())
	got := RenderText(s)
	if strings.Contains(got, "<i>") || strings.Contains(got, `"Co"`) {
		t.Fatalf("user text leaked unescaped markup: %q", got)
	}
	if !strings.Contains(got, "&lt;i&gt;Mallory&lt;/i&gt;") {
		t.Fatalf("entry name not escaped: %q", got)
	}
	if !strings.Contains(got, "&lt;b&gt;Trip &amp; &quot;Co&quot;&lt;/b&gt;") {
		t.Fatalf("title not escaped: %q", got)
	}
}

func TestRenderTickButtonTargetsFirstUnticked(t *testing.T) {
	s := openSession(t, "Trip")
	now := time.Now()
	_ = s.Add("Alice", 1, "", false, now)
	_ = s.Add("Bob", 2, "", false, now)

	btn := RenderTickButton(s)
	if btn == nil || btn.Label != "Tick Alice" {
		t.Fatalf("button = %+v, want Tick Alice", btn)
	}
	want := fmt.Sprintf("tick_%d_%d", s.Entries[0].UserID, s.Entries[0].CreatedAt)
	if btn.CallbackData != want {
		t.Fatalf("callback data = %q, want %q", btn.CallbackData, want)
	}

	_ = s.TickByIndex(1)
	btn = RenderTickButton(s)
	if btn == nil || btn.Label != "Tick Bob" {
		t.Fatalf("button after tick = %+v, want Tick Bob", btn)
	}

	_ = s.TickByIndex(2)
	if RenderTickButton(s) != nil {
		t.Fatalf("fully ticked list should render no button")
	}
}

func TestRenderTickButtonInactiveSession(t *testing.T) {
	s := openSession(t, "Trip")
	_ = s.Add("Alice", 1, "", false, time.Now())
	s.Close()
	if RenderTickButton(s) != nil {
		t.Fatalf("inactive session should render no button")
	}
}

func TestParseTickCallback(t *testing.T) {
	uid, ts, ok := ParseTickCallback("tick_123_1700000000000")
	if !ok || uid != 123 || ts != 1700000000000 {
		t.Fatalf("parse = (%d, %d, %v), want (123, 1700000000000, true)", uid, ts, ok)
	}
	for _, bad := range []string{"", "tick_", "tick_1", "tick_a_b", "tick_1_2_3", "other_1_2"} {
		if _, _, ok := ParseTickCallback(bad); ok {
			t.Fatalf("ParseTickCallback(%q) should fail", bad)
		}
	}
}

func TestCallbackRoundTrip(t *testing.T) {
	s := openSession(t, "Trip")
	_ = s.Add("Alice", -42, "", false, time.Now())
	btn := RenderTickButton(s)
	if btn == nil {
		t.Fatalf("expected a button")
	}
	uid, ts, ok := ParseTickCallback(btn.CallbackData)
	if !ok || uid != -42 || ts != s.Entries[0].CreatedAt {
		t.Fatalf("round trip = (%d, %d, %v), want (-42, %d, true)", uid, ts, ok, s.Entries[0].CreatedAt)
	}
	if !s.TickByIdentity(uid, ts) {
		t.Fatalf("round-tripped identity should tick the entry")
	}
}
