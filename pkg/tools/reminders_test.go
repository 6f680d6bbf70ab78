package tools

import (
	"context"
	"testing"
	"time"

	"github.com/hearthkit/hearth/pkg/memory"
)

func fixedNow() time.Time {
	// Tuesday, 10:00 local time.
	return time.Date(2026, time.March, 10, 10, 0, 0, 0, time.Local)
}

func TestParseReminderTime(t *testing.T) {
	now := fixedNow()
	tests := []struct {
		spec string
		want time.Time
	}{
		{"in 30 minutes", now.Add(30 * time.Minute)},
		{"in 2 hours", now.Add(2 * time.Hour)},
		{"in 3 days", now.AddDate(0, 0, 3)},
		{"5pm", time.Date(2026, time.March, 10, 17, 0, 0, 0, time.Local)},
		{"at 5:30 pm", time.Date(2026, time.March, 10, 17, 30, 0, 0, time.Local)},
		// 8am already passed at 10:00, so it rolls to tomorrow.
		{"8am", time.Date(2026, time.March, 11, 8, 0, 0, 0, time.Local)},
		{"tomorrow at 9am", time.Date(2026, time.March, 11, 9, 0, 0, 0, time.Local)},
		{"tomorrow", time.Date(2026, time.March, 11, 9, 0, 0, 0, time.Local)},
		{"today at 11pm", time.Date(2026, time.March, 10, 23, 0, 0, 0, time.Local)},
		{"12am", time.Date(2026, time.March, 11, 0, 0, 0, 0, time.Local)},
	}
	for _, tc := range tests {
		got, err := ParseReminderTime(now, tc.spec)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.spec, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.spec, tc.want, got)
		}
	}
}

func TestParseReminderTime_Invalid(t *testing.T) {
	now := fixedNow()
	for _, spec := range []string{"", "whenever", "25pm", "in five minutes"} {
		if _, err := ParseReminderTime(now, spec); err == nil {
			t.Fatalf("%q: expected parse error", spec)
		}
	}
}

func TestSetReminderTool_SavesReminder(t *testing.T) {
	store := memory.NewMemoryStore()
	tool := NewSetReminderTool(store, "u1")
	tool.now = fixedNow

	result := tool.Execute(context.Background(), map[string]any{
		"message": "take medicine",
		"time":    "in 2 hours",
		"repeat":  "daily",
	})
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if result.Data["repeat"] != "daily" {
		t.Fatalf("expected repeat echoed, got %v", result.Data)
	}
	if result.Data["next_occurrence"] == nil {
		t.Fatalf("expected next occurrence for repeating reminder")
	}
}

func TestSetReminderTool_RejectsPast(t *testing.T) {
	store := memory.NewMemoryStore()
	tool := NewSetReminderTool(store, "u1")
	tool.now = fixedNow

	result := tool.Execute(context.Background(), map[string]any{
		"message": "x",
		"time":    "in 0 minutes",
	})
	if result.Success {
		t.Fatalf("expected past-time rejection")
	}
}

func TestGetRemindersTool_DefaultWindow(t *testing.T) {
	store := memory.NewMemoryStore()
	now := time.Now().UTC()
	seed := []*memory.Reminder{
		{UserID: "u1", Message: "soon", RemindAt: now.Add(time.Hour), IsActive: true},
		{UserID: "u1", Message: "next week", RemindAt: now.Add(7 * 24 * time.Hour), IsActive: true},
	}
	for _, r := range seed {
		if err := store.AddReminder(context.Background(), r); err != nil {
			t.Fatalf("AddReminder: %v", err)
		}
	}

	tool := NewGetRemindersTool(store, "u1")
	result := tool.Execute(context.Background(), map[string]any{})
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if result.Data["count"] != 1 {
		t.Fatalf("expected 1 reminder in the default window, got %v", result.Data["count"])
	}

	wide := tool.Execute(context.Background(), map[string]any{"hours_ahead": float64(24 * 8)})
	if wide.Data["count"] != 2 {
		t.Fatalf("expected 2 reminders in the wide window, got %v", wide.Data["count"])
	}
}
