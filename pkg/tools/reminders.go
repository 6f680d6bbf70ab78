package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"

	"github.com/hearthkit/hearth/pkg/memory"
)

// SetReminderTool schedules a reminder for the session user. Times come in
// as natural language from voice transcription.
type SetReminderTool struct {
	store  memory.Store
	userID string
	now    func() time.Time
}

func NewSetReminderTool(store memory.Store, userID string) *SetReminderTool {
	return &SetReminderTool{store: store, userID: userID, now: time.Now}
}

func (t *SetReminderTool) Name() string { return "set_reminder" }

func (t *SetReminderTool) Description() string {
	return "Set a reminder. Time can be phrases like 'in 30 minutes', 'tomorrow at 9am' or '5pm'. Optional repeat: daily, weekly or monthly."
}

func (t *SetReminderTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "What to remind about",
			},
			"time": map[string]any{
				"type":        "string",
				"description": "When to remind, in natural language",
			},
			"repeat": map[string]any{
				"type":        "string",
				"description": "Optional repeat pattern",
				"enum":        []string{"daily", "weekly", "monthly"},
			},
			"category": map[string]any{
				"type":        "string",
				"description": "Optional category such as medicine or appointment",
			},
		},
		"required": []string{"message", "time"},
	}
}

func (t *SetReminderTool) Execute(ctx context.Context, args map[string]any) *Result {
	message := strings.TrimSpace(stringArg(args, "message"))
	timeSpec := strings.TrimSpace(stringArg(args, "time"))
	if message == "" || timeSpec == "" {
		return Fail("message and time are required")
	}

	now := t.now()
	remindAt, err := ParseReminderTime(now, timeSpec)
	if err != nil {
		return Fail(err.Error())
	}
	if !remindAt.After(now) {
		return Fail(fmt.Sprintf("%q is in the past", timeSpec))
	}

	repeat := strings.ToLower(strings.TrimSpace(stringArg(args, "repeat")))
	if repeat != "" {
		if _, err := repeatCron(repeat, remindAt); err != nil {
			return Fail(err.Error())
		}
	}

	reminder := &memory.Reminder{
		UserID:        t.userID,
		Message:       message,
		RemindAt:      remindAt,
		RepeatPattern: repeat,
		IsActive:      true,
		Category:      stringArg(args, "category"),
	}
	if err := t.store.AddReminder(ctx, reminder); err != nil {
		return Fail(fmt.Sprintf("could not save reminder: %v", err))
	}

	data := map[string]any{
		"message":   message,
		"remind_at": remindAt.Format("3:04 PM on Monday, January 2"),
	}
	if repeat != "" {
		data["repeat"] = repeat
		if next := nextRepeat(repeat, remindAt); !next.IsZero() {
			data["next_occurrence"] = next.Format("3:04 PM on Monday, January 2")
		}
	}
	return Ok(data)
}

// repeatCron maps a repeat pattern to the cron expression anchored at the
// first fire time.
func repeatCron(repeat string, at time.Time) (string, error) {
	switch repeat {
	case "daily":
		return fmt.Sprintf("%d %d * * *", at.Minute(), at.Hour()), nil
	case "weekly":
		return fmt.Sprintf("%d %d * * %d", at.Minute(), at.Hour(), int(at.Weekday())), nil
	case "monthly":
		return fmt.Sprintf("%d %d %d * *", at.Minute(), at.Hour(), at.Day()), nil
	}
	return "", fmt.Errorf("unsupported repeat pattern %q", repeat)
}

// nextRepeat computes the occurrence after the first fire time.
func nextRepeat(repeat string, at time.Time) time.Time {
	expr, err := repeatCron(repeat, at)
	if err != nil {
		return time.Time{}
	}
	next, err := gronx.NextTickAfter(expr, at, false)
	if err != nil {
		return time.Time{}
	}
	return next
}

var (
	relativePattern = regexp.MustCompile(`^in\s+(\d+)\s+(minute|minutes|hour|hours|day|days)$`)
	clockPattern    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
)

// ParseReminderTime turns a natural-language time phrase into an absolute
// time. Bare clock times in the past roll forward to tomorrow.
func ParseReminderTime(now time.Time, spec string) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(spec))

	if m := relativePattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch {
		case strings.HasPrefix(m[2], "minute"):
			return now.Add(time.Duration(n) * time.Minute), nil
		case strings.HasPrefix(m[2], "hour"):
			return now.Add(time.Duration(n) * time.Hour), nil
		default:
			return now.AddDate(0, 0, n), nil
		}
	}

	dayOffset := 0
	if rest, ok := strings.CutPrefix(s, "tomorrow"); ok {
		dayOffset = 1
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "at"))
		if s == "" {
			s = "9am"
		}
	} else if rest, ok := strings.CutPrefix(s, "today"); ok {
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "at"))
	} else {
		s = strings.TrimSpace(strings.TrimPrefix(s, "at "))
	}

	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("could not understand time %q", spec)
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("could not understand time %q", spec)
	}

	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	target = target.AddDate(0, 0, dayOffset)
	// A bare clock time already behind us means the next occurrence.
	if dayOffset == 0 && !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target, nil
}

// GetRemindersTool lists the session user's upcoming reminders.
type GetRemindersTool struct {
	store  memory.Store
	userID string
}

func NewGetRemindersTool(store memory.Store, userID string) *GetRemindersTool {
	return &GetRemindersTool{store: store, userID: userID}
}

func (t *GetRemindersTool) Name() string { return "get_reminders" }

func (t *GetRemindersTool) Description() string {
	return "List upcoming reminders. Defaults to the next 24 hours."
}

func (t *GetRemindersTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"hours_ahead": map[string]any{
				"type":        "number",
				"description": "How many hours ahead to look (default 24)",
			},
		},
	}
}

func (t *GetRemindersTool) Execute(ctx context.Context, args map[string]any) *Result {
	hours, ok := floatArg(args, "hours_ahead")
	if !ok || hours <= 0 {
		hours = 24
	}

	reminders, err := t.store.UpcomingReminders(ctx, t.userID, time.Duration(hours*float64(time.Hour)))
	if err != nil {
		return Fail(fmt.Sprintf("could not load reminders: %v", err))
	}

	items := make([]map[string]any, 0, len(reminders))
	for _, r := range reminders {
		item := map[string]any{
			"message":   r.Message,
			"remind_at": r.RemindAt.Format("3:04 PM on Monday, January 2"),
		}
		if r.RepeatPattern != "" {
			item["repeat"] = r.RepeatPattern
			if next := nextRepeat(r.RepeatPattern, r.RemindAt); !next.IsZero() {
				item["next_occurrence"] = next.Format("3:04 PM on Monday, January 2")
			}
		}
		items = append(items, item)
	}
	return Ok(map[string]any{
		"count":     len(items),
		"reminders": items,
	})
}
