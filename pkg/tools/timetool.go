package tools

import (
	"context"
	"time"
)

// TimeTool reports the current date and time in a voice-friendly format.
type TimeTool struct {
	now func() time.Time
	loc *time.Location
}

// NewTimeTool builds a time tool for the given location. A nil location
// means local time.
func NewTimeTool(loc *time.Location) *TimeTool {
	if loc == nil {
		loc = time.Local
	}
	return &TimeTool{now: time.Now, loc: loc}
}

func (t *TimeTool) Name() string { return "get_time" }

func (t *TimeTool) Description() string {
	return "Get the current date and time."
}

func (t *TimeTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *TimeTool) Execute(ctx context.Context, args map[string]any) *Result {
	now := t.now().In(t.loc)
	return Ok(map[string]any{
		"time":   now.Format("3:04 PM"),
		"date":   now.Format("Monday, January 2, 2006"),
		"spoken": now.Format("3:04 PM on Monday, January 2"),
	})
}
