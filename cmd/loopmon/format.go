package main

import (
	"fmt"

	"github.com/gookit/color"
	"github.com/vk/loopctl/internal/hub"
)

// format renders one hub event as a single line.
func format(event string, args []any, colors bool) string {
	var m map[string]any
	if len(args) > 0 {
		m, _ = args[0].(map[string]any)
	}
	paint := func(c color.Color, s string) string {
		if !colors {
			return s
		}
		return c.Sprint(s)
	}

	switch event {
	case hub.EventLog:
		level := fmt.Sprint(m["level"])
		msg := fmt.Sprint(m["message"])
		switch level {
		case "success":
			return paint(color.Green, msg)
		case "warn":
			return paint(color.Yellow, msg)
		case "error":
			return paint(color.Red, msg)
		}
		return msg
	case hub.EventClear:
		return paint(color.Gray, "-- console cleared --")
	case hub.EventState:
		line := fmt.Sprintf("state=%v running=%v", m["state"], m["running"])
		if e, ok := m["lastError"]; ok && e != "" {
			line += " error=" + paint(color.Red, fmt.Sprint(e))
		}
		if h, ok := m["halted"]; ok && h != "" {
			line += " halted=" + paint(color.Red, fmt.Sprint(h))
		}
		return line
	case hub.EventPosition:
		return paint(color.Gray, fmt.Sprintf("%v.%v.%v", m["bar"], m["beat"], m["sixteenth"]))
	case hub.EventNote:
		return fmt.Sprintf("note ch=%v note=%v vel=%v dur=%vms", m["channel"], m["note"], m["velocity"], m["duration"])
	case hub.EventStop:
		return paint(color.Yellow, "stopped")
	case hub.EventBuildSuccess:
		return paint(color.Green, "project built")
	}
	return fmt.Sprintf("%s %v", event, args)
}
