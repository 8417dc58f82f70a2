package logging

import "log/slog"

func slogGroup() slog.Attr {
	return slog.Group("contact", slog.String("phone", "555-123-4567"))
}
