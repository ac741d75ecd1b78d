package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// MessageID records the in-app message identifier under the key "message_id".
func MessageID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("message_id", id)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Category records a notification category under the key "category".
func Category(c any) slog.Attr {
	return slog.Any("category", c)
}

// JobType records an email job type under the key "job_type".
func JobType(t any) slog.Attr {
	return slog.Any("job_type", t)
}

// Recipient records a recipient email address under the key "recipient".
func Recipient(email string) slog.Attr {
	return slog.String("recipient", email)
}

// JobCount records the number of jobs in a batch under the key "job_count".
func JobCount(n int) slog.Attr {
	return slog.Int("job_count", n)
}
