package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyMode       = "mode"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyCommand    = "command"
	KeyVersion    = "version"
	KeySchedule   = "schedule_name"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Mode(m string) slog.Attr          { return slog.String(KeyMode, m) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Command(c string) slog.Attr       { return slog.String(KeyCommand, c) }
func Version(v string) slog.Attr       { return slog.String(KeyVersion, v) }
func ScheduleName(n string) slog.Attr  { return slog.String(KeySchedule, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
