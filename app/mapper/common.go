package mapper

import "time"

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func cloneStrings(src []string) []string {
	if len(src) == 0 {
		return []string{}
	}
	return append([]string(nil), src...)
}
