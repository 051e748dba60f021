// Package core holds the template helpers shared by every dashboard page.
package core

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Funcs returns a template.FuncMap containing helpers that are broadly useful across templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"friendlyTime": friendlyTime,
		"timeTag":      timeTag,
		"runDuration":  runDuration,
		"statusClass":  StatusClass,
		"lower":        strings.ToLower,
		"add":          func(a, b int) int { return a + b },
		"sub":          func(a, b int) int { return a - b },
	}
}

func asTime(ts any) time.Time {
	switch v := ts.(type) {
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	}
	return time.Time{}
}

func friendlyTime(ts any) string {
	t := asTime(ts)
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}

func timeTag(ts any) template.HTML {
	t := asTime(ts)
	if t.IsZero() {
		return ""
	}
	// #nosec G203 - built from escaped, formatted timestamps only
	return template.HTML(fmt.Sprintf(
		"<time datetime=\"%s\" title=\"%s\">%s</time>",
		t.UTC().Format(time.RFC3339),
		template.HTMLEscapeString(t.Local().Format(time.RFC1123)),
		template.HTMLEscapeString(t.Local().Format("Jan 2, 2006 3:04:05 PM")),
	))
}

// runDuration renders the elapsed time between two optional timestamps.
// An unfinished run is measured up to now.
func runDuration(start, end any) string {
	s := asTime(start)
	if s.IsZero() {
		return "-"
	}
	e := asTime(end)
	if e.IsZero() {
		e = time.Now()
	}
	d := e.Sub(s)
	if d < 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

// StatusClass maps a run or agent status onto a badge CSS class.
func StatusClass(status any) string {
	switch strings.ToUpper(fmt.Sprint(status)) {
	case "PASSED", "IDLE":
		return "badge-ok"
	case "FAILED":
		return "badge-fail"
	case "RUNNING", "QUEUED":
		return "badge-active"
	case "CANCELLED", "OFFLINE":
		return "badge-muted"
	default:
		return "badge"
	}
}
