// Package pathconv rewrites photo paths between Windows and WSL notation so a
// report produced on one side can be applied from the other.
package pathconv

import (
	"fmt"
	"regexp"
	"strings"
)

// Style selects how paths read from a report are rewritten.
type Style string

const (
	StyleNone    Style = "none"
	StyleWSL     Style = "wsl"
	StyleWindows Style = "windows"
)

var (
	reDrive = regexp.MustCompile(`^([A-Za-z]):[\\/]?(.*)$`)
	reMount = regexp.MustCompile(`^/mnt/([A-Za-z])(?:/(.*))?$`)
)

// ParseStyle maps a flag or config value to a Style. The empty string means StyleNone.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleNone:
		return StyleNone, nil
	case StyleWSL:
		return StyleWSL, nil
	case StyleWindows:
		return StyleWindows, nil
	}
	return "", fmt.Errorf("unknown path style %q (want none, wsl or windows)", s)
}

// ToWSL turns "C:\x\y" into "/mnt/c/x/y". Anything else is returned unchanged.
func ToWSL(p string) string {
	m := reDrive.FindStringSubmatch(p)
	if m == nil {
		return p
	}
	rest := strings.Trim(strings.ReplaceAll(m[2], `\`, "/"), "/")
	out := "/mnt/" + strings.ToLower(m[1])
	if rest != "" {
		out += "/" + rest
	}
	return out
}

// ToWindows turns "/mnt/c/x/y" into "C:\x\y". Anything else is returned unchanged.
func ToWindows(p string) string {
	m := reMount.FindStringSubmatch(p)
	if m == nil {
		return p
	}
	rest := strings.Trim(m[2], "/")
	return strings.ToUpper(m[1]) + `:\` + strings.ReplaceAll(rest, "/", `\`)
}

// Convert rewrites p according to s.
func Convert(p string, s Style) string {
	switch s {
	case StyleWSL:
		return ToWSL(p)
	case StyleWindows:
		return ToWindows(p)
	default:
		return p
	}
}
