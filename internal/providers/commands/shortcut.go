package commands

import (
	"fmt"
	"strings"
)

// Portable shortcut syntax is what extensions ship in their manifests:
// "+"-separated modifiers and one key, e.g. "Ctrl+Shift+K" or "Alt+F5".
// The accelerator host wants platform syntax, e.g. "<Primary><Shift>k".

var modifierSyntax = map[string]string{
	"Ctrl":    "<Primary>",
	"MacCtrl": "<Control>",
	"Command": "<Meta>",
	"Alt":     "<Alt>",
	"Shift":   "<Shift>",
}

var namedKeys = map[string]string{
	"Comma":    "comma",
	"Period":   "period",
	"Space":    "space",
	"Home":     "Home",
	"End":      "End",
	"PageUp":   "Page_Up",
	"PageDown": "Page_Down",
	"Insert":   "Insert",
	"Delete":   "Delete",
	"Up":       "Up",
	"Down":     "Down",
	"Left":     "Left",
	"Right":    "Right",
}

var mediaKeys = map[string]string{
	"MediaNextTrack": "XF86AudioNext",
	"MediaPlayPause": "XF86AudioPlay",
	"MediaPrevTrack": "XF86AudioPrev",
	"MediaStop":      "XF86AudioStop",
}

// translateShortcut converts portable key-description syntax into the
// platform accelerator syntax. The portable grammar requires at least one
// non-Shift modifier unless the key is a function key or media key.
func translateShortcut(portable string) (string, error) {
	if portable == "" {
		return "", fmt.Errorf("empty shortcut")
	}

	parts := strings.Split(portable, "+")
	var mods []string
	key := ""
	hasPrimaryMod := false

	for i, part := range parts {
		if syn, ok := modifierSyntax[part]; ok {
			if key != "" || i == len(parts)-1 {
				return "", fmt.Errorf("shortcut %q: modifier %q in key position", portable, part)
			}
			mods = append(mods, syn)
			if part != "Shift" {
				hasPrimaryMod = true
			}
			continue
		}

		if key != "" {
			return "", fmt.Errorf("shortcut %q: more than one key", portable)
		}
		k, err := translateKey(part)
		if err != nil {
			return "", fmt.Errorf("shortcut %q: %w", portable, err)
		}
		key = k

		if _, media := mediaKeys[part]; media {
			if len(mods) > 0 {
				return "", fmt.Errorf("shortcut %q: media keys take no modifiers", portable)
			}
			return key, nil
		}
		if !hasPrimaryMod && !isFunctionKey(part) {
			return "", fmt.Errorf("shortcut %q: requires Ctrl, Alt, Command, or MacCtrl", portable)
		}
	}

	if key == "" {
		return "", fmt.Errorf("shortcut %q: missing key", portable)
	}
	return strings.Join(mods, "") + key, nil
}

func translateKey(part string) (string, error) {
	if k, ok := namedKeys[part]; ok {
		return k, nil
	}
	if k, ok := mediaKeys[part]; ok {
		return k, nil
	}
	if isFunctionKey(part) {
		return part, nil
	}
	if len(part) == 1 {
		c := part[0]
		if c >= 'A' && c <= 'Z' {
			return strings.ToLower(part), nil
		}
		if c >= '0' && c <= '9' {
			return part, nil
		}
	}
	return "", fmt.Errorf("unknown key %q", part)
}

func isFunctionKey(part string) bool {
	if len(part) < 2 || part[0] != 'F' {
		return false
	}
	n := 0
	for _, c := range part[1:] {
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	return n >= 1 && n <= 12
}

