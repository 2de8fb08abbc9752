package integrity

import "strings"

// Tone is the badge style for a label.
type Tone string

const (
	ToneOK      Tone = "ok"
	ToneWarn    Tone = "warn"
	ToneNeutral Tone = "neutral"
)

// ModeTone flags production runs for attention.
func ModeTone(mode string) Tone {
	if normalize(mode) == ModeProd {
		return ToneWarn
	}
	return ToneNeutral
}

func StatusTone(status string) Tone {
	switch normalize(status) {
	case StatusValid:
		return ToneOK
	case StatusInvalid:
		return ToneWarn
	default:
		return ToneNeutral
	}
}

// StatusClass maps a status onto valid, invalid or unknown.
func StatusClass(status string) string {
	switch s := normalize(status); s {
	case StatusValid, StatusInvalid:
		return s
	default:
		return "unknown"
	}
}

const shortHashMax = 14

// ShortHash abbreviates a digest as first10…last4. Values of up to 14
// characters are returned as they are; nil or blank yields "".
func ShortHash(v *string) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(*v)
	if len(s) <= shortHashMax {
		return s
	}
	return s[:10] + "…" + s[len(s)-4:]
}
