package domain

import "time"

// UsageState is the governor's view of how much the user has generated.
type UsageState struct {
	SessionCount     int       `json:"session_count"`
	DailyCount       int       `json:"daily_count"`
	LastGenerationAt time.Time `json:"last_generation_at"`
}

// UsageDecision is the answer to "may the user generate now?".
// A non-zero Delay means the caller must wait that long before calling out.
type UsageDecision struct {
	Allowed bool
	Message string
	Delay   time.Duration
}

// UsageLimits configures the governor. Zero values disable a limit.
type UsageLimits struct {
	SessionLimit int
	DailyLimit   int
	MinInterval  time.Duration
}

// ToneFallback suggests safer tones for a relationship.
type ToneFallback struct {
	Tones   []Tone
	Message string
}

// Contains reports whether the fallback suggests tone t.
func (f ToneFallback) Contains(t Tone) bool {
	for _, s := range f.Tones {
		if s == t {
			return true
		}
	}
	return false
}

// Advice bundles the advisory output for one relationship/tone pair.
type Advice struct {
	Warning  string
	Fallback *ToneFallback
}

// HasWarning reports whether the pairing was flagged.
func (a Advice) HasWarning() bool { return a.Warning != "" }
