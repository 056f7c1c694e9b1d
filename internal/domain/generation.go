package domain

import (
	"fmt"
	"strings"
)

// Tone is the emotional register requested for a generated message.
type Tone string

const (
	ToneRomantic     Tone = "romántico"
	ToneFormal       Tone = "formal"
	ToneFunny        Tone = "divertido"
	ToneSarcastic    Tone = "sarcástico"
	ToneAffectionate Tone = "cariñoso"
	ToneDirect       Tone = "directo"
	ToneFlirty       Tone = "coqueto"
	ToneNeutral      Tone = "neutral"
)

// Tones lists every supported tone in display order.
var Tones = []Tone{
	ToneRomantic,
	ToneFormal,
	ToneFunny,
	ToneSarcastic,
	ToneAffectionate,
	ToneDirect,
	ToneFlirty,
	ToneNeutral,
}

// ParseTone resolves a user supplied tone label, ignoring case and
// surrounding whitespace.
func ParseTone(s string) (Tone, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range Tones {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTone, s)
}

// Valid reports whether t is one of the supported tones.
func (t Tone) Valid() bool {
	_, err := ParseTone(string(t))
	return err == nil
}

// OccasionReply is the occasion id for answering a message the user received.
const OccasionReply = "reply"

// GenerationRequest describes one generation. It is treated as an immutable
// value for the duration of a call; JSON tags match the remote endpoint body.
type GenerationRequest struct {
	Occasion          string   `json:"occasion"`
	Relationship      string   `json:"relationship"`
	Tone              Tone     `json:"tone"`
	ReceivedText      string   `json:"receivedText,omitempty"`
	ContextWords      []string `json:"contextWords"`
	FormatInstruction string   `json:"formatInstruction,omitempty"`

	// Pass-through identity and context fields.
	UserID            string `json:"userId,omitempty"`
	UserLocation      string `json:"userLocation,omitempty"`
	ContactID         string `json:"contactId,omitempty"`
	StyleInstructions string `json:"styleInstructions,omitempty"`
	CreativityLevel   string `json:"creativityLevel,omitempty"`
	AvoidTopics       string `json:"avoidTopics,omitempty"`
	Intention         string `json:"intention,omitempty"`
	RelationalHealth  int    `json:"relationalHealth,omitempty"`
	GrammaticalGender string `json:"grammaticalGender,omitempty"`
	GreetingMoment    string `json:"greetingMoment,omitempty"`
	ApologyReason     string `json:"apologyReason,omitempty"`
}

// IsReply reports whether the request answers a received message.
func (r GenerationRequest) IsReply() bool {
	return strings.EqualFold(strings.TrimSpace(r.Occasion), OccasionReply)
}

// Outcome tags how a GenerationResult was produced.
type Outcome int

const (
	OutcomeGenerated Outcome = iota // fresh content from the remote endpoint
	OutcomeCached                   // content replayed from the fingerprint cache
	OutcomeDegraded                 // upstream failed; Content holds the fallback text
	OutcomeRejected                 // refused locally before any network activity
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGenerated:
		return "generated"
	case OutcomeCached:
		return "cached"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeRejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// FailureKind classifies why a generation did not produce model output.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureValidation
	FailureUnsafe
	FailureQuota
	FailureUpgradeRequired
	FailureOverloaded
	FailureNetwork
	FailureCancelled
)

func (k FailureKind) String() string {
	switch k {
	case FailureValidation:
		return "validation"
	case FailureUnsafe:
		return "unsafe"
	case FailureQuota:
		return "quota"
	case FailureUpgradeRequired:
		return "upgrade_required"
	case FailureOverloaded:
		return "overloaded"
	case FailureNetwork:
		return "network"
	case FailureCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Failure describes a rejected or degraded generation.
type Failure struct {
	Kind    FailureKind
	Status  int    // HTTP-like status, 0 when no response was involved
	Message string // user-facing explanation
}

// GenerationResult is the tagged outcome of a generation call.
type GenerationResult struct {
	Content          string
	RemainingCredits *float64
	Outcome          Outcome
	Failure          *Failure
}

// OK reports whether Content holds model output (fresh or cached), as opposed
// to a fallback string or nothing at all.
func (r GenerationResult) OK() bool {
	return r.Failure == nil && (r.Outcome == OutcomeGenerated || r.Outcome == OutcomeCached)
}

// Rejected builds a result for a request refused before any network call.
func Rejected(kind FailureKind, message string) GenerationResult {
	return GenerationResult{
		Outcome: OutcomeRejected,
		Failure: &Failure{Kind: kind, Message: message},
	}
}
