package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"mensajemagico/internal/domain"
	"mensajemagico/internal/infra/tracer"
)

// User-facing messages for rejected and degraded generations.
const (
	FallbackMessage        = "Lo siento, no pude generar el mensaje en este momento. Inténtalo de nuevo."
	NetworkFailureMessage  = "No pudimos conectar con el servidor. Revisa tu conexión e inténtalo de nuevo."
	OverloadedMessage      = "El servidor está saturado. Inténtalo de nuevo en unos segundos."
	UpgradeRequiredMessage = "Has alcanzado el límite de tu plan. Mejora tu plan para seguir generando mensajes."
	UnsafeContentMessage   = "El texto contiene lenguaje inapropiado. Por favor, modifícalo."
	MissingFieldMessage    = "Elige una ocasión, una relación y un tono."
	MissingReplyMessage    = "Pega el mensaje que recibiste para poder responderlo."
	UnknownToneMessage     = "El tono elegido no está disponible."
	tooManyWordsFormat     = "Puedes añadir como máximo %d palabras de contexto."
)

// Orchestrator defaults.
const (
	defaultMaxContextWords = 5
	defaultReplayChunkSize = 4
	defaultReplayDelay     = 30 * time.Millisecond
	streamBufferSize       = 4096
)

// OrchestratorDeps holds injected dependencies for the orchestrator.
type OrchestratorDeps struct {
	Client     domain.MagicClient
	Filter     domain.ContentFilter
	Governor   *UsageGovernor
	Cache      *ResponseCache
	Classifier *ErrorClassifier // optional, nil = default classifier
	Logger     *slog.Logger

	MaxContextWords    int
	CooldownOnCacheHit bool          // wait out the cooldown before replaying a cache hit
	ReplayChunkSize    int           // runes per synthetic chunk, 0 = default
	ReplayDelay        time.Duration // pause between synthetic chunks, 0 = default, negative = none
}

// Orchestrator runs one generation end to end: moderation, quota, cache,
// network, and fallback handling.
type Orchestrator struct {
	deps  OrchestratorDeps
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator with the given dependencies.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Classifier == nil {
		deps.Classifier = NewErrorClassifier()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxContextWords <= 0 {
		deps.MaxContextWords = defaultMaxContextWords
	}
	if deps.ReplayChunkSize <= 0 {
		deps.ReplayChunkSize = defaultReplayChunkSize
	}
	if deps.ReplayDelay == 0 {
		deps.ReplayDelay = defaultReplayDelay
	}
	return &Orchestrator{deps: deps, sleep: sleepContext}
}

// Generate performs a buffered generation.
//
// Local refusals (validation, unsafe content, quota) and upstream failures
// other than plan exhaustion come back as a result with a nil error; a
// degraded result carries FallbackMessage as Content. Plan exhaustion (HTTP
// 403 or a limit marker in the message) is returned as an error matching
// domain.ErrUpgradeRequired so callers can prompt an upgrade; the client's
// error is returned unchanged when it already matches.
// A cancelled context returns ctx.Err().
func (o *Orchestrator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	ctx, span := tracer.StartSpan(ctx, "magic.generate", trace.WithAttributes(requestAttrs(req)...))
	defer span.End()

	fp, decision, rejected, ok := o.admit(req)
	if !ok {
		span.SetAttributes(tracer.StringAttr("magic.outcome", rejected.Outcome.String()))
		return rejected, nil
	}

	if cached, hit := o.deps.Cache.Lookup(fp); hit {
		if o.deps.CooldownOnCacheHit {
			if err := o.sleep(ctx, decision.Delay); err != nil {
				return cancelled(), err
			}
		}
		o.deps.Governor.Record()
		o.deps.Logger.Debug("generation served from cache", "occasion", req.Occasion)
		span.SetAttributes(tracer.BoolAttr("magic.cache_hit", true))
		tracer.SetOK(span)
		return domain.GenerationResult{Content: cached, Outcome: domain.OutcomeCached}, nil
	}

	if err := o.sleep(ctx, decision.Delay); err != nil {
		return cancelled(), err
	}

	resp, err := o.deps.Client.Generate(ctx, req)
	if err != nil {
		tracer.RecordError(span, err)
		return o.degrade(err)
	}

	text := strings.TrimSpace(resp.Text)
	o.deps.Cache.Store(fp, text)
	o.deps.Governor.Record()
	tracer.SetOK(span)
	return domain.GenerationResult{
		Content:          text,
		RemainingCredits: resp.RemainingCredits,
		Outcome:          domain.OutcomeGenerated,
	}, nil
}

// GenerateStream performs a streaming generation, passing every text
// fragment to onChunk as soon as it is decoded. Cache hits are replayed in
// small chunks so the caller sees the same progressive rendering.
//
// Local refusals come back as a result with a nil error. Upstream failures
// return both a result describing the failure and an error: a
// *domain.StatusError for non-2xx responses, or ErrStreamInterrupted when the
// body fails mid-way. Text already passed to onChunk is left to the caller.
// Nothing is cached unless the stream completes.
func (o *Orchestrator) GenerateStream(ctx context.Context, req domain.GenerationRequest, onChunk domain.ChunkHandler) (domain.GenerationResult, error) {
	ctx, span := tracer.StartSpan(ctx, "magic.generate_stream", trace.WithAttributes(requestAttrs(req)...))
	defer span.End()

	if onChunk == nil {
		onChunk = func(string) {}
	}

	fp, decision, rejected, ok := o.admit(req)
	if !ok {
		span.SetAttributes(tracer.StringAttr("magic.outcome", rejected.Outcome.String()))
		return rejected, nil
	}

	if cached, hit := o.deps.Cache.Lookup(fp); hit {
		if o.deps.CooldownOnCacheHit {
			if err := o.sleep(ctx, decision.Delay); err != nil {
				return cancelled(), err
			}
		}
		if err := o.replay(ctx, cached, onChunk); err != nil {
			return cancelled(), err
		}
		o.deps.Governor.Record()
		span.SetAttributes(tracer.BoolAttr("magic.cache_hit", true))
		tracer.SetOK(span)
		return domain.GenerationResult{Content: cached, Outcome: domain.OutcomeCached}, nil
	}

	if err := o.sleep(ctx, decision.Delay); err != nil {
		return cancelled(), err
	}

	body, err := o.deps.Client.OpenStream(ctx, req)
	if err != nil {
		tracer.RecordError(span, err)
		return o.streamOpenFailure(err)
	}

	text, err := o.readStream(ctx, body, onChunk)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			o.deps.Logger.Debug("stream abandoned", "received_bytes", len(text))
			res := cancelled()
			res.Content = text
			return res, ctxErr
		}
		err = fmt.Errorf("%w: %w", domain.ErrStreamInterrupted, err)
		tracer.RecordError(span, err)
		o.deps.Logger.Warn("stream interrupted", "error", err, "received_bytes", len(text))
		return domain.GenerationResult{
			Content: text,
			Outcome: domain.OutcomeDegraded,
			Failure: &domain.Failure{Kind: domain.FailureNetwork, Message: NetworkFailureMessage},
		}, err
	}

	final := strings.TrimSpace(text)
	if final == "" {
		tracer.RecordError(span, domain.ErrEmptyResponse)
		o.deps.Logger.Warn("stream completed without text")
		return domain.GenerationResult{
			Outcome: domain.OutcomeDegraded,
			Failure: &domain.Failure{Kind: domain.FailureUnknown, Message: FallbackMessage},
		}, domain.ErrEmptyResponse
	}

	o.deps.Cache.Store(fp, final)
	o.deps.Governor.Record()
	tracer.SetOK(span)
	return domain.GenerationResult{Content: final, Outcome: domain.OutcomeGenerated}, nil
}

// admit runs the local checks shared by both flows. When ok is false the
// returned result explains the refusal.
func (o *Orchestrator) admit(req domain.GenerationRequest) (string, domain.UsageDecision, domain.GenerationResult, bool) {
	if f := o.validate(req); f != nil {
		o.deps.Logger.Debug("generation rejected", "kind", f.Kind.String())
		return "", domain.UsageDecision{}, domain.GenerationResult{Outcome: domain.OutcomeRejected, Failure: f}, false
	}

	decision := o.deps.Governor.Check()
	if !decision.Allowed {
		o.deps.Logger.Info("generation denied by usage limits")
		return "", decision, domain.Rejected(domain.FailureQuota, decision.Message), false
	}

	return Fingerprint(req), decision, domain.GenerationResult{}, true
}

func (o *Orchestrator) validate(req domain.GenerationRequest) *domain.Failure {
	if strings.TrimSpace(req.Occasion) == "" || strings.TrimSpace(req.Relationship) == "" || req.Tone == "" {
		return &domain.Failure{Kind: domain.FailureValidation, Message: MissingFieldMessage}
	}
	if !req.Tone.Valid() {
		return &domain.Failure{Kind: domain.FailureValidation, Message: UnknownToneMessage}
	}
	if req.IsReply() && strings.TrimSpace(req.ReceivedText) == "" {
		return &domain.Failure{Kind: domain.FailureValidation, Message: MissingReplyMessage}
	}
	if len(req.ContextWords) > o.deps.MaxContextWords {
		return &domain.Failure{
			Kind:    domain.FailureValidation,
			Message: fmt.Sprintf(tooManyWordsFormat, o.deps.MaxContextWords),
		}
	}

	if o.deps.Filter == nil {
		return nil
	}
	texts := append([]string{req.ReceivedText, req.StyleInstructions, req.ApologyReason}, req.ContextWords...)
	for _, t := range texts {
		if o.deps.Filter.IsOffensive(t) {
			return &domain.Failure{Kind: domain.FailureUnsafe, Message: UnsafeContentMessage}
		}
	}
	return nil
}

// degrade converts a buffered upstream failure into a result.
func (o *Orchestrator) degrade(err error) (domain.GenerationResult, error) {
	c := o.deps.Classifier.Classify(err)
	switch c.Kind {
	case domain.FailureUpgradeRequired:
		return upgradeRequired(c), upgradeError(err)
	case domain.FailureCancelled:
		return cancelled(), err
	}

	msg := FallbackMessage
	if c.Kind == domain.FailureNetwork || c.Kind == domain.FailureOverloaded {
		msg = NetworkFailureMessage
	}
	o.deps.Logger.Warn("generation degraded",
		"error", err,
		"status", c.StatusCode,
		"kind", c.Kind.String(),
		"code", string(domain.ErrorCodeOf(err)),
		"retryable", domain.IsRetryableError(err),
	)
	return domain.GenerationResult{
		Content: FallbackMessage,
		Outcome: domain.OutcomeDegraded,
		Failure: &domain.Failure{Kind: c.Kind, Status: c.StatusCode, Message: msg},
	}, nil
}

// streamOpenFailure converts a failed stream start into a typed error whose
// Message is safe to show.
func (o *Orchestrator) streamOpenFailure(err error) (domain.GenerationResult, error) {
	c := o.deps.Classifier.Classify(err)
	var msg string
	switch c.Kind {
	case domain.FailureUpgradeRequired:
		return upgradeRequired(c), upgradeError(err)
	case domain.FailureCancelled:
		return cancelled(), err
	case domain.FailureOverloaded:
		msg = OverloadedMessage
	case domain.FailureNetwork:
		msg = NetworkFailureMessage
	default:
		msg = FallbackMessage
	}

	o.deps.Logger.Warn("stream failed to start",
		"error", err,
		"status", c.StatusCode,
		"kind", c.Kind.String(),
		"retryable", domain.IsRetryableError(err),
	)
	return domain.GenerationResult{
			Outcome: domain.OutcomeDegraded,
			Failure: &domain.Failure{Kind: c.Kind, Status: c.StatusCode, Message: msg},
		}, &domain.StatusError{
			Status:  c.StatusCode,
			Message: msg,
			Err:     err,
		}
}

// readStream decodes body incrementally and forwards each fragment. Bytes of
// a character split across reads are held back until the character is
// complete. The body is closed on return, and early if ctx is cancelled so a
// blocked read returns.
func (o *Orchestrator) readStream(ctx context.Context, body io.ReadCloser, onChunk domain.ChunkHandler) (string, error) {
	defer body.Close()
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	r := transform.NewReader(body, unicode.UTF8.NewDecoder())
	buf := make([]byte, streamBufferSize)
	var sb strings.Builder
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sb.String(), ctxErr
			}
			chunk := string(buf[:n])
			sb.WriteString(chunk)
			onChunk(chunk)
		}
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sb.String(), ctxErr
			}
			return sb.String(), err
		}
	}
}

// replay emits text in fixed-size rune chunks with a pause between them.
func (o *Orchestrator) replay(ctx context.Context, text string, onChunk domain.ChunkHandler) error {
	size := o.deps.ReplayChunkSize
	for i := 0; len(text) > 0; i++ {
		if i > 0 {
			if err := o.sleep(ctx, o.deps.ReplayDelay); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		end := runeOffset(text, size)
		onChunk(text[:end])
		text = text[end:]
	}
	return nil
}

// runeOffset returns the byte offset just past the first n runes of s.
func runeOffset(s string, n int) int {
	off := 0
	for range n {
		if off >= len(s) {
			break
		}
		_, size := utf8.DecodeRuneInString(s[off:])
		off += size
	}
	return off
}

func upgradeRequired(c ClassifiedError) domain.GenerationResult {
	return domain.GenerationResult{
		Outcome: domain.OutcomeRejected,
		Failure: &domain.Failure{Kind: domain.FailureUpgradeRequired, Status: c.StatusCode, Message: UpgradeRequiredMessage},
	}
}

// upgradeError returns err unchanged when it already matches
// domain.ErrUpgradeRequired, and wraps it otherwise.
func upgradeError(err error) error {
	if errors.Is(err, domain.ErrUpgradeRequired) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrUpgradeRequired, err)
}

func cancelled() domain.GenerationResult {
	return domain.GenerationResult{
		Outcome: domain.OutcomeRejected,
		Failure: &domain.Failure{Kind: domain.FailureCancelled},
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func requestAttrs(req domain.GenerationRequest) []attribute.KeyValue {
	return []attribute.KeyValue{
		tracer.StringAttr("magic.occasion", req.Occasion),
		tracer.StringAttr("magic.relationship", req.Relationship),
		tracer.StringAttr("magic.tone", string(req.Tone)),
		tracer.IntAttr("magic.context_words", len(req.ContextWords)),
	}
}
