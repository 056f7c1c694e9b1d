package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mensajemagico/internal/domain"
	"mensajemagico/internal/usecase"
)

var errRejected = errors.New("generation rejected")

type generateOptions struct {
	occasion     string
	relationship string
	tone         string
	words        []string
	received     string
	format       string
	style        string
	creativity   string
	avoid        string
	intention    string
	gender       string
	greeting     string
	apology      string
	contact      string
	health       int

	stream bool
	output string
	repeat int
}

// newGenerateCommand creates the generate command.
func newGenerateCommand() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a message",
		Long: `Generate a message for an occasion, relationship and tone.

Advisory warnings for risky relationship/tone pairs are printed to stderr and
never block the generation.`,
		Example: `  magic generate --occasion birthday --relationship friend --tone divertido --word playa
  magic generate --occasion reply --relationship ex --tone neutral --received "¿Hablamos?" --stream`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.occasion, "occasion", "", "Occasion id (e.g. birthday, reply)")
	f.StringVar(&opts.relationship, "relationship", "", "Relationship with the recipient (e.g. friend, boss, ex)")
	f.StringVar(&opts.tone, "tone", string(domain.ToneNeutral), "Tone: "+joinTones(domain.Tones))
	f.StringArrayVar(&opts.words, "word", nil, "Context word (repeatable)")
	f.StringVar(&opts.received, "received", "", "Message being replied to (reply occasion)")
	f.StringVar(&opts.format, "format", "", "Format instruction passed to the generator")
	f.StringVar(&opts.style, "style", "", "Style instructions")
	f.StringVar(&opts.creativity, "creativity", "", "Creativity level")
	f.StringVar(&opts.avoid, "avoid", "", "Topics to avoid")
	f.StringVar(&opts.intention, "intention", "", "Intention of the message")
	f.StringVar(&opts.gender, "gender", "", "Grammatical gender of the recipient")
	f.StringVar(&opts.greeting, "greeting", "", "Greeting moment (e.g. morning)")
	f.StringVar(&opts.apology, "apology", "", "Reason for an apology")
	f.StringVar(&opts.contact, "contact", "", "Contact id")
	f.IntVar(&opts.health, "health", 0, "Relational health score (0 = unset)")
	f.BoolVar(&opts.stream, "stream", false, "Stream the message as it is generated")
	f.StringVarP(&opts.output, "output", "o", "text", "Output format: text or json")
	f.IntVar(&opts.repeat, "repeat", 1, "Number of generations to run in this session")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	if opts.output != "text" && opts.output != "json" {
		return fmt.Errorf("invalid --output %q (want text or json)", opts.output)
	}
	if opts.repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1")
	}

	a, err := newAppFromCommand(cmd)
	if err != nil {
		return err
	}
	defer a.Close(cmd.Context())

	req, err := opts.request(a)
	if err != nil {
		return err
	}

	printAdvice(cmd.ErrOrStderr(), a.advisor.Advise(req.Relationship, req.Tone))

	for range opts.repeat {
		if err := generateOnce(cmd, a, req, opts); err != nil {
			return err
		}
	}
	return nil
}

// request builds the generation request, screening context words one by one.
func (o *generateOptions) request(a *app) (domain.GenerationRequest, error) {
	tone, err := domain.ParseTone(o.tone)
	if err != nil {
		return domain.GenerationRequest{}, err
	}

	words := usecase.NewContextWords(a.cfg.Generation.MaxContextWords, a.filter)
	for _, w := range o.words {
		if err := words.Add(w); err != nil {
			return domain.GenerationRequest{}, err
		}
	}

	return domain.GenerationRequest{
		Occasion:          o.occasion,
		Relationship:      o.relationship,
		Tone:              tone,
		ReceivedText:      o.received,
		ContextWords:      words.Words(),
		FormatInstruction: o.format,
		UserID:            a.cfg.Generation.UserID,
		UserLocation:      a.cfg.Generation.UserLocation,
		ContactID:         o.contact,
		StyleInstructions: o.style,
		CreativityLevel:   o.creativity,
		AvoidTopics:       o.avoid,
		Intention:         o.intention,
		RelationalHealth:  o.health,
		GrammaticalGender: o.gender,
		GreetingMoment:    o.greeting,
		ApologyReason:     o.apology,
	}, nil
}

func generateOnce(cmd *cobra.Command, a *app, req domain.GenerationRequest, opts *generateOptions) error {
	ctx := cmd.Context()
	out := &outputWriter{w: cmd.OutOrStdout(), enc: json.NewEncoder(cmd.OutOrStdout())}
	jsonOut := opts.output == "json"

	if !opts.stream {
		res, err := a.orch.Generate(ctx, req)
		if jsonOut && err == nil {
			out.encode(newResultView(res))
		} else if res.Content != "" {
			out.line(res.Content)
		}
		return errors.Join(report(cmd.ErrOrStderr(), res, err), out.err)
	}

	streamed := false
	res, err := a.orch.GenerateStream(ctx, req, func(chunk string) {
		streamed = true
		if jsonOut {
			out.encode(domain.StreamEvent{Chunk: chunk})
			return
		}
		out.write(chunk)
	})

	switch {
	case jsonOut && err != nil:
		out.encode(domain.StreamEvent{Error: failureMessage(res, err)})
	case jsonOut && res.Failure == nil:
		out.encode(domain.StreamEvent{Done: true})
	case streamed:
		out.line("")
	}
	return errors.Join(report(cmd.ErrOrStderr(), res, err), out.err)
}

// outputWriter writes generated text to stdout and keeps the first write
// error. Later writes are skipped once one has failed.
type outputWriter struct {
	w   io.Writer
	enc *json.Encoder
	err error
}

func (o *outputWriter) write(s string) {
	if o.err == nil {
		_, o.err = io.WriteString(o.w, s)
	}
}

func (o *outputWriter) line(s string) { o.write(s + "\n") }

func (o *outputWriter) encode(v any) {
	if o.err == nil {
		o.err = o.enc.Encode(v)
	}
}

// report prints the user-facing failure message, if any, and decides the
// command's error. Degraded buffered results are not errors: the fallback
// text has already been printed.
func report(w io.Writer, res domain.GenerationResult, err error) error {
	if res.Failure != nil && res.Failure.Message != "" {
		fmt.Fprintln(w, res.Failure.Message)
	}
	if err != nil {
		return err
	}
	if res.Outcome == domain.OutcomeRejected {
		if res.Failure != nil && res.Failure.Kind == domain.FailureQuota {
			return fmt.Errorf("%w: %w", errRejected, domain.ErrLimitReached)
		}
		return errRejected
	}
	return nil
}

func failureMessage(res domain.GenerationResult, err error) string {
	if res.Failure != nil && res.Failure.Message != "" {
		return res.Failure.Message
	}
	return err.Error()
}

func printAdvice(w io.Writer, advice domain.Advice) {
	if !advice.HasWarning() {
		return
	}
	fmt.Fprintf(w, "Aviso: %s\n", advice.Warning)
	if advice.Fallback != nil {
		fmt.Fprintf(w, "%s (%s)\n", advice.Fallback.Message, joinTones(advice.Fallback.Tones))
	}
}

func joinTones(tones []domain.Tone) string {
	names := make([]string, len(tones))
	for i, t := range tones {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// resultView is the JSON shape of a buffered result.
type resultView struct {
	Content          string       `json:"content,omitempty"`
	Outcome          string       `json:"outcome"`
	RemainingCredits *float64     `json:"remaining_credits,omitempty"`
	Failure          *failureView `json:"failure,omitempty"`
}

type failureView struct {
	Kind    string `json:"kind"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

func newResultView(res domain.GenerationResult) resultView {
	v := resultView{
		Content:          res.Content,
		Outcome:          res.Outcome.String(),
		RemainingCredits: res.RemainingCredits,
	}
	if res.Failure != nil {
		v.Failure = &failureView{
			Kind:    res.Failure.Kind.String(),
			Status:  res.Failure.Status,
			Message: res.Failure.Message,
		}
	}
	return v
}
