package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aristotle-ai/quizflow/command"
	"github.com/aristotle-ai/quizflow/dialogue"
	"github.com/aristotle-ai/quizflow/extract"
	"github.com/aristotle-ai/quizflow/generate"
	"github.com/aristotle-ai/quizflow/material"
	"github.com/aristotle-ai/quizflow/slots"
	"github.com/aristotle-ai/quizflow/types"
)

// Greeting opens every new conversation.
const Greeting = "Hello, I'm Aristotle, your learning assistant. What topics would you like to learn about?"

const (
	progressMessage     = "Generating questions — this may take a few seconds..."
	unparsableMessage   = "I could not parse useful questions from the model output."
	confirmHintMessage  = `Please reply "confirm" to generate now, or "cancel" to keep editing your request.`
	cancelledMessage    = "Okay, I won't generate yet. Tell me what you'd like to change."
	clarifyFallback     = "Could you tell me a bit more about the quiz you'd like? I need a question count, a topic or an uploaded file, and the go-ahead to generate."
	unsupportedFileType = "I can only read .txt, .pdf, .doc and .docx files. Please upload one of those."
)

// ErrTurnInFlight is returned when a turn arrives while a previous one is
// still being processed. Turns are strictly serialized per session.
var ErrTurnInFlight = errors.New("a turn is already in flight")

var errNoUploader = errors.New("no uploader configured")

// Uploader sends one study material to the upload collaborator.
type Uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader, conversationState string, userData material.UserData) (*material.UploadResult, error)
}

// Config wires a Session's collaborators. Extractor, Dialogue, Generator,
// Saver and Store are required; Uploader may be nil when uploads are not
// served; Commands and Now default when nil.
type Config struct {
	Extractor extract.Extractor
	Dialogue  dialogue.Generator
	Generator generate.Generator
	Saver     generate.Saver
	Uploader  Uploader
	Commands  command.Parser
	Store     *SlotStore
	// Transcript, when set, records user inputs and bot replies.
	Transcript *TranscriptStore
	Now        func() time.Time
}

// Session runs one quiz-building conversation: it accumulates slots across
// turns, gates generation behind an explicit confirmation, and drives the
// generation pipeline once approved.
type Session struct {
	cfg      Config
	registry *Registry

	mu        sync.Mutex
	busy      bool
	phase     types.Phase
	pending   *slots.PendingGeneration
	userData  material.UserData
	convState string
}

func NewSession(cfg Config) (*Session, error) {
	if cfg.Extractor == nil || cfg.Dialogue == nil || cfg.Generator == nil || cfg.Saver == nil || cfg.Store == nil {
		return nil, errors.New("session config missing a required collaborator")
	}
	if cfg.Commands == nil {
		cfg.Commands = command.NewLocalParser()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Session{
		cfg:      cfg,
		registry: NewRegistry(),
		phase:    types.PhaseCollecting,
	}, nil
}

// Phase reports the current conversation phase.
func (s *Session) Phase() types.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Close cancels every in-flight outbound call. The session must not be used
// afterwards.
func (s *Session) Close() {
	s.registry.Shutdown()
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrTurnInFlight
	}
	s.busy = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// HandleTurn processes one user input and returns the bot messages it
// produced, in order. Exactly one turn runs at a time; concurrent calls get
// ErrTurnInFlight.
func (s *Session) HandleTurn(ctx context.Context, input string) ([]types.Message, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	var replies []types.Message
	var err error
	if s.phase == types.PhaseConfirming {
		replies, err = s.handleConfirming(ctx, input)
	} else {
		replies, err = s.handleCollecting(ctx, input)
	}
	if err != nil {
		return nil, err
	}
	s.record(ctx, input, replies)
	return replies, nil
}

func (s *Session) record(ctx context.Context, input string, replies []types.Message) {
	if s.cfg.Transcript == nil {
		return
	}
	entries := append([]types.Message{types.NewMessage(types.RoleUser, input)}, replies...)
	if _, err := s.cfg.Transcript.Append(ctx, entries...); err != nil {
		slog.Error("transcript append failed", "err", err)
	}
}

func (s *Session) handleConfirming(ctx context.Context, input string) ([]types.Message, error) {
	cmd, err := s.cfg.Commands.ParseCommand(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("parse confirmation command: %w", err)
	}
	slog.Debug("confirmation gate", "command", cmd)
	switch cmd {
	case command.Confirm:
		return s.runGeneration(ctx)
	case command.Cancel:
		s.pending = nil
		s.phase = types.PhaseCollecting
		return []types.Message{types.NewMessage(types.RoleBot, cancelledMessage)}, nil
	default:
		return []types.Message{types.NewMessage(types.RoleBot, confirmHintMessage)}, nil
	}
}

func (s *Session) handleCollecting(ctx context.Context, input string) ([]types.Message, error) {
	fields, err := s.extract(ctx, input)
	if err != nil {
		slog.Error("field extraction failed", "err", err)
		fields = nil
	}

	current, err := s.cfg.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	merged := slots.Merge(current, fields)
	merged, err = s.cfg.Store.Merge(ctx, merged)
	if err != nil {
		return nil, err
	}
	slog.Debug("slots merged", "num_questions", merged.NumQuestions, "has_prompt", merged.Prompt != "", "files", len(merged.Files), "generate_now", merged.GenerateNow)

	verdict := slots.Evaluate(merged)
	switch verdict.Decision {
	case slots.DecideOutOfBounds:
		reset := merged.Clone()
		reset.NumQuestions = 0
		if err := s.cfg.Store.Replace(ctx, reset); err != nil {
			return nil, err
		}
		msg := fmt.Sprintf("I can generate at most %d questions at a time. How many would you like, up to %d?", slots.MaxQuestions-1, slots.MaxQuestions-1)
		return []types.Message{types.NewMessage(types.RoleBot, msg)}, nil
	case slots.DecideConfirm:
		s.freeze(merged)
		return []types.Message{types.NewMessage(types.RoleBot, s.confirmSummary())}, nil
	default:
		reply := s.clarify(ctx, input, merged, verdict)
		return []types.Message{types.NewMessage(types.RoleBot, reply)}, nil
	}
}

func (s *Session) extract(ctx context.Context, input string) (slots.ParsedFields, error) {
	tracked, release := s.registry.Track(ctx)
	defer release()
	return s.cfg.Extractor.Extract(tracked, input, extract.QuizFields())
}

// freeze snapshots the merged set for the confirmation gate. The pending
// snapshot exists exactly while the phase is confirming.
func (s *Session) freeze(merged slots.SlotSet) {
	pending := &slots.PendingGeneration{
		NumQuestions: merged.NumQuestions,
		PromptToUse:  merged.Prompt,
	}
	switch {
	case len(merged.Files) > 0:
		pending.SourceLabel = merged.Files[0]
	case merged.Prompt != "":
		pending.SourceLabel = merged.Prompt
	default:
		pending.SourceLabel = "quiz"
	}
	s.mu.Lock()
	s.pending = pending
	s.phase = types.PhaseConfirming
	s.mu.Unlock()
}

func (s *Session) confirmSummary() string {
	var source string
	if s.pending.PromptToUse != "" {
		source = fmt.Sprintf("about %q", s.pending.PromptToUse)
	} else {
		source = fmt.Sprintf("from %q", s.pending.SourceLabel)
	}
	return fmt.Sprintf(`I'm ready to generate %d questions %s. Reply "confirm" to start, or "cancel" if you'd like to change anything.`, s.pending.NumQuestions, source)
}

func (s *Session) clarify(ctx context.Context, input string, merged slots.SlotSet, verdict slots.Verdict) string {
	tracked, release := s.registry.Track(ctx)
	defer release()
	reply, err := s.cfg.Dialogue.GenerateReply(tracked, &dialogue.Request{
		InputText:        input,
		Slots:            merged,
		MandatoryMissing: verdict.MandatoryMissing,
		OneOfMissing:     verdict.OneOfMissing,
	})
	if err != nil {
		slog.Error("clarification generation failed", "err", err)
		return clarifyFallback
	}
	return reply
}

// Approve triggers the generation pipeline directly, bypassing command
// parsing. It fails unless a confirmation is pending.
func (s *Session) Approve(ctx context.Context) ([]types.Message, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()
	if s.phase != types.PhaseConfirming {
		return nil, errors.New("no generation is awaiting confirmation")
	}
	return s.runGeneration(ctx)
}

// CancelPending discards the pending snapshot and returns to collecting.
func (s *Session) CancelPending(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()
	if s.phase != types.PhaseConfirming {
		return errors.New("no generation is awaiting confirmation")
	}
	s.pending = nil
	s.phase = types.PhaseCollecting
	return nil
}

func (s *Session) runGeneration(ctx context.Context) ([]types.Message, error) {
	pending := *s.pending
	s.mu.Lock()
	s.phase = types.PhaseGenerating
	s.mu.Unlock()

	messages := []types.Message{types.NewMessage(types.RoleBot, progressMessage)}

	settle := func(extra ...types.Message) []types.Message {
		s.mu.Lock()
		s.pending = nil
		s.phase = types.PhaseCollecting
		s.mu.Unlock()
		return append(messages, extra...)
	}

	current, err := s.cfg.Store.Load(ctx)
	if err != nil {
		return settle(), err
	}

	prompt := generate.ResolvePrompt(pending, current.Files, s.userData)
	slog.Debug("generation started", "num_questions", pending.NumQuestions, "prompt_len", len(prompt))

	raw, err := s.generateQuestions(ctx, pending.NumQuestions, prompt)
	if err != nil {
		slog.Error("question generation failed", "err", err)
		msg := fmt.Sprintf("Something went wrong while generating questions: %v. Your request is unchanged, say \"confirm\" again to retry.", err)
		return settle(types.NewMessage(types.RoleBot, msg)), nil
	}

	items := generate.Normalize(raw)
	if len(items) == 0 {
		return settle(types.NewMessage(types.RoleBot, unparsableMessage)), nil
	}

	var extra []types.Message
	if len(items) > pending.NumQuestions {
		notice := fmt.Sprintf("The model produced more than %d. I trimmed to %d.", pending.NumQuestions, pending.NumQuestions)
		extra = append(extra, types.NewMessage(types.RoleBot, notice))
		items = items[:pending.NumQuestions]
	}

	filename := generate.SafeFilename(pending.SourceLabel, s.cfg.Now())
	key, err := s.saveQuestions(ctx, items, pending, current.Files, filename)
	if err != nil {
		slog.Error("question save failed", "err", err, "filename", filename)
		msg := fmt.Sprintf("I generated %d questions but couldn't save them: %v.", len(items), err)
		extra = append(extra, types.NewMessage(types.RoleBot, msg))
		extra = append(extra, questionMessages(items)...)
		// Slots stay intact so the user can confirm again and retry
		// the save.
		return settle(extra...), nil
	}

	extra = append(extra, types.NewMessage(types.RoleBot, "Saved to questionbank as: "+key))
	extra = append(extra, questionMessages(items)...)

	if err := s.cfg.Store.Replace(ctx, slots.SlotSet{}); err != nil {
		slog.Error("slot clear failed", "err", err)
	}
	slog.Debug("generation finished", "items", len(items), "key", key)
	return settle(extra...), nil
}

func (s *Session) generateQuestions(ctx context.Context, numQuestions int, prompt string) (any, error) {
	tracked, release := s.registry.Track(ctx)
	defer release()
	return s.cfg.Generator.Generate(tracked, numQuestions, prompt)
}

func (s *Session) saveQuestions(ctx context.Context, items []any, pending slots.PendingGeneration, files []string, filename string) (string, error) {
	refs := make([]generate.FileRef, 0, len(files))
	for _, f := range files {
		refs = append(refs, generate.FileRef{Filename: f})
	}
	source := "user-prompt"
	if len(files) > 0 {
		source = "material"
	}
	req := &generate.SaveRequest{
		Name:      pending.SourceLabel,
		Questions: items,
		Metadata: generate.SaveMetadata{
			Source:    source,
			Topics:    s.userData.Topics,
			Materials: refs,
		},
		Filename: filename,
	}
	tracked, release := s.registry.Track(ctx)
	defer release()
	return s.cfg.Saver.Save(tracked, req)
}

func questionMessages(items []any) []types.Message {
	messages := make([]types.Message, 0, len(items))
	for i, item := range items {
		messages = append(messages, types.NewMessage(types.RoleBot, generate.RenderItem(item, i)))
	}
	return messages
}

// UploadMaterial sends one file to the upload collaborator and records it as
// a study source for the request in progress.
func (s *Session) UploadMaterial(ctx context.Context, filename string, content io.Reader) ([]types.Message, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	if !material.AllowedFile(filename) {
		return []types.Message{types.NewMessage(types.RoleBot, unsupportedFileType)}, nil
	}
	if s.cfg.Uploader == nil {
		return nil, errNoUploader
	}

	tracked, release := s.registry.Track(ctx)
	result, err := s.cfg.Uploader.Upload(tracked, filename, content, s.convState, s.userData)
	release()
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}

	s.mu.Lock()
	s.userData = result.UpdatedUserData
	s.convState = result.NextState
	s.mu.Unlock()

	current, err := s.cfg.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	current.AddFile(filename)
	if err := s.cfg.Store.Replace(ctx, current); err != nil {
		return nil, err
	}
	slog.Debug("material recorded", "filename", filename, "files", len(current.Files))

	response := result.Response
	if response == "" {
		response = fmt.Sprintf("I've read %s. How many questions should I make from it?", filename)
	}
	replies := []types.Message{types.NewMessage(types.RoleBot, response)}
	s.record(ctx, "Uploaded: "+filename, replies)
	return replies, nil
}

// Reset drops all conversation state and returns to a fresh collecting
// phase.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	if err := s.cfg.Store.Clear(ctx); err != nil {
		return err
	}
	if s.cfg.Transcript != nil {
		if err := s.cfg.Transcript.Clear(ctx); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.pending = nil
	s.phase = types.PhaseCollecting
	s.userData = material.UserData{}
	s.convState = ""
	s.mu.Unlock()
	return nil
}
