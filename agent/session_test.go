package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aristotle-ai/quizflow/dialogue"
	"github.com/aristotle-ai/quizflow/extract"
	"github.com/aristotle-ai/quizflow/generate"
	"github.com/aristotle-ai/quizflow/material"
	"github.com/aristotle-ai/quizflow/slots"
	"github.com/aristotle-ai/quizflow/types"
)

type fakeExtractor struct {
	fields slots.ParsedFields
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, inputText string, fields []extract.FieldSpec) (slots.ParsedFields, error) {
	return f.fields, f.err
}

type fakeDialogue struct {
	reply   string
	err     error
	lastReq *dialogue.Request
}

func (f *fakeDialogue) GenerateReply(ctx context.Context, req *dialogue.Request) (string, error) {
	f.lastReq = req
	return f.reply, f.err
}

type fakeGenerator struct {
	result any
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, numQuestions int, prompt string) (any, error) {
	return f.result, f.err
}

type fakeSaver struct {
	key     string
	err     error
	lastReq *generate.SaveRequest
}

func (f *fakeSaver) Save(ctx context.Context, req *generate.SaveRequest) (string, error) {
	f.lastReq = req
	return f.key, f.err
}

type fakeUploader struct {
	result *material.UploadResult
	err    error
	called bool
}

func (f *fakeUploader) Upload(ctx context.Context, filename string, content io.Reader, conversationState string, userData material.UserData) (*material.UploadResult, error) {
	f.called = true
	return f.result, f.err
}

type sessionFakes struct {
	extractor *fakeExtractor
	dialogue  *fakeDialogue
	generator *fakeGenerator
	saver     *fakeSaver
	uploader  *fakeUploader
	store     *SlotStore
}

func newTestSession(t *testing.T) (*Session, *sessionFakes) {
	t.Helper()
	f := &sessionFakes{
		extractor: &fakeExtractor{},
		dialogue:  &fakeDialogue{reply: "How many questions would you like?"},
		generator: &fakeGenerator{},
		saver:     &fakeSaver{key: "qb/test-key.json"},
		uploader:  &fakeUploader{},
		store:     newTestSlotStore(t),
	}
	s, err := NewSession(Config{
		Extractor: f.extractor,
		Dialogue:  f.dialogue,
		Generator: f.generator,
		Saver:     f.saver,
		Uploader:  f.uploader,
		Store:     f.store,
		Now:       func() time.Time { return time.UnixMilli(1700000000000) },
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	return s, f
}

func questionItems(n int) []any {
	items := make([]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{"question": "q"})
	}
	return items
}

func TestSessionFullFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, f := newTestSession(t)

	f.extractor.fields = slots.ParsedFields{
		slots.FieldNumQuestions: float64(10),
		slots.FieldPrompt:       "volcanoes",
		slots.FieldGenerateNow:  true,
	}
	replies, err := s.HandleTurn(ctx, "generate 10 questions about volcanoes now")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if len(replies) != 1 || !strings.Contains(replies[0].Content, "confirm") {
		t.Fatalf("turn 1 replies = %+v, want one confirmation prompt", replies)
	}
	if got := s.Phase(); got != types.PhaseConfirming {
		t.Fatalf("phase after readiness = %v, want confirming", got)
	}

	// The model overshoots by two; the session trims and reports it once.
	f.generator.result = map[string]any{"questions": questionItems(12)}
	replies, err = s.HandleTurn(ctx, "confirm")
	if err != nil {
		t.Fatalf("confirm turn: %v", err)
	}
	if len(replies) != 13 {
		t.Fatalf("confirm turn produced %d messages, want 13", len(replies))
	}
	if replies[0].Content != progressMessage {
		t.Errorf("first message = %q, want progress notice", replies[0].Content)
	}
	if !strings.Contains(replies[1].Content, "more than 10") {
		t.Errorf("second message = %q, want truncation notice", replies[1].Content)
	}
	if replies[2].Content != "Saved to questionbank as: qb/test-key.json" {
		t.Errorf("third message = %q, want save confirmation", replies[2].Content)
	}
	if !strings.HasPrefix(replies[3].Content, "Q1: ") || !strings.HasPrefix(replies[12].Content, "Q10: ") {
		t.Errorf("question messages misnumbered: %q ... %q", replies[3].Content, replies[12].Content)
	}

	if f.saver.lastReq == nil {
		t.Fatal("saver not called")
	}
	if len(f.saver.lastReq.Questions) != 10 {
		t.Errorf("saved %d questions, want 10", len(f.saver.lastReq.Questions))
	}
	if f.saver.lastReq.Filename != "volcanoes-1700000000000.json" {
		t.Errorf("filename = %q", f.saver.lastReq.Filename)
	}
	if f.saver.lastReq.Metadata.Source != "user-prompt" {
		t.Errorf("source = %q, want user-prompt", f.saver.lastReq.Metadata.Source)
	}

	stored, err := f.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !stored.IsZero() {
		t.Errorf("slots not cleared after save: %+v", stored)
	}
	if got := s.Phase(); got != types.PhaseCollecting {
		t.Errorf("phase after generation = %v, want collecting", got)
	}
}

func TestSessionClarifiesWhenIncomplete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, f := newTestSession(t)

	f.extractor.fields = slots.ParsedFields{slots.FieldPrompt: "volcanoes"}
	replies, err := s.HandleTurn(ctx, "I'd like some questions about volcanoes")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if len(replies) != 1 || replies[0].Content != f.dialogue.reply {
		t.Fatalf("replies = %+v, want the clarifier's reply", replies)
	}
	if f.dialogue.lastReq == nil {
		t.Fatal("dialogue generator not called")
	}
	for _, missing := range f.dialogue.lastReq.MandatoryMissing {
		if missing == slots.FieldPrompt {
			t.Error("clarifier asked for a field that is already filled")
		}
	}
	if got := s.Phase(); got != types.PhaseCollecting {
		t.Errorf("phase = %v, want collecting", got)
	}
}

func TestSessionClarifyFallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, f := newTestSession(t)

	f.dialogue.err = errors.New("model unavailable")
	replies, err := s.HandleTurn(ctx, "hello")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if len(replies) != 1 || replies[0].Content != clarifyFallback {
		t.Errorf("replies = %+v, want fallback clarification", replies)
	}
}

func TestSessionOutOfBoundsResetsCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, f := newTestSession(t)

	f.extractor.fields = slots.ParsedFields{
		slots.FieldNumQuestions: float64(60),
		slots.FieldPrompt:       "volcanoes",
	}
	replies, err := s.HandleTurn(ctx, "make 60 questions about volcanoes")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if len(replies) != 1 || !strings.Contains(replies[0].Content, "at most 49") {
		t.Fatalf("replies = %+v, want bound message", replies)
	}
	if got := s.Phase(); got != types.PhaseCollecting {
		t.Errorf("phase = %v, want collecting", got)
	}

	stored, err := f.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stored.NumQuestions != 0 {
		t.Errorf("num_questions = %d, want reset to 0", stored.NumQuestions)
	}
	if stored.Prompt != "volcanoes" {
		t.Errorf("prompt = %q, want retained", stored.Prompt)
	}
}

func TestSessionCancelKeepsSlots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, f := newTestSession(t)

	f.extractor.fields = slots.ParsedFields{
		slots.FieldNumQuestions: float64(5),
		slots.FieldPrompt:       "rome",
		slots.FieldGenerateNow:  true,
	}
	if _, err := s.HandleTurn(ctx, "5 questions on rome, go"); err != nil {
		t.Fatalf("setup turn: %v", err)
	}
	if got := s.Phase(); got != types.PhaseConfirming {
		t.Fatalf("phase = %v, want confirming", got)
	}

	replies, err := s.HandleTurn(ctx, "cancel")
	if err != nil {
		t.Fatalf("cancel turn: %v", err)
	}
	if len(replies) != 1 || replies[0].Content != cancelledMessage {
		t.Errorf("replies = %+v, want cancellation message", replies)
	}
	if got := s.Phase(); got != types.PhaseCollecting {
		t.Errorf("phase = %v, want collecting", got)
	}

	stored, err := f.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stored.NumQuestions != 5 || stored.Prompt != "rome" {
		t.Errorf("slots lost on cancel: %+v", stored)
	}
}

func TestSessionUnrecognizedInputWhileConfirming(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, f := newTestSession(t)

	f.extractor.fields = slots.ParsedFields{
		slots.FieldNumQuestions: float64(5),
		slots.FieldPrompt:       "rome",
		slots.FieldGenerateNow:  true,
	}
	if _, err := s.HandleTurn(ctx, "5 on rome, go"); err != nil {
		t.Fatalf("setup turn: %v", err)
	}

	replies, err := s.HandleTurn(ctx, "what is the weather like")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if len(replies) != 1 || replies[0].Content != confirmHintMessage {
		t.Errorf("replies = %+v, want confirm hint", replies)
	}
	if got := s.Phase(); got != types.PhaseConfirming {
		t.Errorf("phase = %v, want still confirming", got)
	}
}

func TestSessionUnparsableGenerationOutput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, f := newTestSession(t)

	f.extractor.fields = slots.ParsedFields{
		slots.FieldNumQuestions: float64(5),
		slots.FieldPrompt:       "rome",
		slots.FieldGenerateNow:  true,
	}
	if _, err := s.HandleTurn(ctx, "5 on rome, go"); err != nil {
		t.Fatalf("setup turn: %v", err)
	}

	f.generator.result = map[string]any{"unexpected": "shape"}
	replies, err := s.HandleTurn(ctx, "confirm")
	if err != nil {
		t.Fatalf("confirm turn: %v", err)
	}
	last := replies[len(replies)-1]
	if last.Content != unparsableMessage {
		t.Errorf("last message = %q, want unparsable notice", last.Content)
	}
	if f.saver.lastReq != nil {
		t.Error("save attempted for unparsable output")
	}
}

func TestSessionSaveFailureKeepsSlots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, f := newTestSession(t)

	f.extractor.fields = slots.ParsedFields{
		slots.FieldNumQuestions: float64(3),
		slots.FieldPrompt:       "rome",
		slots.FieldGenerateNow:  true,
	}
	if _, err := s.HandleTurn(ctx, "3 on rome, go"); err != nil {
		t.Fatalf("setup turn: %v", err)
	}

	f.generator.result = questionItems(3)
	f.saver.err = errors.New("questionbank unreachable")
	replies, err := s.HandleTurn(ctx, "confirm")
	if err != nil {
		t.Fatalf("confirm turn: %v", err)
	}

	var sawFailure, sawQuestion bool
	for _, r := range replies {
		if strings.Contains(r.Content, "couldn't save") {
			sawFailure = true
		}
		if strings.HasPrefix(r.Content, "Q1: ") {
			sawQuestion = true
		}
	}
	if !sawFailure || !sawQuestion {
		t.Errorf("replies = %+v, want failure notice and the questions", replies)
	}

	stored, err := f.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stored.IsZero() {
		t.Error("slots cleared despite save failure")
	}
}

func TestSessionRejectsConcurrentTurn(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t)

	if err := s.begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer s.end()

	if _, err := s.HandleTurn(context.Background(), "hello"); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("err = %v, want ErrTurnInFlight", err)
	}
}

func TestSessionUploadMaterial(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, f := newTestSession(t)

	f.uploader.result = &material.UploadResult{
		Response:  "Got it, your notes look great.",
		NextState: "materials-loaded",
		UpdatedUserData: material.UserData{
			Topics:    []string{"geology"},
			Materials: []material.Material{{Filename: "notes.txt", Content: "magma"}},
		},
	}
	replies, err := s.UploadMaterial(ctx, "notes.txt", strings.NewReader("magma"))
	if err != nil {
		t.Fatalf("UploadMaterial: %v", err)
	}
	if len(replies) != 1 || replies[0].Content != "Got it, your notes look great." {
		t.Errorf("replies = %+v", replies)
	}

	stored, err := f.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(stored.Files) != 1 || stored.Files[0] != "notes.txt" {
		t.Errorf("files = %v, want [notes.txt]", stored.Files)
	}
}

func TestSessionUploadRejectsUnsupportedType(t *testing.T) {
	t.Parallel()
	s, f := newTestSession(t)

	replies, err := s.UploadMaterial(context.Background(), "slides.pptx", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("UploadMaterial: %v", err)
	}
	if len(replies) != 1 || replies[0].Content != unsupportedFileType {
		t.Errorf("replies = %+v, want unsupported type message", replies)
	}
	if f.uploader.called {
		t.Error("uploader called for unsupported file type")
	}
}

func TestSessionReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, f := newTestSession(t)

	f.extractor.fields = slots.ParsedFields{
		slots.FieldNumQuestions: float64(5),
		slots.FieldPrompt:       "rome",
		slots.FieldGenerateNow:  true,
	}
	if _, err := s.HandleTurn(ctx, "5 on rome, go"); err != nil {
		t.Fatalf("setup turn: %v", err)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := s.Phase(); got != types.PhaseCollecting {
		t.Errorf("phase = %v, want collecting", got)
	}
	stored, err := f.store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !stored.IsZero() {
		t.Errorf("slots survived reset: %+v", stored)
	}
}
