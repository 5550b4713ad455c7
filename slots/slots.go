// Package slots holds the request-in-progress for a quiz generation
// conversation: the typed slot values accumulated across turns, the merge
// rules that apply extracted candidates to them, and the readiness
// evaluator that decides when the request is complete.
package slots

// MaxQuestions is the exclusive upper bound for a single request. A turn
// that would set num_questions at or above it resets the slot instead.
const MaxQuestions = 50

// Wire names of the extractable slots.
const (
	FieldNumQuestions = "num_questions"
	FieldPrompt       = "prompt"
	FieldGenerateNow  = "generate_now"
	FieldFiles        = "files"
)

// SlotSet is the partially filled generation request. A zero NumQuestions
// means unset. Files preserves insertion order and is populated only by the
// upload path, never from extraction output.
type SlotSet struct {
	NumQuestions int      `json:"num_questions,omitempty"`
	Prompt       string   `json:"prompt,omitempty"`
	Files        []string `json:"files,omitempty"`
	GenerateNow  bool     `json:"generate_now,omitempty"`
}

func (s SlotSet) Clone() SlotSet {
	out := s
	if s.Files != nil {
		out.Files = make([]string, len(s.Files))
		copy(out.Files, s.Files)
	}
	return out
}

// AddFile records an uploaded filename, deduplicated, insertion order kept.
func (s *SlotSet) AddFile(name string) {
	for _, f := range s.Files {
		if f == name {
			return
		}
	}
	s.Files = append(s.Files, name)
}

func (s SlotSet) IsZero() bool {
	return s.NumQuestions == 0 && s.Prompt == "" && len(s.Files) == 0 && !s.GenerateNow
}

// ParsedFields is the typed result of one extraction call. A missing key
// means "no confident signal this turn", not "the value is empty".
type ParsedFields map[string]any

// PendingGeneration is the snapshot frozen when the evaluator declares
// readiness. It is held by the confirmation gate until approved or
// cancelled, then handed to the generation pipeline and discarded.
type PendingGeneration struct {
	NumQuestions int    `json:"num_questions"`
	PromptToUse  string `json:"prompt_to_use"`
	SourceLabel  string `json:"source_label"`
}
