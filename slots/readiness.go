package slots

// Decision is the evaluator's verdict on the current SlotSet.
type Decision string

const (
	// DecideConfirm: the request is complete and ready for the
	// confirmation gate.
	DecideConfirm Decision = "confirm"
	// DecideClarify: ask the user for the specific missing fields.
	DecideClarify Decision = "clarify"
	// DecideOutOfBounds: num_questions breached MaxQuestions; reset the
	// slot and prompt for a smaller number before anything else.
	DecideOutOfBounds Decision = "out_of_bounds"
)

type Verdict struct {
	Decision Decision

	// MandatoryMissing and OneOfMissing carry the unmet field names so
	// clarification can target exactly what is missing and never re-ask
	// for fields already filled.
	MandatoryMissing []string
	OneOfMissing     []string
}

// Evaluate is a pure function of the SlotSet. Mandatory: num_questions set
// and generate_now true. Optional: a prompt or at least one uploaded file.
func Evaluate(s SlotSet) Verdict {
	if s.NumQuestions >= MaxQuestions {
		return Verdict{Decision: DecideOutOfBounds}
	}
	var mandatory []string
	if s.NumQuestions <= 0 {
		mandatory = append(mandatory, FieldNumQuestions)
	}
	if !s.GenerateNow {
		mandatory = append(mandatory, FieldGenerateNow)
	}
	var oneOf []string
	if s.Prompt == "" && len(s.Files) == 0 {
		oneOf = []string{FieldPrompt, FieldFiles}
	}
	if len(mandatory) == 0 && len(oneOf) == 0 {
		return Verdict{Decision: DecideConfirm}
	}
	return Verdict{
		Decision:         DecideClarify,
		MandatoryMissing: mandatory,
		OneOfMissing:     oneOf,
	}
}
