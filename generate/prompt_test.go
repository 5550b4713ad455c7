package generate

import (
	"strings"
	"testing"
	"time"

	"github.com/aristotle-ai/quizflow/material"
	"github.com/aristotle-ai/quizflow/slots"
)

func TestResolvePromptPrefersTypedPrompt(t *testing.T) {
	t.Parallel()
	pending := slots.PendingGeneration{NumQuestions: 5, PromptToUse: "volcanoes"}
	userData := material.UserData{Materials: []material.Material{{Filename: "notes.txt", Content: "lava"}}}

	got := ResolvePrompt(pending, []string{"notes.txt"}, userData)
	if got != "volcanoes" {
		t.Errorf("prompt = %q, want the typed prompt verbatim", got)
	}
}

func TestResolvePromptFromMaterial(t *testing.T) {
	t.Parallel()
	pending := slots.PendingGeneration{NumQuestions: 3}
	userData := material.UserData{Materials: []material.Material{
		{Filename: "notes.txt", Content: strings.Repeat("x", MaxMaterialPreview+500)},
	}}

	got := ResolvePrompt(pending, []string{"notes.txt"}, userData)
	if !strings.Contains(got, "Create 3 multiple-choice questions") {
		t.Errorf("prompt missing count: %q", got[:80])
	}
	if !strings.Contains(got, "Title: notes.txt") {
		t.Errorf("prompt missing material title")
	}
	if len(got) > MaxMaterialPreview+200 {
		t.Errorf("material preview not bounded: prompt length %d", len(got))
	}
}

func TestResolvePromptGenericFallback(t *testing.T) {
	t.Parallel()
	pending := slots.PendingGeneration{NumQuestions: 2}
	got := ResolvePrompt(pending, []string{"ghost.pdf"}, material.UserData{})
	if !strings.Contains(got, "ghost.pdf") {
		t.Errorf("fallback prompt does not reference the files: %q", got)
	}
}

func TestResolvePromptTopicsFallback(t *testing.T) {
	t.Parallel()
	pending := slots.PendingGeneration{NumQuestions: 4}
	userData := material.UserData{Topics: []string{"geology", "volcanoes"}}

	got := ResolvePrompt(pending, nil, userData)
	if !strings.Contains(got, "geology, volcanoes") {
		t.Errorf("fallback prompt does not use the known topics: %q", got)
	}
}

func TestSafeFilename(t *testing.T) {
	t.Parallel()
	now := time.UnixMilli(1700000000000)

	got := SafeFilename("Volcanoes & Plate Tectonics!", now)
	want := "Volcanoes_Plate_Tectonics-1700000000000.json"
	if got != want {
		t.Errorf("SafeFilename = %q, want %q", got, want)
	}

	long := strings.Repeat("a", 200)
	got = SafeFilename(long, now)
	if len(got) > maxLabelLength+len("-1700000000000.json") {
		t.Errorf("filename not length bounded: %q", got)
	}

	got = SafeFilename("???///", now)
	if !strings.HasPrefix(got, "quiz-") {
		t.Errorf("empty label should fall back to quiz: %q", got)
	}
}
