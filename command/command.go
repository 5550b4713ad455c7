// Package command recognizes explicit approval and cancellation while a
// generation snapshot is waiting at the confirmation gate.
package command

import (
	"context"
	"strings"
)

type Command string

const (
	Confirm Command = "confirm"
	Cancel  Command = "cancel"
	None    Command = "none"
)

type Parser interface {
	ParseCommand(ctx context.Context, input string) (Command, error)
}

// LocalParser matches exact keywords. Anything else is None so that turns
// carrying new slot information keep flowing through extraction.
type LocalParser struct {
	ConfirmKeywords []string
	CancelKeywords  []string
}

func NewLocalParser() *LocalParser {
	return &LocalParser{
		ConfirmKeywords: []string{"confirm", "yes", "yes please", "go ahead", "do it", "ok", "sure", "generate"},
		CancelKeywords:  []string{"cancel", "no", "not yet", "stop", "wait", "hold on"},
	}
}

func (p *LocalParser) ParseCommand(ctx context.Context, input string) (Command, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.TrimRight(normalized, ".!")
	for _, keyword := range p.ConfirmKeywords {
		if normalized == keyword {
			return Confirm, nil
		}
	}
	for _, keyword := range p.CancelKeywords {
		if normalized == keyword {
			return Cancel, nil
		}
	}
	return None, nil
}
