package agent

import (
	"context"

	"github.com/aristotle-ai/quizflow/types"
)

type Trimmer interface {
	Trim(transcript []types.Message) []types.Message
}

// KeepLastNTrimmer keeps the last N transcript entries. When N <= 0 nothing
// is trimmed.
type KeepLastNTrimmer struct {
	N int
}

func (t KeepLastNTrimmer) Trim(transcript []types.Message) []types.Message {
	if t.N <= 0 || len(transcript) <= t.N {
		return transcript
	}
	return transcript[len(transcript)-t.N:]
}

// TranscriptStore holds the append-only conversation transcript per session
// key. Appends deduplicate by message ID so a retried turn cannot double up
// its replies.
type TranscriptStore struct {
	store   Store[[]types.Message]
	trimmer Trimmer
}

func NewTranscriptStore(core Cache[[]types.Message], trimmer Trimmer) *TranscriptStore {
	return &TranscriptStore{
		store:   NewStore(core, "quizflow:transcript", nil),
		trimmer: trimmer,
	}
}

func NewMemoryTranscriptStore(trimmer Trimmer) *TranscriptStore {
	return NewTranscriptStore(NewMemoryCache[[]types.Message](), trimmer)
}

func (s *TranscriptStore) Load(ctx context.Context) ([]types.Message, error) {
	transcript, ok, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return transcript, nil
}

func (s *TranscriptStore) Append(ctx context.Context, msgs ...types.Message) ([]types.Message, error) {
	transcript, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(transcript))
	for _, m := range transcript {
		seen[m.ID] = struct{}{}
	}
	for _, msg := range msgs {
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		seen[msg.ID] = struct{}{}
		transcript = append(transcript, msg)
	}
	if s.trimmer != nil {
		transcript = s.trimmer.Trim(transcript)
	}
	if err := s.store.Set(ctx, transcript); err != nil {
		return nil, err
	}
	return transcript, nil
}

func (s *TranscriptStore) Clear(ctx context.Context) error {
	return s.store.Del(ctx)
}
