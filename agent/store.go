package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/aristotle-ai/quizflow/slots"
)

type sessionKeyContext struct{}

const defaultSessionKey = "default"

// WithSessionKey sets a routing key for state storage in the context.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyContext{}, key)
}

// SessionKeyFromContext gets the routing key from the context.
func SessionKeyFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(sessionKeyContext{})
	if value == nil {
		return "", false
	}
	key, ok := value.(string)
	return key, ok
}

func sessionKeyOrDefault(ctx context.Context) string {
	key, ok := SessionKeyFromContext(ctx)
	if ok && key != "" {
		return key
	}
	return defaultSessionKey
}

// Store namespaces a Cache and routes keys through the context.
type Store[S any] struct {
	core      Cache[S]
	namespace string
	keyFn     func(ctx context.Context) string
}

func NewStore[S any](core Cache[S], namespace string, keyFn func(ctx context.Context) string) Store[S] {
	if keyFn == nil {
		keyFn = sessionKeyOrDefault
	}
	return Store[S]{core: core, namespace: namespace, keyFn: keyFn}
}

func (s Store[S]) key(ctx context.Context) string {
	return s.namespace + ":" + s.keyFn(ctx)
}

func (s Store[S]) Set(ctx context.Context, val S) error {
	return s.core.Set(ctx, s.key(ctx), val)
}

func (s Store[S]) Get(ctx context.Context) (S, bool, error) {
	return s.core.Get(ctx, s.key(ctx))
}

func (s Store[S]) Del(ctx context.Context) error {
	return s.core.Del(ctx, s.key(ctx))
}

var errNilCache = errors.New("slot store requires a cache")

// SlotStore is the durable register holding the request-in-progress. Turn
// writes go through Merge, a read-merge-write that can only add or update
// fields: incoming zero values are dropped before the merge patch is built,
// so a stored non-empty value is never regressed to empty by a late,
// less-informative extraction.
type SlotStore struct {
	store Store[slots.SlotSet]
}

func NewSlotStore(core Cache[slots.SlotSet]) (*SlotStore, error) {
	if core == nil {
		return nil, errNilCache
	}
	return &SlotStore{store: NewStore(core, "quizflow:slots", nil)}, nil
}

// Load returns the stored SlotSet, zero when nothing is stored yet.
func (s *SlotStore) Load(ctx context.Context) (slots.SlotSet, error) {
	stored, ok, err := s.store.Get(ctx)
	if err != nil {
		return slots.SlotSet{}, fmt.Errorf("read slot register: %w", err)
	}
	if !ok {
		return slots.SlotSet{}, nil
	}
	return stored, nil
}

// Merge applies incoming on top of the stored set with an RFC 7396 merge
// patch and returns the result. The omitempty tags on SlotSet keep unset
// incoming fields out of the patch.
func (s *SlotStore) Merge(ctx context.Context, incoming slots.SlotSet) (slots.SlotSet, error) {
	stored, err := s.Load(ctx)
	if err != nil {
		return slots.SlotSet{}, err
	}
	storedJSON, err := sonic.Marshal(stored)
	if err != nil {
		return slots.SlotSet{}, fmt.Errorf("marshal stored slots: %w", err)
	}
	patchJSON, err := sonic.Marshal(incoming)
	if err != nil {
		return slots.SlotSet{}, fmt.Errorf("marshal incoming slots: %w", err)
	}
	mergedJSON, err := jsonpatch.MergePatch(storedJSON, patchJSON)
	if err != nil {
		return slots.SlotSet{}, fmt.Errorf("merge slot register: %w", err)
	}
	var merged slots.SlotSet
	if err := sonic.Unmarshal(mergedJSON, &merged); err != nil {
		return slots.SlotSet{}, fmt.Errorf("decode merged slots: %w", err)
	}
	if err := s.store.Set(ctx, merged); err != nil {
		return slots.SlotSet{}, fmt.Errorf("write slot register: %w", err)
	}
	return merged, nil
}

// Replace overwrites the stored set wholesale. Reserved for slot clearing
// after a submitted request or an out-of-bounds reset; per-turn writes must
// use Merge.
func (s *SlotStore) Replace(ctx context.Context, set slots.SlotSet) error {
	return s.store.Set(ctx, set)
}

// Clear empties the register at session (re)initialization.
func (s *SlotStore) Clear(ctx context.Context) error {
	return s.store.Del(ctx)
}
