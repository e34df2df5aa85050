package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/guiperry/llmcore/types"
)

// Registration describes one model vocabulary: the tiktoken encoding it
// uses and the context-window size of a single completion call.
type Registration struct {
	Encoding    string
	ContextSize int
}

type entry struct {
	encoding    string
	contextSize int
	codec       Codec // lazily built for tiktoken-backed entries
}

// The registry is process-wide and append-only: entries are added at
// startup or on first use and never replaced, so concurrent lookups are
// safe under the read lock.
var (
	mu      sync.RWMutex
	entries = make(map[string]*entry)
)

// Prefix fallbacks for model families that all share the cl100k_base
// vocabulary. Mirrors the providers the backends speak to.
var familyEncodings = map[string]Registration{
	"gpt-4":    {Encoding: "cl100k_base", ContextSize: 8192},
	"gpt-3.5":  {Encoding: "cl100k_base", ContextSize: 4096},
	"claude":   {Encoding: "cl100k_base", ContextSize: 200000},
	"gemini":   {Encoding: "cl100k_base", ContextSize: 32768},
	"deepseek": {Encoding: "cl100k_base", ContextSize: 65536},
	"mistral":  {Encoding: "cl100k_base", ContextSize: 32768},
	"llama":    {Encoding: "cl100k_base", ContextSize: 8192},
	"cerebras": {Encoding: "cl100k_base", ContextSize: 8192},
}

// Register adds a tiktoken-backed vocabulary under modelID. Registering
// an already-known identifier fails: the registry is append-only.
func Register(modelID string, reg Registration) error {
	if modelID == "" {
		return types.NewConfigurationError("tokenizer.Register", "empty model identifier")
	}
	if reg.Encoding == "" {
		return types.NewConfigurationError("tokenizer.Register", "empty encoding for model %q", modelID)
	}
	if reg.ContextSize <= 0 {
		return types.NewConfigurationError("tokenizer.Register", "non-positive context size %d for model %q", reg.ContextSize, modelID)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, ok := entries[modelID]; ok {
		return types.NewConfigurationError("tokenizer.Register", "model %q already registered", modelID)
	}
	entries[modelID] = &entry{encoding: reg.Encoding, contextSize: reg.ContextSize}
	return nil
}

// RegisterCodec adds a caller-supplied Codec under modelID. Backend
// families with their own vocabularies plug in through this.
func RegisterCodec(modelID string, codec Codec, contextSize int) error {
	if modelID == "" || codec == nil {
		return types.NewConfigurationError("tokenizer.RegisterCodec", "model identifier and codec are required")
	}
	if contextSize <= 0 {
		return types.NewConfigurationError("tokenizer.RegisterCodec", "non-positive context size %d for model %q", contextSize, modelID)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, ok := entries[modelID]; ok {
		return types.NewConfigurationError("tokenizer.RegisterCodec", "model %q already registered", modelID)
	}
	entries[modelID] = &entry{contextSize: contextSize, codec: codec}
	return nil
}

// Lookup returns the Codec registered for modelID. Unknown identifiers
// fall back to the tiktoken model table and then the family-prefix table
// before failing with a ConfigurationError.
func Lookup(modelID string) (Codec, error) {
	e, err := resolve(modelID)
	if err != nil {
		return nil, err
	}
	return codecFor(e, modelID)
}

// ContextSize returns the context-window size registered for modelID.
// Backend adapters consult this before dispatching a request.
func ContextSize(modelID string) (int, error) {
	e, err := resolve(modelID)
	if err != nil {
		return 0, err
	}
	return e.contextSize, nil
}

func resolve(modelID string) (*entry, error) {
	mu.RLock()
	e, ok := entries[modelID]
	mu.RUnlock()
	if ok {
		return e, nil
	}

	reg, ok := inferRegistration(modelID)
	if !ok {
		return nil, types.NewConfigurationError("tokenizer.Lookup", "model %q not registered", modelID)
	}

	mu.Lock()
	defer mu.Unlock()
	// Another caller may have resolved the same identifier meanwhile.
	if e, ok := entries[modelID]; ok {
		return e, nil
	}
	e = &entry{encoding: reg.Encoding, contextSize: reg.ContextSize}
	entries[modelID] = e
	return e, nil
}

// inferRegistration resolves well-known identifiers without explicit
// registration: exact tiktoken model names first, then family prefixes.
func inferRegistration(modelID string) (Registration, bool) {
	lower := strings.ToLower(modelID)

	if encoding, ok := tiktoken.MODEL_TO_ENCODING[lower]; ok {
		reg := Registration{Encoding: encoding, ContextSize: 8192}
		for prefix, family := range familyEncodings {
			if strings.HasPrefix(lower, prefix) {
				reg.ContextSize = family.ContextSize
				break
			}
		}
		return reg, true
	}

	for prefix, family := range familyEncodings {
		if strings.Contains(lower, prefix) {
			return family, true
		}
	}
	return Registration{}, false
}

func codecFor(e *entry, modelID string) (Codec, error) {
	mu.RLock()
	codec := e.codec
	mu.RUnlock()
	if codec != nil {
		return codec, nil
	}

	built, err := newTiktokenCodec(e.encoding)
	if err != nil {
		return nil, types.NewConfigurationError("tokenizer.Lookup", "encoding %q unavailable for model %q: %v", e.encoding, modelID, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if e.codec == nil {
		e.codec = built
	}
	return e.codec, nil
}
