// Package config loads and validates engine settings.
//
// Settings come from a single TOML document. The embedded defaults are used
// unless a user file exists, in which case the user file replaces them
// entirely (no merge). Documents are structurally validated against an
// embedded JSON schema before the typed decode, so malformed files fail with
// a field-level message instead of a zero-valued struct.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed default_settings.toml
var defaultTOML string

//go:embed settings.json
var schemaJSON string

// DefaultTOML returns the embedded default settings document.
func DefaultTOML() string { return defaultTOML }

var ErrInvalidValue = errors.New("config: invalid value")

// Settings holds every tunable parameter of the conversion engine.
type Settings struct {
	Cost       CostSettings        `toml:"cost"`
	Reranker   RerankerSettings    `toml:"reranker"`
	History    HistorySettings     `toml:"history"`
	Candidates CandidateSettings   `toml:"candidates"`
	Keymap     map[string][]string `toml:"keymap"`

	keymap []keymapEntry
}

// CostSettings feed the lattice and cost function.
type CostSettings struct {
	SegmentPenalty   int64 `toml:"segment_penalty"`
	MixedScriptBonus int64 `toml:"mixed_script_bonus"`
	KatakanaPenalty  int64 `toml:"katakana_penalty"`
	PureKanjiBonus   int64 `toml:"pure_kanji_bonus"`
	LatinPenalty     int64 `toml:"latin_penalty"`
	UnknownWordCost  int16 `toml:"unknown_word_cost"`
}

// RerankerSettings feed the post-Viterbi reranker.
type RerankerSettings struct {
	LengthVarianceWeight       int64 `toml:"length_variance_weight"`
	StructureCostFilter        int64 `toml:"structure_cost_filter"`
	NonIndependentKanjiPenalty int64 `toml:"non_independent_kanji_penalty"`
	TeFormKanjiPenalty         int64 `toml:"te_form_kanji_penalty"`
	SingleCharKanjiPenalty     int64 `toml:"single_char_kanji_penalty"`
	PronounCostBonus           int64 `toml:"pronoun_cost_bonus"`
}

// HistorySettings control the learning store.
type HistorySettings struct {
	BoostPerUse   int64   `toml:"boost_per_use"`
	MaxBoost      int64   `toml:"max_boost"`
	HalfLifeHours float64 `toml:"half_life_hours"`
	MaxUnigrams   int     `toml:"max_unigrams"`
	MaxBigrams    int     `toml:"max_bigrams"`
}

// CandidateSettings size the candidate generator.
type CandidateSettings struct {
	NBest      int `toml:"nbest"`
	MaxResults int `toml:"max_results"`
}

type keymapEntry struct {
	code    uint16
	normal  string
	shifted string
}

// KeymapGet resolves a programmer-mode key remap for a key code.
// Returns ("", false) when the code is not mapped.
func (s *Settings) KeymapGet(keyCode uint16, shift bool) (string, bool) {
	for _, e := range s.keymap {
		if e.code == keyCode {
			if shift {
				return e.shifted, true
			}
			return e.normal, true
		}
	}
	return "", false
}

// Parse decodes, schema-validates, and range-checks a settings document.
func Parse(tomlStr string) (*Settings, error) {
	if err := validateSchema(tomlStr); err != nil {
		return nil, err
	}

	var s Settings
	if _, err := toml.Decode(tomlStr, &s); err != nil {
		return nil, fmt.Errorf("config: decode settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	if err := s.parseKeymap(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Default parses the embedded default document. The defaults are part of the
// build, so a failure here is a programming error.
func Default() *Settings {
	s, err := Parse(defaultTOML)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return s
}

// LoadFile reads a settings file. A missing file yields the defaults; an
// unreadable or invalid file is reported so the caller can log and fall back.
func LoadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(string(data))
}

// validateSchema checks the raw TOML document against the embedded JSON
// schema. The decoded TOML is round-tripped through encoding/json so the
// validator sees the value types it expects.
func validateSchema(tomlStr string) error {
	var doc map[string]any
	if _, err := toml.Decode(tomlStr, &doc); err != nil {
		return fmt.Errorf("config: parse settings: %w", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config: normalize settings: %w", err)
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("config: normalize settings: %w", err)
	}

	sch, err := jsonschema.CompileString("settings.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("config: compile settings schema: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: settings schema: %w", err)
	}
	return nil
}

func (s *Settings) validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"cost.segment_penalty", s.Cost.SegmentPenalty >= 0},
		{"cost.mixed_script_bonus", s.Cost.MixedScriptBonus >= 0},
		{"cost.katakana_penalty", s.Cost.KatakanaPenalty >= 0},
		{"cost.pure_kanji_bonus", s.Cost.PureKanjiBonus >= 0},
		{"cost.latin_penalty", s.Cost.LatinPenalty >= 0},
		{"cost.unknown_word_cost", s.Cost.UnknownWordCost >= 0},
		{"reranker.length_variance_weight", s.Reranker.LengthVarianceWeight >= 0},
		{"reranker.structure_cost_filter", s.Reranker.StructureCostFilter >= 0},
		{"history.boost_per_use", s.History.BoostPerUse >= 0},
		{"history.max_boost", s.History.MaxBoost >= 0},
		{"history.half_life_hours", s.History.HalfLifeHours > 0},
		{"history.max_unigrams", s.History.MaxUnigrams > 0},
		{"history.max_bigrams", s.History.MaxBigrams > 0},
		{"candidates.nbest", s.Candidates.NBest > 0},
		{"candidates.max_results", s.Candidates.MaxResults > 0},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: %s", ErrInvalidValue, c.name)
		}
	}
	return nil
}

func (s *Settings) parseKeymap() error {
	s.keymap = s.keymap[:0]
	for codeStr, values := range s.Keymap {
		code, err := strconv.ParseUint(codeStr, 10, 16)
		if err != nil {
			return fmt.Errorf("%w: keymap.%s: key_code must be a u16 integer", ErrInvalidValue, codeStr)
		}
		if len(values) != 2 {
			return fmt.Errorf("%w: keymap.%s: value must be [\"normal\", \"shifted\"]", ErrInvalidValue, codeStr)
		}
		s.keymap = append(s.keymap, keymapEntry{
			code:    uint16(code),
			normal:  values[0],
			shifted: values[1],
		})
	}
	return nil
}
