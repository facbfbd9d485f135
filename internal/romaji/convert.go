package romaji

import "strings"

// Result is the outcome of draining pending romaji.
type Result struct {
	ComposedKana  string
	PendingRomaji string
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'i', 'u', 'e', 'o':
		return true
	}
	return false
}

// kanaVowelToRomaji maps the five hiragana vowels back to their roman letter
// for the latin-kana collapse pass.
func kanaVowelToRomaji(r rune) (byte, bool) {
	switch r {
	case 'あ':
		return 'a', true
	case 'い':
		return 'i', true
	case 'う':
		return 'u', true
	case 'え':
		return 'e', true
	case 'お':
		return 'o', true
	}
	return 0, false
}

func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }

// Convert drains pending romaji into composed kana.
//
// When force is true, ambiguous sequences are resolved immediately (a trailing
// "n" becomes ん, unmatched letters are appended as-is), so the returned
// PendingRomaji is always empty.
func (t *Trie) Convert(composedKana, pendingRomaji string, force bool) Result {
	composed := composedKana
	pending := pendingRomaji

	changed := true
	for pending != "" && changed {
		changed = false
		res := t.Lookup(pending)

		switch res.Kind {
		case LookupExact:
			composed += res.Kana
			pending = ""
			changed = true

		case LookupExactAndPrefix:
			if force {
				composed += res.Kana
				pending = ""
				changed = true
			}

		case LookupPrefix:
			if !force {
				// Wait for more input; a longer key may still complete.
				break
			}
			composed, pending, changed = t.handleNoMatch(composed, pending, force)

		case LookupNone:
			composed, pending, changed = t.handleNoMatch(composed, pending, force)
		}
	}

	if strings.ContainsFunc(composed, isASCIILower) {
		composed = t.collapseLatinKana(composed)
	}

	return Result{ComposedKana: composed, PendingRomaji: pending}
}

// handleNoMatch resolves pending input that has no full trie match: longest
// proper prefix, then sokuon/hatsuon detection, then force-drain.
//
// Unlike the main loop, ExactAndPrefix prefixes are consumed here regardless
// of force: the full pending has already failed to match, so there is no
// longer sequence to wait for, and refusing would leave pending stuck.
func (t *Trie) handleNoMatch(composed, pending string, force bool) (string, string, bool) {
	for l := len(pending) - 1; l >= 1; l-- {
		sub := pending[:l]
		res := t.Lookup(sub)
		if res.Kind == LookupExact || res.Kind == LookupExactAndPrefix {
			return composed + res.Kana, pending[l:], true
		}
	}

	if len(pending) >= 2 {
		first, second := pending[0], pending[1]
		switch {
		case first == second && first != 'n' && !isVowel(first):
			// Sokuon: doubled consonant emits っ
			return composed + "っ", pending[1:], true
		case first == 'n' && !isVowel(second) && second != 'n' && second != 'y':
			// Hatsuon: n before a non-vowel, non-n, non-y emits ん
			return composed + "ん", pending[1:], true
		case force:
			return composed + pending[:1], pending[1:], true
		}
		return composed, pending, false
	}

	// Single character remaining.
	if pending == "n" {
		if force {
			return composed + "ん", "", true
		}
		// Unforced "n" stays pending; it may begin "na", "ni", ...
		return composed, pending, false
	}
	// Unrecognized single chars are preserved in composed kana.
	return composed + pending, "", true
}

// collapseLatinKana collapses runs of latin consonants followed by a kana
// vowel into a single kana when the reconstructed romaji is a table key,
// e.g. "kあ" → "か", "shあ" → "しゃ".
func (t *Trie) collapseLatinKana(input string) string {
	runes := []rune(input)
	var b strings.Builder
	b.Grow(len(input))
	i := 0
	for i < len(runes) {
		r := runes[i]
		if !isASCIILower(r) {
			b.WriteRune(r)
			i++
			continue
		}
		j := i + 1
		for j < len(runes) && isASCIILower(runes[j]) {
			j++
		}
		if j < len(runes) {
			if vowel, ok := kanaVowelToRomaji(runes[j]); ok {
				candidate := string(runes[i:j]) + string(vowel)
				res := t.Lookup(candidate)
				if res.Kind == LookupExact || res.Kind == LookupExactAndPrefix {
					b.WriteString(res.Kana)
					i = j + 1
					continue
				}
			}
		}
		b.WriteRune(r)
		i++
	}
	return b.String()
}
