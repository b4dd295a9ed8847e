// Package moderation implements the group-chat moderation core: the
// restricted-word classifier, the sanction ledger with its active index,
// and the background sweeper that lifts expired sanctions.
package moderation

import (
	"sort"
	"strings"
	"sync/atomic"
	"unicode"
)

// Wordlist holds the restricted word set behind an atomically swappable
// snapshot. Every mutation builds a fresh set and publishes it in one step,
// so concurrent classifications never observe a partially updated list.
type Wordlist struct {
	snapshot atomic.Pointer[map[string]struct{}]
}

// NewWordlist builds a list from the initial words, lowercased.
func NewWordlist(words []string) *Wordlist {
	wl := &Wordlist{}
	wl.Replace(words)
	return wl
}

// Replace swaps in a whole new word set.
func (wl *Wordlist) Replace(words []string) {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	wl.snapshot.Store(&set)
}

// Add publishes a snapshot containing the extra word.
func (wl *Wordlist) Add(word string) {
	wl.mutate(func(set map[string]struct{}) {
		set[strings.ToLower(strings.TrimSpace(word))] = struct{}{}
	})
}

// Remove publishes a snapshot without the word.
func (wl *Wordlist) Remove(word string) {
	wl.mutate(func(set map[string]struct{}) {
		delete(set, strings.ToLower(strings.TrimSpace(word)))
	})
}

// Rename atomically replaces one word with another.
func (wl *Wordlist) Rename(from, to string) {
	wl.mutate(func(set map[string]struct{}) {
		delete(set, strings.ToLower(strings.TrimSpace(from)))
		set[strings.ToLower(strings.TrimSpace(to))] = struct{}{}
	})
}

func (wl *Wordlist) mutate(apply func(map[string]struct{})) {
	cur := wl.current()
	next := make(map[string]struct{}, len(cur)+1)
	for w := range cur {
		next[w] = struct{}{}
	}
	apply(next)
	delete(next, "")
	wl.snapshot.Store(&next)
}

func (wl *Wordlist) current() map[string]struct{} {
	if p := wl.snapshot.Load(); p != nil {
		return *p
	}
	return nil
}

// Contains reports whether the word is restricted.
func (wl *Wordlist) Contains(word string) bool {
	_, ok := wl.current()[strings.ToLower(word)]
	return ok
}

// Words returns a sorted copy of the current set.
func (wl *Wordlist) Words() []string {
	cur := wl.current()
	out := make([]string, 0, len(cur))
	for w := range cur {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Classifier decides whether a text message violates the restricted-word
// policy. It reads the live Wordlist on every call.
type Classifier struct {
	list *Wordlist
}

// NewClassifier binds the classifier to a word list.
func NewClassifier(list *Wordlist) *Classifier {
	return &Classifier{list: list}
}

// Classify reports a violation when any token of the normalized text is in
// the restricted set. Empty text is always clean.
func (c *Classifier) Classify(text string) bool {
	if text == "" {
		return false
	}
	set := c.list.current()
	if len(set) == 0 {
		return false
	}
	for _, token := range strings.Fields(cleanText(strings.ToLower(text))) {
		if _, ok := set[token]; ok {
			return true
		}
	}
	return false
}

// cleanText drops punctuation so "word!" and "word" classify the same.
func cleanText(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
}
