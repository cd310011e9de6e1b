package model

import "strings"

// Revision is a local Mercurial changeset as reported by hg log.
type Revision struct {
	Hash        string `json:"node"` // full 40-char changeset hash
	Description string `json:"desc"` // full commit message, first line is the subject
}

// ShortHash returns the first 12 characters of the hash, the usual display form.
func (r Revision) ShortHash() string {
	if len(r.Hash) < 12 {
		return r.Hash
	}
	return r.Hash[:12]
}

// Subject returns the first line of the description.
func (r Revision) Subject() string {
	subject, _, _ := strings.Cut(r.Description, "\n")
	return subject
}

// Bug returns the bug number referenced by the subject, if any.
// The convention is a subject starting with "Bug <number>" (case-insensitive).
// Trailing punctuation on the number is tolerated ("Bug 42: fix thing").
func (r Revision) Bug() (string, bool) {
	words := strings.Fields(r.Subject())
	if len(words) < 2 || !strings.EqualFold(words[0], "bug") {
		return "", false
	}
	id := strings.TrimRight(words[1], ":,;.")
	if id == "" {
		return "", false
	}
	return id, true
}

// Candidate pairs a draft revision with the hash it landed under in
// mozilla-central. Produced by the resolver, consumed by the confirmation loop.
type Candidate struct {
	Revision  Revision
	Successor string
}
