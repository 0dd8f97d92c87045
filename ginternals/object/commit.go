package object

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gopherforge/mgit/ginternals"
	"github.com/gopherforge/mgit/internal/readutil"
)

// ErrSignatureInvalid is an error thrown when the signature of a commit
// couldn't be parsed
var ErrSignatureInvalid = errors.New("commit signature is invalid")

// Signature represents the author/committer and time of a commit
type Signature struct {
	Time  time.Time
	Name  string
	Email string
}

// String returns a stringified version of the Signature
func (s Signature) String() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.Time.Unix(), s.Time.Format("-0700"))
}

// IsZero returns whether the signature has Zero value
func (s Signature) IsZero() bool {
	return s.Time.IsZero() && s.Name == "" && s.Email == ""
}

// NewSignature generates a signature at the current date and time
func NewSignature(name, email string) Signature {
	return Signature{
		Name:  name,
		Email: email,
		Time:  time.Now(),
	}
}

// NewSignatureFromBytes returns a signature from an array of byte
//
// A signature has the following format:
// User Name <user.email@domain.tld> timestamp timezone
// Ex:
// Melvin Laplanche <melvin.wont.reply@gmail.com> 1566115917 -0700
func NewSignatureFromBytes(b []byte) (Signature, error) {
	sig := Signature{}

	// First we get he name which will have the following format
	// "User Name " (with the extra space)
	data := readutil.ReadTo(b, '<')
	if len(data) == 0 {
		if len(b) == 0 {
			return sig, fmt.Errorf("couldn't retrieve the name: %w", ErrSignatureInvalid)
		}
		return sig, fmt.Errorf("signature stopped after the name: %w", ErrSignatureInvalid)
	}
	sig.Name = strings.TrimSpace(string(data))
	offset := len(data) + 1 // +1 to skip the "<"
	if offset >= len(b) {
		if offset == len(b) {
			return sig, fmt.Errorf("couldn't retrieve the email: %w", ErrSignatureInvalid)
		}
		return sig, fmt.Errorf("signature stopped after the name: %w", ErrSignatureInvalid)
	}

	// Now we get the email, which is between "<" and ">"
	data = readutil.ReadTo(b[offset:], '>')
	if len(data) == 0 {
		return sig, fmt.Errorf("couldn't retrieve the email: %w", ErrSignatureInvalid)
	}
	sig.Email = string(data)
	// +2 to skip the "> "
	offset += len(data) + 2
	if offset >= len(b) {
		return sig, fmt.Errorf("signature stopped after the email: %w", ErrSignatureInvalid)
	}

	// Next is the timestamp and the timezone
	timestamp := readutil.ReadTo(b[offset:], ' ')
	if len(data) == 0 {
		// this should never be triggers since it's getting caught by the
		// previous check. Still leaving it to prevent introducing a bug
		// in the future.
		return sig, fmt.Errorf("couldn't retrieve the timestamp: %w", ErrSignatureInvalid)
	}
	offset += len(timestamp) + 1 // +1 to skip the " "
	if offset >= len(b) {
		return sig, fmt.Errorf("signature stopped after the timestamp: %w", ErrSignatureInvalid)
	}

	t, err := strconv.ParseInt(string(timestamp), 10, 64)
	if err != nil {
		return sig, fmt.Errorf("invalid timestamp %s: %w", timestamp, err)
	}
	sig.Time = time.Unix(t, 0)

	// To get and set the timezone we can just parse the time with an empty
	// date and copy it over to the signature
	timezone := b[offset:]
	tz, err := time.Parse("-0700", string(timezone))
	if err != nil {
		return sig, fmt.Errorf("invalid timezone format %s: %w", timezone, err)
	}
	sig.Time = sig.Time.In(tz.Location())
	return sig, nil
}

// CommitOptions represents all the optional data available to create a commit
type CommitOptions struct {
	Message string
	GPGSig  string
	// Committer represent the person creating the commit.
	// If not provided, the author will be used as committer
	Committer Signature
	ParentsID []ginternals.Oid
	// Extra holds header lines this package doesn't otherwise interpret
	// (ex. "mergetag", "encoding"), written after the gpgsig line and
	// before the blank line separating headers from the message
	Extra map[string]string
}

// Commit represents a commit object
type Commit struct {
	rawObject *Object

	author    Signature
	committer Signature

	gpgSig  string
	message string

	parentIDs []ginternals.Oid
	treeID    ginternals.Oid

	// extra preserves header keys this package doesn't interpret
	// (ex. "mergetag"), in the order they were parsed, so a commit
	// read from the object store and re-serialized round-trips exactly
	extra []kvlmField
}

// NewCommit creates a new Commit object
// Any provided Oids won't be check
func NewCommit(treeID ginternals.Oid, author Signature, opts *CommitOptions) *Commit {
	c := &Commit{
		treeID:    treeID,
		author:    author,
		committer: opts.Committer,
		message:   opts.Message,
		parentIDs: opts.ParentsID,
		gpgSig:    opts.GPGSig,
	}

	if c.committer.IsZero() {
		c.committer = author
	}
	for k, v := range opts.Extra {
		c.extra = append(c.extra, kvlmField{Key: k, Values: []string{v}})
	}
	c.rawObject = c.ToObject()

	return c
}

// Extra returns the header keys that this package doesn't interpret
// (ex. "mergetag", "encoding"), preserved from the original record
func (c *Commit) Extra() map[string]string {
	out := make(map[string]string, len(c.extra))
	for _, f := range c.extra {
		if len(f.Values) > 0 {
			out[f.Key] = f.Values[0]
		}
	}
	return out
}

// NewCommitFromObject creates a commit from a raw object
//
// A commit has following format:
//
// tree {sha}
// parent {sha}
// author {author_name} <{author_email}> {author_date_seconds} {author_date_timezone}
// committer {committer_name} <{committer_email}> {committer_date_seconds} {committer_date_timezone}
// gpgsig -----BEGIN PGP SIGNATURE-----
// {gpg key over multiple lines}
//  -----END PGP SIGNATURE-----
// {a blank line}
// {commit message}
//
// Note:
// - A commit can have 0, 1, or many parents lines
//   The very first commit of a repo has no parents
//   A regular commit as 1 parent
//   A merge commit has 2 or more parents
// - The gpgsig is optional
func NewCommitFromObject(o *Object) (*Commit, error) {
	if o.typ != TypeCommit {
		return nil, fmt.Errorf("type %s is not a commit: %w", o.typ, ErrObjectInvalid)
	}

	rec, err := parseKVLM(o.Bytes())
	if err != nil {
		return nil, fmt.Errorf("could not parse commit: %w: %s", ErrCommitInvalid, err)
	}

	ci := &Commit{
		rawObject: o,
		message:   rec.message,
	}

	known := map[string]bool{"tree": true, "parent": true, "author": true, "committer": true, "gpgsig": true}

	if v, ok := rec.Get("tree"); ok {
		ci.treeID, err = ginternals.NewOidFromStr(v)
		if err != nil {
			return nil, fmt.Errorf("could not parse tree id %q: %w", v, err)
		}
	}
	for _, v := range rec.All("parent") {
		oid, pErr := ginternals.NewOidFromStr(v)
		if pErr != nil {
			return nil, fmt.Errorf("could not parse parent id %q: %w", v, pErr)
		}
		ci.parentIDs = append(ci.parentIDs, oid)
	}
	if v, ok := rec.Get("author"); ok {
		ci.author, err = NewSignatureFromBytes([]byte(v))
		if err != nil {
			return nil, fmt.Errorf("could not parse author signature [%s]: %w", v, err)
		}
	}
	if v, ok := rec.Get("committer"); ok {
		ci.committer, err = NewSignatureFromBytes([]byte(v))
		if err != nil {
			return nil, fmt.Errorf("could not parse committer signature [%s]: %w", v, err)
		}
	}
	if v, ok := rec.Get("gpgsig"); ok {
		ci.gpgSig = v
	}
	for _, f := range rec.fields {
		if !known[f.Key] {
			ci.extra = append(ci.extra, f)
		}
	}

	// validate the commit
	if ci.author.IsZero() {
		return nil, fmt.Errorf("commit has no author: %w", ErrCommitInvalid)
	}
	if ci.treeID.IsZero() {
		return nil, fmt.Errorf("commit has no tree: %w", ErrCommitInvalid)
	}

	return ci, nil
}

// ID returns the SHA of the commit object
func (c *Commit) ID() ginternals.Oid {
	return c.rawObject.ID()
}

// Author returns the Signature of the person that made the changes
func (c *Commit) Author() Signature {
	return c.author
}

// Committer returns the Signature of the person that created the commit
func (c *Commit) Committer() Signature {
	return c.committer
}

// Message returns the commit's message
func (c *Commit) Message() string {
	return c.message
}

// ParentIDs returns the list of SHA of the parent commits (if any)
// - The first commit of an orphan branch has 0 parents
// - A regular commit or the result of a fast-forward merge has 1 parent
// - A true merge (no fast-forward) as 2 or more parents
func (c *Commit) ParentIDs() []ginternals.Oid {
	out := make([]ginternals.Oid, len(c.parentIDs))
	copy(out, c.parentIDs)
	return out
}

// TreeID returns the SHA of the commit's tree
func (c *Commit) TreeID() ginternals.Oid {
	return c.treeID
}

// GPGSig returns the GPG signature of the commit, if any
func (c *Commit) GPGSig() string {
	return c.gpgSig
}

// ToObject returns the underlying Object
func (c *Commit) ToObject() *Object {
	if c.rawObject != nil {
		return c.rawObject
	}

	rec := newKVLM()
	rec.Set("tree", c.treeID.String())
	for _, p := range c.parentIDs {
		rec.Add("parent", p.String())
	}
	rec.Set("author", c.Author().String())
	rec.Set("committer", c.Committer().String())
	if c.gpgSig != "" {
		rec.Set("gpgsig", c.gpgSig)
	}
	for _, f := range c.extra {
		for _, v := range f.Values {
			rec.Add(f.Key, v)
		}
	}
	rec.message = c.message

	buf := bytes.NewBuffer(serializeKVLM(rec))
	return New(TypeCommit, buf.Bytes())
}
