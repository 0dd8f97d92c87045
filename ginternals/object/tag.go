package object

import (
	"bytes"
	"fmt"

	"github.com/gopherforge/mgit/ginternals"
)

// TagParams represents all the data needed to create a Tag
// Params starting by Opt are optionals
type TagParams struct {
	Target    *Object
	Name      string
	Tagger    Signature
	Message   string
	OptGPGSig string
	// Extra holds header lines this package doesn't otherwise interpret,
	// written after the tagger line and before the blank line separating
	// headers from the message
	Extra map[string]string
}

// Tag represents a Tag object
type Tag struct {
	rawObject *Object

	tagger  Signature
	tag     string
	message string

	gpgSig string

	target ginternals.Oid
	typ    Type

	// extra preserves header keys this package doesn't interpret,
	// in the order they were parsed
	extra []kvlmField
}

// NewTag creates a new Tag object
func NewTag(p *TagParams) *Tag {
	t := &Tag{
		target:  p.Target.ID(),
		typ:     p.Target.Type(),
		tag:     p.Name,
		tagger:  p.Tagger,
		message: p.Message,
		gpgSig:  p.OptGPGSig,
	}
	for k, v := range p.Extra {
		t.extra = append(t.extra, kvlmField{Key: k, Values: []string{v}})
	}
	t.rawObject = t.ToObject()
	return t
}

// NewTagFromObject creates a new Tag from a raw git object
//
// A tag has following format:
//
// object {sha}
// type {target_object_type}
// tag {tag_name}
// tagger {author_name} <{author_email}> {author_date_seconds} {author_date_timezone}
// gpgsig -----BEGIN PGP SIGNATURE-----
// {gpg key over multiple lines}
//  -----END PGP SIGNATURE-----
// {a blank line}
// {tag message}
//
// Note:
// - The gpgsig is optional
func NewTagFromObject(o *Object) (*Tag, error) {
	if o.typ != TypeTag {
		return nil, fmt.Errorf("type %s is not a tag: %w", o.typ, ErrObjectInvalid)
	}

	rec, err := parseKVLM(o.Bytes())
	if err != nil {
		return nil, fmt.Errorf("could not parse tag: %w: %s", ErrTagInvalid, err)
	}

	tag := &Tag{
		rawObject: o,
		message:   rec.message,
	}

	known := map[string]bool{"object": true, "type": true, "tag": true, "tagger": true, "gpgsig": true}

	if v, ok := rec.Get("object"); ok {
		tag.target, err = ginternals.NewOidFromStr(v)
		if err != nil {
			return nil, fmt.Errorf("could not parse target id %q: %w", v, err)
		}
	}
	if v, ok := rec.Get("type"); ok {
		tag.typ, err = NewTypeFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid object type %s: %w", v, err)
		}
	}
	if v, ok := rec.Get("tag"); ok {
		tag.tag = v
	}
	if v, ok := rec.Get("tagger"); ok {
		tag.tagger, err = NewSignatureFromBytes([]byte(v))
		if err != nil {
			return nil, fmt.Errorf("could not parse tagger [%s]: %w", v, err)
		}
	}
	if v, ok := rec.Get("gpgsig"); ok {
		tag.gpgSig = v
	}
	for _, f := range rec.fields {
		if !known[f.Key] {
			tag.extra = append(tag.extra, f)
		}
	}

	// validate the tag
	if tag.tagger.IsZero() {
		return nil, fmt.Errorf("tag has no tagger: %w", ErrTagInvalid)
	}
	if tag.target.IsZero() {
		return nil, fmt.Errorf("tag has no target: %w", ErrTagInvalid)
	}
	if !tag.typ.IsValid() {
		return nil, fmt.Errorf("tag has no type: %w", ErrTagInvalid)
	}

	return tag, nil
}

// ID returns the SHA of the tag object
func (t *Tag) ID() ginternals.Oid {
	return t.rawObject.ID()
}

// Target returns the ID of the object targeted by the tag
func (t *Tag) Target() ginternals.Oid {
	return t.target
}

// Type returns the type of the targeted object
func (t *Tag) Type() Type {
	return t.typ
}

// Name returns the tag's name
func (t *Tag) Name() string {
	return t.tag
}

// Tagger returns the Signature of the person that created the tag
func (t *Tag) Tagger() Signature {
	return t.tagger
}

// Message returns the tag's message
func (t *Tag) Message() string {
	return t.message
}

// GPGSig returns the GPG signature of the tag, if any
func (t *Tag) GPGSig() string {
	return t.gpgSig
}

// Extra returns the header keys that this package doesn't interpret,
// preserved from the original record
func (t *Tag) Extra() map[string]string {
	out := make(map[string]string, len(t.extra))
	for _, f := range t.extra {
		if len(f.Values) > 0 {
			out[f.Key] = f.Values[0]
		}
	}
	return out
}

// ToObject returns the underlying Object
func (t *Tag) ToObject() *Object {
	if t.rawObject != nil {
		return t.rawObject
	}

	rec := newKVLM()
	rec.Set("object", t.target.String())
	rec.Set("type", t.typ.String())
	rec.Set("tag", t.tag)
	rec.Set("tagger", t.Tagger().String())
	if t.gpgSig != "" {
		rec.Set("gpgsig", t.gpgSig)
	}
	for _, f := range t.extra {
		for _, v := range f.Values {
			rec.Add(f.Key, v)
		}
	}
	rec.message = t.message

	buf := bytes.NewBuffer(serializeKVLM(rec))
	return New(TypeTag, buf.Bytes())
}
