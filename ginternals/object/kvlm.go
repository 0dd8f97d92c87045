package object

import (
	"bytes"
	"strings"

	"github.com/gopherforge/mgit/internal/readutil"
	"golang.org/x/xerrors"
)

// kvlmField is a single key of a key-value-list-message record. Values
// holds every line seen for that key, in the order they appeared, with
// continuation-line escaping (a leading space on the line following a
// '\n' inside a value) already removed.
type kvlmField struct {
	Key    string
	Values []string
}

// kvlm is an ordered key-value-list-message record, the format used by
// commit and tag objects: an ordered list of "key value" header lines
// (a key may repeat, as "parent" does on a merge commit) followed by a
// blank line and a free-form message.
//
// Unlike a plain map, kvlm keeps fields in the order they were parsed
// so that re-serializing a record that contains a key this package
// doesn't otherwise interpret (a future git header, or one added by
// another implementation) reproduces it unchanged.
type kvlm struct {
	fields  []kvlmField
	message string
}

func newKVLM() *kvlm {
	return &kvlm{}
}

// Get returns the first value associated with key, and whether the key
// was present
func (k *kvlm) Get(key string) (string, bool) {
	for _, f := range k.fields {
		if f.Key == key {
			if len(f.Values) == 0 {
				return "", true
			}
			return f.Values[0], true
		}
	}
	return "", false
}

// All returns every value associated with key, in parse order
func (k *kvlm) All(key string) []string {
	for _, f := range k.fields {
		if f.Key == key {
			return f.Values
		}
	}
	return nil
}

// Set replaces every value of key with a single value. If key isn't
// present yet, it's appended at the end, right before the message
func (k *kvlm) Set(key, value string) {
	for i, f := range k.fields {
		if f.Key == key {
			k.fields[i].Values = []string{value}
			return
		}
	}
	k.fields = append(k.fields, kvlmField{Key: key, Values: []string{value}})
}

// Add appends an additional value for key, without touching existing
// values. Used for "parent", which may repeat on a merge commit.
func (k *kvlm) Add(key, value string) {
	for i, f := range k.fields {
		if f.Key == key {
			k.fields[i].Values = append(k.fields[i].Values, value)
			return
		}
	}
	k.fields = append(k.fields, kvlmField{Key: key, Values: []string{value}})
}

// parseKVLM parses a commit or tag's raw body into a kvlm record.
// It walks the buffer with a cursor instead of recursing line by line,
// so the stack depth doesn't grow with the number of header lines.
func parseKVLM(data []byte) (*kvlm, error) {
	k := newKVLM()
	c := readutil.NewCursor(data)

	for {
		if c.Done() {
			return nil, xerrors.New("unexpected end of record: missing blank line before message")
		}

		// a line starting with a space is a continuation of the
		// previous value and is handled inline below, so here we're
		// always looking at the start of a new key (or the blank line)
		nl := c.IndexByte('\n')
		if nl == 0 {
			// blank line: everything left is the message
			c.Advance(1)
			k.message = string(c.Rest())
			return k, nil
		}
		if nl < 0 {
			return nil, xerrors.New("unexpected end of record: missing blank line before message")
		}

		sp := bytes.IndexByte(c.Peek(nl), ' ')
		if sp < 0 {
			return nil, xerrors.Errorf("malformed header line %q", string(c.Peek(nl)))
		}

		key := string(c.Peek(sp))
		c.Advance(sp + 1)

		var value bytes.Buffer
		for {
			lineEnd := c.IndexByte('\n')
			if lineEnd < 0 {
				return nil, xerrors.New("unexpected end of record: missing blank line before message")
			}
			value.Write(c.Peek(lineEnd))
			c.Advance(lineEnd + 1)

			// a line starting with a single space continues the value of
			// the current key; consume the leading space and keep going
			if !c.Done() && len(c.Peek(1)) == 1 && c.Peek(1)[0] == ' ' {
				value.WriteByte('\n')
				c.Advance(1)
				continue
			}
			break
		}

		k.Add(key, value.String())
	}
}

// serializeKVLM renders a kvlm record back to its on-disk form
func serializeKVLM(k *kvlm) []byte {
	var buf bytes.Buffer
	for _, f := range k.fields {
		for _, v := range f.Values {
			buf.WriteString(f.Key)
			buf.WriteByte(' ')
			buf.WriteString(strings.ReplaceAll(v, "\n", "\n "))
			buf.WriteByte('\n')
		}
	}
	buf.WriteByte('\n')
	buf.WriteString(k.message)
	return buf.Bytes()
}
