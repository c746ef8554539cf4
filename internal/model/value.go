package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the typed payload of a Value.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindSet    Kind = "set"
	KindDigest Kind = "digest"
)

// Value is one typed evidence field. Exactly one payload field is meaningful,
// selected by Kind. Digest holds "sha256:<hex>" for data too sensitive or
// large to store verbatim.
type Value struct {
	Kind   Kind     `json:"kind"`
	Str    string   `json:"str,omitempty"`
	Num    float64  `json:"num,omitempty"`
	Bool   bool     `json:"bool,omitempty"`
	Set    []string `json:"set,omitempty"`
	Digest string   `json:"digest,omitempty"`
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// SetValue wraps an order-independent set of strings. The slice is copied and
// sorted so two sets with the same members compare and marshal identically.
func SetValue(members []string) Value {
	s := make([]string, len(members))
	copy(s, members)
	sort.Strings(s)
	return Value{Kind: KindSet, Set: s}
}

// DigestValue wraps a precomputed "sha256:<hex>" digest.
func DigestValue(digest string) Value { return Value{Kind: KindDigest, Digest: digest} }

// DigestOf hashes raw bytes into a digest Value.
func DigestOf(raw []byte) Value {
	h := sha256.Sum256(raw)
	return Value{Kind: KindDigest, Digest: "sha256:" + hex.EncodeToString(h[:])}
}

// Equal reports whether two values are identical in kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindNumber:
		return v.Num == o.Num
	case KindBool:
		return v.Bool == o.Bool
	case KindSet:
		if len(v.Set) != len(o.Set) {
			return false
		}
		for i := range v.Set {
			if v.Set[i] != o.Set[i] {
				return false
			}
		}
		return true
	case KindDigest:
		return v.Digest == o.Digest
	}
	return false
}

// String renders the value for report output.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindSet:
		return "{" + strings.Join(v.Set, ", ") + "}"
	case KindDigest:
		return v.Digest
	}
	return fmt.Sprintf("<unknown kind %q>", string(v.Kind))
}
