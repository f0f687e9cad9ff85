package geomid

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// HashValue is a SHA-1 digest split into five 32 bit words. A zero word is
// unknown and matches anything in Equivalent.
type HashValue [5]uint32

func NewHashValue(h0, h1, h2, h3, h4 uint32) HashValue {
	return HashValue{h0, h1, h2, h3, h4}
}

// HashFromDigest packs a SHA-1 digest big endian, word by word.
func HashFromDigest(sum [sha1.Size]byte) HashValue {
	var h HashValue
	for i := range h {
		h[i] = binary.BigEndian.Uint32(sum[4*i:])
	}
	return h
}

func (h HashValue) Valid() bool {
	return h != HashValue{}
}

// Equivalent compares the words known on both sides. It is false when no
// word could be compared.
func (h HashValue) Equivalent(o HashValue) bool {
	valid := false
	for i := range h {
		if h[i] == 0 || o[i] == 0 {
			continue
		}
		if h[i] != o[i] {
			return false
		}
		valid = true
	}
	return valid
}

func (h HashValue) Less(o HashValue) bool {
	for i := range h {
		if h[i] != o[i] {
			return h[i] < o[i]
		}
	}
	return false
}

func (h HashValue) AsString() string {
	words := make([]string, len(h))
	for i, w := range h {
		if w == 0 {
			words[i] = "xxxxxxxx"
			continue
		}
		words[i] = fmt.Sprintf("%08x", w)
	}
	return strings.Join(words, "-")
}

// Hex prints every word, zeros included.
func (h HashValue) Hex() string {
	return fmt.Sprintf("%08x-%08x-%08x-%08x-%08x", h[0], h[1], h[2], h[3], h[4])
}

func (h HashValue) String() string {
	return "<" + h.AsString() + ">"
}

// ParseHashValue reads "h0-h1-h2-h3-h4" from the start of s. Words written
// as xxxxxxxx are unknown. Anything after the fifth word is ignored.
func ParseHashValue(s string) (HashValue, bool) {
	var h HashValue
	rest := s
	for i := 0; i < 4; i++ {
		if strings.IndexByte(rest, '-') != 8 {
			return HashValue{}, false
		}
		w, ok := parseWord(rest[:8])
		if !ok {
			return HashValue{}, false
		}
		h[i] = w
		rest = rest[9:]
	}
	if len(rest) < 8 {
		return HashValue{}, false
	}
	w, ok := parseWord(rest[:8])
	if !ok {
		return HashValue{}, false
	}
	h[4] = w
	return h, true
}

func parseWord(s string) (uint32, bool) {
	if s == "xxxxxxxx" {
		return 0, true
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// AlignmentId identifies a set of alignment corrections.
type AlignmentId struct {
	HashValue
	Doc string
}

func NewAlignmentId(h HashValue, doc string) AlignmentId {
	return AlignmentId{HashValue: h, Doc: doc}
}

// EmptyAlignmentId is the id of a geometry without corrections, the SHA-1
// of no input.
func EmptyAlignmentId() AlignmentId {
	return AlignmentId{HashValue: HashFromDigest(sha1.Sum(nil)), Doc: "no alignment"}
}
