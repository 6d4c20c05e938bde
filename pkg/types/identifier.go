package types

import (
	"strings"
	"unicode"
)

// Identifier layout: CCSSNNNN (color, serial, content code).
const (
	IdentifierLength  = 8
	PlaceholderMarker = "XX"
)

// ParsedID holds the semantic fields of a tag identifier.
type ParsedID struct {
	Full    string
	Color   string
	Serial  string
	Content string
}

// IsPlaceholder reports whether the serial field is the placeholder marker.
func (p ParsedID) IsPlaceholder() bool {
	return p.Serial == PlaceholderMarker
}

// Decode splits an identifier into its fields. Short input is right-padded
// with zeros. Any identifier containing the placeholder marker decodes with
// the marker as its serial, wherever the marker appears.
func Decode(id string) ParsedID {
	safe := id
	if len(safe) < IdentifierLength {
		safe += strings.Repeat("0", IdentifierLength-len(safe))
	}
	p := ParsedID{
		Full:    id,
		Color:   safe[0:2],
		Serial:  safe[2:4],
		Content: safe[4:8],
	}
	if IsPlaceholder(id) {
		p.Serial = PlaceholderMarker
	}
	return p
}

// IsPlaceholder reports whether id carries the placeholder marker.
func IsPlaceholder(id string) bool {
	return strings.Contains(id, PlaceholderMarker)
}

// Format renders an identifier for display: "01 05 0001" for a real tag and
// "01 -- 0001" for a placeholder. Other shapes are returned unchanged.
func Format(id string) string {
	if id == "" {
		return ""
	}
	placeholder := IsPlaceholder(id)
	if len(id) != IdentifierLength && !placeholder {
		return id
	}
	color := substr(id, 0, 2)
	content := substr(id, 4, 8)
	if placeholder {
		return color + " -- " + content
	}
	return color + " " + substr(id, 2, 4) + " " + content
}

// NormalizeScan strips every whitespace rune from a scanned value.
func NormalizeScan(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// ValidIdentifier reports whether id is exactly eight ASCII digits.
func ValidIdentifier(id string) bool {
	if len(id) != IdentifierLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// substr slices s by byte offsets, clamping to its length.
func substr(s string, i, j int) string {
	if i > len(s) {
		return ""
	}
	if j > len(s) {
		j = len(s)
	}
	return s[i:j]
}

// SlotRef identifies what occupies a slot: either a real tag or an empty
// slot that expects a given color and content family. Placeholder strings
// exist only at the display and storage boundary.
type SlotRef struct {
	tag     string
	color   string
	content string
}

// RealTag returns a reference to a physical pouch.
func RealTag(id string) SlotRef {
	p := Decode(id)
	return SlotRef{tag: id, color: p.Color, content: p.Content}
}

// EmptySlot returns a reference to an unfilled slot.
func EmptySlot(colorCode, contentCode string) SlotRef {
	return SlotRef{color: colorCode, content: contentCode}
}

// ParseSlotRef converts an identifier string, which may be a placeholder,
// into a SlotRef.
func ParseSlotRef(id string) SlotRef {
	if IsPlaceholder(id) {
		p := Decode(id)
		return EmptySlot(p.Color, p.Content)
	}
	return RealTag(id)
}

// IsEmpty reports whether the reference is an unfilled slot.
func (r SlotRef) IsEmpty() bool { return r.tag == "" }

// Tag returns the real identifier, or "" for an empty slot.
func (r SlotRef) Tag() string { return r.tag }

// Color returns the two-digit color code.
func (r SlotRef) Color() string { return r.color }

// Content returns the four-digit content code.
func (r SlotRef) Content() string { return r.content }

// String returns the identifier form. Empty slots render with the
// placeholder marker in the serial field.
func (r SlotRef) String() string {
	if r.IsEmpty() {
		return r.color + PlaceholderMarker + r.content
	}
	return r.tag
}
