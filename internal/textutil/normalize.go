package textutil

import (
	"regexp"
	"strings"
)

var (
	lineBreakRe   = regexp.MustCompile(`\r\n|\r`)
	multiNewline  = regexp.MustCompile(`\n{3,}`)
	horizontalWS  = regexp.MustCompile(`[ \t\f\v]+`)
	spacedNewline = regexp.MustCompile(` ?\n ?`)
)

// unicodeReplacer maps common typographic characters to plain-ASCII equivalents.
var unicodeReplacer = strings.NewReplacer(
	"’", "'", // right single quotation mark
	"‘", "'", // left single quotation mark
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"–", "-", // en dash
	"—", "--", // em dash
)

// CleanText collapses runs of horizontal whitespace to single spaces, strips
// spaces hugging line breaks, trims the result, and replaces typographic
// quotes and dashes with ASCII equivalents. Line breaks themselves are
// preserved; use NormalizeLineBreaks to canonicalize them.
func CleanText(text string) string {
	text = unicodeReplacer.Replace(text)
	text = horizontalWS.ReplaceAllString(text, " ")
	text = spacedNewline.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// NormalizeLineBreaks converts all line break variants to "\n" and collapses
// three or more consecutive newlines down to exactly two, the paragraph
// boundary used by the chunker.
func NormalizeLineBreaks(text string) string {
	text = lineBreakRe.ReplaceAllString(text, "\n")
	return multiNewline.ReplaceAllString(text, "\n\n")
}

// Normalize applies the full cleanup used before chunking. Line breaks are
// canonicalized before the whitespace pass so that blank lines containing
// stray spaces still collapse into a single paragraph boundary. It is a pure
// function and never fails on valid UTF-8 input.
func Normalize(text string) string {
	text = lineBreakRe.ReplaceAllString(text, "\n")
	text = CleanText(text)
	return multiNewline.ReplaceAllString(text, "\n\n")
}
