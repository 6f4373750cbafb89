// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package markup translates the inline formatting used in messages.
//
// Message text may contain ANSI style escape codes (ESC "[" code "m") and a
// small set of HTML like tags.
// ToHTML converts both into a neutral XHTML fragment that only uses the b, i,
// u, s, and font elements, and FromHTML converts such a fragment back.
package markup // import "mellium.im/ymsg/markup"

import (
	"encoding/xml"
	"strings"

	"golang.org/x/net/html"
	"mellium.im/xmlstream"
)

const esc = "\x1b["

// Ding is the payload of an attention request.
const Ding = "<ding>"

// IsDing reports whether msg is an attention request rather than text.
func IsDing(msg string) bool {
	return strings.EqualFold(strings.TrimSpace(msg), Ding)
}

var palette = map[string]string{
	"30": "#000000",
	"31": "#0000ff",
	"32": "#008080",
	"33": "#808080",
	"34": "#008000",
	"35": "#ff0080",
	"36": "#800080",
	"37": "#ff8000",
	"38": "#ff0000",
	"39": "#808000",
}

var escStyles = map[string]string{
	"1": "b",
	"2": "i",
	"4": "u",
}

type element struct {
	kind  string
	start xml.StartElement
}

// builder emits a balanced token stream.
type builder struct {
	toks  []xml.Token
	stack []element
}

func (b *builder) text(s string) {
	if s == "" {
		return
	}
	if n := len(b.toks); n > 0 {
		if cd, ok := b.toks[n-1].(xml.CharData); ok {
			b.toks[n-1] = append(cd, s...)
			return
		}
	}
	b.toks = append(b.toks, xml.CharData(s))
}

func (b *builder) open(kind string, start xml.StartElement) {
	b.stack = append(b.stack, element{kind: kind, start: start})
	b.toks = append(b.toks, start)
}

// close ends the innermost element of the given kind.
// Elements opened after it are closed and reopened so that the output stays
// well formed.
func (b *builder) close(kind string) {
	idx := -1
	for i := len(b.stack) - 1; i >= 0; i-- {
		if b.stack[i].kind == kind {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	above := append([]element(nil), b.stack[idx+1:]...)
	for i := len(b.stack) - 1; i >= idx; i-- {
		b.toks = append(b.toks, b.stack[i].start.End())
	}
	b.stack = b.stack[:idx]
	for _, e := range above {
		b.open(e.kind, e.start)
	}
}

func (b *builder) closeAll() {
	for i := len(b.stack) - 1; i >= 0; i-- {
		b.toks = append(b.toks, b.stack[i].start.End())
	}
	b.stack = b.stack[:0]
}

func (b *builder) escape(code string) {
	if strings.HasPrefix(code, "x") {
		if name, ok := escStyles[code[1:]]; ok {
			b.close(name)
		}
		return
	}
	if name, ok := escStyles[code]; ok {
		b.open(name, xml.StartElement{Name: xml.Name{Local: name}})
		return
	}
	color, ok := palette[code]
	if !ok && isHexColor(code) {
		color, ok = strings.ToLower(code), true
	}
	if !ok {
		return
	}
	b.close("color")
	b.open("color", xml.StartElement{
		Name: xml.Name{Local: "font"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "color"}, Value: color}},
	})
}

func (b *builder) tags(chunk string) {
	z := html.NewTokenizer(strings.NewReader(chunk))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.TextToken:
			b.text(string(z.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "b", "i", "u", "s":
				b.open(tok.Data, xml.StartElement{Name: xml.Name{Local: tok.Data}})
			case "font":
				start := xml.StartElement{Name: xml.Name{Local: "font"}}
				for _, a := range tok.Attr {
					switch a.Key {
					case "face", "size", "color":
						start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Key}, Value: a.Val})
					}
				}
				b.open("font", start)
			case "br":
				b.text("\n")
			}
		case html.EndTagToken:
			switch name := z.Token().Data; name {
			case "b", "i", "u", "s", "font":
				b.close(name)
			}
		}
	}
}

// ToHTML converts formatted message text into a balanced XHTML fragment.
// Unknown escape codes and tags are dropped and their text is kept.
func ToHTML(msg string) string {
	orig := msg
	var b builder
	for len(msg) > 0 {
		i := strings.Index(msg, esc)
		if i < 0 {
			b.tags(msg)
			break
		}
		b.tags(msg[:i])
		msg = msg[i+len(esc):]
		end := strings.IndexByte(msg, 'm')
		if end < 0 {
			// An unterminated escape swallows the rest of the message.
			break
		}
		b.escape(msg[:end])
		msg = msg[end+1:]
	}
	b.closeAll()

	readers := make([]xml.TokenReader, 0, len(b.toks))
	for _, t := range b.toks {
		readers = append(readers, xmlstream.Token(t))
	}
	var out strings.Builder
	e := xml.NewEncoder(&out)
	if _, err := xmlstream.Copy(e, xmlstream.MultiReader(readers...)); err != nil {
		return html.EscapeString(orig)
	}
	if err := e.Flush(); err != nil {
		return html.EscapeString(orig)
	}
	return out.String()
}

// FromHTML converts a fragment produced by ToHTML, or written by a user in the
// same subset of HTML, into formatted message text.
func FromHTML(s string) string {
	var out strings.Builder
	// Each open font element records what must be written when it closes.
	var fonts []string
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out.String()
		case html.TextToken:
			out.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "b":
				out.WriteString(esc + "1m")
			case "i":
				out.WriteString(esc + "2m")
			case "u":
				out.WriteString(esc + "4m")
			case "s":
				out.WriteString("<s>")
			case "br":
				out.WriteString("\n")
			case "font":
				var attrs strings.Builder
				for _, a := range tok.Attr {
					switch a.Key {
					case "color":
						if isHexColor(a.Val) {
							out.WriteString(esc + strings.ToLower(a.Val) + "m")
						}
					case "face", "size":
						attrs.WriteString(" " + a.Key + "=\"" + a.Val + "\"")
					}
				}
				if attrs.Len() > 0 {
					out.WriteString("<font" + attrs.String() + ">")
					fonts = append(fonts, "</font>")
				} else {
					fonts = append(fonts, "")
				}
			}
		case html.EndTagToken:
			switch z.Token().Data {
			case "b":
				out.WriteString(esc + "x1m")
			case "i":
				out.WriteString(esc + "x2m")
			case "u":
				out.WriteString(esc + "x4m")
			case "s":
				out.WriteString("</s>")
			case "font":
				if n := len(fonts); n > 0 {
					out.WriteString(fonts[n-1])
					fonts = fonts[:n-1]
				}
			}
		}
	}
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		default:
			return false
		}
	}
	return true
}
