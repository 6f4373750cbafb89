// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package markup_test

import (
	"strconv"
	"testing"

	"mellium.im/ymsg/markup"
)

var toHTMLTestCases = [...]struct {
	in  string
	out string
}{
	0:  {},
	1:  {in: "hello", out: "hello"},
	2:  {in: "\x1b[1mbold\x1b[x1m plain", out: "<b>bold</b> plain"},
	3:  {in: "\x1b[1mbold", out: "<b>bold</b>"},
	4:  {in: `<font face="Arial" size="10">hi</font>`, out: `<font face="Arial" size="10">hi</font>`},
	5:  {in: "\x1b[31mblue\x1b[#FF0000mred", out: `<font color="#0000ff">blue</font><font color="#ff0000">red</font>`},
	6:  {in: "<b>a<i>b</b>c</i>", out: "<b>a<i>b</i></b><i>c</i>"},
	7:  {in: "a < b & c", out: "a &lt; b &amp; c"},
	8:  {in: "<alt #ff0000,#00ff00><fade #000000>x</fade></alt>", out: "x"},
	9:  {in: "</b>stray", out: "stray"},
	10: {in: "\x1b[lmlink", out: "link"},
	11: {in: "unterminated \x1b[1", out: "unterminated "},
	12: {in: "\x1b[2m\x1b[4mboth\x1b[x2m", out: "<i><u>both</u></i><u></u>"},
	13: {in: "<B>loud</B>", out: "<b>loud</b>"},
}

func TestToHTML(t *testing.T) {
	for i, tc := range toHTMLTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			out := markup.ToHTML(tc.in)
			if out != tc.out {
				t.Errorf("wrong output:\nwant=%q\ngot= %q", tc.out, out)
			}
		})
	}
}

var fromHTMLTestCases = [...]struct {
	in  string
	out string
}{
	0: {in: "plain", out: "plain"},
	1: {in: "<b>bold</b>", out: "\x1b[1mbold\x1b[x1m"},
	2: {in: `<font color="#FF0000" face="Arial">x</font>`, out: "\x1b[#ff0000m<font face=\"Arial\">x</font>"},
	3: {in: `<font color="#ff0000">x</font>`, out: "\x1b[#ff0000mx"},
	4: {in: "a &lt; b", out: "a < b"},
	5: {in: "line<br/>two", out: "line\ntwo"},
	6: {in: "<i><u>x</u></i><s>y</s>", out: "\x1b[2m\x1b[4mx\x1b[x4m\x1b[x2m<s>y</s>"},
	7: {in: "<span>dropped</span>", out: "dropped"},
}

func TestFromHTML(t *testing.T) {
	for i, tc := range fromHTMLTestCases {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			out := markup.FromHTML(tc.in)
			if out != tc.out {
				t.Errorf("wrong output:\nwant=%q\ngot= %q", tc.out, out)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	const msg = "\x1b[1mbold\x1b[x1m and \x1b[2mitalic\x1b[x2m"
	if out := markup.FromHTML(markup.ToHTML(msg)); out != msg {
		t.Errorf("wrong round trip:\nwant=%q\ngot= %q", msg, out)
	}
}

func TestIsDing(t *testing.T) {
	for i, tc := range [...]struct {
		in   string
		ding bool
	}{
		0: {in: "<ding>", ding: true},
		1: {in: " <DING>\n", ding: true},
		2: {in: "<ding> hello"},
		3: {in: "ding"},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			if got := markup.IsDing(tc.in); got != tc.ding {
				t.Errorf("wrong result for %q: want=%t, got=%t", tc.in, tc.ding, got)
			}
		})
	}
}
