package extract

import (
	"strings"
	"testing"
)

func TestText(t *testing.T) {
	body := "\n## TEST\n\nこれはテストです。\n\n- リスト1\n- リスト2\n\n[self](test_post.md)\n\n" +
		"```rust\nfn main() {\n    println!(\"Hello World\")\n}\n```\n\n" +
		"<summary>\n\n<details>RUN</details>\n\nSome Codes\n\n</summary>\n"

	want := "TEST\nこれはテストです。\nリスト1\nリスト2\nself\nfn main() {\n    println!(\"Hello World\")\n}\n\nRUN\nSome Codes"
	if got := Text(body); got != want {
		t.Errorf("Text() =\n%q\nwant\n%q", got, want)
	}
}

func TestText_OnlyHTML(t *testing.T) {
	body := "\n<summary>\n<detail>detail</detail>\nsummary\n</summary>\n"
	if got := Text(body); got != "detail\nsummary" {
		t.Errorf("Text() = %q", got)
	}
}

func TestText_IgnoresComments(t *testing.T) {
	body := "\n<!-- comments -->\n\n<!--\nmulti line\ncomments\n-->\n\n<div><p>inner</p></div>\n\n## TEST\n"
	if got := Text(body); got != "inner\nTEST" {
		t.Errorf("Text() = %q", got)
	}
}

func TestText_InlineHTML(t *testing.T) {
	got := Text("a <b>bold</b> c\n")
	if !strings.Contains(got, "bold") || strings.Contains(got, "<b>") {
		t.Errorf("Text() = %q", got)
	}
}

func TestText_Empty(t *testing.T) {
	if got := Text(""); got != "" {
		t.Errorf("Text(\"\") = %q", got)
	}
}

func TestRemoveComments(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"no comment", "\n# TEST\n\n- AAA\n- BBB", "\n# TEST\n\n- AAA\n- BBB"},
		{"one line", "<!-- comment -->", ""},
		{"multiline", "\n<!--\nmultiline\ncomment\n-->\n        ", "\n"},
		{"inline", "in<!-- comment -->line", "inline"},
		{"mix", "# TEST\n<!-- comment -->\n\n<!-- \nmultiline\ncomment\n-->\n\nTEST\n", "# TEST\nTEST\n"},
		{"unterminated", "keep<!-- open", "keep"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RemoveComments(tc.in); got != tc.want {
				t.Errorf("RemoveComments(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
