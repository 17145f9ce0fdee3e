package markdown

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLooksLikeMarkdown(t *testing.T) {
	cases := map[string]bool{
		"# 实验室制度":                     true,
		"请阅读 **重要** 事项":               true,
		"- 第一条\n- 第二条":               true,
		"见 [链接](https://example.com)": true,
		"<p>已经是 HTML</p>":             false,
		"普通的一句话。":                     false,
	}
	for in, want := range cases {
		if got := LooksLikeMarkdown(in); got != want {
			t.Errorf("LooksLikeMarkdown(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestToHTML_EscapesRawHTML(t *testing.T) {
	out, err := ToHTML("# 标题\n\n<script>alert(1)</script>\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "<table>") {
		t.Fatalf("missing heading or table: %s", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("raw HTML passed through: %s", out)
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText("# 通知\n\n本周 **例会** 取消。\n\n- 第一\n- 第二\n")
	want := "通知 本周 例会 取消。 第一 第二"
	if got != want {
		t.Fatalf("PlainText = %q, want %q", got, want)
	}
}

func TestExcerpt(t *testing.T) {
	short := "短文本。"
	if Excerpt(short, 200) != short {
		t.Fatal("short text altered")
	}

	sentence := strings.Repeat("字", 90) + "。"
	long := sentence + sentence + sentence
	got := Excerpt(long, 200)
	if got != sentence+sentence {
		t.Fatalf("sentence cut = %d runes", utf8.RuneCountInString(got))
	}

	noStop := strings.Repeat("a", 250)
	got = Excerpt(noStop, 200)
	if !strings.HasSuffix(got, "...") || utf8.RuneCountInString(got) != 203 {
		t.Fatalf("hard cut = %q", got)
	}
}

func TestReadingTimeAndWordCount(t *testing.T) {
	if n := WordCount("实验室 weekly meeting 取消"); n != 7 {
		t.Fatalf("WordCount = %d, want 7", n)
	}
	if m := ReadingTime("短"); m != 1 {
		t.Fatalf("minimum reading time = %d", m)
	}
	if m := ReadingTime(strings.Repeat("字", 900)); m != 3 {
		t.Fatalf("ReadingTime(900) = %d, want 3", m)
	}
}

func TestSummarize_HTMLPassthrough(t *testing.T) {
	s, err := Summarize("<p>编辑器内容</p>")
	if err != nil {
		t.Fatal(err)
	}
	if s.HTML != "<p>编辑器内容</p>" || s.Excerpt != "编辑器内容" || s.WordCount != 5 {
		t.Fatalf("summary = %+v", s)
	}
}
