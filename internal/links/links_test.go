package links

import (
	"testing"
)

func TestCollect_Basic(t *testing.T) {
	got := Collect("See [[foo.bar]] and [[Alias Text|baz]].")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].Fname != "foo.bar" || got[0].Display != "" || got[0].Qualified() {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Fname != "baz" || got[1].Display != "Alias Text" {
		t.Errorf("second = %+v", got[1])
	}
	if got[0].Raw != "[[foo.bar]]" {
		t.Errorf("raw = %q", got[0].Raw)
	}
}

func TestCollect_VaultQualified(t *testing.T) {
	got := Collect("[[dendron://vault2/second]]\n[[some note|dendron://vault2/something]]")
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	for i, want := range []string{"second", "something"} {
		if got[i].Vault != "vault2" || got[i].Fname != want {
			t.Errorf("link %d = %+v", i, got[i])
		}
	}
	if got[1].Display != "some note" {
		t.Errorf("display = %q", got[1].Display)
	}
}

func TestCollect_SkipsMalformed(t *testing.T) {
	cases := []string{
		"[[]]",
		"[[alias|]]",
		"[[unclosed",
		"[[dendron:///nofname]]",
		"[[dendron://novaultslash]]",
		"[[broken\nacross lines]]",
		"[[a] b]]",
	}
	for _, body := range cases {
		if got := Collect(body); len(got) != 0 {
			t.Errorf("%q: expected no links, got %+v", body, got)
		}
	}
}

func TestCollect_RecoversAfterMalformed(t *testing.T) {
	got := Collect("[[ oops [[good]] and [[]] then [[also.good]]")
	if len(got) != 2 || got[0].Fname != "good" || got[1].Fname != "also.good" {
		t.Errorf("got %+v", got)
	}
}

func TestCollect_Anchor(t *testing.T) {
	got := Collect("[[note.a#heading]] [[note.b#^block]]")
	if len(got) != 2 || got[0].Fname != "note.a" || got[1].Fname != "note.b" {
		t.Errorf("got %+v", got)
	}
}

func TestCollect_SkipsCode(t *testing.T) {
	body := "real [[one]]\n\n```\n[[fenced]]\n```\n\ninline `[[spanned]]` and [[two]]\n\n    [[indented]]\n"
	got := Collect(body)
	if len(got) != 2 || got[0].Fname != "one" || got[1].Fname != "two" {
		t.Errorf("got %+v", got)
	}
}

func TestAll_Restartable(t *testing.T) {
	seq := All("[[a]] [[b]] [[c]]")
	var first, second []string
	for l := range seq {
		first = append(first, l.Fname)
		if len(first) == 2 {
			break
		}
	}
	for l := range seq {
		second = append(second, l.Fname)
	}
	if len(first) != 2 || first[0] != "a" {
		t.Errorf("first = %v", first)
	}
	if len(second) != 3 || second[2] != "c" {
		t.Errorf("second = %v", second)
	}
}

func TestCollect_Offsets(t *testing.T) {
	body := "xx [[target]] yy"
	got := Collect(body)
	if len(got) != 1 {
		t.Fatal("expected one link")
	}
	if body[got[0].Start:got[0].End] != "[[target]]" {
		t.Errorf("span = %q", body[got[0].Start:got[0].End])
	}
}
