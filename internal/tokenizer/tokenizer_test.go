package tokenizer

import "testing"

func TestTokenizeQuoteSafety(t *testing.T) {
	toks := TokenizeWithOperators(`echo "a|b"`)
	var words []string
	for _, tok := range toks {
		if tok.Kind == Word {
			words = append(words, tok.Text)
		}
	}
	if len(words) != 2 || words[1] != "a|b" {
		t.Fatalf("expected single literal word %q, got %q", "a|b", words)
	}
}

func TestTokenizeSingleQuoteLiteral(t *testing.T) {
	words := Tokenize(`echo 'a\nb'`)
	if len(words) != 2 || words[1] != `a\nb` {
		t.Fatalf("single quotes must be fully literal, got %q", words)
	}
}

func TestTokenizeDoubleQuoteEscape(t *testing.T) {
	words := Tokenize(`echo "say \"hi\""`)
	if len(words) != 2 || words[1] != `say "hi"` {
		t.Fatalf("double-quote escape failed, got %q", words)
	}
}

func TestTokenizeOperators(t *testing.T) {
	toks := TokenizeWithOperators("ls -la | grep foo && echo done")
	var kinds []TokenKind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []TokenKind{Word, Word, Pipe, Word, Word, And, Word, Word}
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(kinds), len(want), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("token %d kind = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestSplitAtLastOperatorNoOperator(t *testing.T) {
	prefix, seg := SplitAtLastOperator("git ch")
	if prefix != "" || seg != "git ch" {
		t.Fatalf("got prefix=%q seg=%q", prefix, seg)
	}
}

func TestSplitAtLastOperatorPipe(t *testing.T) {
	prefix, seg := SplitAtLastOperator("ls -la | gr")
	if prefix != "ls -la | " || seg != "gr" {
		t.Fatalf("got prefix=%q seg=%q", prefix, seg)
	}
}

func TestSplitAtLastOperatorIgnoresQuotedPipe(t *testing.T) {
	prefix, seg := SplitAtLastOperator(`echo "a|b" `)
	if prefix != "" {
		t.Fatalf("quoted pipe must not split, got prefix=%q seg=%q", prefix, seg)
	}
}

func TestSplitAtLastOperatorAndSemicolon(t *testing.T) {
	prefix, seg := SplitAtLastOperator("cd /tmp; ls")
	if prefix != "cd /tmp; " || seg != "ls" {
		t.Fatalf("got prefix=%q seg=%q", prefix, seg)
	}
}

func TestSplitAtLastOperatorRedirect(t *testing.T) {
	prefix, seg := SplitAtLastOperator("echo hi > out")
	if prefix != "echo hi > " || seg != "out" {
		t.Fatalf("got prefix=%q seg=%q", prefix, seg)
	}
}
