package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toyc/pkg/scanner"
	"toyc/pkg/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	s := scanner.New("test.toy", []byte(src))
	var toks []token.Token
	for {
		kind, lit, pos := s.Scan()
		toks = append(toks, token.Token{Kind: kind, Lit: lit, Pos: pos})
		if kind == token.EOF {
			return toks
		}
	}
}

func TestIdentifierRoundTrip(t *testing.T) {
	for _, s := range []string{"x", "abc123", "_underscore", "Ident_9"} {
		toks := scanAll(t, s)
		require.Len(t, toks, 2) // the identifier, then EOF
		assert.Equal(t, token.IDENT, toks[0].Kind)
		assert.Equal(t, s, toks[0].Lit)
		assert.Equal(t, token.Pos(0), toks[0].Pos)
		assert.Equal(t, token.Pos(len(s)), toks[1].Pos)
	}
}

func TestIntegerRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "7", "42", "1000000"} {
		toks := scanAll(t, s)
		require.Len(t, toks, 2)
		assert.Equal(t, token.INT, toks[0].Kind)
		assert.Equal(t, s, toks[0].Lit)
	}
}

func TestKeywordDisambiguation(t *testing.T) {
	toks := scanAll(t, "for")
	require.Len(t, toks, 2)
	assert.Equal(t, token.FOR, toks[0].Kind)

	toks = scanAll(t, "forall")
	require.Len(t, toks, 2)
	assert.Equal(t, token.IDENT, toks[0].Kind)
	assert.Equal(t, "forall", toks[0].Lit)
}

func TestSingleCharDelimiters(t *testing.T) {
	cases := map[string]token.Kind{
		"(": token.LPAREN, ")": token.RPAREN, "{": token.LBRACE, "}": token.RBRACE,
		".": token.PERIOD, ";": token.SEMICOLON, "*": token.MUL, "+": token.ADD,
		"-": token.SUB, "/": token.QUO, "~": token.NOT_BW, ",": token.COMMA,
	}
	for src, want := range cases {
		toks := scanAll(t, src)
		require.Len(t, toks, 2, src)
		assert.Equal(t, want, toks[0].Kind, src)
	}
}

func TestMultiCharOperators(t *testing.T) {
	cases := []struct {
		src  string
		want token.Kind
	}{
		{"==", token.EQL}, {"=", token.ASSIGN},
		{"!=", token.NEQ}, {"!", token.NOT},
		{"<=", token.LEQ}, {"<<", token.SHL}, {"<<=", token.SHL_ASSIGN}, {"<", token.LSS},
		{">=", token.GEQ}, {">>", token.SHR}, {">>=", token.SHR_ASSIGN}, {">", token.GTR},
		{"&&", token.LAND}, {"&=", token.AND_ASSIGN}, {"&^", token.AND_NOT}, {"&^=", token.AND_NOT_ASSIGN}, {"&", token.AND},
		{"||", token.LOR}, {"|=", token.OR_ASSIGN}, {"|", token.OR},
		{":=", token.DEFINE}, {":", token.COLON},
		{"...", token.ELLIPSIS},
	}
	for _, c := range cases {
		toks := scanAll(t, c.src)
		require.Len(t, toks, 2, c.src)
		assert.Equal(t, c.want, toks[0].Kind, c.src)
	}
}

func TestArithmeticDelimitersNeverLookAhead(t *testing.T) {
	// spec.md §4.1: `* + - /` are single-char delimiters, unlike `= ! < > & |`
	// which do take a look-ahead byte — so "++"/"+="/"--"/"-=" each scan as
	// two independent single-char tokens, not a compound operator.
	cases := []struct {
		src   string
		kinds []token.Kind
	}{
		{"++", []token.Kind{token.ADD, token.ADD}},
		{"+=", []token.Kind{token.ADD, token.ASSIGN}},
		{"--", []token.Kind{token.SUB, token.SUB}},
		{"-=", []token.Kind{token.SUB, token.ASSIGN}},
		{"*=", []token.Kind{token.MUL, token.ASSIGN}},
		{"/=", []token.Kind{token.QUO, token.ASSIGN}},
	}
	for _, c := range cases {
		toks := scanAll(t, c.src)
		require.Len(t, toks, len(c.kinds)+1, c.src) // + EOF
		for i, want := range c.kinds {
			assert.Equal(t, want, toks[i].Kind, c.src)
		}
	}
}

func TestWhitespaceSkipped(t *testing.T) {
	toks := scanAll(t, "  \t\n  x\n")
	require.Len(t, toks, 2)
	assert.Equal(t, token.IDENT, toks[0].Kind)
	assert.Equal(t, "x", toks[0].Lit)
}

func TestIllegalCharacterPanics(t *testing.T) {
	s := scanner.New("test.toy", []byte("$"))
	assert.Panics(t, func() { s.Scan() })
}

func TestEOFIsSticky(t *testing.T) {
	s := scanner.New("test.toy", []byte(""))
	k1, _, _ := s.Scan()
	k2, _, _ := s.Scan()
	assert.Equal(t, token.EOF, k1)
	assert.Equal(t, token.EOF, k2)
}

func TestSequenceOfTokensAdvancesPositions(t *testing.T) {
	toks := scanAll(t, "var x int = 1;")
	var kinds []token.Kind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	assert.Equal(t, []token.Kind{
		token.VAR, token.IDENT, token.IDENT, token.ASSIGN, token.INT, token.SEMICOLON, token.EOF,
	}, kinds)
}
