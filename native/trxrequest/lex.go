package trxrequest

import "encoding/hex"

// TokenKind classifies a lexed token.
type TokenKind uint8

const (
	TokenError TokenKind = iota
	TokenLeftDelim
	TokenRightDelim
	TokenHex
	TokenInteger
	TokenIdentifier
	TokenPair
)

// Token is a lexed request token. Text holds the source slice; Bytes holds
// decoded hex for TokenHex, nil when the digits do not decode.
type Token struct {
	Kind  TokenKind
	Text  string
	Bytes []byte
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\f' }

func span(s string, pos int, pred func(byte) bool) int {
	n := 0
	for pos+n < len(s) && pred(s[pos+n]) {
		n++
	}
	return n
}

func hexLen(s string, pos int) int {
	if pos+2 > len(s) || s[pos] != '0' || s[pos+1] != 'x' {
		return 0
	}
	digits := span(s, pos+2, isHexDigit)
	if digits == 0 {
		return 0
	}
	return 2 + digits
}

func pairLen(s string, pos int) int {
	left := span(s, pos, isAlnum)
	if left == 0 || pos+left >= len(s) || s[pos+left] != ':' {
		return 0
	}
	right := span(s, pos+left+1, isAlnum)
	if right == 0 {
		return 0
	}
	return left + 1 + right
}

// utf8Len returns the width of the encoded rune starting with c so lex
// errors carry whole characters.
func utf8Len(c byte) int {
	switch {
	case c < 0x80:
		return 1
	case c>>5 == 0x6:
		return 2
	case c>>4 == 0xe:
		return 3
	case c>>3 == 0x1e:
		return 4
	}
	return 1
}

// Lex splits a request into tokens, always taking the longest match at each
// position. Unrecognised characters yield a TokenError and lexing resumes
// after them.
func Lex(s string) []Token {
	var out []Token
	pos := 0
	for pos < len(s) {
		c := s[pos]
		switch {
		case isSpace(c):
			pos++
			continue
		case c == '(':
			out = append(out, Token{Kind: TokenLeftDelim, Text: "("})
			pos++
			continue
		case c == ')':
			out = append(out, Token{Kind: TokenRightDelim, Text: ")"})
			pos++
			continue
		}

		kind, n := TokenError, 0
		if l := hexLen(s, pos); l > n {
			kind, n = TokenHex, l
		}
		if l := span(s, pos, isDigit); l > n {
			kind, n = TokenInteger, l
		}
		if l := span(s, pos, func(b byte) bool { return isAlpha(b) || b == '-' }); l > n {
			kind, n = TokenIdentifier, l
		}
		if l := pairLen(s, pos); l > n {
			kind, n = TokenPair, l
		}
		if n == 0 {
			n = utf8Len(c)
			if pos+n > len(s) {
				n = len(s) - pos
			}
			out = append(out, Token{Kind: TokenError, Text: s[pos : pos+n]})
			pos += n
			continue
		}
		tok := Token{Kind: kind, Text: s[pos : pos+n]}
		if kind == TokenHex {
			if b, err := hex.DecodeString(tok.Text[2:]); err == nil {
				tok.Bytes = b
			}
		}
		out = append(out, tok)
		pos += n
	}
	return out
}
