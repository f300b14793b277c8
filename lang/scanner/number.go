package scanner

import (
	"strconv"

	"github.com/mna/luar/lang/token"
)

// number scans a Lua numeral: a decimal integer, a decimal float (with an
// optional fractional part and/or exponent), or a hexadecimal integer
// (0x1F). Lua has no digit separators and no octal/binary literal forms.
//
// A dot is only absorbed into the numeral if it is immediately followed by
// a digit; "42.foo" therefore scans as INT "42" followed by a DOT, not as a
// malformed float.
func (s *Scanner) number() (tok token.Token, lit string) {
	start := s.off
	tok = token.INT

	if s.cur == '0' && lower(s.peek()) == 'x' {
		s.advance() // '0'
		s.advance() // 'x'
		digStart := s.off
		for isHexadecimal(s.cur) {
			s.advance()
		}
		if s.off == digStart {
			s.error(start, KindInvalidNumber, "malformed number near hexadecimal literal")
		}
		return tok, string(s.src[start:s.off])
	}

	for isDecimal(s.cur) {
		s.advance()
	}

	if s.cur == '.' && isDecimal(rune(s.peek())) {
		tok = token.FLOAT
		s.advance() // '.'
		for isDecimal(s.cur) {
			s.advance()
		}
	}

	if s.cur == 'e' || s.cur == 'E' {
		tok = token.FLOAT
		s.advance()
		if s.cur == '+' || s.cur == '-' {
			s.advance()
		}
		expStart := s.off
		for isDecimal(s.cur) {
			s.advance()
		}
		if s.off == expStart {
			s.error(start, KindInvalidNumber, "malformed number (exponent has no digits)")
		}
	}

	return tok, string(s.src[start:s.off])
}

func isDecimal(rn rune) bool {
	return '0' <= rn && rn <= '9'
}

func isHexadecimal(rn rune) bool {
	return isDecimal(rn) ||
		'a' <= rn && rn <= 'f' ||
		'A' <= rn && rn <= 'F'
}

// lower returns b with the ASCII case bit (0x20) set: an upper-case letter
// becomes lower-case and a lower-case letter is unchanged. Other bytes may
// change too (0, returned at EOF, becomes ' ').
func lower(b byte) byte {
	return ('a' - 'A') | b
}

func numberToInt(lit string) (int64, error) {
	if len(lit) > 1 && lit[0] == '0' && (lit[1] == 'x' || lit[1] == 'X') {
		return strconv.ParseInt(lit[2:], 16, 64)
	}
	return strconv.ParseInt(lit, 10, 64)
}

func numberToFloat(lit string) (float64, error) {
	return strconv.ParseFloat(lit, 64)
}
