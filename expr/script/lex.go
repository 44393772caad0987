// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SnellerInc/tql/expr"
	"github.com/SnellerInc/tql/tensor"
)

type token uint8

const (
	tokInvalid token = iota
	tokEOF
	tokIdent
	tokNumber
	tokString
	tokVariable
	tokRelop
	tokArrow
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokComma
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokLBrace
	tokRBrace

	// keywords
	kwAnd
	kwBy
	kwDivide
	kwElse
	kwIn
	kwIs
	kwMeans
	kwNot
	kwOf
	kwScale
	kwSpace
	kwSum
	kwTensor
	kwWeek
	kwWhere
)

var keywords = map[string]token{
	"and":    kwAnd,
	"by":     kwBy,
	"divide": kwDivide,
	"else":   kwElse,
	"in":     kwIn,
	"is":     kwIs,
	"means":  kwMeans,
	"not":    kwNot,
	"of":     kwOf,
	"scale":  kwScale,
	"space":  kwSpace,
	"sum":    kwSum,
	"tensor": kwTensor,
	"week":   kwWeek,
	"where":  kwWhere,
}

// month names are integer literals
var months = map[string]int64{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may":  5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

var tokenText = [...]string{
	tokInvalid: "invalid token",
	tokEOF:      "end of input",
	tokIdent:    "identifier",
	tokNumber:   "number",
	tokString:   "string",
	tokVariable: "variable",
	tokRelop:    "comparison",
	tokArrow:    "'->'",
	tokPlus:     "'+'",
	tokMinus:    "'-'",
	tokStar:     "'*'",
	tokSlash:    "'/'",
	tokComma:    "','",
	tokLParen:   "'('",
	tokRParen:   "')'",
	tokLBracket: "'['",
	tokRBracket: "']'",
	tokLBrace:   "'{'",
	tokRBrace:   "'}'",
}

func (t token) String() string {
	if t >= kwAnd {
		for k, v := range keywords {
			if v == t {
				return "'" + k + "'"
			}
		}
	}
	if int(t) < len(tokenText) && tokenText[t] != "" {
		return tokenText[t]
	}
	return fmt.Sprintf("token(%d)", t)
}

// lexeme is one token along with its
// location and decoded value
type lexeme struct {
	tok  token
	at   expr.Span
	text string       // identifier, variable or string contents
	num  tensor.Value // int64 or float64 for tokNumber
	op   tensor.Relop // for tokRelop
}

// LexerError describes a lexing error
type LexerError struct {
	Position int    // offset in the input string
	Length   int    // length of wrong substring (0 if unknown)
	Message  string // textual description of an error
}

func (e *LexerError) Error() string {
	return fmt.Sprintf("at position %d: %s", e.Position, e.Message)
}

type scanner struct {
	from []byte
	pos  int
}

func isdigit(x byte) bool {
	return x >= '0' && x <= '9'
}

func isalpha(x byte) bool {
	return (x >= 'a' && x <= 'z') || (x >= 'A' && x <= 'Z')
}

func isident(x byte) bool {
	return isalpha(x) || isdigit(x) || x == '_'
}

func isspace(x byte) bool {
	return x == ' ' || x == '\n' || x == '\t' || x == '\r' || x == '\f' || x == '\v'
}

func (s *scanner) peekat(i int) byte {
	if s.pos+i < len(s.from) {
		return s.from[s.pos+i]
	}
	return 0
}

// chomp whitespace and comments from input;
// an unterminated block comment is an error
func (s *scanner) chompws() error {
	for s.pos < len(s.from) {
		switch {
		case isspace(s.from[s.pos]):
			s.pos++
		case s.from[s.pos] == '-' && s.peekat(1) == '-':
			s.pos += 2
			for s.pos < len(s.from) && s.from[s.pos] != '\n' {
				s.pos++
			}
		case s.from[s.pos] == '{' && s.peekat(1) == '-':
			start := s.pos
			s.pos += 2
			for {
				if s.pos >= len(s.from) {
					return &LexerError{Position: start, Length: 2, Message: "unterminated comment"}
				}
				if s.from[s.pos] == '-' && s.peekat(1) == '}' {
					s.pos += 2
					break
				}
				s.pos++
			}
		default:
			return nil
		}
	}
	return nil
}

// next produces the next lexeme; on error
// the offending input is skipped so that
// lexing can continue
func (s *scanner) next() (lexeme, error) {
	if err := s.chompws(); err != nil {
		return lexeme{tok: tokEOF, at: expr.Span{Start: len(s.from), End: len(s.from)}}, err
	}
	start := s.pos
	if s.pos >= len(s.from) {
		return lexeme{tok: tokEOF, at: expr.Span{Start: start, End: start}}, nil
	}
	b := s.from[s.pos]
	if isdigit(b) || (b == '.' && isdigit(s.peekat(1))) {
		return s.lexNumber()
	}
	if isalpha(b) || b == '_' {
		return s.lexIdent(), nil
	}
	single := func(t token) (lexeme, error) {
		s.pos++
		return lexeme{tok: t, at: expr.Span{Start: start, End: s.pos}}, nil
	}
	relop := func(op tensor.Relop, n int) (lexeme, error) {
		s.pos += n
		return lexeme{tok: tokRelop, op: op, at: expr.Span{Start: start, End: s.pos}}, nil
	}
	switch b {
	case '\'', '"':
		return s.lexString(b)
	case '$':
		s.pos++
		if s.pos >= len(s.from) || !(isalpha(s.from[s.pos]) || s.from[s.pos] == '_') {
			return lexeme{}, &LexerError{Position: start, Length: 1, Message: "expected a variable name after '$'"}
		}
		id := s.lexIdent()
		return lexeme{tok: tokVariable, text: id.text, at: expr.Span{Start: start, End: s.pos}}, nil
	case '=':
		if s.peekat(1) == '=' {
			return relop(tensor.Equals, 2)
		}
		return relop(tensor.Equals, 1)
	case '!':
		if s.peekat(1) == '=' {
			return relop(tensor.NotEquals, 2)
		}
	case '<':
		switch s.peekat(1) {
		case '=':
			return relop(tensor.LessEquals, 2)
		case '>':
			return relop(tensor.NotEquals, 2)
		}
		return relop(tensor.Less, 1)
	case '>':
		if s.peekat(1) == '=' {
			return relop(tensor.GreaterEquals, 2)
		}
		return relop(tensor.Greater, 1)
	case '-':
		if s.peekat(1) == '>' {
			s.pos += 2
			return lexeme{tok: tokArrow, at: expr.Span{Start: start, End: s.pos}}, nil
		}
		return single(tokMinus)
	case '+':
		return single(tokPlus)
	case '*':
		return single(tokStar)
	case '/':
		return single(tokSlash)
	case ',':
		return single(tokComma)
	case '(':
		return single(tokLParen)
	case ')':
		return single(tokRParen)
	case '[':
		return single(tokLBracket)
	case ']':
		return single(tokRBracket)
	case '{':
		return single(tokLBrace)
	case '}':
		return single(tokRBrace)
	}
	s.pos++
	return lexeme{}, &LexerError{
		Position: start,
		Length:   1,
		Message:  fmt.Sprintf("unexpected character %q", b),
	}
}

// lex an identifier and either return it
// as an identifier, a keyword, or (for month
// names) an integer literal
func (s *scanner) lexIdent() lexeme {
	start := s.pos
	s.pos++
	for s.pos < len(s.from) && isident(s.from[s.pos]) {
		s.pos++
	}
	word := strings.ToLower(string(s.from[start:s.pos]))
	at := expr.Span{Start: start, End: s.pos}
	if kw, ok := keywords[word]; ok {
		return lexeme{tok: kw, text: word, at: at}
	}
	if m, ok := months[word]; ok {
		return lexeme{tok: tokNumber, num: m, text: word, at: at}
	}
	return lexeme{tok: tokIdent, text: word, at: at}
}

func (s *scanner) lexNumber() (lexeme, error) {
	start := s.pos
	floatnum := false
loop:
	for s.pos < len(s.from) {
		b := s.from[s.pos]
		switch {
		case isdigit(b):
		case b == '.':
			floatnum = true
		case b == 'e' || b == 'E':
			floatnum = true
			if c := s.peekat(1); c == '-' || c == '+' {
				s.pos++
			}
		default:
			break loop
		}
		s.pos++
	}
	str := string(s.from[start:s.pos])
	at := expr.Span{Start: start, End: s.pos}
	if s.pos < len(s.from) && isalpha(s.from[s.pos]) {
		for s.pos < len(s.from) && isident(s.from[s.pos]) {
			s.pos++
		}
		return lexeme{}, &LexerError{Position: start, Length: s.pos - start,
			Message: fmt.Sprintf("malformed number %q", s.from[start:s.pos])}
	}
	if !floatnum {
		i, err := strconv.ParseInt(str, 10, 64)
		if err == nil {
			return lexeme{tok: tokNumber, num: i, text: str, at: at}, nil
		}
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return lexeme{}, &LexerError{Position: start, Length: s.pos - start,
			Message: fmt.Sprintf("malformed number %q", str)}
	}
	return lexeme{tok: tokNumber, num: f, text: str, at: at}, nil
}

// lexString lexes a string quoted with q;
// double-quoted strings accept Go escapes and
// single-quoted strings escape a quote by doubling it
func (s *scanner) lexString(q byte) (lexeme, error) {
	start := s.pos
	s.pos++
	var out strings.Builder
	for s.pos < len(s.from) {
		b := s.from[s.pos]
		switch {
		case b == '\n':
			return lexeme{}, &LexerError{Position: start, Length: s.pos - start, Message: "newline in string"}
		case b == '\\' && q == '"':
			s.pos += 2
			continue
		case b == q && q == '\'' && s.peekat(1) == '\'':
			out.WriteByte('\'')
			s.pos += 2
			continue
		case b == q:
			s.pos++
			at := expr.Span{Start: start, End: s.pos}
			if q == '\'' {
				return lexeme{tok: tokString, text: out.String(), at: at}, nil
			}
			str, err := strconv.Unquote(string(s.from[start:s.pos]))
			if err != nil {
				return lexeme{}, &LexerError{Position: start, Length: s.pos - start, Message: err.Error()}
			}
			return lexeme{tok: tokString, text: str, at: at}, nil
		}
		out.WriteByte(b)
		s.pos++
	}
	return lexeme{}, &LexerError{Position: start, Length: s.pos - start, Message: "unterminated string"}
}

// lex tokenizes all of src, calling
// report for each lexing error
func lex(src []byte, report func(error)) []lexeme {
	s := &scanner{from: src}
	var out []lexeme
	for {
		l, err := s.next()
		if err != nil {
			report(err)
			if l.tok != tokEOF {
				continue
			}
			// unterminated comment
			out = append(out, l)
			return out
		}
		out = append(out, l)
		if l.tok == tokEOF {
			return out
		}
	}
}
