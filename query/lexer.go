package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenSelect TokenType = iota
	TokenFrom
	TokenWhere
	TokenAnd
	TokenOr
	TokenNot
	TokenIn
	TokenIs
	TokenNull
	TokenAs
	TokenOrder
	TokenBy
	TokenAsc
	TokenDesc
	TokenLimit
	TokenOffset
	TokenContains
	TokenStarts
	TokenEnds
	TokenWith
	TokenExists

	// Operators
	TokenEqual        // =
	TokenNotEqual     // != or <>
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=

	// Punctuation
	TokenLParen
	TokenRParen
	TokenComma
	TokenStar

	// Literals
	TokenString
	TokenNumber
	TokenIdent
	TokenBool

	// Special
	TokenEOF
	TokenError
)

var tokenNames = map[TokenType]string{
	TokenSelect: "SELECT", TokenFrom: "FROM", TokenWhere: "WHERE",
	TokenAnd: "AND", TokenOr: "OR", TokenNot: "NOT", TokenIn: "IN",
	TokenIs: "IS", TokenNull: "NULL", TokenAs: "AS", TokenOrder: "ORDER",
	TokenBy: "BY", TokenAsc: "ASC", TokenDesc: "DESC", TokenLimit: "LIMIT",
	TokenOffset: "OFFSET", TokenContains: "CONTAINS", TokenStarts: "STARTS",
	TokenEnds: "ENDS", TokenWith: "WITH", TokenExists: "EXISTS",
	TokenEqual: "=", TokenNotEqual: "!=", TokenLess: "<", TokenGreater: ">",
	TokenLessEqual: "<=", TokenGreaterEqual: ">=",
	TokenLParen: "(", TokenRParen: ")", TokenComma: ",", TokenStar: "*",
	TokenString: "string", TokenNumber: "number", TokenIdent: "identifier",
	TokenBool: "boolean", TokenEOF: "end of query", TokenError: "invalid character",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown"
}

var keywords = map[string]TokenType{
	"SELECT":   TokenSelect,
	"FROM":     TokenFrom,
	"WHERE":    TokenWhere,
	"AND":      TokenAnd,
	"OR":       TokenOr,
	"NOT":      TokenNot,
	"IN":       TokenIn,
	"IS":       TokenIs,
	"NULL":     TokenNull,
	"AS":       TokenAs,
	"ORDER":    TokenOrder,
	"BY":       TokenBy,
	"ASC":      TokenAsc,
	"DESC":     TokenDesc,
	"LIMIT":    TokenLimit,
	"OFFSET":   TokenOffset,
	"CONTAINS": TokenContains,
	"STARTS":   TokenStarts,
	"ENDS":     TokenEnds,
	"WITH":     TokenWith,
	"EXISTS":   TokenExists,
	"TRUE":     TokenBool,
	"FALSE":    TokenBool,
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
}

// Lexer tokenizes SQL query strings
type Lexer struct {
	input string
	pos   int // byte offset of the rune after ch
	ch    rune
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next character
func (l *Lexer) readChar() {
	if l.pos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input) + 1
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.ch = r
	l.pos += size
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

// readString reads a quoted string
func (l *Lexer) readString(quote rune) (string, bool) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case 0:
				return result.String(), false
			default:
				result.WriteRune(l.ch)
			}
		} else {
			result.WriteRune(l.ch)
		}
		l.readChar()
	}

	if l.ch != quote {
		return result.String(), false
	}
	l.readChar() // skip closing quote
	return result.String(), true
}

// readNumber reads an optionally signed integer or decimal number
func (l *Lexer) readNumber() string {
	var result strings.Builder
	if l.ch == '-' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	for unicode.IsDigit(l.ch) || l.ch == '.' || l.ch == 'e' || l.ch == 'E' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

// readIdentifier reads an identifier or keyword. Dots, slashes and dashes
// are allowed so unquoted file paths work as table names.
func (l *Lexer) readIdentifier() string {
	var result strings.Builder
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' || l.ch == '.' || l.ch == '/' || l.ch == '-' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	var tok Token

	switch l.ch {
	case 0:
		tok = Token{Type: TokenEOF}
	case '=':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
		}
		tok = Token{Type: TokenEqual, Value: "="}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			tok = Token{Type: TokenNotEqual, Value: "!="}
		} else {
			tok = Token{Type: TokenError, Value: "!"}
			l.readChar()
		}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			l.readChar()
			tok = Token{Type: TokenLessEqual, Value: "<="}
		case '>':
			l.readChar()
			l.readChar()
			tok = Token{Type: TokenNotEqual, Value: "<>"}
		default:
			l.readChar()
			tok = Token{Type: TokenLess, Value: "<"}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			tok = Token{Type: TokenGreaterEqual, Value: ">="}
		} else {
			l.readChar()
			tok = Token{Type: TokenGreater, Value: ">"}
		}
	case '(':
		tok = Token{Type: TokenLParen, Value: "("}
		l.readChar()
	case ')':
		tok = Token{Type: TokenRParen, Value: ")"}
		l.readChar()
	case ',':
		tok = Token{Type: TokenComma, Value: ","}
		l.readChar()
	case '*':
		tok = Token{Type: TokenStar, Value: "*"}
		l.readChar()
	case '\'', '"':
		value, closed := l.readString(l.ch)
		if !closed {
			tok = Token{Type: TokenError, Value: "unterminated string"}
		} else {
			tok = Token{Type: TokenString, Value: value}
		}
	default:
		if unicode.IsDigit(l.ch) || (l.ch == '-' && unicode.IsDigit(l.peekChar())) {
			tok = Token{Type: TokenNumber, Value: l.readNumber()}
		} else if unicode.IsLetter(l.ch) || l.ch == '_' {
			value := l.readIdentifier()
			tok = Token{Type: identifierType(value), Value: value}
		} else {
			tok = Token{Type: TokenError, Value: string(l.ch)}
			l.readChar()
		}
	}

	return tok
}

// identifierType determines if an identifier is a keyword
func identifierType(ident string) TokenType {
	if tokType, ok := keywords[strings.ToUpper(ident)]; ok {
		return tokType
	}
	return TokenIdent
}

// Tokenize returns all tokens from the input, ending with EOF or the first
// error token.
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}

	return tokens
}
