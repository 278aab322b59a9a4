package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Statement is a parsed SELECT: the source it reads from and the query to
// run over that source's rows.
type Statement struct {
	Table string
	Query *Query
}

// Parser parses SQL queries into a Statement
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a new parser
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(tokType TokenType) error {
	if p.current().Type != tokType {
		return fmt.Errorf("expected %v, got %s", tokType, describe(p.current()))
	}
	p.advance()
	return nil
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of query"
	case TokenError:
		return fmt.Sprintf("invalid input %q", tok.Value)
	default:
		return fmt.Sprintf("%q", tok.Value)
	}
}

// Parse parses
//
//	SELECT <* | field | AGG(field) [AS alias], ...> FROM <table>
//	  [WHERE cond [AND cond ...]]
//	  [ORDER BY field [ASC|DESC], ...]
//	  [LIMIT n] [OFFSET n]
//
// where AGG is COUNT, COUNT_DISTINCT, SUM, AVG, MIN or MAX and cond is one of
//
//	field <op> literal          (=, !=, <>, <, <=, >, >=)
//	field [NOT] IN (literal, ...)
//	field CONTAINS literal
//	field STARTS WITH 'text'
//	field ENDS WITH 'text'
//	field [NOT] EXISTS
//	field IS [NOT] NULL
//
// Keywords are case-insensitive. OR is not supported.
func Parse(sql string) (*Statement, error) {
	if err := ValidateQuery(sql); err != nil {
		return nil, err
	}

	tokens := Tokenize(sql)
	if err := ValidateTokens(tokens); err != nil {
		return nil, err
	}
	if last := tokens[len(tokens)-1]; last.Type == TokenError {
		return nil, fmt.Errorf("syntax error: %s", describe(last))
	}

	return NewParser(tokens).parseStatement()
}

func (p *Parser) parseStatement() (*Statement, error) {
	if err := p.expect(TokenSelect); err != nil {
		return nil, fmt.Errorf("query must start with SELECT: %w", err)
	}

	q := New()
	if err := p.parseSelectList(q); err != nil {
		return nil, err
	}

	if err := p.expect(TokenFrom); err != nil {
		return nil, fmt.Errorf("expected FROM after select list: %w", err)
	}

	table := p.current()
	if table.Type != TokenIdent && table.Type != TokenString {
		return nil, fmt.Errorf("expected table name after FROM, got %s", describe(table))
	}
	if err := ValidateTableName(table.Value); err != nil {
		return nil, err
	}
	p.advance()

	if p.current().Type == TokenWhere {
		p.advance()
		if err := p.parseWhere(q); err != nil {
			return nil, err
		}
	}

	if p.current().Type == TokenOrder {
		p.advance()
		if err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		if err := p.parseOrderBy(q); err != nil {
			return nil, err
		}
	}

	if p.current().Type == TokenLimit {
		p.advance()
		n, err := p.parseCount("LIMIT")
		if err != nil {
			return nil, err
		}
		q.Limit(n)
	}

	if p.current().Type == TokenOffset {
		p.advance()
		n, err := p.parseCount("OFFSET")
		if err != nil {
			return nil, err
		}
		q.Offset(n)
	}

	if p.current().Type != TokenEOF {
		return nil, fmt.Errorf("unexpected %s after query", describe(p.current()))
	}

	return &Statement{Table: table.Value, Query: q}, nil
}

func (p *Parser) parseSelectList(q *Query) error {
	if p.current().Type == TokenStar {
		p.advance()
		return nil
	}

	for {
		if err := p.parseSelectItem(q); err != nil {
			return err
		}
		if p.current().Type != TokenComma {
			return nil
		}
		p.advance()
	}
}

func (p *Parser) parseSelectItem(q *Query) error {
	tok := p.current()
	if tok.Type != TokenIdent {
		return fmt.Errorf("expected column or aggregate in select list, got %s", describe(tok))
	}

	if p.peek().Type != TokenLParen {
		if err := ValidateColumnName(tok.Value); err != nil {
			return err
		}
		p.advance()
		q.Select(tok.Value)
		return nil
	}

	typ, err := ParseAggregationType(tok.Value)
	if err != nil {
		return err
	}
	p.advance() // function name
	p.advance() // (

	field := ""
	switch p.current().Type {
	case TokenStar:
		if typ != AggCount {
			return fmt.Errorf("%s(*) is not supported", typ)
		}
	case TokenIdent:
		field = p.current().Value
		if err := ValidateColumnName(field); err != nil {
			return err
		}
	default:
		return fmt.Errorf("expected column in %s(), got %s", typ, describe(p.current()))
	}
	p.advance()

	if err := p.expect(TokenRParen); err != nil {
		return err
	}

	alias := ""
	if p.current().Type == TokenAs {
		p.advance()
		if p.current().Type != TokenIdent && p.current().Type != TokenString {
			return fmt.Errorf("expected alias after AS, got %s", describe(p.current()))
		}
		alias = p.current().Value
		p.advance()
	}

	q.Aggregate(field, typ, alias)
	return nil
}

func (p *Parser) parseWhere(q *Query) error {
	for {
		if len(q.Conditions) >= MaxConditions {
			return fmt.Errorf("%w: max %d", ErrTooManyConditions, MaxConditions)
		}
		cond, err := p.parseCondition()
		if err != nil {
			return err
		}
		q.Where(cond)

		switch p.current().Type {
		case TokenAnd:
			p.advance()
		case TokenOr:
			return fmt.Errorf("OR is not supported; conditions are combined with AND")
		default:
			return nil
		}
	}
}

func (p *Parser) parseCondition() (Condition, error) {
	tok := p.current()
	if tok.Type != TokenIdent {
		return Condition{}, fmt.Errorf("expected column name, got %s", describe(tok))
	}
	if err := ValidateColumnName(tok.Value); err != nil {
		return Condition{}, err
	}
	field := tok.Value
	p.advance()

	switch opTok := p.current(); opTok.Type {
	case TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual:
		p.advance()
		op, err := ParseOperator(opTok.Value)
		if err != nil {
			return Condition{}, err
		}
		value, err := p.parseLiteral()
		if err != nil {
			return Condition{}, err
		}
		return Condition{Field: field, Operator: op, Value: value}, nil

	case TokenNot:
		p.advance()
		switch p.current().Type {
		case TokenIn:
			p.advance()
			values, err := p.parseList()
			if err != nil {
				return Condition{}, err
			}
			return Condition{Field: field, Operator: OpNotIn, Value: values}, nil
		case TokenExists:
			p.advance()
			return NotExists(field), nil
		default:
			return Condition{}, fmt.Errorf("expected IN or EXISTS after NOT, got %s", describe(p.current()))
		}

	case TokenIn:
		p.advance()
		values, err := p.parseList()
		if err != nil {
			return Condition{}, err
		}
		return Condition{Field: field, Operator: OpIn, Value: values}, nil

	case TokenContains:
		p.advance()
		value, err := p.parseLiteral()
		if err != nil {
			return Condition{}, err
		}
		return Contains(field, value), nil

	case TokenStarts, TokenEnds:
		p.advance()
		if err := p.expect(TokenWith); err != nil {
			return Condition{}, err
		}
		if p.current().Type != TokenString {
			return Condition{}, fmt.Errorf("expected quoted text after %s WITH, got %s", strings.ToUpper(opTok.Value), describe(p.current()))
		}
		text := p.current().Value
		p.advance()
		if opTok.Type == TokenStarts {
			return StartsWith(field, text), nil
		}
		return EndsWith(field, text), nil

	case TokenExists:
		p.advance()
		return Exists(field), nil

	case TokenIs:
		p.advance()
		negate := false
		if p.current().Type == TokenNot {
			negate = true
			p.advance()
		}
		if err := p.expect(TokenNull); err != nil {
			return Condition{}, err
		}
		if negate {
			return Ne(field, nil), nil
		}
		return Eq(field, nil), nil

	default:
		return Condition{}, fmt.Errorf("expected operator after %q, got %s", field, describe(opTok))
	}
}

func (p *Parser) parseList() ([]interface{}, error) {
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	values := make([]interface{}, 0)
	for {
		if len(values) >= MaxInListSize {
			return nil, fmt.Errorf("%w: max %d", ErrInListTooLong, MaxInListSize)
		}
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, v)

		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}

	if err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return values, nil
}

func (p *Parser) parseLiteral() (interface{}, error) {
	tok := p.current()
	switch tok.Type {
	case TokenString:
		p.advance()
		return tok.Value, nil
	case TokenNumber:
		p.advance()
		return parseNumber(tok.Value)
	case TokenBool:
		p.advance()
		return strings.EqualFold(tok.Value, "true"), nil
	case TokenNull:
		p.advance()
		return nil, nil
	default:
		return nil, fmt.Errorf("expected value (string, number, boolean or NULL), got %s", describe(tok))
	}
}

// parseNumber parses integers as int64 and everything else as float64.
func parseNumber(s string) (interface{}, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("invalid number: %s", s)
}

func (p *Parser) parseOrderBy(q *Query) error {
	for {
		tok := p.current()
		if tok.Type != TokenIdent {
			return fmt.Errorf("expected column in ORDER BY, got %s", describe(tok))
		}
		if err := ValidateColumnName(tok.Value); err != nil {
			return err
		}
		p.advance()

		order := Ascending
		switch p.current().Type {
		case TokenAsc:
			p.advance()
		case TokenDesc:
			order = Descending
			p.advance()
		}
		q.OrderBy(tok.Value, order)

		if p.current().Type != TokenComma {
			return nil
		}
		p.advance()
	}
}

func (p *Parser) parseCount(clause string) (int, error) {
	tok := p.current()
	if tok.Type != TokenNumber {
		return 0, fmt.Errorf("expected number after %s, got %s", clause, describe(tok))
	}
	n, err := strconv.Atoi(tok.Value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %s", clause, tok.Value)
	}
	p.advance()
	return n, nil
}
