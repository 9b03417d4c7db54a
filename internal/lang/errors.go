package lang

import "fmt"

// ParseError is one lexer/parser failure, carrying the token position for
// editor-grade diagnostics (spec §4.1 "Parser contract").
type ParseError struct {
	Message string
	Pos     int
	Token   string
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("parse error at position %d: %s (found %q)", e.Pos, e.Message, e.Token)
	}
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Message)
}

// ParseErrors aggregates every error produced while parsing a single
// statement. The parser never returns a partial CST (spec §4.1).
type ParseErrors struct {
	Errors []*ParseError
}

func (e *ParseErrors) Error() string {
	if len(e.Errors) == 0 {
		return "parse error"
	}
	return e.Errors[0].Error()
}

func (e *ParseErrors) Add(msg string, pos int, token string) {
	e.Errors = append(e.Errors, &ParseError{Message: msg, Pos: pos, Token: token})
}

func (e *ParseErrors) HasErrors() bool {
	return len(e.Errors) > 0
}
