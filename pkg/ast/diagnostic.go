package ast

import (
	"errors"
	"fmt"

	"cppdecl/pkg/token"
)

// Sentinel errors for each diagnostic class; use errors.Is on a Diagnostic.
var (
	ErrLex          = errors.New("lex error")
	ErrDirective    = errors.New("directive error")
	ErrRecognition  = errors.New("recognition error")
	ErrRedefinition = errors.New("redefinition error")
)

// DiagKind classifies diagnostics
type DiagKind int

const (
	DiagLex DiagKind = iota
	DiagDirective
	DiagRecognition
	DiagRedefinition
)

func (k DiagKind) String() string {
	switch k {
	case DiagLex:
		return "LexError"
	case DiagDirective:
		return "DirectiveError"
	case DiagRecognition:
		return "RecognitionError"
	case DiagRedefinition:
		return "RedefinitionError"
	default:
		return "UnknownError"
	}
}

// MarshalText renders diagnostic kinds by name
func (k DiagKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Diagnostic is a positioned, non-fatal parse problem
type Diagnostic struct {
	Kind    DiagKind       `json:"kind" yaml:"kind"`
	Pos     token.Position `json:"pos" yaml:"pos"`
	Message string         `json:"message" yaml:"message"`
}

// NewDiagnostic creates a diagnostic with a formatted message
func NewDiagnostic(kind DiagKind, pos token.Position, format string, args ...interface{}) Diagnostic {
	return Diagnostic{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s at %s", d.Kind, d.Message, d.Pos)
}

// Unwrap returns the sentinel error of the diagnostic class
func (d Diagnostic) Unwrap() error {
	switch d.Kind {
	case DiagLex:
		return ErrLex
	case DiagDirective:
		return ErrDirective
	case DiagRecognition:
		return ErrRecognition
	case DiagRedefinition:
		return ErrRedefinition
	}
	return nil
}

// Err joins all diagnostics into one error, or returns nil when there are none
func (t *Tree) Err() error {
	if len(t.Diagnostics) == 0 {
		return nil
	}
	errs := make([]error, len(t.Diagnostics))
	for i, d := range t.Diagnostics {
		errs[i] = d
	}
	return errors.Join(errs...)
}
