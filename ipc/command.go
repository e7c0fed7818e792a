package ipc

import (
	"fmt"
	"strings"

	"rpi-imager-diskwriter/types"
)

// Command is a parsed command frame: a verb plus its ordered arguments.
// The verb uniquely determines arity and argument kinds (spec §3).
type Command struct {
	Verb types.Verb
	Args []string
}

// arity lists the expected argument count per verb, used by Parse to
// reject malformed commands (spec.md S4: "WRITE" with no arguments must
// fail cleanly, not panic on an out-of-range index).
var arity = map[types.Verb]int{
	types.VerbFormat:    1,
	types.VerbWrite:     2,
	types.VerbCustomize: 7,
	types.VerbVerify:    3,
	types.VerbShutdown:  0,
}

// ErrUnknownVerb is returned by Parse for a verb outside the fixed set.
// Per spec §4.6, an unknown verb yields FAILURE without leaving Ready —
// callers should treat this as a normal command failure, not a protocol
// violation.
var ErrUnknownVerb = fmt.Errorf("unknown command verb")

// ErrWrongArity is returned by Parse when a known verb has the wrong
// number of arguments.
var ErrWrongArity = fmt.Errorf("wrong argument count for verb")

// Build renders a Command to its wire text: `VERB "arg1" "arg2" ...`.
// Arguments are quote-delimited with backslash escapes for embedded quotes
// and backslashes, per spec §3/§6.
func Build(verb types.Verb, args ...string) string {
	var b strings.Builder
	b.WriteString(string(verb))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteByte('"')
		b.WriteString(escape(a))
		b.WriteByte('"')
	}
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Parse tokenizes command wire text into a Command, respecting quoting
// and backslash escapes, and validates verb/arity per spec §3.
//
// This replaces the ad hoc, hand-rolled parser the original helper used
// (spec.md Design Note 9(b)) with a small tokenizer that is exhaustively
// unit tested; the on-the-wire grammar itself is unchanged.
func Parse(text string) (Command, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return Command{}, err
	}
	if len(tokens) == 0 {
		return Command{}, fmt.Errorf("%w: empty command", ErrUnknownVerb)
	}

	verb := types.Verb(tokens[0])
	want, ok := arity[verb]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownVerb, tokens[0])
	}
	args := tokens[1:]
	if len(args) != want {
		return Command{}, fmt.Errorf("%w: %s wants %d argument(s), got %d", ErrWrongArity, verb, want, len(args))
	}
	return Command{Verb: verb, Args: args}, nil
}

// tokenize splits command text into the leading bare verb token followed
// by quote-delimited arguments. Only double-quoted arguments are
// recognized; a backslash escapes the following character inside quotes.
func tokenize(text string) ([]string, error) {
	var tokens []string
	i := 0
	n := len(text)

	// Skip leading whitespace, read the bare verb up to the first space
	// or end of string.
	for i < n && text[i] == ' ' {
		i++
	}
	start := i
	for i < n && text[i] != ' ' {
		i++
	}
	if start == i {
		return nil, nil
	}
	tokens = append(tokens, text[start:i])

	for i < n {
		for i < n && text[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}
		if text[i] != '"' {
			return nil, fmt.Errorf("malformed command: expected quoted argument at byte %d", i)
		}
		i++ // skip opening quote
		var arg strings.Builder
		closed := false
		for i < n {
			c := text[i]
			if c == '\\' && i+1 < n {
				arg.WriteByte(text[i+1])
				i += 2
				continue
			}
			if c == '"' {
				closed = true
				i++
				break
			}
			arg.WriteByte(c)
			i++
		}
		if !closed {
			return nil, fmt.Errorf("malformed command: unterminated quoted argument")
		}
		tokens = append(tokens, arg.String())
	}
	return tokens, nil
}
