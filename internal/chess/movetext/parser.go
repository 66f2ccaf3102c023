package movetext

import "strings"

// DefaultWildcard marks a ply that should branch over every legal move.
const DefaultWildcard = "__"

// Token is one ply of a parsed move string. Wildcard tokens carry the marker
// they were written with.
type Token struct {
	Move     string
	Wildcard bool
}

func (t Token) String() string { return t.Move }

// Fixed returns a token for a concrete move.
func Fixed(move string) Token { return Token{Move: move} }

// Any returns a wildcard token written as marker.
func Any(marker string) Token { return Token{Move: marker, Wildcard: true} }

// Parse converts "1. e4 e5 2. __ d5" into the ply-ordered token list
// [e4 e5 __ d5]. Move numbers are dropped; any token equal to wildcard becomes
// a wildcard token.
func Parse(s, wildcard string) []Token {
	fields := strings.Fields(s)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		if isMoveNumber(f) {
			continue
		}
		if f == wildcard {
			tokens = append(tokens, Any(wildcard))
			continue
		}
		tokens = append(tokens, Fixed(f))
	}
	return tokens
}

// StripResult drops trailing game-termination markers.
func StripResult(tokens []Token) []Token {
	end := len(tokens)
	for end > 0 {
		t := tokens[end-1]
		if t.Wildcard || !isResult(t.Move) {
			break
		}
		end--
	}
	return tokens[:end]
}

// Clean drops result markers and black move numbers such as "3..." so that
// only plies remain.
func Clean(tokens []Token) []Token {
	tokens = StripResult(tokens)
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if !t.Wildcard && isEllipsis(t.Move) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Moves returns the move texts of tokens, or ok=false when any token is a wildcard.
func Moves(tokens []Token) (moves []string, ok bool) {
	moves = make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Wildcard {
			return nil, false
		}
		moves = append(moves, t.Move)
	}
	return moves, true
}

func isMoveNumber(tok string) bool {
	digits, found := strings.CutSuffix(tok, ".")
	if !found || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isEllipsis(tok string) bool {
	digits, found := strings.CutSuffix(tok, "...")
	return found && strings.Trim(digits, "0123456789") == ""
}

func isResult(tok string) bool {
	switch tok {
	case "1-0", "0-1", "1/2-1/2", "*":
		return true
	}
	return false
}
