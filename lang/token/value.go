package token

// Value carries the token kind-independent payload produced by the scanner
// for a single token: its exact source position, the raw lexeme, and (for
// number and string tokens) the already-decoded value.
type Value struct {
	Pos Pos
	Raw string // exact source bytes of the lexeme

	Int   int64   // valid when the token is INT
	Float float64 // valid when the token is FLOAT
	Str   string  // valid when the token is STRING: the unescaped bytes
}
