package models

// Tokens is the session credential pair. The two fields are always written
// and cleared together.
type Tokens struct {
	Access  string
	Refresh string
}

// Empty reports whether neither token is present.
func (t Tokens) Empty() bool {
	return t.Access == "" && t.Refresh == ""
}
