package repository

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a LIKE pattern matching term as a literal substring.
// Backslash is the escape character.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
