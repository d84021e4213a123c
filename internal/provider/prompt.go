package provider

import "strings"

// Instructions used when the caller leaves one blank.
const (
	DefaultSystemInstruction = "You are an AI assistant that helps extract information from documents."
	DefaultUserInstruction   = "Please extract information from this document:"
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeLineEndings converts CRLF and lone CR to LF. It is idempotent.
func NormalizeLineEndings(s string) string {
	return lineEndings.Replace(s)
}

// Instructions returns the normalized system and user instructions, substituting the
// defaults for blank values.
func Instructions(system, user string) (string, string) {
	if strings.TrimSpace(system) == "" {
		system = DefaultSystemInstruction
	}
	if strings.TrimSpace(user) == "" {
		user = DefaultUserInstruction
	}
	return NormalizeLineEndings(system), NormalizeLineEndings(user)
}

// InlineUserContent joins the user instruction and the extracted document text.
func InlineUserContent(user, documentText string) string {
	return user + "\n\n" + NormalizeLineEndings(documentText)
}
