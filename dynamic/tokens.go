package dynamic

import "strings"

// ParseTokens scans text for openTok...closeTok tokens and replaces each
// one with the handler's result. A backslash escapes an opening token and
// is dropped; an unterminated token is kept as literal text.
func ParseTokens(text, openTok, closeTok string, handle func(content string) string) string {
	start := strings.Index(text, openTok)
	if start == -1 {
		return text
	}
	var out strings.Builder
	var expr strings.Builder
	offset := 0
	for start > -1 {
		if start > 0 && text[start-1] == '\\' {
			out.WriteString(text[offset : start-1])
			out.WriteString(openTok)
			offset = start + len(openTok)
		} else {
			expr.Reset()
			out.WriteString(text[offset:start])
			offset = start + len(openTok)
			end := indexFrom(text, closeTok, offset)
			for end > -1 {
				if end > offset && text[end-1] == '\\' {
					// escaped closer belongs to the expression
					expr.WriteString(text[offset : end-1])
					expr.WriteString(closeTok)
					offset = end + len(closeTok)
					end = indexFrom(text, closeTok, offset)
				} else {
					expr.WriteString(text[offset:end])
					break
				}
			}
			if end == -1 {
				out.WriteString(text[start:])
				offset = len(text)
			} else {
				out.WriteString(handle(expr.String()))
				offset = end + len(closeTok)
			}
		}
		start = indexFrom(text, openTok, offset)
	}
	if offset < len(text) {
		out.WriteString(text[offset:])
	}
	return out.String()
}

func indexFrom(s, sub string, from int) int {
	if from >= len(s) {
		return -1
	}
	i := strings.Index(s[from:], sub)
	if i == -1 {
		return -1
	}
	return from + i
}
