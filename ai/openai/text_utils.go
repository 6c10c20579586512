package openai

import "strings"

// cleanQuestion keeps the first non-empty line of a model answer and strips
// quoting and list markers the model may add.
func cleanQuestion(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. ")
		line = strings.Trim(line, "\"'`“”「」 ")
		if line != "" {
			return line
		}
	}
	return ""
}
