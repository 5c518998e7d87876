package agent

import (
	"os"
	"regexp"
	"strings"
)

// Intent is what a user utterance asks the session to do.
type Intent int

const (
	// IntentLoad means the utterance carries URLs or file paths to ingest.
	IntentLoad Intent = iota
	// IntentQuestion means the utterance is a question for the index.
	IntentQuestion
)

var urlRe = regexp.MustCompile(`https?://[^\s,]+`)

var loadableExts = map[string]bool{
	".pdf": true, ".docx": true, ".pptx": true, ".xlsx": true,
	".ods": true, ".txt": true, ".md": true,
}

// Classify routes an utterance without a model round trip: anything bearing
// http(s) URLs or paths to existing loadable files is a load request, and
// the extracted sources come back with it; everything else is a question.
func Classify(input string) (Intent, []string) {
	sources := urlRe.FindAllString(input, -1)

	for _, token := range splitTokens(input) {
		if isLoadableFile(token) {
			sources = append(sources, token)
		}
	}

	if len(sources) > 0 {
		return IntentLoad, sources
	}
	return IntentQuestion, nil
}

// splitTokens breaks the utterance on commas and whitespace.
func splitTokens(input string) []string {
	var tokens []string
	for _, part := range strings.Split(input, ",") {
		tokens = append(tokens, strings.Fields(part)...)
	}
	return tokens
}

func isLoadableFile(token string) bool {
	dot := strings.LastIndex(token, ".")
	if dot < 0 || !loadableExts[strings.ToLower(token[dot:])] {
		return false
	}
	info, err := os.Stat(token)
	return err == nil && !info.IsDir()
}
