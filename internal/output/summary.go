// Package output renders run results for the console.
package output

import (
	"fmt"

	"github.com/tyemirov/combine/internal/concat"
	"github.com/tyemirov/combine/internal/utils"
)

const (
	summaryLineFormat  = "Summary: %d %s, %s%s%s"
	tokensSuffixFormat = ", %d %s"
	modelSuffixFormat  = " (model: %s)"
	binaryNoticeFormat = "%d %s looked binary; decoded best-effort"
	singularFileLabel  = "file"
	pluralFileLabel    = "files"
	singularTokenLabel = "token"
	pluralTokenLabel   = "tokens"
)

// FormatSummaryLine describes a run in one line: file count, content size and, when counted, tokens.
func FormatSummaryLine(summary concat.Summary) string {
	tokensSuffix := ""
	if summary.Tokens > 0 {
		tokensSuffix = fmt.Sprintf(tokensSuffixFormat, summary.Tokens, countLabel(summary.Tokens, singularTokenLabel, pluralTokenLabel))
	}
	modelSuffix := ""
	if summary.Model != "" {
		modelSuffix = fmt.Sprintf(modelSuffixFormat, summary.Model)
	}
	return fmt.Sprintf(summaryLineFormat, summary.Files, countLabel(summary.Files, singularFileLabel, pluralFileLabel), utils.FormatFileSize(summary.Bytes), tokensSuffix, modelSuffix)
}

// FormatBinaryNotice returns the note printed when included files looked binary, or "" when none did.
func FormatBinaryNotice(summary concat.Summary) string {
	if summary.Binary == 0 {
		return ""
	}
	return fmt.Sprintf(binaryNoticeFormat, summary.Binary, countLabel(summary.Binary, singularFileLabel, pluralFileLabel))
}

func countLabel(count int, singular string, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}
