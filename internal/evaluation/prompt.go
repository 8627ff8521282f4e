package evaluation

import (
	_ "embed"
	"strings"
)

//go:embed prompt.md
var promptTemplate string

// BuildPrompt renders the evaluation prompt for a request. The CV and job
// description are embedded verbatim; the replacer's single pass guarantees
// placeholder-looking text inside them is never expanded.
func BuildPrompt(req *Request) string {
	requirements := "- none"
	if items := compactList(req.DomainRequirements); len(items) > 0 {
		var builder strings.Builder
		for i, item := range items {
			if i > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString("- ")
			builder.WriteString(item)
		}
		requirements = builder.String()
	}

	replacer := strings.NewReplacer(
		"{{DOMAIN_REQUIREMENTS}}", requirements,
		"{{JOB_DESCRIPTION}}", strings.TrimSpace(req.JobDescription),
		"{{CV}}", strings.TrimSpace(req.CV),
	)

	return replacer.Replace(promptTemplate)
}

func compactList(items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
