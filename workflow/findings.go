package workflow

import "strings"

// Severity classifies a review finding.
type Severity string

const (
	// SeverityBlocker findings must be fixed before the change ships.
	SeverityBlocker Severity = "blocker"
	// SeverityTechDebt findings are worth fixing later.
	SeverityTechDebt Severity = "tech-debt"
	// SeveritySkippable findings are stylistic or informational.
	SeveritySkippable Severity = "skippable"
)

// Finding is a single classified review observation.
type Finding struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// ParseFindings extracts findings from review output. Each finding is a
// line of the form "severity: description"; lines that don't match a
// known severity are ignored. An output of "no findings" yields none.
func ParseFindings(output string) []Finding {
	var findings []Finding
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line == "" {
			continue
		}
		sev, desc, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		severity := Severity(strings.ToLower(strings.TrimSpace(sev)))
		switch severity {
		case SeverityBlocker, SeverityTechDebt, SeveritySkippable:
		default:
			continue
		}
		desc = strings.TrimSpace(desc)
		if desc == "" {
			continue
		}
		findings = append(findings, Finding{Severity: severity, Description: desc})
	}
	return findings
}

// Blockers returns the descriptions of the blocker findings.
func Blockers(findings []Finding) []string {
	var out []string
	for _, f := range findings {
		if f.Severity == SeverityBlocker {
			out = append(out, f.Description)
		}
	}
	return out
}
