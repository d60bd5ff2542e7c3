package capture

import "strings"

// maxLabelLength bounds sanitized labels so artifact names stay readable.
const maxLabelLength = 48

// reservedLabels are names that cannot be used as file stems on Windows.
var reservedLabels = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true,
	"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
	"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// SanitizeLabel derives an artifact label from an expression: non-identifier
// characters are replaced with underscores, runs collapse to one, the result
// is trimmed and truncated, and reserved names are avoided.
func SanitizeLabel(expression string) string {
	var b strings.Builder
	b.Grow(len(expression))

	lastUnderscore := false
	for _, r := range expression {
		if isIdentRune(r) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	label := strings.Trim(b.String(), "_")
	if len(label) > maxLabelLength {
		label = strings.Trim(label[:maxLabelLength], "_")
	}

	if label == "" {
		return "capture"
	}
	if label[0] >= '0' && label[0] <= '9' {
		label = "_" + label
	}
	if reservedLabels[strings.ToLower(label)] {
		label += "_capture"
	}

	return label
}
