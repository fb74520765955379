package rubrics

import "strings"

const defaultTitle = "Rúbrica"

// Text renders r as the plain-text rubric block of the generic prompt. Multi-criterion rubrics list
// the configured achievement labels first, in order, then any other levels the criterion describes.
// The no-rubric state renders as "".
func Text(r Rubric, labels []string) string {
	switch r.Kind() {
	case KindLeveled:
		l, _ := r.Leveled()

		lines := []string{"Criterio: " + l.Criterion}
		for _, level := range l.Levels {
			lines = append(lines, "- "+level.Label+": "+level.Description)
		}

		return strings.Join(lines, "\n")
	case KindMultiCriterion:
		m, _ := r.MultiCriterion()

		title := m.Title
		if title == "" {
			title = defaultTitle
		}

		lines := []string{title}

		for _, c := range m.Criteria {
			lines = append(lines, "", "Criterio: "+c.Name)
			lines = append(lines, criterionLines(c, labels)...)
		}

		return strings.Join(lines, "\n")
	case KindNone:
		return ""
	default:
		return ""
	}
}

func criterionLines(c Criterion, labels []string) []string {
	var lines []string

	seen := make(map[string]bool, len(labels))

	for _, label := range labels {
		seen[label] = true

		if desc, ok := c.Description(label); ok {
			lines = append(lines, "- "+label+": "+desc)
		}
	}

	for _, l := range c.Levels {
		if !seen[l.Label] {
			lines = append(lines, "- "+l.Label+": "+l.Description)
		}
	}

	return lines
}
