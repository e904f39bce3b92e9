// Package snippets generates the copy-paste integration code shown by
// the snippet command and the dashboard.
package snippets

import (
	"fmt"
	"strings"

	"github.com/labrat/labrat/internal/store"
)

// Generate returns the HTML/JS integration snippet for an experiment.
// For a completed experiment with a declared winner it returns static
// code that always uses the winning variant, with no tracking.
func Generate(exp *store.Experiment, serverURL string) string {
	if exp.Status == store.StatusCompleted && exp.WinnerVariant != nil {
		return generateStatic(exp)
	}
	return generateLive(exp, serverURL)
}

func generateLive(exp *store.Experiment, serverURL string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<!-- labrat: %s -->\n", exp.Name)
	fmt.Fprintf(&b, "<script src=\"%s/lr.js\" defer></script>\n", serverURL)
	b.WriteString("<script>\n")
	b.WriteString("window.addEventListener('load', function () {\n")
	fmt.Fprintf(&b, "  labrat.experiment(%q, function (variant) {\n", exp.ID)
	b.WriteString("    // variant is one of: " + strings.Join(exp.Variants, ", ") + "\n")
	b.WriteString("    // Render the treatment for the assigned variant here.\n")
	b.WriteString("  });\n")
	b.WriteString("});\n")
	fmt.Fprintf(&b, "// Call this when the user completes %q:\n", exp.GoalEvent)
	fmt.Fprintf(&b, "// labrat.convert(%q);\n", exp.ID)
	b.WriteString("</script>\n")

	return b.String()
}

func generateStatic(exp *store.Experiment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<!-- labrat: %s (completed) -->\n", exp.Name)
	fmt.Fprintf(&b, "<!-- Winner: %s. Hard-code this variant and remove the tracker. -->\n", *exp.WinnerVariant)

	return b.String()
}
