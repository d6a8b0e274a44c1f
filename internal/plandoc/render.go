package plandoc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/phased/internal/workflow"
)

// Machine-readable markers. These are the only persisted structure that
// external tooling may rely on.
const (
	workflowMarkerFmt = "<!-- phased:workflow:%s -->"
	phaseMarkerFmt    = "<!-- phased:phase:%s -->"
	taskMarkerFmt     = "<!-- phased:tasks:%s -->"
)

var (
	phaseMarkerRe = regexp.MustCompile(`<!-- phased:phase:([^ ]+) -->`)
	taskMarkerRe  = regexp.MustCompile(`<!-- phased:tasks:([^ ]+) -->`)
)

// PhaseMarker renders the machine-readable marker for a phase section.
func PhaseMarker(id workflow.PhaseID) string {
	return fmt.Sprintf(phaseMarkerFmt, id)
}

// TaskMarker renders the backend task-id marker for a delegated section.
func TaskMarker(taskID string) string {
	return fmt.Sprintf(taskMarkerFmt, taskID)
}

// renderInitial builds the initial plan document. sectionBody supplies the
// strategy-specific body below each phase marker.
func renderInitial(def *workflow.Definition, projectPath, branch string, sectionBody func(*workflow.Phase) string) string {
	var b strings.Builder

	b.WriteString("# Development Plan\n\n")
	b.WriteString(fmt.Sprintf(workflowMarkerFmt, def.Name))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Project: %s\n", projectPath)
	fmt.Fprintf(&b, "Branch: %s\n", branch)
	fmt.Fprintf(&b, "Workflow: %s\n\n", def.Name)

	b.WriteString("## Goal\n\n_Describe the goal of this work unit._\n\n")
	b.WriteString("## Key Decisions\n\n_Record decisions and their rationale as they are made._\n\n")
	b.WriteString("## Phases\n\n")

	for _, id := range def.PhaseOrder() {
		phase := def.Phases[id]
		fmt.Fprintf(&b, "### %s\n\n", headingFor(id))
		b.WriteString(PhaseMarker(id))
		b.WriteString("\n")
		if phase.Description != "" {
			fmt.Fprintf(&b, "\n_%s_\n", phase.Description)
		}
		if body := sectionBody(phase); body != "" {
			b.WriteString("\n")
			b.WriteString(body)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Notes\n\n")
	return b.String()
}

// headingFor turns a phase ID into a section heading.
func headingFor(id workflow.PhaseID) string {
	s := strings.ReplaceAll(string(id), "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// phaseSection locates the byte range of a phase's section: from the end
// of its phase marker to the start of the next phase marker (or the end of
// the document). Returns ok=false when the phase has no marker.
func phaseSection(content string, phase workflow.PhaseID) (start, end int, ok bool) {
	markers := phaseMarkerRe.FindAllStringSubmatchIndex(content, -1)
	for i, m := range markers {
		if workflow.PhaseID(content[m[2]:m[3]]) != phase {
			continue
		}
		start = m[1]
		end = len(content)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		return start, end, true
	}
	return 0, 0, false
}

// PhaseTaskID extracts the backend task ID recorded in a phase's section.
// Returns "" when the section has no task marker or still carries the
// pending placeholder.
func PhaseTaskID(content string, phase workflow.PhaseID) string {
	start, end, ok := phaseSection(content, phase)
	if !ok {
		return ""
	}
	m := taskMarkerRe.FindStringSubmatch(content[start:end])
	if m == nil || m[1] == "TBD" {
		return ""
	}
	return m[1]
}

// SetPhaseTaskID replaces the task marker in a phase's section with the
// given backend task ID. The bool reports whether a marker was replaced.
func SetPhaseTaskID(content string, phase workflow.PhaseID, taskID string) (string, bool) {
	start, end, ok := phaseSection(content, phase)
	if !ok {
		return content, false
	}
	section := content[start:end]
	if !taskMarkerRe.MatchString(section) {
		return content, false
	}
	updated := taskMarkerRe.ReplaceAllString(section, TaskMarker(taskID))
	return content[:start] + updated + content[end:], true
}
