package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"adgen/internal/api"
	"adgen/internal/stage"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func jobStatusKind(status string) statusKind {
	switch status {
	case "success":
		return statusOK
	case "failed":
		return statusError
	case "running":
		return statusWarn
	default:
		return statusInfo
	}
}

// renderJobView writes a job snapshot as a summary block plus a stage table.
func renderJobView(out io.Writer, view api.JobView, colorize bool) {
	for _, line := range renderSectionHeader("Job "+view.JobID, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", jobStatusKind(view.Status), view.Status, colorize))
	fmt.Fprintln(out, renderStatusLine("Progress", statusInfo, fmt.Sprintf("%d/%d", view.CurrentStep, len(stage.Order())), colorize))
	if view.Error != nil {
		step := ""
		if view.ErrorStep != nil {
			step = fmt.Sprintf("step %d: ", *view.ErrorStep)
		}
		fmt.Fprintln(out, renderStatusLine("Error", statusError, step+*view.Error, colorize))
	}
	if view.FinalImageURL != nil {
		fmt.Fprintln(out, renderStatusLine("Final image", statusOK, *view.FinalImageURL, colorize))
	}

	rows := make([][]string, 0, len(view.Steps))
	for i, name := range stage.Order() {
		st, ok := view.Steps[name]
		if !ok {
			continue
		}
		detail := st.ResultURL
		if st.Error != "" {
			detail = st.Error
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), stage.Label(name), st.Status, detail})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Stage", "Status", "Result"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
}

// renderProgressLine is the one-line form used while watching a job.
func renderProgressLine(view api.JobView, colorize bool) string {
	current := ""
	if view.CurrentStep > 0 && view.CurrentStep <= len(stage.Order()) {
		name := stage.Order()[view.CurrentStep-1]
		current = fmt.Sprintf("%s (%s)", stage.Label(name), view.Steps[name].Status)
	}
	line := fmt.Sprintf("[%d/%d] %-8s %s", view.CurrentStep, len(stage.Order()), view.Status, current)
	if colorize {
		if color := statusKindColor(jobStatusKind(view.Status)); color != "" {
			return color + line + ansiReset
		}
	}
	return line
}
