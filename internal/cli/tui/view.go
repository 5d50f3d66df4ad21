package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/haskel/benchfox/internal/benchmark"
	"github.com/haskel/benchfox/internal/progress"
)

// maxVisible is the number of result rows shown at once.
const maxVisible = 8

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sections []string

	sections = append(sections, m.renderTitleBar())

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	sections = append(sections, m.renderOllama())

	if m.state != nil {
		sections = append(sections, m.renderOperation())
	}

	if m.results != nil {
		sections = append(sections, m.renderResults())
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitleBar() string {
	title := titleStyle.Render("BENCHFOX DASHBOARD")

	refreshInfo := fmt.Sprintf("↻ %s", m.config.RefreshInterval)
	if m.loading {
		refreshInfo = "↻ loading..."
	}

	help := helpStyle.Render("q:quit r:refresh c:cancel ↑↓:scroll")

	rightPart := fmt.Sprintf("%s | %s", refreshInfo, help)
	spacing := m.width - lipgloss.Width(title) - lipgloss.Width(rightPart) - 2
	if spacing < 1 {
		spacing = 1
	}

	return fmt.Sprintf("%s%s%s", title, strings.Repeat(" ", spacing), helpStyle.Render(rightPart))
}

func (m Model) renderOllama() string {
	if m.status == nil {
		return labelStyle.Render("  Ollama: unknown")
	}

	color := colorSuccess
	if !m.status.OllamaAvailable {
		color = colorDanger
	}
	return fmt.Sprintf("  %s %s", labelStyle.Render("Ollama:"), lipgloss.NewStyle().Foreground(color).Render(m.status.Message))
}

func (m Model) renderOperation() string {
	st := m.state
	if st.Status == progress.StatusIdle {
		return sectionHeaderStyle.Render("  Idle") + helpStyle.Render("  nothing is running")
	}

	var lines []string

	status := lipgloss.NewStyle().Bold(true).Foreground(statusColor(st.Status)).Render(string(st.Status))
	lines = append(lines, fmt.Sprintf("  %s %s %s",
		sectionHeaderStyle.Render(strings.ToUpper(string(st.Operation))), status, helpStyle.Render(st.ID)))

	info := fmt.Sprintf("step %d/%d", st.Step, st.TotalSteps)
	if st.TotalBytes > 0 {
		info = fmt.Sprintf("%s / %s", humanize.Bytes(uint64(st.CompletedBytes)), humanize.Bytes(uint64(st.TotalBytes)))
	}
	lines = append(lines, fmt.Sprintf("  %s  %s", m.bar.ViewAs(st.Progress), valueStyle.Render(info)))

	if st.Message != "" {
		lines = append(lines, "  "+valueStyle.Render(st.Message))
	}
	if st.Error != "" {
		lines = append(lines, "  "+errorStyle.Render(st.Error))
	}
	if m.notice != "" && !st.Status.Terminal() {
		lines = append(lines, "  "+helpStyle.Render(m.notice))
	}

	return strings.Join(lines, "\n")
}

// resultRow is one model/prompt line of the results table.
type resultRow struct {
	model  string
	prompt string
	tps    benchmark.Statistics
	ttft   benchmark.Statistics
}

func (m Model) rows() []resultRow {
	if m.results == nil {
		return nil
	}

	var rows []resultRow
	sum := m.results.Statistics
	for _, model := range m.results.Request.Models {
		for _, prompt := range m.results.Request.Prompts {
			set := sum.PerModelPrompt[model][prompt]
			rows = append(rows, resultRow{
				model:  model,
				prompt: prompt,
				tps:    set[benchmark.MetricTokensPerSecond],
				ttft:   set[benchmark.MetricTimeToFirstToken],
			})
		}
	}
	return rows
}

func (m Model) renderResults() string {
	var lines []string
	lines = append(lines, sectionHeaderStyle.Render(fmt.Sprintf("  Results %s (%s)", m.results.ID, m.results.Status)))

	header := fmt.Sprintf("  %-22s │ %-16s │ %3s │ %16s │ %8s",
		"Model", "Prompt", "N", "Tokens/s", "TTFT")
	lines = append(lines, tableHeaderStyle.Render(header))

	rows := m.rows()
	start := min(m.tableOffset, max(len(rows)-1, 0))
	end := min(start+maxVisible, len(rows))

	for _, r := range rows[start:end] {
		model := r.model
		if len(model) > 22 {
			model = model[:19] + "..."
		}

		tps, ttft := "-", "-"
		if r.tps.Count > 0 {
			tps = fmt.Sprintf("%.1f ± %.1f", r.tps.Avg, r.tps.Stdev)
			ttft = fmt.Sprintf("%.3fs", r.ttft.Avg)
		}

		row := fmt.Sprintf("  %-22s │ %-16s │ %3d │ %16s │ %8s",
			model, r.prompt, r.tps.Count, tps, ttft)
		lines = append(lines, tableCellStyle.Render(row))
	}

	if len(rows) > maxVisible {
		lines = append(lines, helpStyle.Render(fmt.Sprintf("  [%d-%d of %d rows]", start+1, end, len(rows))))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	if m.lastUpdated.IsZero() {
		return ""
	}

	host := "-"
	if m.results != nil {
		host = m.results.SystemInfo.Name
	}

	return helpStyle.Render(fmt.Sprintf("  Host: %s │ Updated: %s", host, m.lastUpdated.Format("15:04:05")))
}
