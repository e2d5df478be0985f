package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"guardian/pkg/guardian"
	"guardian/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Style definitions
var (
	primaryColor   = lipgloss.Color("#FF79C6") // Pink
	secondaryColor = lipgloss.Color("#8BE9FD") // Cyan
	accentColor    = lipgloss.Color("#50FA7B") // Green
	warningColor   = lipgloss.Color("#FFB86C") // Orange
	dangerColor    = lipgloss.Color("#FF5555") // Red
	mutedColor     = lipgloss.Color("#6272A4") // Comment
	bgLightColor   = lipgloss.Color("#44475A") // Current Line
	fgColor        = lipgloss.Color("#F8F8F2") // Foreground

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2).
			MarginBottom(1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(20)

	valueStyle = lipgloss.NewStyle().
			Foreground(fgColor).
			Bold(true)

	accentValueStyle = lipgloss.NewStyle().
				Foreground(accentColor).
				Bold(true)

	warningValueStyle = lipgloss.NewStyle().
				Foreground(warningColor).
				Bold(true)

	dangerValueStyle = lipgloss.NewStyle().
				Foreground(dangerColor).
				Bold(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor).
			Background(bgLightColor).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	iconStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true).
			MarginRight(1)
)

// createPanel creates a styled panel with title and content
func createPanel(title, icon, content string, width int) string {
	panel := panelStyle
	if width > 0 {
		panel = panel.Width(width)
	}

	titleLine := iconStyle.Render(icon) + titleStyle.Render(title)
	return panel.Render(lipgloss.JoinVertical(lipgloss.Left, titleLine, content))
}

type field struct {
	label string
	value string
	style lipgloss.Style
}

func renderFields(fields []field) string {
	var content strings.Builder
	for _, f := range fields {
		content.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(f.label+":"), f.style.Render(f.value)))
	}
	return strings.TrimSpace(content.String())
}

// printJSON writes v as indented JSON. Raw payloads are re-indented as is.
func printJSON(w io.Writer, v any) error {
	var data []byte
	switch raw := v.(type) {
	case json.RawMessage:
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}
		data = buf.Bytes()
	default:
		var err error
		data, err = json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}
	}
	_, err := fmt.Fprintln(w, string(data))
	return err
}

// output prints v as JSON under --json, otherwise the styled rendering.
func output(w io.Writer, v any, styled func() string) error {
	if jsonOutput {
		return printJSON(w, v)
	}
	_, err := fmt.Fprintln(w, styled())
	return err
}

// rawPanel shows an opaque payload as indented JSON inside a panel.
func rawPanel(title, icon string, raw json.RawMessage) string {
	if len(raw) == 0 {
		return createPanel(title, icon, mutedStyle.Render("(empty)"), 0)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return createPanel(title, icon, string(raw), 0)
	}
	return createPanel(title, icon, buf.String(), 0)
}

func renderStatus(endpoint string, status *guardian.StatusResponse) string {
	online, total := status.GuardiansOnline()

	fields := []field{
		{"Endpoint", endpoint, valueStyle},
		{"Server", string(status.Server), getPhaseStyle(status.Server)},
	}
	if status.Consensus != nil {
		fields = append(fields,
			field{"Guardians Online", fmt.Sprintf("%d / %d", online, total), getHealthStyle(status.Health())},
			field{"Peers Flagged", fmt.Sprintf("%d", status.Consensus.PeersFlagged), getFlaggedStyle(status.Consensus.PeersFlagged)},
		)
	}

	return createPanel("GUARDIAN STATUS", "🛡", renderFields(fields), 60)
}

func renderAudit(summary *guardian.AuditSummary) string {
	fields := []field{
		{"Bitcoin", utils.FormatMsats(summary.WalletNetAssets()), accentValueStyle},
		{"Net Assets", utils.FormatSats(summary.NetAssets), getNetAssetsStyle(summary.NetAssets)},
	}

	content := renderFields(fields)
	if len(summary.ModuleSummaries) > 0 {
		t := newTable("MODULE", "KIND", "NET ASSETS")
		for _, name := range sortedKeys(summary.ModuleSummaries) {
			module := summary.ModuleSummaries[name]
			t.Row(name, module.Kind, utils.FormatSats(module.NetAssets))
		}
		content = lipgloss.JoinVertical(lipgloss.Left, content, "", t.Render())
	}

	return createPanel("AUDIT", "💰", content, 0)
}

func renderPeerHashes(hashes guardian.PeerHashMap) string {
	t := newTable("PEER", "CONFIG HASH")
	for _, peer := range sortedKeys(hashes) {
		t.Row(peer, hashes[peer])
	}
	return createPanel("CONFIG HASHES", "🔑", t.Render(), 0)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(bgLightColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return rowStyle.Foreground(fgColor)
		}).
		Headers(headers...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func getHealthStyle(health guardian.PeerHealth) lipgloss.Style {
	switch health {
	case guardian.HealthAll:
		return accentValueStyle
	case guardian.HealthQuorum:
		return warningValueStyle
	default:
		return dangerValueStyle
	}
}

func getPhaseStyle(phase guardian.ServerStatus) lipgloss.Style {
	switch phase {
	case guardian.ServerConsensusRunning, guardian.ServerVerifiedConfigs:
		return accentValueStyle
	case guardian.ServerConfigGenFailed:
		return dangerValueStyle
	case guardian.ServerUpgrading:
		return warningValueStyle
	}
	return valueStyle
}

func getFlaggedStyle(flagged int) lipgloss.Style {
	if flagged > 0 {
		return dangerValueStyle
	}
	return accentValueStyle
}

func getNetAssetsStyle(msats int64) lipgloss.Style {
	if msats < 0 {
		return dangerValueStyle
	}
	return valueStyle
}

func successLine(msg string) string {
	return accentValueStyle.Render("✓ ") + msg
}
