package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/rotorpool/internal/domain"
	"github.com/bnema/rotorpool/internal/scheduler"
)

const barWidth = 24

type RenderOptions struct {
	Now time.Time
}

func renderView(pool scheduler.PoolStatus, accounts []domain.Account, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Compute Pool"),
		s.header.Render(fmt.Sprintf("accounts: %d  eligible: %d  %s", pool.TotalAccounts, pool.EligibleCount, availabilityLabel(pool, s))),
	}

	if len(accounts) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, acc := range accounts {
		lines = append(lines, s.section.Render(renderAccount(pool, acc, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func availabilityLabel(pool scheduler.PoolStatus, s styles) string {
	if !pool.IsPoolAvailable {
		return s.critical.Render("pool unavailable")
	}
	if pool.EmergencyActive {
		return s.warning.Render("emergency account active")
	}
	return "available"
}

func renderAccount(pool scheduler.PoolStatus, acc domain.Account, opts RenderOptions, s styles) string {
	parts := []string{
		s.account.Render(accountTitle(pool, acc)),
		quotaLine(acc, s),
		statusLine(acc, opts, s),
	}
	if telemetry := telemetryLine(acc, s); telemetry != "" {
		parts = append(parts, telemetry)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func accountTitle(pool scheduler.PoolStatus, acc domain.Account) string {
	title := fmt.Sprintf("%s (%s)", acc.Name, acc.ID)
	if acc.Tier != "" {
		title += " · " + domain.TierClassification(acc.Tier)
	}
	if acc.Emergency {
		title += " · emergency"
	}
	if pool.ActiveAccountID == acc.ID {
		title += " · ACTIVE"
	}
	if !acc.Enabled {
		title += " · disabled"
	}
	return title
}

func quotaLine(acc domain.Account, s styles) string {
	pctUsed := acc.PercentUsed()
	filled := int(math.Round(pctUsed / 100 * barWidth))
	if filled > barWidth {
		filled = barWidth
	}

	bar := s.barBracket.Render("[") +
		s.barFill.Render(strings.Repeat("█", filled)) +
		s.barEmpty.Render(strings.Repeat("░", barWidth-filled)) +
		s.barBracket.Render("]")

	return fmt.Sprintf("  %s %s %s",
		s.statusKey.Render("quota:"),
		bar,
		s.barText.Render(fmt.Sprintf("%.0f%% used, %s left", pctUsed, compactDuration(acc.Remaining()))))
}

func statusLine(acc domain.Account, opts RenderOptions, s styles) string {
	label := string(acc.Status)
	style := s.detail
	switch acc.Status {
	case domain.StatusCooldown:
		style = s.warning
		if !acc.CooldownUntil.IsZero() && !opts.Now.IsZero() {
			label += fmt.Sprintf(" (%s left)", compactDuration(acc.CooldownUntil.Sub(opts.Now)))
		}
	case domain.StatusError, domain.StatusSuspended:
		style = s.critical
		if acc.LastError != "" {
			label += ": " + acc.LastError
		}
	case domain.StatusRunning:
		if !acc.SessionStart.IsZero() && !opts.Now.IsZero() {
			label += fmt.Sprintf(" (session %s)", compactDuration(acc.SessionDuration(opts.Now)))
		}
	}

	meta := fmt.Sprintf("priority %d · %d sessions · %.0f%% success", acc.Priority, acc.SessionCount, acc.SuccessRate()*100)
	return fmt.Sprintf("  %s %s  %s", s.statusKey.Render("status:"), style.Render(label), s.meta.Render(meta))
}

func telemetryLine(acc domain.Account, s styles) string {
	if acc.Telemetry == nil {
		return ""
	}
	return fmt.Sprintf("  %s %s", s.statusKey.Render("node:"),
		s.meta.Render(fmt.Sprintf("mem %d/%d MB · util %.0f%%",
			acc.Telemetry.MemoryUsedMB, acc.Telemetry.MemoryTotalMB, acc.Telemetry.Utilization*100)))
}

func compactDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh%02dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
