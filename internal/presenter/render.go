package presenter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"relationshipai/apps/backend/internal/analysis"
)

const safetyNoticeText = "This situation may require professional support. Consider reaching out to a licensed therapist or counselor who can provide personalized guidance."

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1).
			Width(78)
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	successStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	criticalStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("160")).
			Padding(0, 1)
	warningPanelStyle = panelStyle.BorderForeground(lipgloss.Color("203"))
)

// Render draws a View for a terminal. Only the panels listed in the View are drawn.
func Render(view View) string {
	var sections []string

	if view.Loading {
		sections = append(sections, mutedStyle.Render("Analyzing..."))
	}
	if view.Notice != nil {
		sections = append(sections, renderNotice(*view.Notice))
	}
	if view.Analysis != nil {
		for _, panel := range view.Panels {
			if out := renderPanel(panel, *view.Analysis); out != "" {
				sections = append(sections, out)
			}
		}
	}
	return strings.Join(sections, "\n")
}

func renderNotice(n Notice) string {
	switch n.Level {
	case LevelCritical:
		out := criticalStyle.Render(n.Title)
		if n.Description != "" {
			out += "\n" + errorStyle.Render(n.Description)
		}
		return out
	case LevelError:
		return errorStyle.Render(n.Title)
	default:
		return successStyle.Render(n.Title)
	}
}

func renderPanel(panel Panel, resp analysis.Response) string {
	switch panel {
	case PanelEmotion:
		badges := []string{resp.Emotion.PrimaryEmotion}
		if resp.Emotion.SecondaryEmotion != "" {
			badges = append(badges, resp.Emotion.SecondaryEmotion)
		}
		badges = append(badges, resp.Context.RiskLevel+" risk", resp.Context.Topic)
		return panelStyle.Render(lines(
			headingStyle.Render("Emotional Analysis"),
			resp.Emotion.Explanation,
			mutedStyle.Render(fmt.Sprintf("[%s]  intensity %.0f%%", strings.Join(badges, "] ["), resp.Emotion.Intensity*100)),
		))
	case PanelContext:
		return panelStyle.Render(lines(
			headingStyle.Render("Situation Summary"),
			resp.Context.Summary,
			labelStyle.Render("Goal: ")+humanize(resp.Context.UserGoal),
		))
	case PanelMessages:
		return panelStyle.Render(lines(
			headingStyle.Render("Message Suggestions"),
			labelStyle.Render("Soft & Caring"),
			resp.Messages.SoftMessage,
			labelStyle.Render("Honest & Direct"),
			resp.Messages.HonestMessage,
			labelStyle.Render("Repair & Connect"),
			resp.Messages.RepairMessage,
		))
	case PanelActions:
		items := []string{headingStyle.Render("Suggested Actions")}
		for _, action := range resp.Actions {
			items = append(items, labelStyle.Render(humanize(action.ActionType))+": "+action.Description)
		}
		return panelStyle.Render(lines(items...))
	case PanelIdentity:
		return panelStyle.Render(lines(
			headingStyle.Render("Your Growth Journey"),
			labelStyle.Render("Identity Shift"),
			resp.Identity.IdentityShiftMessage,
			labelStyle.Render("Affirmation"),
			resp.Identity.SelfGrowthAffirmation,
		))
	case PanelSafetyNotice:
		return warningPanelStyle.Render(lines(
			errorStyle.Render("Important Notice"),
			safetyNoticeText,
		))
	default:
		return ""
	}
}

func lines(parts ...string) string {
	return strings.Join(parts, "\n")
}

func humanize(enum string) string {
	return strings.ReplaceAll(enum, "_", " ")
}
