package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DefaultEventName is shown when no event name is configured
const DefaultEventName = "Hacktoberfest 2025"

// IntroResponse is the landing view with the event rules
type IntroResponse struct {
	Title         string     `json:"title"`
	Welcome       string     `json:"welcome"`
	GitCommands   []string   `json:"gitCommands"`
	Rules         []string   `json:"rules"`
	WhyItMatters  []string   `json:"whyItMatters"`
	QualifyingPRs int        `json:"qualifyingPrs"`
	Links         IntroLinks `json:"links"`
}

// IntroLinks points at the next steps
type IntroLinks struct {
	Leaderboard string `json:"leaderboard"`
	Register    string `json:"register"`
}

// IntroHandler serves the event introduction
type IntroHandler struct {
	eventName     string
	qualifyingPRs int
}

// NewIntroHandler creates a new IntroHandler
func NewIntroHandler(eventName string, qualifyingPRs int) *IntroHandler {
	if eventName == "" {
		eventName = DefaultEventName
	}
	return &IntroHandler{eventName: eventName, qualifyingPRs: qualifyingPRs}
}

// GetIntro handles GET /intro
func (h *IntroHandler) GetIntro(c echo.Context) error {
	return c.JSON(http.StatusOK, IntroResponse{
		Title:   h.eventName + " - Get started",
		Welcome: "Welcome! Learn a few git commands and how to contribute to open source.",
		GitCommands: []string{
			"git clone <repo-url>",
			"git checkout -b fix/my-issue",
			"git add .",
			`git commit -m "fix: ..."`,
			"git push origin fix/my-issue",
		},
		Rules: []string{
			fmt.Sprintf("Contribute %d valid pull requests (PRs). All %d will be checked and verified.", h.qualifyingPRs, h.qualifyingPRs),
			"No cheating: fake PRs, trivial/spam changes, or automated mass PRs will be rejected and will disqualify the submitter.",
			"Only contribute to repositories that are actively accepting PRs and that mention hacktoberfest2025 or hacktoberfest (check repo description/labels).",
			"A PR is only counted when it is reviewed/accepted by the repository maintainer.",
		},
		WhyItMatters: []string{
			"Accepted PRs can earn Holopin badges which make your GitHub profile stand out.",
			"Genuine open-source contributions are a strong resume point.",
			"PRs and accounts are verified before certificates are issued; the top contributor prize is awarded after verification.",
		},
		QualifyingPRs: h.qualifyingPRs,
		Links: IntroLinks{
			Leaderboard: "/api/v1/leaderboard",
			Register:    "/api/v1/registrations",
		},
	})
}
