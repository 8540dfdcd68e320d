package modlog

import (
	"strings"
)

const (
	AutomationLabel = "AutoModerator"
	HumanLabel      = "HumanModerator"
)

// DefaultAutomationAccounts are reddit-operated or bot principals whose actions
// count as automated filter actions. Partitions may add more.
var DefaultAutomationAccounts = []string{
	"AutoModerator",
	"reddit",
	"Reddit Legal",
	"Anti-Evil Operations",
}

// ModeratorDisplay maps stored moderator names to the names shown in rendered
// documents.
type ModeratorDisplay struct {
	anonymize  bool
	automation map[string]bool
}

func NewModeratorDisplay(config *Config) *ModeratorDisplay {
	return &ModeratorDisplay{
		anonymize:  config.Settings.AnonymizeModerators,
		automation: automationSet(config),
	}
}

func (d *ModeratorDisplay) IsAutomation(moderator string) bool {
	return d.automation[strings.ToLower(moderator)]
}

// Label returns the display name for a moderator. Automation accounts always map
// to AutomationLabel; humans map to HumanLabel only when anonymization is on.
func (d *ModeratorDisplay) Label(moderator string) string {
	if d.IsAutomation(moderator) {
		return AutomationLabel
	}
	if d.anonymize {
		return HumanLabel
	}
	return moderator
}

func automationSet(config *Config) map[string]bool {
	accounts := append([]string(nil), DefaultAutomationAccounts...)
	if config != nil {
		accounts = append(accounts, config.Settings.AutomationAccounts...)
	}
	return toSet(accounts)
}
