package modlog

import (
	"strings"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run keeps the records whose action type is tracked by the partition and whose
// moderator is not ignored. The second return value counts skipped records.
func (f *Filterer) Run(actions []RawAction, config *Config) ([]RawAction, int) {
	tracked := toSet(config.Settings.WikiActions)
	ignored := toSet(config.Settings.IgnoredModerators)

	kept := make([]RawAction, 0, len(actions))
	for _, action := range actions {
		if !tracked[strings.ToLower(action.Action)] {
			continue
		}
		if ignored[strings.ToLower(action.Moderator)] {
			continue
		}
		kept = append(kept, action)
	}

	return kept, len(actions) - len(kept)
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}
