package modlog

import (
	"time"
)

func testConfig() *Config {
	config := &Config{Name: "testsub", Enabled: true}
	applyDefaults(config)
	return config
}

// testActions spans two UTC days and includes a removal later approved.
func testActions() []Action {
	return []Action{
		{
			ActionID:        "ModAction_1",
			Subreddit:       "testsub",
			ActionType:      "removecomment",
			Kind:            KindFilterRemoval,
			Moderator:       "AutoModerator",
			TargetID:        "c1",
			TargetKind:      TargetComment,
			TargetTitle:     "Hello world",
			TargetPermalink: "/r/testsub/comments/p1/hello_world/c1/",
			RemovalReason:   "Rule 2: spam",
			CreatedAt:       time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC).Unix(),
		},
		{
			ActionID:        "ModAction_2",
			Subreddit:       "testsub",
			ActionType:      "approvecomment",
			Kind:            KindApproval,
			Moderator:       "alice",
			TargetID:        "c1",
			TargetKind:      TargetComment,
			TargetTitle:     "Hello world",
			TargetPermalink: "/r/testsub/comments/p1/hello_world/c1/",
			CreatedAt:       time.Date(2024, 3, 10, 8, 30, 15, 0, time.UTC).Unix(),
		},
		{
			ActionID:        "ModAction_3",
			Subreddit:       "testsub",
			ActionType:      "removelink",
			Kind:            KindRemoval,
			Moderator:       "alice",
			TargetID:        "p2",
			TargetKind:      TargetPost,
			TargetAuthor:    "bob",
			TargetTitle:     "A [B]",
			TargetPermalink: "/r/testsub/comments/p2/a_b/",
			RemovalReason:   "Off topic",
			CreatedAt:       time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC).Unix(),
		},
	}
}
