package tasks

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bakerboy448/RedditModLog/app/database"
	"github.com/bakerboy448/RedditModLog/app/modlog"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	pages    map[string]*modlog.Page
	errs     []error
	requests []modlog.PageRequest
}

func (f *fakeSource) FetchPage(ctx context.Context, req modlog.PageRequest) (*modlog.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}

	page, ok := f.pages[req.After]
	if !ok {
		return &modlog.Page{}, nil
	}
	return page, nil
}

func (f *fakeSource) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type writeCall struct {
	subreddit string
	page      string
	content   string
}

type fakeWriter struct {
	mu     sync.Mutex
	writes []writeCall
	errs   []error
	calls  int
}

func (f *fakeWriter) WritePage(ctx context.Context, subreddit, page, content, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	f.writes = append(f.writes, writeCall{subreddit: subreddit, page: page, content: content})
	return nil
}

func (f *fakeWriter) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

type fakeReader struct {
	content string
}

func (f *fakeReader) ReadPage(ctx context.Context, subreddit, page string) (string, error) {
	return f.content, nil
}

type testEnv struct {
	now       time.Time
	config    *modlog.Config
	source    *fakeSource
	writer    *fakeWriter
	actions   *database.ActionRepository
	states    *database.PublishStateRepository
	syncer    *Syncer
	publisher *Publisher
	pipeline  *Pipeline
}

func noSleepRetry() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		MaxDelay:   DefaultMaxDelay,
		Sleep:      func(context.Context, time.Duration) error { return nil },
	}
}

func testConfig() *modlog.Config {
	return &modlog.Config{
		Name:     "testsub",
		Enabled:  true,
		WikiPage: "modlog",
		Settings: modlog.ConfigSettings{
			BatchSize:     10,
			RetentionDays: 30,
			MaxEntries:    1000,
			SizeLimit:     modlog.DefaultSizeLimit,
			Timeout:       5,
			WikiActions:   modlog.DefaultWikiActions,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := database.Open(filepath.Join(t.TempDir(), "modlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		now:     time.Now().UTC().Truncate(time.Second),
		config:  testConfig(),
		source:  &fakeSource{pages: make(map[string]*modlog.Page)},
		writer:  &fakeWriter{},
		actions: database.NewActionRepository(store),
		states:  database.NewPublishStateRepository(store),
	}

	clock := func() time.Time { return env.now }

	env.syncer = NewSyncer(env.source, env.actions, noSleepRetry())
	env.syncer.now = clock
	env.publisher = NewPublisher(env.actions, env.states, env.writer, noSleepRetry())
	env.publisher.now = clock
	env.pipeline = NewPipeline(env.syncer, env.actions, env.publisher)

	return env
}

// raw builds a post removal created ago before the test clock.
func (e *testEnv) raw(id string, ago time.Duration) modlog.RawAction {
	return modlog.RawAction{
		ID:              "ModAction_" + id,
		Action:          "removelink",
		Moderator:       "alice",
		Subreddit:       "testsub",
		CreatedUTC:      e.now.Add(-ago).Unix(),
		Details:         "Rule 1",
		TargetFullname:  "t3_" + id,
		TargetPermalink: "/r/testsub/comments/" + id + "/title/",
		TargetTitle:     "Post " + id,
	}
}

func (e *testEnv) count(t *testing.T) int {
	t.Helper()
	n, err := e.actions.Count(context.Background(), "testsub")
	require.NoError(t, err)
	return n
}
