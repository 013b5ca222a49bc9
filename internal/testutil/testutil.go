// Package testutil provides shared test helpers for databases, local stores,
// signed-in users and a scripted AI gateway.
package testutil

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/starford/resummarize/internal/ai"
	"github.com/starford/resummarize/internal/auth"
	"github.com/starford/resummarize/internal/db"
	"github.com/starford/resummarize/internal/models"
	"github.com/starford/resummarize/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *db.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "resummarize-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	d, err := db.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// TestStore creates a temporary local store directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestUser creates a user in d and returns it with a context carrying it.
func TestUser(t *testing.T, d *db.DB, email string) (context.Context, *models.User) {
	t.Helper()
	u, err := d.CreateUser(context.Background(), email, "", auth.ProviderEmail)
	if err != nil {
		t.Fatal(err)
	}
	return auth.WithUser(context.Background(), u), u
}

// FakeAI is a scripted ai.Gateway. Replies are served in order; once they
// run out the last one repeats. Err, when set, fails every call.
type FakeAI struct {
	mu        sync.Mutex
	replies   []string
	err       error
	calls     int
	prompts   []string
	histories [][]ai.Turn
	block     chan struct{}
}

// NewFakeAI returns a configured fake that answers with replies.
func NewFakeAI(replies ...string) *FakeAI {
	return &FakeAI{replies: replies}
}

// FailWith makes every following call return err.
func (f *FakeAI) FailWith(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Block makes calls wait until the returned function is called.
func (f *FakeAI) Block() (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.block = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns the number of calls made.
func (f *FakeAI) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Prompts returns every message sent, in order.
func (f *FakeAI) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// LastPrompt returns the most recent message sent.
func (f *FakeAI) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// LastHistory returns the history passed with the most recent chat call.
func (f *FakeAI) LastHistory() []ai.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.histories) == 0 {
		return nil
	}
	return f.histories[len(f.histories)-1]
}

func (f *FakeAI) Configured() bool { return true }

func (f *FakeAI) Generate(ctx context.Context, prompt string) (string, error) {
	return f.Chat(ctx, nil, prompt)
}

func (f *FakeAI) Chat(ctx context.Context, history []ai.Turn, message string) (string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.prompts = append(f.prompts, message)
	f.histories = append(f.histories, append([]ai.Turn(nil), history...))
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "reply " + strconv.Itoa(n), nil
	}
	if n > len(f.replies) {
		return f.replies[len(f.replies)-1], nil
	}
	return f.replies[n-1], nil
}
