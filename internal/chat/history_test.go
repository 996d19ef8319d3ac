package chat

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"docqa/internal/domain"
)

func writeCorrupt(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestHistory_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	h := NewHistory(path)
	if err := h.Load(); err != nil {
		t.Fatalf("load on missing file must succeed: %v", err)
	}
	h.AddMessage("conv-1", "user", "what is the vacation policy?", nil)
	h.AddMessage("conv-1", "assistant", "Fifteen days per year.", []domain.Source{{FilePath: "/docs/hr.txt", FileName: "hr.txt"}})

	reloaded := NewHistory(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	conv, ok := reloaded.Conversation("conv-1")
	if !ok {
		t.Fatal("conversation missing after reload")
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(conv.Messages))
	}
	if conv.Messages[1].Sources[0].FileName != "hr.txt" {
		t.Fatalf("sources lost in round trip: %+v", conv.Messages[1])
	}
	if conv.Messages[0].ID == "" || conv.Messages[0].ID == conv.Messages[1].ID {
		t.Fatal("messages must carry distinct ids")
	}
}

func TestHistory_TitleFromFirstMessage(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "history.json"))
	h.AddMessage("c", "user", "a question considerably longer than twenty characters", nil)
	conv, _ := h.Conversation("c")
	if got := conv.Title; got != "a question considera..." {
		t.Fatalf("title = %q", got)
	}

	h.AddMessage("short", "user", "brief", nil)
	conv, _ = h.Conversation("short")
	if conv.Title != "brief" {
		t.Fatalf("short title = %q", conv.Title)
	}
}

func TestHistory_ListsMostRecentFirst(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "history.json"))
	h.AddMessage("old", "user", "first", nil)
	time.Sleep(5 * time.Millisecond)
	h.AddMessage("new", "user", "second", nil)

	convs := h.Conversations()
	if len(convs) != 2 || convs[0].ID != "new" {
		t.Fatalf("unexpected ordering: %+v", convs)
	}
}

func TestHistory_CorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	writeCorrupt(t, path)
	h := NewHistory(path)
	if err := h.Load(); err != nil {
		t.Fatalf("corrupt history must not fail startup: %v", err)
	}
	if len(h.Conversations()) != 0 {
		t.Fatal("expected empty history")
	}
}
