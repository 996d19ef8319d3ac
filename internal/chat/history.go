package chat

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
)

// History persists conversations as a single JSON file. A missing or
// unreadable file means starting fresh, never failing startup.
type History struct {
	mu            sync.Mutex
	path          string
	conversations map[string]*domain.Conversation
}

func NewHistory(path string) *History {
	return &History{path: path, conversations: make(map[string]*domain.Conversation)}
}

// Load reads the history file if present.
func (h *History) Load() error {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Print("[history] no existing history, starting fresh")
			return nil
		}
		return err
	}
	var convs map[string]*domain.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		log.Printf("[history] corrupt history file, starting fresh: %v", err)
		return nil
	}
	h.mu.Lock()
	h.conversations = convs
	h.mu.Unlock()
	log.Printf("[history] loaded %d conversations", len(convs))
	return nil
}

// AddMessage appends a message to the conversation, creating it on first
// use with a title cut from the message. It returns the stored message.
func (h *History) AddMessage(conversationID, role, content string, sources []domain.Source) domain.Message {
	msg := domain.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Sources:   sources,
		Timestamp: time.Now(),
	}
	h.mu.Lock()
	conv, ok := h.conversations[conversationID]
	if !ok {
		now := time.Now()
		conv = &domain.Conversation{
			ID:        conversationID,
			Title:     titleFrom(content),
			CreatedAt: now,
		}
		h.conversations[conversationID] = conv
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now()
	h.mu.Unlock()

	if err := h.save(); err != nil {
		log.Printf("[history] failed to save: %v", err)
	}
	return msg
}

// Conversations lists all conversations, most recently updated first.
func (h *History) Conversations() []domain.Conversation {
	h.mu.Lock()
	out := make([]domain.Conversation, 0, len(h.conversations))
	for _, c := range h.conversations {
		out = append(out, *c)
	}
	h.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// Conversation returns one conversation by id.
func (h *History) Conversation(id string) (domain.Conversation, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conversations[id]
	if !ok {
		return domain.Conversation{}, false
	}
	return *c, true
}

// Clear drops all conversations and persists the empty set.
func (h *History) Clear() {
	h.mu.Lock()
	h.conversations = make(map[string]*domain.Conversation)
	h.mu.Unlock()
	if err := h.save(); err != nil {
		log.Printf("[history] failed to save: %v", err)
	}
}

func (h *History) save() error {
	h.mu.Lock()
	data, err := json.Marshal(h.conversations)
	h.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, h.path)
}

func titleFrom(content string) string {
	runes := []rune(content)
	if len(runes) <= 20 {
		return content
	}
	return string(runes[:20]) + "..."
}
