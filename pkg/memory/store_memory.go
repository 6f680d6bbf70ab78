package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and ephemeral sessions. All
// methods are safe for concurrent use.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]*UserProfile
	conversations map[string]*Conversation
	facts         map[string][]UserFact // keyed by user id, insertion order
	preferences   map[string][]UserPreference
	reminders     map[string][]Reminder
	groceries     map[string][]GroceryItem
	orders        map[string][]Order
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         map[string]*UserProfile{},
		conversations: map[string]*Conversation{},
		facts:         map[string][]UserFact{},
		preferences:   map[string][]UserPreference{},
		reminders:     map[string][]Reminder{},
		groceries:     map[string][]GroceryItem{},
		orders:        map[string][]Order{},
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, profile *UserProfile) error {
	if _, err := ParseUserRole(string(profile.Role)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[profile.ID]; exists {
		return fmt.Errorf("user %s already exists", profile.ID)
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	cp := *profile
	s.users[profile.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, profile *UserProfile) error {
	if _, err := ParseUserRole(string(profile.Role)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[profile.ID]; !ok {
		return ErrNotFound
	}
	profile.LastInteraction = time.Now().UTC()
	cp := *profile
	s.users[profile.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateConversation(ctx context.Context, userID, externalSessionID string) (*Conversation, error) {
	conv := &Conversation{
		ID:                uuid.NewString(),
		UserID:            userID,
		ExternalSessionID: externalSessionID,
		StartedAt:         time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *conv
	s.conversations[conv.ID] = &cp
	return conv, nil
}

func (s *MemoryStore) SaveConversation(ctx context.Context, conv *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Persisted messages are immutable and append-only, like the durable
	// store: a trimmed live buffer must not erase earlier saved history.
	var kept []Message
	if stored, ok := s.conversations[conv.ID]; ok {
		kept = append(kept, stored.Messages...)
	}
	for i := range conv.Messages {
		msg := &conv.Messages[i]
		if msg.ID != "" {
			continue
		}
		if !ValidMessageRole(msg.Role) {
			return fmt.Errorf("invalid message role %q", msg.Role)
		}
		msg.ID = uuid.NewString()
		kept = append(kept, *msg)
	}
	cp := *conv
	cp.Messages = kept
	s.conversations[conv.ID] = &cp
	return nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *conv
	cp.Messages = append([]Message(nil), conv.Messages...)
	return &cp, nil
}

func (s *MemoryStore) RecentConversations(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Conversation
	for _, conv := range s.conversations {
		if conv.UserID == userID {
			cp := *conv
			cp.Messages = append([]Message(nil), conv.Messages...)
			out = append(out, cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ConversationSummaries(ctx context.Context, userID string, limit int) ([]string, error) {
	convs, err := s.RecentConversations(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, conv := range convs {
		if conv.Summary == "" {
			continue
		}
		out = append(out, conv.Summary)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) AddFact(ctx context.Context, fact *UserFact) error {
	if !ValidFactCategory(fact.Category) {
		return fmt.Errorf("invalid fact category %q", fact.Category)
	}
	importance, err := ParseImportance(string(fact.Importance))
	if err != nil {
		return err
	}
	fact.Importance = importance
	if fact.ID == "" {
		fact.ID = uuid.NewString()
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[fact.UserID] = append(s.facts[fact.UserID], *fact)
	return nil
}

func (s *MemoryStore) Facts(ctx context.Context, userID, category string, limit int) ([]UserFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []UserFact
	for _, f := range s.facts[userID] {
		if category != "" && f.Category != category {
			continue
		}
		out = append(out, f)
	}
	// Recent-first, matching the durable store's ordering.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) TouchFactReference(ctx context.Context, factID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID := range s.facts {
		for i := range s.facts[userID] {
			if s.facts[userID][i].ID == factID {
				s.facts[userID][i].LastReferenced = time.Now().UTC()
				s.facts[userID][i].ReferenceCount++
				return nil
			}
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) SetPreference(ctx context.Context, pref UserPreference) error {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	if pref.Confidence == 0 {
		pref.Confidence = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs := s.preferences[pref.UserID]
	for i := range prefs {
		if prefs[i].Category == pref.Category && prefs[i].Key == pref.Key {
			pref.ID = prefs[i].ID
			prefs[i] = pref
			return nil
		}
	}
	s.preferences[pref.UserID] = append(prefs, pref)
	return nil
}

func (s *MemoryStore) Preferences(ctx context.Context, userID string) (map[string]map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]map[string]string{}
	for _, pref := range s.preferences[userID] {
		if _, ok := out[pref.Category]; !ok {
			out[pref.Category] = map[string]string{}
		}
		out[pref.Category][pref.Key] = pref.Value
	}
	return out, nil
}

func (s *MemoryStore) Preference(ctx context.Context, userID, category, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pref := range s.preferences[userID] {
		if pref.Category == category && pref.Key == key {
			return pref.Value, nil
		}
	}
	return "", ErrNotFound
}

func (s *MemoryStore) AddReminder(ctx context.Context, reminder *Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[reminder.UserID] = append(s.reminders[reminder.UserID], *reminder)
	return nil
}

func (s *MemoryStore) UpcomingReminders(ctx context.Context, userID string, within time.Duration) ([]Reminder, error) {
	now := time.Now().UTC()
	until := now.Add(within)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Reminder
	for _, r := range s.reminders[userID] {
		if !r.IsActive || r.RemindAt.Before(now) || r.RemindAt.After(until) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RemindAt.Before(out[j].RemindAt) })
	return out, nil
}

func (s *MemoryStore) AddGroceryItem(ctx context.Context, item *GroceryItem) error {
	if strings.TrimSpace(item.ItemName) == "" {
		return fmt.Errorf("grocery item name is required")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groceries[item.UserID] = append(s.groceries[item.UserID], *item)
	return nil
}

func (s *MemoryStore) GroceryList(ctx context.Context, userID string, includePurchased bool) ([]GroceryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []GroceryItem
	for _, item := range s.groceries[userID] {
		if !includePurchased && item.IsPurchased {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ClearGroceryList(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.groceries[userID]
	for i := range items {
		items[i].IsPurchased = true
	}
	return nil
}

func (s *MemoryStore) CreateOrder(ctx context.Context, order *Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.Status == "" {
		order.Status = OrderPending
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *order
	cp.Items = append([]OrderItem(nil), order.Items...)
	s.orders[order.UserID] = append(s.orders[order.UserID], cp)
	return nil
}

func (s *MemoryStore) PendingOrders(ctx context.Context, userID string) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Order
	for _, o := range s.orders[userID] {
		if o.Status == OrderPending {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, orderID string, next OrderStatus, actor, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID := range s.orders {
		for i := range s.orders[userID] {
			o := &s.orders[userID][i]
			if o.ID != orderID {
				continue
			}
			if !o.Status.CanTransition(next) {
				return fmt.Errorf("invalid order transition %s -> %s", o.Status, next)
			}
			o.Status = next
			if next == OrderApproved {
				o.ApprovedBy = actor
			}
			if reason != "" {
				o.RejectionReason = reason
			}
			return nil
		}
	}
	return ErrNotFound
}
