package memory

import (
	"context"
	"time"
)

// Store is the durable persistence contract for user knowledge and session
// artifacts. Implementations must return ErrNotFound for missing records
// rather than zero values.
type Store interface {
	Close() error

	// User profiles.
	GetUser(ctx context.Context, id string) (*UserProfile, error)
	CreateUser(ctx context.Context, profile *UserProfile) error
	UpdateUser(ctx context.Context, profile *UserProfile) error

	// Conversations and messages. CreateConversation assigns the id.
	CreateConversation(ctx context.Context, userID, externalSessionID string) (*Conversation, error)
	SaveConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	RecentConversations(ctx context.Context, userID string, limit int) ([]Conversation, error)
	ConversationSummaries(ctx context.Context, userID string, limit int) ([]string, error)

	// Facts.
	AddFact(ctx context.Context, fact *UserFact) error
	Facts(ctx context.Context, userID, category string, limit int) ([]UserFact, error)
	TouchFactReference(ctx context.Context, factID string) error

	// Preferences. SetPreference upserts on (user, category, key).
	SetPreference(ctx context.Context, pref UserPreference) error
	Preferences(ctx context.Context, userID string) (map[string]map[string]string, error)
	Preference(ctx context.Context, userID, category, key string) (string, error)

	// Reminders.
	AddReminder(ctx context.Context, reminder *Reminder) error
	UpcomingReminders(ctx context.Context, userID string, within time.Duration) ([]Reminder, error)

	// Grocery list.
	AddGroceryItem(ctx context.Context, item *GroceryItem) error
	GroceryList(ctx context.Context, userID string, includePurchased bool) ([]GroceryItem, error)
	ClearGroceryList(ctx context.Context, userID string) error

	// Orders.
	CreateOrder(ctx context.Context, order *Order) error
	PendingOrders(ctx context.Context, userID string) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, next OrderStatus, actor, reason string) error
}
