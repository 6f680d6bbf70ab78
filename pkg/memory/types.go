// Package memory implements the two-tier memory subsystem: a bounded
// short-term conversation buffer and a durable long-term store of per-user
// facts, preferences and conversation summaries, plus the extraction
// pipeline that feeds the latter from finished conversations.
package memory

import (
	"fmt"
	"time"
)

// UserRole classifies household members. The set is closed; anything else is
// a validation failure.
type UserRole string

const (
	RoleAdult   UserRole = "adult"
	RoleChild   UserRole = "child"
	RoleElderly UserRole = "elderly"
	RoleStaff   UserRole = "staff"
	RoleGuest   UserRole = "guest"
)

// ParseUserRole validates a role string.
func ParseUserRole(s string) (UserRole, error) {
	switch UserRole(s) {
	case RoleAdult, RoleChild, RoleElderly, RoleStaff, RoleGuest:
		return UserRole(s), nil
	}
	return "", fmt.Errorf("invalid user role %q", s)
}

// Importance grades how much a fact matters when building context.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceNormal   Importance = "normal"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// ParseImportance validates an importance string, defaulting empty to normal.
func ParseImportance(s string) (Importance, error) {
	if s == "" {
		return ImportanceNormal, nil
	}
	switch Importance(s) {
	case ImportanceLow, ImportanceNormal, ImportanceHigh, ImportanceCritical:
		return Importance(s), nil
	}
	return "", fmt.Errorf("invalid importance %q", s)
}

// Fact categories form a closed set; unknown categories collapse to "other"
// at extraction time and are rejected at the store boundary.
const (
	CategoryFood       = "food"
	CategoryHealth     = "health"
	CategoryHabit      = "habit"
	CategoryPreference = "preference"
	CategoryFamily     = "family"
	CategoryWork       = "work"
	CategoryOther      = "other"
)

// ValidFactCategory reports whether s is in the closed fact-category set.
func ValidFactCategory(s string) bool {
	switch s {
	case CategoryFood, CategoryHealth, CategoryHabit, CategoryPreference, CategoryFamily, CategoryWork, CategoryOther:
		return true
	}
	return false
}

// Message roles in a conversation.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleTool      = "tool"
	MessageRoleSystem    = "system"
)

// ValidMessageRole reports whether s is a known conversation role.
func ValidMessageRole(s string) bool {
	switch s {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleTool, MessageRoleSystem:
		return true
	}
	return false
}

// ToolCallRecord captures one tool invocation requested by an assistant
// message. Arguments is the raw JSON payload as the model produced it.
type ToolCallRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one immutable entry in a conversation. Ordering is append order
// and must be preserved exactly for replay to the completion service.
type Message struct {
	ID         string
	Role       string
	Content    string
	ToolName   string
	ToolCallID string
	ToolCalls  []ToolCallRecord // set on assistant messages that requested tools
	Timestamp  time.Time
}

// Conversation is an ordered message log owned by exactly one user. The id
// is assigned by the store on creation.
type Conversation struct {
	ID                string
	UserID            string
	ExternalSessionID string
	Messages          []Message
	StartedAt         time.Time
	EndedAt           time.Time // zero while the conversation is open
	Summary           string
}

// UserFact is a single atomic learned fact about a user.
type UserFact struct {
	ID                 string
	UserID             string
	Fact               string
	Category           string
	Importance         Importance
	SourceConversation string
	CreatedAt          time.Time
	LastReferenced     time.Time // zero when never referenced
	ReferenceCount     int
}

// UserPreference maps (user, category, key) to a value; later writes with
// the same key overwrite earlier ones.
type UserPreference struct {
	ID                 string
	UserID             string
	Category           string
	Key                string
	Value              string
	Confidence         float64
	SourceConversation string
}

// Medicine describes one medication in a user's medical record.
type Medicine struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage,omitempty"`
	Timing string `json:"timing,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// EmergencyContact is a person to reach in a medical emergency.
type EmergencyContact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation,omitempty"`
}

// MedicalInfo holds health data surfaced in context for elderly users.
type MedicalInfo struct {
	Medicines         []Medicine         `json:"medicines,omitempty"`
	Allergies         []string           `json:"allergies,omitempty"`
	Conditions        []string           `json:"conditions,omitempty"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts,omitempty"`
}

// UserProfile is the durable per-user record. Created on first contact,
// mutated on session end and preference updates, never deleted here.
type UserProfile struct {
	ID   string
	Name string
	Role UserRole
	Age  int

	PreferredLanguage       string
	PreferredResponseLength string

	DailyOrderLimit  float64 // 0 means no limit configured
	RequiresApproval bool
	CanApproveOrders bool

	MedicalInfo *MedicalInfo

	TotalConversations int
	CreatedAt          time.Time
	LastInteraction    time.Time
}

// Reminder is a user-scoped message with a target fire time and an optional
// repeat pattern (daily, weekly, monthly).
type Reminder struct {
	ID            string
	UserID        string
	Message       string
	RemindAt      time.Time
	RepeatPattern string
	IsActive      bool
	Category      string
	Priority      string
	CreatedAt     time.Time
}

// GroceryItem is one entry on the household grocery list.
type GroceryItem struct {
	ID          string
	UserID      string
	ItemName    string
	Quantity    float64
	Unit        string
	Category    string
	AddedBy     string
	IsPurchased bool
	Notes       string
	CreatedAt   time.Time
}

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderApproved  OrderStatus = "approved"
	OrderRejected  OrderStatus = "rejected"
	OrderOrdered   OrderStatus = "ordered"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// CanTransition reports whether moving from s to next is a legal lifecycle
// step: pending → approved|rejected, approved → ordered, ordered → delivered,
// with cancellation allowed at any point before ordered.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderPending:
		return next == OrderApproved || next == OrderRejected || next == OrderCancelled
	case OrderApproved:
		return next == OrderOrdered || next == OrderCancelled
	case OrderRejected:
		return next == OrderCancelled
	case OrderOrdered:
		return next == OrderDelivered
	}
	return false
}

// OrderItem is a single line item in an order.
type OrderItem struct {
	Name           string  `json:"name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit,omitempty"`
	EstimatedPrice float64 `json:"estimated_price,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

// Order is a purchase request. Orders are created pending and advance only
// through an external approval action.
type Order struct {
	ID              string
	UserID          string
	RequestedBy     string
	ApprovedBy      string
	OrderType       string // grocery, medicine, other
	Items           []OrderItem
	TotalAmount     float64
	Status          OrderStatus
	Platform        string
	RejectionReason string
	CreatedAt       time.Time
}
