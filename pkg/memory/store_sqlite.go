package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the shipped Store implementation.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates/opens the database at path and applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single writer connection avoids SQLite lock contention across sessions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			role TEXT NOT NULL,
			age INTEGER NOT NULL DEFAULT 0,
			preferred_language TEXT NOT NULL DEFAULT 'english',
			preferred_response_length TEXT NOT NULL DEFAULT 'medium',
			daily_order_limit REAL NOT NULL DEFAULT 0,
			requires_approval INTEGER NOT NULL DEFAULT 0,
			can_approve_orders INTEGER NOT NULL DEFAULT 0,
			medical_info_json TEXT NOT NULL DEFAULT '',
			total_conversations INTEGER NOT NULL DEFAULT 0,
			created_at_ms INTEGER NOT NULL,
			last_interaction_ms INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			external_session_id TEXT NOT NULL DEFAULT '',
			started_at_ms INTEGER NOT NULL,
			ended_at_ms INTEGER NOT NULL DEFAULT 0,
			summary TEXT NOT NULL DEFAULT '',
			message_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS conversations_user_idx ON conversations(user_id, started_at_ms DESC);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tool_name TEXT NOT NULL DEFAULT '',
			tool_call_id TEXT NOT NULL DEFAULT '',
			tool_calls_json TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS messages_conversation_idx ON messages(conversation_id, seq);`,
		`CREATE TABLE IF NOT EXISTS facts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			fact TEXT NOT NULL,
			category TEXT NOT NULL,
			importance TEXT NOT NULL DEFAULT 'normal',
			source_conversation TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL,
			last_referenced_ms INTEGER NOT NULL DEFAULT 0,
			reference_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS facts_user_idx ON facts(user_id, created_at_ms DESC);`,
		`CREATE TABLE IF NOT EXISTS preferences (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 1,
			source_conversation TEXT NOT NULL DEFAULT '',
			updated_at_ms INTEGER NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS preferences_unique ON preferences(user_id, category, key);`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			message TEXT NOT NULL,
			remind_at_ms INTEGER NOT NULL,
			repeat_pattern TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			category TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT 'normal',
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS reminders_user_due_idx ON reminders(user_id, is_active, remind_at_ms);`,
		`CREATE TABLE IF NOT EXISTS grocery_items (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			item_name TEXT NOT NULL,
			quantity REAL NOT NULL DEFAULT 1,
			unit TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			added_by TEXT NOT NULL DEFAULT '',
			is_purchased INTEGER NOT NULL DEFAULT 0,
			purchased_at_ms INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS grocery_user_idx ON grocery_items(user_id, is_purchased, created_at_ms DESC);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			requested_by TEXT NOT NULL,
			approved_by TEXT NOT NULL DEFAULT '',
			order_type TEXT NOT NULL,
			items_json TEXT NOT NULL DEFAULT '[]',
			total_amount REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			platform TEXT NOT NULL DEFAULT '',
			rejection_reason TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS orders_user_status_idx ON orders(user_id, status, created_at_ms DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func msOf(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timeOfMS(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// ---- users ----

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, role, age, preferred_language,
		preferred_response_length, daily_order_limit, requires_approval, can_approve_orders,
		medical_info_json, total_conversations, created_at_ms, last_interaction_ms
		FROM users WHERE id = ?`, id)

	var u UserProfile
	var role, medicalJSON string
	var requiresApproval, canApprove int
	var createdMS, lastMS int64
	err := row.Scan(&u.ID, &u.Name, &role, &u.Age, &u.PreferredLanguage,
		&u.PreferredResponseLength, &u.DailyOrderLimit, &requiresApproval, &canApprove,
		&medicalJSON, &u.TotalConversations, &createdMS, &lastMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	u.Role = UserRole(role)
	u.RequiresApproval = requiresApproval != 0
	u.CanApproveOrders = canApprove != 0
	u.CreatedAt = timeOfMS(createdMS)
	u.LastInteraction = timeOfMS(lastMS)
	if medicalJSON != "" {
		var med MedicalInfo
		if jsonErr := json.Unmarshal([]byte(medicalJSON), &med); jsonErr == nil {
			u.MedicalInfo = &med
		}
	}
	return &u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, profile *UserProfile) error {
	if _, err := ParseUserRole(string(profile.Role)); err != nil {
		return err
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	medicalJSON, err := marshalMedical(profile.MedicalInfo)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users (id, name, role, age, preferred_language,
		preferred_response_length, daily_order_limit, requires_approval, can_approve_orders,
		medical_info_json, total_conversations, created_at_ms, last_interaction_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.ID, profile.Name, string(profile.Role), profile.Age, profile.PreferredLanguage,
		profile.PreferredResponseLength, profile.DailyOrderLimit, boolInt(profile.RequiresApproval),
		boolInt(profile.CanApproveOrders), medicalJSON, profile.TotalConversations,
		msOf(profile.CreatedAt), msOf(profile.LastInteraction))
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, profile *UserProfile) error {
	if _, err := ParseUserRole(string(profile.Role)); err != nil {
		return err
	}
	medicalJSON, err := marshalMedical(profile.MedicalInfo)
	if err != nil {
		return err
	}
	profile.LastInteraction = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE users SET name = ?, role = ?, age = ?,
		preferred_language = ?, preferred_response_length = ?, daily_order_limit = ?,
		requires_approval = ?, can_approve_orders = ?, medical_info_json = ?,
		total_conversations = ?, last_interaction_ms = ? WHERE id = ?`,
		profile.Name, string(profile.Role), profile.Age, profile.PreferredLanguage,
		profile.PreferredResponseLength, profile.DailyOrderLimit, boolInt(profile.RequiresApproval),
		boolInt(profile.CanApproveOrders), medicalJSON, profile.TotalConversations,
		msOf(profile.LastInteraction), profile.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalToolCalls(calls []ToolCallRecord) (string, error) {
	if len(calls) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(calls)
	if err != nil {
		return "", fmt.Errorf("marshal tool calls: %w", err)
	}
	return string(raw), nil
}

func marshalMedical(med *MedicalInfo) (string, error) {
	if med == nil {
		return "", nil
	}
	raw, err := json.Marshal(med)
	if err != nil {
		return "", fmt.Errorf("marshal medical info: %w", err)
	}
	return string(raw), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ---- conversations ----

func (s *SQLiteStore) CreateConversation(ctx context.Context, userID, externalSessionID string) (*Conversation, error) {
	conv := &Conversation{
		ID:                uuid.NewString(),
		UserID:            userID,
		ExternalSessionID: externalSessionID,
		StartedAt:         time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO conversations (id, user_id, external_session_id, started_at_ms)
		VALUES (?, ?, ?, ?)`, conv.ID, conv.UserID, conv.ExternalSessionID, msOf(conv.StartedAt))
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

func (s *SQLiteStore) SaveConversation(ctx context.Context, conv *Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	defer tx.Rollback()

	// Only messages without an id are new; persisted messages are immutable.
	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM messages WHERE conversation_id = ?`,
		conv.ID).Scan(&seq); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	for i := range conv.Messages {
		msg := &conv.Messages[i]
		if msg.ID != "" {
			continue
		}
		if !ValidMessageRole(msg.Role) {
			return fmt.Errorf("invalid message role %q", msg.Role)
		}
		toolCallsJSON, err := marshalToolCalls(msg.ToolCalls)
		if err != nil {
			return err
		}
		seq++
		msg.ID = uuid.NewString()
		_, err = tx.ExecContext(ctx, `INSERT INTO messages (id, conversation_id, seq, role, content,
			tool_name, tool_call_id, tool_calls_json, created_at_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, conv.ID, seq, msg.Role, msg.Content, msg.ToolName, msg.ToolCallID,
			toolCallsJSON, msOf(msg.Timestamp))
		if err != nil {
			return fmt.Errorf("save message: %w", err)
		}
	}

	// seq is the durable message count, which can exceed the live buffer once
	// the short-term overflow trim has run.
	_, err = tx.ExecContext(ctx, `UPDATE conversations SET ended_at_ms = ?, summary = ?, message_count = ?
		WHERE id = ?`, msOf(conv.EndedAt), conv.Summary, seq, conv.ID)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, external_session_id, started_at_ms, ended_at_ms, summary
		FROM conversations WHERE id = ?`, id)

	var conv Conversation
	var startedMS, endedMS int64
	err := row.Scan(&conv.ID, &conv.UserID, &conv.ExternalSessionID, &startedMS, &endedMS, &conv.Summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	conv.StartedAt = timeOfMS(startedMS)
	conv.EndedAt = timeOfMS(endedMS)

	rows, err := s.db.QueryContext(ctx, `SELECT id, role, content, tool_name, tool_call_id, tool_calls_json, created_at_ms
		FROM messages WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get conversation messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg Message
		var toolCallsJSON string
		var createdMS int64
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.ToolName, &msg.ToolCallID, &toolCallsJSON, &createdMS); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if toolCallsJSON != "" {
			if err := json.Unmarshal([]byte(toolCallsJSON), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("unmarshal message tool calls: %w", err)
			}
		}
		msg.Timestamp = timeOfMS(createdMS)
		conv.Messages = append(conv.Messages, msg)
	}
	return &conv, rows.Err()
}

func (s *SQLiteStore) RecentConversations(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, external_session_id, started_at_ms, ended_at_ms, summary
		FROM conversations WHERE user_id = ? ORDER BY started_at_ms DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var conv Conversation
		var startedMS, endedMS int64
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.ExternalSessionID, &startedMS, &endedMS, &conv.Summary); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conv.StartedAt = timeOfMS(startedMS)
		conv.EndedAt = timeOfMS(endedMS)
		out = append(out, conv)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ConversationSummaries(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT summary FROM conversations
		WHERE user_id = ? AND summary != '' ORDER BY started_at_ms DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation summaries: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var summary string
		if err := rows.Scan(&summary); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// ---- facts ----

func (s *SQLiteStore) AddFact(ctx context.Context, fact *UserFact) error {
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
	_, err = s.db.ExecContext(ctx, `INSERT INTO facts (id, user_id, fact, category, importance,
		source_conversation, created_at_ms, last_referenced_ms, reference_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fact.ID, fact.UserID, fact.Fact, fact.Category, string(fact.Importance),
		fact.SourceConversation, msOf(fact.CreatedAt), msOf(fact.LastReferenced), fact.ReferenceCount)
	if err != nil {
		return fmt.Errorf("add fact: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Facts(ctx context.Context, userID, category string, limit int) ([]UserFact, error) {
	query := `SELECT id, user_id, fact, category, importance, source_conversation,
		created_at_ms, last_referenced_ms, reference_count FROM facts WHERE user_id = ?`
	args := []any{userID}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at_ms DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	var out []UserFact
	for rows.Next() {
		var f UserFact
		var importance string
		var createdMS, referencedMS int64
		if err := rows.Scan(&f.ID, &f.UserID, &f.Fact, &f.Category, &importance,
			&f.SourceConversation, &createdMS, &referencedMS, &f.ReferenceCount); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		f.Importance = Importance(importance)
		f.CreatedAt = timeOfMS(createdMS)
		f.LastReferenced = timeOfMS(referencedMS)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) TouchFactReference(ctx context.Context, factID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE facts SET last_referenced_ms = ?,
		reference_count = reference_count + 1 WHERE id = ?`, time.Now().UnixMilli(), factID)
	if err != nil {
		return fmt.Errorf("touch fact reference: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- preferences ----

func (s *SQLiteStore) SetPreference(ctx context.Context, pref UserPreference) error {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	if pref.Confidence == 0 {
		pref.Confidence = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO preferences (id, user_id, category, key, value,
		confidence, source_conversation, updated_at_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, category, key) DO UPDATE SET
			value = excluded.value,
			confidence = excluded.confidence,
			source_conversation = excluded.source_conversation,
			updated_at_ms = excluded.updated_at_ms`,
		pref.ID, pref.UserID, pref.Category, pref.Key, pref.Value,
		pref.Confidence, pref.SourceConversation, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Preferences(ctx context.Context, userID string) (map[string]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, key, value FROM preferences
		WHERE user_id = ? ORDER BY category, key`, userID)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	out := map[string]map[string]string{}
	for rows.Next() {
		var category, key, value string
		if err := rows.Scan(&category, &key, &value); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		if _, ok := out[category]; !ok {
			out[category] = map[string]string{}
		}
		out[category][key] = value
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Preference(ctx context.Context, userID, category, key string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM preferences
		WHERE user_id = ? AND category = ? AND key = ?`, userID, category, key)
	var value string
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get preference: %w", err)
	}
	return value, nil
}

// ---- reminders ----

func (s *SQLiteStore) AddReminder(ctx context.Context, reminder *Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now().UTC()
	}
	if reminder.Priority == "" {
		reminder.Priority = "normal"
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO reminders (id, user_id, message, remind_at_ms,
		repeat_pattern, is_active, category, priority, created_at_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reminder.ID, reminder.UserID, reminder.Message, msOf(reminder.RemindAt),
		reminder.RepeatPattern, boolInt(reminder.IsActive), reminder.Category,
		reminder.Priority, msOf(reminder.CreatedAt))
	if err != nil {
		return fmt.Errorf("add reminder: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpcomingReminders(ctx context.Context, userID string, within time.Duration) ([]Reminder, error) {
	now := time.Now().UTC()
	until := now.Add(within)
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, message, remind_at_ms, repeat_pattern,
		is_active, category, priority, created_at_ms FROM reminders
		WHERE user_id = ? AND is_active = 1 AND remind_at_ms >= ? AND remind_at_ms <= ?
		ORDER BY remind_at_ms`, userID, msOf(now), msOf(until))
	if err != nil {
		return nil, fmt.Errorf("upcoming reminders: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		var remindMS, createdMS int64
		var active int
		if err := rows.Scan(&r.ID, &r.UserID, &r.Message, &remindMS, &r.RepeatPattern,
			&active, &r.Category, &r.Priority, &createdMS); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.RemindAt = timeOfMS(remindMS)
		r.CreatedAt = timeOfMS(createdMS)
		r.IsActive = active != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- grocery list ----

func (s *SQLiteStore) AddGroceryItem(ctx context.Context, item *GroceryItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO grocery_items (id, user_id, item_name, quantity,
		unit, category, added_by, is_purchased, notes, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.ItemName, item.Quantity, item.Unit, item.Category,
		item.AddedBy, boolInt(item.IsPurchased), item.Notes, msOf(item.CreatedAt))
	if err != nil {
		return fmt.Errorf("add grocery item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GroceryList(ctx context.Context, userID string, includePurchased bool) ([]GroceryItem, error) {
	query := `SELECT id, user_id, item_name, quantity, unit, category, added_by, is_purchased, notes,
		created_at_ms FROM grocery_items WHERE user_id = ?`
	if !includePurchased {
		query += ` AND is_purchased = 0`
	}
	query += ` ORDER BY created_at_ms DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("grocery list: %w", err)
	}
	defer rows.Close()

	var out []GroceryItem
	for rows.Next() {
		var item GroceryItem
		var purchased int
		var createdMS int64
		if err := rows.Scan(&item.ID, &item.UserID, &item.ItemName, &item.Quantity, &item.Unit,
			&item.Category, &item.AddedBy, &purchased, &item.Notes, &createdMS); err != nil {
			return nil, fmt.Errorf("scan grocery item: %w", err)
		}
		item.IsPurchased = purchased != 0
		item.CreatedAt = timeOfMS(createdMS)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ClearGroceryList(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE grocery_items SET is_purchased = 1, purchased_at_ms = ?
		WHERE user_id = ? AND is_purchased = 0`, time.Now().UnixMilli(), userID)
	if err != nil {
		return fmt.Errorf("clear grocery list: %w", err)
	}
	return nil
}

// ---- orders ----

func (s *SQLiteStore) CreateOrder(ctx context.Context, order *Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.Status == "" {
		order.Status = OrderPending
	}
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO orders (id, user_id, requested_by, approved_by,
		order_type, items_json, total_amount, status, platform, rejection_reason, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.RequestedBy, order.ApprovedBy, order.OrderType,
		string(itemsJSON), order.TotalAmount, string(order.Status), order.Platform,
		order.RejectionReason, msOf(order.CreatedAt))
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PendingOrders(ctx context.Context, userID string) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, requested_by, approved_by, order_type,
		items_json, total_amount, status, platform, rejection_reason, created_at_ms
		FROM orders WHERE user_id = ? AND status = 'pending' ORDER BY created_at_ms DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("pending orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		var itemsJSON, status string
		var createdMS int64
		if err := rows.Scan(&o.ID, &o.UserID, &o.RequestedBy, &o.ApprovedBy, &o.OrderType,
			&itemsJSON, &o.TotalAmount, &status, &o.Platform, &o.RejectionReason, &createdMS); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = OrderStatus(status)
		o.CreatedAt = timeOfMS(createdMS)
		if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, orderID string, next OrderStatus, actor, reason string) error {
	row := s.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, orderID)
	var current string
	err := row.Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if !OrderStatus(current).CanTransition(next) {
		return fmt.Errorf("invalid order transition %s -> %s", current, next)
	}

	approvedBy := ""
	if next == OrderApproved {
		approvedBy = actor
	}
	_, err = s.db.ExecContext(ctx, `UPDATE orders SET status = ?,
		approved_by = CASE WHEN ? != '' THEN ? ELSE approved_by END,
		rejection_reason = CASE WHEN ? != '' THEN ? ELSE rejection_reason END
		WHERE id = ?`,
		string(next), approvedBy, approvedBy, reason, reason, orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}
