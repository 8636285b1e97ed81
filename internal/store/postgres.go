package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/mapper"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

const (
	tableConversations = "conversations"
	tableMessages      = "chat_messages"
	tableFollowUps     = "follow_up_tasks"
	tableSummaries     = "conversation_summaries"

	conversationColumns = "id, customer_id, customer_name, customer_phone, customer_email, start_time, end_time," +
		" duration_minutes, status, lead_quality, lead_score, intent, property_type, preferred_area, budget," +
		" assigned_agent_id, tags, notes, follow_up_date, last_message, outcome, conversion_value," +
		" created_at, updated_at"
)

// Postgres errors that mean an optional object is missing.
const (
	pqUndefinedTable    = "42P01"
	pqUndefinedFunction = "42883"
)

// Postgres is a Repository backed by a Postgres database.
type Postgres struct {
	db     *sql.DB
	caps   Capabilities
	logger *logger.Logger
}

// Open connects to Postgres and resolves optional schema capabilities.
func Open(ctx context.Context, databaseURL string, log *logger.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := NewPostgres(db, log)
	caps, err := p.resolveCapabilities(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to resolve capabilities: %w", err)
	}
	p.caps = caps

	log.Info("database connected",
		zap.Bool("follow_up_tasks", caps.FollowUpTasks),
		zap.Bool("conversation_summaries", caps.ConversationSummaries),
		zap.Bool("analytics_rpc", caps.AnalyticsRPC),
	)
	return p, nil
}

// NewPostgres wraps an open database handle. Capabilities start disabled.
func NewPostgres(db *sql.DB, log *logger.Logger) *Postgres {
	return &Postgres{db: db, logger: log}
}

// Close closes the database handle.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Capabilities returns the resolved optional features.
func (p *Postgres) Capabilities() Capabilities {
	return p.caps
}

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) resolveCapabilities(ctx context.Context) (Capabilities, error) {
	var caps Capabilities
	err := p.db.QueryRowContext(ctx, `SELECT
		to_regclass('public.follow_up_tasks') IS NOT NULL,
		to_regclass('public.conversation_summaries') IS NOT NULL,
		EXISTS (SELECT 1 FROM pg_proc WHERE proname = 'admin_analytics')`,
	).Scan(&caps.FollowUpTasks, &caps.ConversationSummaries, &caps.AnalyticsRPC)
	return caps, err
}

// ListConversations returns one page of conversations matching plan and the total count.
func (p *Postgres) ListConversations(ctx context.Context, plan query.Plan, limit, offset int) ([]model.Conversation, int, error) {
	countSQL, countArgs := plan.Count(tableConversations)
	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	selectSQL, args := plan.Select(tableConversations, conversationColumns, limit, offset)
	rows, err := p.db.QueryContext(ctx, selectSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan conversations: %w", err)
	}

	return mapper.Conversations(records), total, nil
}

// GetConversation returns a conversation with its messages in timestamp order.
func (p *Postgres) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := p.getConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT * FROM `+tableMessages+` WHERE conversation_id = $1 ORDER BY created_at ASC, id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}
	for _, r := range records {
		conv.Messages = append(conv.Messages, mapper.Message(r))
	}
	return conv, nil
}

func (p *Postgres) getConversation(ctx context.Context, id string) (*model.Conversation, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+conversationColumns+` FROM `+tableConversations+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	conv := mapper.Conversation(records[0])
	return &conv, nil
}

// UpdateConversation applies patch and returns the updated row.
func (p *Postgres) UpdateConversation(ctx context.Context, id string, patch model.ConversationPatch) (*model.Conversation, error) {
	cols := mapper.PatchColumns(patch)
	if len(cols) == 0 {
		return p.getConversation(ctx, id)
	}

	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+2)
	for i, name := range names {
		v := cols[name]
		if tags, ok := v.([]string); ok {
			v = pq.Array(tags)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", name, i+1))
		args = append(args, v)
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, time.Now().UTC(), id)

	stmt := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d RETURNING %s`,
		tableConversations, strings.Join(sets, ", "), len(args), conversationColumns)

	rows, err := p.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan updated conversation: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	conv := mapper.Conversation(records[0])
	return &conv, nil
}

// DeleteConversation removes a conversation and its messages.
func (p *Postgres) DeleteConversation(ctx context.Context, id string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+tableMessages+` WHERE conversation_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM `+tableConversations+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ListFollowUps returns the follow-up tasks of a conversation, or none when the
// follow_up_tasks table does not exist.
func (p *Postgres) ListFollowUps(ctx context.Context, conversationID string) ([]model.FollowUpTask, error) {
	if !p.caps.FollowUpTasks {
		return []model.FollowUpTask{}, nil
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT * FROM `+tableFollowUps+` WHERE conversation_id = $1 ORDER BY scheduled_for ASC`, conversationID)
	if isUndefined(err) {
		p.logger.Warn("follow_up_tasks disappeared after startup")
		return []model.FollowUpTask{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query follow-ups: %w", err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan follow-ups: %w", err)
	}
	tasks := make([]model.FollowUpTask, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, mapper.FollowUpTask(r))
	}
	return tasks, nil
}

// CreateFollowUp inserts a follow-up task.
func (p *Postgres) CreateFollowUp(ctx context.Context, task *model.FollowUpTask) error {
	if !p.caps.FollowUpTasks {
		return ErrFeatureUnavailable
	}

	_, err := p.db.ExecContext(ctx, `INSERT INTO `+tableFollowUps+`
		(id, conversation_id, scheduled_for, channel, priority, assigned_agent_id, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		task.ID, task.ConversationID, task.ScheduledFor, string(task.Channel), string(task.Priority),
		task.AssignedAgentID, string(task.Status), task.Notes, task.CreatedAt,
	)
	if isUndefined(err) {
		return ErrFeatureUnavailable
	}
	if err != nil {
		return fmt.Errorf("failed to insert follow-up: %w", err)
	}
	return nil
}

// GetSummary returns the stored summary, or nil when there is none or the table is missing.
func (p *Postgres) GetSummary(ctx context.Context, conversationID string) (*model.Summary, error) {
	if !p.caps.ConversationSummaries {
		return nil, nil
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT * FROM `+tableSummaries+` WHERE conversation_id = $1`, conversationID)
	if isUndefined(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan summary: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	s := mapper.Summary(records[0])
	return &s, nil
}

// SaveSummary upserts the summary of a conversation.
func (p *Postgres) SaveSummary(ctx context.Context, summary *model.Summary) error {
	if !p.caps.ConversationSummaries {
		return ErrFeatureUnavailable
	}

	_, err := p.db.ExecContext(ctx, `INSERT INTO `+tableSummaries+` (conversation_id, summary, model, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (conversation_id) DO UPDATE SET summary = EXCLUDED.summary, model = EXCLUDED.model,
		created_at = EXCLUDED.created_at`,
		summary.ConversationID, summary.Text, summary.Model, summary.CreatedAt,
	)
	if isUndefined(err) {
		return ErrFeatureUnavailable
	}
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// Analytics returns the snapshot for a date range, from the admin_analytics function
// when it exists and from plain aggregate queries otherwise.
func (p *Postgres) Analytics(ctx context.Context, from, to time.Time) (model.AnalyticsSnapshot, error) {
	if p.caps.AnalyticsRPC {
		var raw []byte
		err := p.db.QueryRowContext(ctx, `SELECT admin_analytics($1, $2)::text`, from, to).Scan(&raw)
		if err == nil {
			s := mapper.AnalyticsSnapshot(mapper.Decode(raw))
			s.From, s.To = from, to
			return s, nil
		}
		if !isUndefined(err) {
			return model.AnalyticsSnapshot{}, fmt.Errorf("failed to call admin_analytics: %w", err)
		}
		p.logger.Warn("admin_analytics disappeared after startup, using aggregate queries")
	}

	s := model.AnalyticsSnapshot{From: from, To: to}
	err := p.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE lead_quality = 'hot'),
			COUNT(*) FILTER (WHERE lead_quality = 'warm'),
			COUNT(*) FILTER (WHERE lead_quality = 'cold'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COALESCE(AVG(lead_score), 0),
			COALESCE(AVG(duration_minutes), 0)
		FROM `+tableConversations+` WHERE created_at BETWEEN $1 AND $2`, from, to,
	).Scan(&s.TotalConversations, &s.HotLeads, &s.WarmLeads, &s.ColdLeads, &s.Converted,
		&s.AverageLeadScore, &s.AverageDuration)
	if err != nil {
		return model.AnalyticsSnapshot{}, fmt.Errorf("failed to aggregate conversations: %w", err)
	}
	if s.TotalConversations > 0 {
		s.ConversionRate = float64(s.Converted) / float64(s.TotalConversations) * 100
	}

	if s.StatusDistribution, err = p.distribution(ctx, "status", from, to); err != nil {
		return model.AnalyticsSnapshot{}, err
	}
	if s.IntentDistribution, err = p.distribution(ctx, "intent", from, to); err != nil {
		return model.AnalyticsSnapshot{}, err
	}
	if s.PropertyTypeDistribution, err = p.distribution(ctx, "property_type", from, to); err != nil {
		return model.AnalyticsSnapshot{}, err
	}
	return s, nil
}

func (p *Postgres) distribution(ctx context.Context, column string, from, to time.Time) ([]model.Bucket, error) {
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`SELECT COALESCE(%[1]s, ''), COUNT(*) FROM %[2]s
		WHERE created_at BETWEEN $1 AND $2 GROUP BY 1 ORDER BY 2 DESC, 1 ASC`, column, tableConversations), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", column, err)
	}
	defer rows.Close()

	var out []model.Bucket
	for rows.Next() {
		var b model.Bucket
		if err := rows.Scan(&b.Label, &b.Count); err != nil {
			return nil, fmt.Errorf("failed to scan %s bucket: %w", column, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanRows(rows *sql.Rows) ([]mapper.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []mapper.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(mapper.Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func isUndefined(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqUndefinedTable || pqErr.Code == pqUndefinedFunction
}
