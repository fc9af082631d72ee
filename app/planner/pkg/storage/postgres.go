package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/lib/pq"

	"github.com/iWorld-y/markee/app/planner/pkg/config"
	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

const (
	tablePlanRuns = "plan_runs"
	tableMessages = "chat_messages"
	tableUsers    = "users"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS plan_runs (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		company_name TEXT NOT NULL,
		profile JSONB NOT NULL,
		plan JSONB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS plan_runs_username_idx ON plan_runs (username, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id BIGSERIAL PRIMARY KEY,
		run_id BIGINT NOT NULL REFERENCES plan_runs (id) ON DELETE CASCADE,
		seq INT NOT NULL,
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		failed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (run_id, seq)
	)`,
}

// PlanRecord 一次方案生成的持久化记录
type PlanRecord struct {
	ID        int64
	Username  string
	Profile   dm.CompanyProfile
	Plan      *dm.MarketingPlan
	CreatedAt time.Time
}

// PlanSummary 方案列表项
type PlanSummary struct {
	ID          int64
	CompanyName string
	CreatedAt   time.Time
}

// User 用户记录
type User struct {
	ID           int
	Username     string
	PasswordHash string
}

type Storage struct {
	db *sql.DB
}

// NewStorage 按配置连接 PostgreSQL 并初始化表结构
func NewStorage(ctx context.Context, cfg config.DBConfig) (*Storage, error) {
	db, err := sql.Open(dialect.Postgres, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	s, err := Open(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Open 在已有连接上初始化存储
func Open(ctx context.Context, db *sql.DB) (*Storage, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.Postgres)
}

// SavePlan 保存方案以及会话的初始记录，返回方案 ID
func (s *Storage) SavePlan(ctx context.Context, username string, profile dm.CompanyProfile, plan *dm.MarketingPlan, transcript []dm.ChatMessage) (*PlanRecord, error) {
	rawProfile, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	rawPlan, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("marshal plan: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	query, args := builder().Insert(tablePlanRuns).
		Columns("username", "company_name", "profile", "plan").
		Values(username, profile.Name, string(rawProfile), string(rawPlan)).
		Returning("id", "created_at").
		Query()

	rec := &PlanRecord{Username: username, Profile: profile, Plan: plan}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return nil, rollback(tx, err)
	}
	if err := insertMessages(ctx, tx, rec.ID, 0, transcript); err != nil {
		return nil, rollback(tx, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetPlan 获取方案，仅限所属用户
func (s *Storage) GetPlan(ctx context.Context, id int64, username string) (*PlanRecord, error) {
	b := builder()
	query, args := b.Select("id", "username", "profile", "plan", "created_at").
		From(b.Table(tablePlanRuns)).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("username", username))).
		Query()

	var (
		rec                 PlanRecord
		rawProfile, rawPlan []byte
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&rec.ID, &rec.Username, &rawProfile, &rawPlan, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawProfile, &rec.Profile); err != nil {
		return nil, fmt.Errorf("decode profile of plan %d: %w", id, err)
	}
	if err := json.Unmarshal(rawPlan, &rec.Plan); err != nil {
		return nil, fmt.Errorf("decode plan %d: %w", id, err)
	}
	return &rec, nil
}

// ListPlans 分页列出用户的方案，按创建时间倒序
func (s *Storage) ListPlans(ctx context.Context, username string, page, pageSize int) ([]*PlanSummary, int, error) {
	b := builder()
	query, args := b.Select("id", "company_name", "created_at").
		From(b.Table(tablePlanRuns)).
		Where(entsql.EQ("username", username)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []*PlanSummary
	for rows.Next() {
		var p PlanSummary
		if err := rows.Scan(&p.ID, &p.CompanyName, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	b = builder()
	query, args = b.Select(entsql.Count("*")).
		From(b.Table(tablePlanRuns)).
		Where(entsql.EQ("username", username)).
		Query()
	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// DeletePlan 删除方案及其对话记录
func (s *Storage) DeletePlan(ctx context.Context, id int64, username string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	query, args := builder().Delete(tablePlanRuns).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("username", username))).
		Query()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return rollback(tx, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return rollback(tx, err)
	} else if n == 0 {
		return rollback(tx, ErrNotFound)
	}

	query, args = builder().Delete(tableMessages).Where(entsql.EQ("run_id", id)).Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return rollback(tx, err)
	}
	return tx.Commit()
}

// AppendMessages 在已有对话记录之后追加消息，pending 的消息不落库。
// 序号在事务内按当前最大 seq 计算，并发写入由方案行锁串行化
func (s *Storage) AppendMessages(ctx context.Context, runID int64, msgs []dm.ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	b := builder()
	query, args := b.Select("id").
		From(b.Table(tablePlanRuns)).
		Where(entsql.EQ("id", runID)).
		ForUpdate().
		Query()
	var id int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return rollback(tx, err)
	}

	next, err := nextSeq(ctx, tx, runID)
	if err != nil {
		return rollback(tx, err)
	}
	if err := insertMessages(ctx, tx, runID, next, msgs); err != nil {
		return rollback(tx, err)
	}
	return tx.Commit()
}

// nextSeq 返回方案下一条消息的序号
func nextSeq(ctx context.Context, tx *sql.Tx, runID int64) (int, error) {
	b := builder()
	query, args := b.Select("COALESCE(MAX(seq), -1)").
		From(b.Table(tableMessages)).
		Where(entsql.EQ("run_id", runID)).
		Query()
	var last int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&last); err != nil {
		return 0, err
	}
	return last + 1, nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, runID int64, seq int, msgs []dm.ChatMessage) error {
	insert := builder().Insert(tableMessages).Columns("run_id", "seq", "role", "text", "failed")
	n := 0
	for _, m := range msgs {
		if m.Pending {
			continue
		}
		insert.Values(runID, seq+n, string(m.Role), m.Text, m.Failed)
		n++
	}
	if n == 0 {
		return nil
	}
	query, args := insert.Query()
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ListMessages 按顺序读取方案的对话记录
func (s *Storage) ListMessages(ctx context.Context, runID int64) ([]dm.ChatMessage, error) {
	b := builder()
	query, args := b.Select("role", "text", "failed").
		From(b.Table(tableMessages)).
		Where(entsql.EQ("run_id", runID)).
		OrderBy("seq").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []dm.ChatMessage
	for rows.Next() {
		var (
			m    dm.ChatMessage
			role string
		)
		if err := rows.Scan(&role, &m.Text, &m.Failed); err != nil {
			return nil, err
		}
		m.Role = dm.Role(role)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CreateUser 创建用户，用户名重复时返回 ErrDuplicate
func (s *Storage) CreateUser(ctx context.Context, username, passwordHash string) error {
	query, args := builder().Insert(tableUsers).
		Columns("username", "password_hash").
		Values(username, passwordHash).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicate, username)
		}
		return err
	}
	return nil
}

// GetUserByUsername 根据用户名获取用户
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	b := builder()
	query, args := b.Select("id", "username", "password_hash").
		From(b.Table(tableUsers)).
		Where(entsql.EQ("username", username)).
		Query()

	var u User
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func rollback(tx *sql.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		err = fmt.Errorf("%w: %v", err, rerr)
	}
	return err
}
