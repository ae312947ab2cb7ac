// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/pkg/model"
)

// Roster 周排班记录
type Roster struct {
	ID          uuid.UUID      `json:"id"`
	WeekOf      string         `json:"week_of"` // 周日日期 YYYY-MM-DD
	Status      string         `json:"status"`  // draft/published/archived
	TotalBlocks int            `json:"total_blocks"`
	Assigned    int            `json:"assigned"`
	FillRate    float64        `json:"fill_rate"`
	GeneratedAt time.Time      `json:"generated_at"`
	GeneratedBy string         `json:"generated_by"` // system/manual
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// RosterAssignment 排班分配记录
type RosterAssignment struct {
	ID         uuid.UUID `json:"id"`
	RosterID   uuid.UUID `json:"roster_id"`
	BlockID    string    `json:"block_id"`
	DriverID   string    `json:"driver_id"`
	DriverName string    `json:"driver_name"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	Category   string    `json:"category"`
	MatchType  string    `json:"match_type"`
	Score      float64   `json:"score"`
	Pay        float64   `json:"pay"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RosterRepositoryInterface 排班仓储接口
type RosterRepositoryInterface interface {
	// 排班表操作
	Create(ctx context.Context, roster *Roster) error
	GetByID(ctx context.Context, id uuid.UUID) (*Roster, error)
	Update(ctx context.Context, roster *Roster) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]*Roster, int, error)

	// 排班分配操作
	CreateAssignment(ctx context.Context, assignment *RosterAssignment) error
	CreateAssignments(ctx context.Context, rosterID uuid.UUID, assignments []*model.Assignment) error
	GetAssignments(ctx context.Context, rosterID uuid.UUID) ([]*RosterAssignment, error)
	GetAssignmentsByDriver(ctx context.Context, driverID, startDate, endDate string) ([]*RosterAssignment, error)
	DeleteAssignments(ctx context.Context, rosterID uuid.UUID) error

	// 查询统计
	GetLatest(ctx context.Context, weekOf string) (*Roster, error)
}

// RosterRepository 排班仓储实现
type RosterRepository struct {
	db DB
}

// NewRosterRepository 创建排班仓储
func NewRosterRepository(db DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// Create 创建排班记录
func (r *RosterRepository) Create(ctx context.Context, roster *Roster) error {
	if roster.ID == uuid.Nil {
		roster.ID = uuid.New()
	}
	now := time.Now()
	roster.CreatedAt = now
	roster.UpdatedAt = now

	metadataJSON, _ := json.Marshal(roster.Metadata)

	query := `
		INSERT INTO rosters (
			id, week_of, status, total_blocks, assigned, fill_rate,
			generated_at, generated_by, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		roster.ID, roster.WeekOf, roster.Status, roster.TotalBlocks, roster.Assigned, roster.FillRate,
		roster.GeneratedAt, roster.GeneratedBy, metadataJSON, roster.CreatedAt, roster.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建排班记录失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取排班
func (r *RosterRepository) GetByID(ctx context.Context, id uuid.UUID) (*Roster, error) {
	query := `
		SELECT id, week_of, status, total_blocks, assigned, fill_rate,
			generated_at, generated_by, metadata, created_at, updated_at
		FROM rosters
		WHERE id = $1
	`

	return r.scanRoster(r.db.QueryRowContext(ctx, query, id))
}

// Update 更新排班
func (r *RosterRepository) Update(ctx context.Context, roster *Roster) error {
	roster.UpdatedAt = time.Now()
	metadataJSON, _ := json.Marshal(roster.Metadata)

	query := `
		UPDATE rosters SET
			status = $2, total_blocks = $3, assigned = $4, fill_rate = $5,
			metadata = $6, updated_at = $7
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		roster.ID, roster.Status, roster.TotalBlocks, roster.Assigned, roster.FillRate,
		metadataJSON, roster.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新排班记录失败: %w", err)
	}

	return nil
}

// Delete 删除排班
func (r *RosterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// 先删除分配
	_, err := r.db.ExecContext(ctx, "DELETE FROM roster_assignments WHERE roster_id = $1", id)
	if err != nil {
		return fmt.Errorf("删除排班分配失败: %w", err)
	}

	// 再删除排班
	_, err = r.db.ExecContext(ctx, "DELETE FROM rosters WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("删除排班记录失败: %w", err)
	}

	return nil
}

// List 列出排班
func (r *RosterRepository) List(ctx context.Context, filter ListFilter) ([]*Roster, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.WeekOf != "" {
		conditions = append(conditions, fmt.Sprintf("week_of = $%d", argNum))
		args = append(args, filter.WeekOf)
		argNum++
	}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, filter.Status)
		argNum++
	}

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("week_of >= $%d", argNum))
		args = append(args, filter.StartDate)
		argNum++
	}

	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("week_of <= $%d", argNum))
		args = append(args, filter.EndDate)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// 计数
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM rosters %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计排班数量失败: %w", err)
	}

	// 查询
	query := fmt.Sprintf(`
		SELECT id, week_of, status, total_blocks, assigned, fill_rate,
			generated_at, generated_by, metadata, created_at, updated_at
		FROM rosters %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, filter.OrderBy, filter.OrderDir, argNum, argNum+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询排班列表失败: %w", err)
	}
	defer rows.Close()

	var rosters []*Roster
	for rows.Next() {
		roster, err := r.scanRosterFromRows(rows)
		if err != nil {
			return nil, 0, err
		}
		rosters = append(rosters, roster)
	}

	return rosters, total, nil
}

// CreateAssignments 批量创建排班分配
//
// 只持久化已分配的记录，未分配的工作块不落库。
func (r *RosterRepository) CreateAssignments(ctx context.Context, rosterID uuid.UUID, assignments []*model.Assignment) error {
	for _, a := range assignments {
		if !a.Assigned() {
			continue
		}
		assignment := &RosterAssignment{
			ID:         uuid.New(),
			RosterID:   rosterID,
			BlockID:    a.Block.ID,
			DriverID:   a.DriverID,
			DriverName: a.DriverName,
			Date:       a.Date,
			StartTime:  a.StartTime,
			Category:   string(a.Category),
			MatchType:  string(a.Type),
			Score:      a.Score,
			Pay:        a.EstimatedPay,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}

		if err := r.CreateAssignment(ctx, assignment); err != nil {
			return err
		}
	}
	return nil
}

// CreateAssignment 创建单个排班分配
func (r *RosterRepository) CreateAssignment(ctx context.Context, assignment *RosterAssignment) error {
	query := `
		INSERT INTO roster_assignments (
			id, roster_id, block_id, driver_id, driver_name,
			date, start_time, category, match_type, score, pay,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		assignment.ID, assignment.RosterID, assignment.BlockID, assignment.DriverID,
		assignment.DriverName, assignment.Date, assignment.StartTime, assignment.Category,
		assignment.MatchType, assignment.Score, assignment.Pay,
		assignment.CreatedAt, assignment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建排班分配失败: %w", err)
	}

	return nil
}

// GetAssignments 获取排班分配
func (r *RosterRepository) GetAssignments(ctx context.Context, rosterID uuid.UUID) ([]*RosterAssignment, error) {
	query := `
		SELECT id, roster_id, block_id, driver_id, driver_name,
			date, start_time, category, match_type, score, pay,
			created_at, updated_at
		FROM roster_assignments
		WHERE roster_id = $1
		ORDER BY date, start_time, block_id
	`

	rows, err := r.db.QueryContext(ctx, query, rosterID)
	if err != nil {
		return nil, fmt.Errorf("查询排班分配失败: %w", err)
	}
	defer rows.Close()

	return r.scanAssignments(rows)
}

// GetAssignmentsByDriver 获取司机的排班分配
func (r *RosterRepository) GetAssignmentsByDriver(ctx context.Context, driverID, startDate, endDate string) ([]*RosterAssignment, error) {
	query := `
		SELECT id, roster_id, block_id, driver_id, driver_name,
			date, start_time, category, match_type, score, pay,
			created_at, updated_at
		FROM roster_assignments
		WHERE driver_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, start_time, block_id
	`

	rows, err := r.db.QueryContext(ctx, query, driverID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("查询司机排班失败: %w", err)
	}
	defer rows.Close()

	return r.scanAssignments(rows)
}

// DeleteAssignments 删除排班分配
func (r *RosterRepository) DeleteAssignments(ctx context.Context, rosterID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM roster_assignments WHERE roster_id = $1", rosterID)
	if err != nil {
		return fmt.Errorf("删除排班分配失败: %w", err)
	}
	return nil
}

// GetLatest 获取指定周的最新排班
func (r *RosterRepository) GetLatest(ctx context.Context, weekOf string) (*Roster, error) {
	query := `
		SELECT id, week_of, status, total_blocks, assigned, fill_rate,
			generated_at, generated_by, metadata, created_at, updated_at
		FROM rosters
		WHERE week_of = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanRoster(r.db.QueryRowContext(ctx, query, weekOf))
}

// scanRoster 扫描单行排班
func (r *RosterRepository) scanRoster(row *sql.Row) (*Roster, error) {
	roster := &Roster{}
	var metadataJSON []byte

	err := row.Scan(
		&roster.ID, &roster.WeekOf, &roster.Status, &roster.TotalBlocks, &roster.Assigned, &roster.FillRate,
		&roster.GeneratedAt, &roster.GeneratedBy, &metadataJSON, &roster.CreatedAt, &roster.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描排班记录失败: %w", err)
	}

	if len(metadataJSON) > 0 {
		json.Unmarshal(metadataJSON, &roster.Metadata)
	}

	return roster, nil
}

// scanRosterFromRows 从多行结果扫描
func (r *RosterRepository) scanRosterFromRows(rows *sql.Rows) (*Roster, error) {
	roster := &Roster{}
	var metadataJSON []byte

	err := rows.Scan(
		&roster.ID, &roster.WeekOf, &roster.Status, &roster.TotalBlocks, &roster.Assigned, &roster.FillRate,
		&roster.GeneratedAt, &roster.GeneratedBy, &metadataJSON, &roster.CreatedAt, &roster.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("扫描排班记录失败: %w", err)
	}

	if len(metadataJSON) > 0 {
		json.Unmarshal(metadataJSON, &roster.Metadata)
	}

	return roster, nil
}

// scanAssignments 扫描分配结果集
func (r *RosterRepository) scanAssignments(rows *sql.Rows) ([]*RosterAssignment, error) {
	var assignments []*RosterAssignment
	for rows.Next() {
		a := &RosterAssignment{}
		if err := rows.Scan(
			&a.ID, &a.RosterID, &a.BlockID, &a.DriverID, &a.DriverName,
			&a.Date, &a.StartTime, &a.Category, &a.MatchType, &a.Score, &a.Pay,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("扫描排班分配失败: %w", err)
		}
		assignments = append(assignments, a)
	}

	return assignments, nil
}
