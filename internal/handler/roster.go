// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/internal/config"
	"github.com/paiche/paiche/internal/metrics"
	"github.com/paiche/paiche/internal/repository"
	"github.com/paiche/paiche/pkg/engine"
	"github.com/paiche/paiche/pkg/errors"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/report"
	"github.com/paiche/paiche/pkg/rules"
	"github.com/paiche/paiche/pkg/swap"
	"github.com/paiche/paiche/pkg/watchlist"
	"github.com/paiche/paiche/pkg/workload"
)

// RosterHandler 排班处理器
type RosterHandler struct {
	cfg        *config.Config
	engine     *engine.Engine
	aggregator *workload.Aggregator
	builder    *watchlist.Builder
	swapper    *swap.Swapper
	reporter   *report.Reporter
	repo       repository.RosterRepositoryInterface // 可为 nil，纯内存模式
	mu         sync.Mutex                           // 串行化落库写入
}

// NewRosterHandler 创建排班处理器
func NewRosterHandler(cfg *config.Config, repo repository.RosterRepositoryInterface) *RosterHandler {
	return &RosterHandler{
		cfg:        cfg,
		engine:     engine.New(),
		aggregator: workload.NewAggregator(),
		builder:    watchlist.NewBuilder(),
		swapper:    swap.NewSwapper(),
		reporter:   report.NewReporter(),
		repo:       repo,
	}
}

// DriverInput 司机输入
type DriverInput struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Affinity       string   `json:"affinity"` // solo1/solo2/team/both
	Status         string   `json:"status,omitempty"`
	PreferredDays  []string `json:"preferred_days,omitempty"` // Sun..Sat
	CanonicalStart string   `json:"canonical_start,omitempty"`
	WeeklyQuota    int      `json:"weekly_quota,omitempty"`
	Reliability    float64  `json:"reliability,omitempty"`
}

// BlockInput 工作块输入
type BlockInput struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"`       // YYYY-MM-DD
	StartTime     string  `json:"start_time"` // HH:MM
	Category      string  `json:"category"`
	DurationClass string  `json:"duration_class,omitempty"`
	EstimatedPay  float64 `json:"estimated_pay,omitempty"`
}

// AssignmentInput 已有分配输入，用于工作量汇总与换班
type AssignmentInput struct {
	BlockInput
	DriverID   string  `json:"driver_id"`
	DriverName string  `json:"driver_name,omitempty"`
	MatchType  string  `json:"match_type,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// AssignRequest 自动分配请求
type AssignRequest struct {
	WeekOf  string        `json:"week_of,omitempty"` // 周日日期，仅用于落库标识
	Blocks  []BlockInput  `json:"blocks"`
	Drivers []DriverInput `json:"drivers"`
	Persist bool          `json:"persist,omitempty"`
}

// AssignmentOutput 分配输出
type AssignmentOutput struct {
	BlockID    string            `json:"block_id"`
	Date       string            `json:"date"`
	StartTime  string            `json:"start_time"`
	Category   string            `json:"category"`
	DriverID   string            `json:"driver_id,omitempty"`
	DriverName string            `json:"driver_name,omitempty"`
	MatchType  string            `json:"match_type"`
	Score      float64           `json:"score"`
	Warnings   []model.Violation `json:"warnings,omitempty"`
}

// AssignResponse 自动分配响应
type AssignResponse struct {
	Success     bool                       `json:"success"`
	RosterID    string                     `json:"roster_id,omitempty"`
	Assignments []AssignmentOutput         `json:"assignments"`
	Unassigned  []*engine.UnassignedBlock  `json:"unassigned,omitempty"`
	Stats       *engine.Stats              `json:"stats"`
	Workloads   []*workload.DriverWorkload `json:"workloads"`
	Watchlist   *watchlist.Watchlist       `json:"watchlist"`
	Report      *report.Report             `json:"report"`
	Duration    string                     `json:"duration"`
}

// Assign 对一周的工作块执行自动分配
func (h *RosterHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if err := validateAssignRequest(&req); err != nil {
		respondError(w, err)
		return
	}

	blocks, appErr := parseBlocks(req.Blocks)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	drivers, appErr := parseDrivers(req.Drivers)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	timeout := 30 * time.Second
	if h.cfg != nil && h.cfg.Engine.DefaultTimeout > 0 {
		timeout = h.cfg.Engine.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	result, err := h.engine.Assign(ctx, blocks, drivers)
	if err != nil {
		metrics.RecordAssignRun(false, 0, 0, 0)
		if err == context.DeadlineExceeded {
			respondError(w, errors.New(errors.CodeTimeout, "自动分配超时"))
			return
		}
		respondError(w, errors.Wrap(err, errors.CodeInternal, "自动分配失败"))
		return
	}
	metrics.RecordAssignRun(true, result.Duration, result.Stats.Unassigned, result.Stats.FillRate)
	for _, a := range result.Assignments {
		for _, v := range a.Warnings {
			metrics.RecordComplianceViolation(string(v.Kind), string(v.Severity))
		}
	}

	resp := AssignResponse{
		Success:     true,
		Assignments: toAssignmentOutputs(result.Assignments),
		Unassigned:  result.Unassigned,
		Stats:       result.Stats,
		Workloads:   h.aggregator.Aggregate(result.Assignments, drivers),
		Watchlist:   h.builder.Build(result.Assignments, drivers),
		Report:      h.reporter.Generate(result.Assignments, drivers),
		Duration:    result.Duration.String(),
	}

	if req.Persist && h.repo != nil {
		rosterID, err := h.persist(r.Context(), req.WeekOf, result)
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "排班结果落库失败"))
			return
		}
		resp.RosterID = rosterID.String()
	}

	respondJSON(w, http.StatusOK, resp)
}

// persist 把分配结果写入数据库
func (h *RosterHandler) persist(ctx context.Context, weekOf string, result *engine.Result) (uuid.UUID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	roster := &repository.Roster{
		ID:          uuid.New(),
		WeekOf:      weekOf,
		Status:      "draft",
		TotalBlocks: result.Stats.TotalBlocks,
		Assigned:    result.Stats.Assigned,
		FillRate:    result.Stats.FillRate,
		GeneratedAt: time.Now(),
		GeneratedBy: "system",
	}
	if err := h.repo.Create(ctx, roster); err != nil {
		return uuid.Nil, err
	}
	if err := h.repo.CreateAssignments(ctx, roster.ID, result.Assignments); err != nil {
		return uuid.Nil, err
	}
	return roster.ID, nil
}

// WorkloadRequest 工作量汇总请求
type WorkloadRequest struct {
	Assignments []AssignmentInput `json:"assignments"`
	Drivers     []DriverInput     `json:"drivers"`
}

// WorkloadResponse 工作量汇总响应
type WorkloadResponse struct {
	Workloads []*workload.DriverWorkload `json:"workloads"`
}

// Workload 按司机汇总周工作量
func (h *RosterHandler) Workload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req WorkloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if len(req.Drivers) == 0 {
		respondError(w, errors.InvalidInput("drivers", "司机列表不能为空"))
		return
	}

	assignments, appErr := parseAssignments(req.Assignments)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	drivers, appErr := parseDrivers(req.Drivers)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	respondJSON(w, http.StatusOK, WorkloadResponse{
		Workloads: h.aggregator.Aggregate(assignments, drivers),
	})
}

// WatchlistRequest 关注列表请求
type WatchlistRequest struct {
	Assignments []AssignmentInput `json:"assignments"`
	Drivers     []DriverInput     `json:"drivers"`
}

// Watchlist 生成调度关注列表
func (h *RosterHandler) Watchlist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req WatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if len(req.Drivers) == 0 {
		respondError(w, errors.InvalidInput("drivers", "司机列表不能为空"))
		return
	}

	assignments, appErr := parseAssignments(req.Assignments)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	drivers, appErr := parseDrivers(req.Drivers)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	respondJSON(w, http.StatusOK, h.builder.Build(assignments, drivers))
}

// SwapRequest 换班请求，校验与执行共用
type SwapRequest struct {
	Assignments     []AssignmentInput `json:"assignments"`
	Drivers         []DriverInput     `json:"drivers"`
	BlockID         string            `json:"block_id"`
	CurrentDriverID string            `json:"current_driver_id"`
	NewDriverID     string            `json:"new_driver_id"`
}

// SwapValidate 校验换班是否合规
func (h *RosterHandler) SwapValidate(w http.ResponseWriter, r *http.Request) {
	v, _, appErr := h.validateSwap(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	metrics.RecordSwapValidation(v.Valid)
	respondJSON(w, http.StatusOK, v)
}

// SwapExecuteResponse 换班执行响应
type SwapExecuteResponse struct {
	Success     bool               `json:"success"`
	Validation  *swap.Validation   `json:"validation"`
	Assignments []AssignmentOutput `json:"assignments"`
}

// SwapExecute 校验并执行换班
//
// 校验与执行在同一请求里完成，避免两次调用之间状态漂移。
// 校验未通过时返回 422，不改动任何分配。
func (h *RosterHandler) SwapExecute(w http.ResponseWriter, r *http.Request) {
	v, assignments, appErr := h.validateSwap(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	metrics.RecordSwapValidation(v.Valid)

	updated, err := h.swapper.Execute(assignments, v)
	if err != nil {
		appErr, ok := err.(*errors.AppError)
		if !ok {
			appErr = errors.Wrap(err, errors.CodeInternal, "换班执行失败")
		}
		respondError(w, appErr)
		return
	}

	swap.SortByBlock(updated)
	respondJSON(w, http.StatusOK, SwapExecuteResponse{
		Success:     true,
		Validation:  v,
		Assignments: toAssignmentOutputs(updated),
	})
}

// validateSwap 解析换班请求并执行校验
func (h *RosterHandler) validateSwap(r *http.Request) (*swap.Validation, []*model.Assignment, *errors.AppError) {
	if r.Method != http.MethodPost {
		return nil, nil, errors.New(errors.CodeInvalidInput, "仅支持POST方法")
	}

	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败")
	}
	if req.BlockID == "" || req.CurrentDriverID == "" || req.NewDriverID == "" {
		return nil, nil, errors.New(errors.CodeInvalidInput, "block_id、current_driver_id、new_driver_id 均不能为空")
	}

	assignments, appErr := parseAssignments(req.Assignments)
	if appErr != nil {
		return nil, nil, appErr
	}
	drivers, appErr := parseDrivers(req.Drivers)
	if appErr != nil {
		return nil, nil, appErr
	}

	v, err := h.swapper.Validate(assignments, drivers, req.BlockID, req.CurrentDriverID, req.NewDriverID)
	if err != nil {
		appErr, ok := err.(*errors.AppError)
		if !ok {
			appErr = errors.Wrap(err, errors.CodeInternal, "换班校验失败")
		}
		return nil, nil, appErr
	}
	return v, assignments, nil
}

// RuleOutput 规则目录输出
type RuleOutput struct {
	Category           string  `json:"category"`
	DurationHours      float64 `json:"duration_hours"`
	MinRestHours       float64 `json:"min_rest_hours,omitempty"`
	MinStartGapHours   float64 `json:"min_start_gap_hours,omitempty"`
	MaxConsecutiveDays int     `json:"max_consecutive_days"`
	WeeklyQuota        int     `json:"weekly_quota"`
	BumpToleranceHours float64 `json:"bump_tolerance_hours"`
	NominalPay         float64 `json:"nominal_pay"`
}

// Rules 返回各工作类别的合规规则目录
func (h *RosterHandler) Rules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	out := make([]RuleOutput, 0)
	for _, rule := range rules.All() {
		out = append(out, RuleOutput{
			Category:           string(rule.Category),
			DurationHours:      rule.DurationHours,
			MinRestHours:       rule.MinRestHours,
			MinStartGapHours:   rule.MinStartGapHours,
			MaxConsecutiveDays: rule.MaxConsecutiveDays,
			WeeklyQuota:        rule.WeeklyQuota,
			BumpToleranceHours: rule.BumpToleranceHours,
			NominalPay:         rule.NominalPay,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"rules": out})
}

// validateAssignRequest 验证自动分配请求
func validateAssignRequest(req *AssignRequest) *errors.AppError {
	ve := &errors.ValidationErrors{}

	if len(req.Blocks) == 0 {
		ve.Add("blocks", "工作块列表不能为空")
	}
	if len(req.Drivers) == 0 {
		ve.Add("drivers", "司机列表不能为空")
	}
	if req.Persist && req.WeekOf == "" {
		ve.Add("week_of", "落库时周日日期不能为空")
	}
	if req.WeekOf != "" {
		if _, err := time.Parse("2006-01-02", req.WeekOf); err != nil {
			ve.Add("week_of", "日期格式无效，应为YYYY-MM-DD")
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// parseBlocks 解析工作块输入
func parseBlocks(inputs []BlockInput) ([]*model.Block, *errors.AppError) {
	blocks := make([]*model.Block, 0, len(inputs))
	for _, in := range inputs {
		if in.ID == "" {
			return nil, errors.InvalidInput("blocks", "工作块ID不能为空")
		}
		cat := model.Category(in.Category)
		if !cat.IsValid() {
			return nil, errors.UnknownCategory(in.Category)
		}
		if _, err := time.Parse("2006-01-02", in.Date); err != nil {
			return nil, errors.InvalidInput("blocks", "工作块 "+in.ID+" 日期格式无效")
		}
		if _, err := time.Parse("15:04", in.StartTime); err != nil {
			return nil, errors.InvalidInput("blocks", "工作块 "+in.ID+" 时间格式无效")
		}
		blocks = append(blocks, &model.Block{
			ID:            in.ID,
			Date:          in.Date,
			StartTime:     in.StartTime,
			Category:      cat,
			DurationClass: in.DurationClass,
			EstimatedPay:  in.EstimatedPay,
		})
	}
	return blocks, nil
}

// parseDrivers 解析司机输入
func parseDrivers(inputs []DriverInput) ([]*model.Driver, *errors.AppError) {
	drivers := make([]*model.Driver, 0, len(inputs))
	for _, in := range inputs {
		if in.ID == "" {
			return nil, errors.InvalidInput("drivers", "司机ID不能为空")
		}
		affinity := model.Affinity(in.Affinity)
		if !affinity.IsValid() {
			return nil, errors.InvalidInput("drivers", "司机 "+in.ID+" 归属 '"+in.Affinity+"' 无效")
		}
		days := make([]time.Weekday, 0, len(in.PreferredDays))
		for _, name := range in.PreferredDays {
			wd, ok := parseWeekday(name)
			if !ok {
				return nil, errors.InvalidInput("drivers", "司机 "+in.ID+" 偏好日 '"+name+"' 无效")
			}
			days = append(days, wd)
		}
		status := model.DriverStatus(in.Status)
		if in.Status == "" {
			status = model.StatusActive
		}
		drivers = append(drivers, &model.Driver{
			ID:             in.ID,
			Name:           in.Name,
			Affinity:       affinity,
			Status:         status,
			PreferredDays:  days,
			CanonicalStart: in.CanonicalStart,
			WeeklyQuota:    in.WeeklyQuota,
			Reliability:    in.Reliability,
		})
	}
	return drivers, nil
}

// parseAssignments 解析已有分配输入
func parseAssignments(inputs []AssignmentInput) ([]*model.Assignment, *errors.AppError) {
	assignments := make([]*model.Assignment, 0, len(inputs))
	for _, in := range inputs {
		blocks, appErr := parseBlocks([]BlockInput{in.BlockInput})
		if appErr != nil {
			return nil, appErr
		}
		matchType := model.AssignmentType(in.MatchType)
		if in.MatchType == "" {
			matchType = model.MatchManual
		}
		assignments = append(assignments, &model.Assignment{
			Block:      *blocks[0],
			DriverID:   in.DriverID,
			DriverName: in.DriverName,
			Type:       matchType,
			Score:      in.Score,
		})
	}
	return assignments, nil
}

// parseWeekday 解析星期名称
func parseWeekday(name string) (time.Weekday, bool) {
	for i, n := range model.WeekdayNames {
		if n == name {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

// toAssignmentOutputs 转换分配结果为输出格式
func toAssignmentOutputs(assignments []*model.Assignment) []AssignmentOutput {
	out := make([]AssignmentOutput, len(assignments))
	for i, a := range assignments {
		out[i] = AssignmentOutput{
			BlockID:    a.Block.ID,
			Date:       a.Date,
			StartTime:  a.StartTime,
			Category:   string(a.Category),
			DriverID:   a.DriverID,
			DriverName: a.DriverName,
			MatchType:  string(a.Type),
			Score:      a.Score,
			Warnings:   a.Warnings,
		}
	}
	return out
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}
