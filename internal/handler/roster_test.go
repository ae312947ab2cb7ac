package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paiche/paiche/internal/config"
)

// 测试用周：2025-11-02（周日）至 2025-11-08（周六）

func testHandler() *RosterHandler {
	cfg := &config.Config{}
	cfg.Engine.DefaultTimeout = 5 * time.Second
	cfg.Engine.MaxSuggestions = 3
	return NewRosterHandler(cfg, nil)
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("序列化请求失败: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析错误响应失败: %v", err)
	}
	code, _ := resp["code"].(string)
	return code
}

func TestRosterHandler_Assign(t *testing.T) {
	h := testHandler()

	req := AssignRequest{
		Blocks: []BlockInput{
			{ID: "B1", Date: "2025-11-03", StartTime: "08:00", Category: "solo1"},
			{ID: "B2", Date: "2025-11-04", StartTime: "08:00", Category: "solo1"},
		},
		Drivers: []DriverInput{
			{ID: "D1", Name: "王强", Affinity: "solo1", CanonicalStart: "08:00"},
		},
	}

	w := postJSON(t, h.Assign, "/api/v1/roster/assign", req)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, expected 200, body: %s", w.Code, w.Body.String())
	}

	var resp AssignResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if !resp.Success {
		t.Error("响应应标记成功")
	}
	if len(resp.Assignments) != 2 {
		t.Fatalf("分配数 = %d, expected 2", len(resp.Assignments))
	}
	if resp.Stats == nil || resp.Stats.Assigned != 2 || resp.Stats.Unassigned != 0 {
		t.Errorf("统计不符: %+v", resp.Stats)
	}
	for _, a := range resp.Assignments {
		if a.DriverID != "D1" {
			t.Errorf("块 %s 司机 = %s, expected D1", a.BlockID, a.DriverID)
		}
	}
	if resp.Report == nil || resp.Report.TotalAssignments != 2 {
		t.Error("响应应附带合规报告")
	}
	if len(resp.Workloads) != 1 || resp.Workloads[0].TotalBlocks != 2 {
		t.Error("响应应附带司机工作量汇总")
	}
	if resp.Watchlist == nil || len(resp.Watchlist.Gaps) != 0 {
		t.Error("全部分配成功时关注列表不应有缺口")
	}
	if resp.RosterID != "" {
		t.Error("未要求落库时不应返回 roster_id")
	}
}

func TestRosterHandler_AssignMethodNotAllowed(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/roster/assign", nil)
	w := httptest.NewRecorder()
	h.Assign(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("状态码 = %d, expected 400", w.Code)
	}
	if errorCode(t, w) != "INVALID_INPUT" {
		t.Errorf("错误码 = %s, expected INVALID_INPUT", errorCode(t, w))
	}
}

func TestRosterHandler_AssignValidation(t *testing.T) {
	h := testHandler()

	tests := []struct {
		name string
		req  AssignRequest
		code string
	}{
		{
			"空工作块列表",
			AssignRequest{Drivers: []DriverInput{{ID: "D1", Affinity: "solo1"}}},
			"VALIDATION_FAILED",
		},
		{
			"未知类别",
			AssignRequest{
				Blocks:  []BlockInput{{ID: "B1", Date: "2025-11-03", StartTime: "08:00", Category: "solo9"}},
				Drivers: []DriverInput{{ID: "D1", Affinity: "solo1"}},
			},
			"UNKNOWN_CATEGORY",
		},
		{
			"日期格式错误",
			AssignRequest{
				Blocks:  []BlockInput{{ID: "B1", Date: "11/03/2025", StartTime: "08:00", Category: "solo1"}},
				Drivers: []DriverInput{{ID: "D1", Affinity: "solo1"}},
			},
			"INVALID_INPUT",
		},
		{
			"司机归属无效",
			AssignRequest{
				Blocks:  []BlockInput{{ID: "B1", Date: "2025-11-03", StartTime: "08:00", Category: "solo1"}},
				Drivers: []DriverInput{{ID: "D1", Affinity: "solo3"}},
			},
			"INVALID_INPUT",
		},
		{
			"落库缺少周标识",
			AssignRequest{
				Blocks:  []BlockInput{{ID: "B1", Date: "2025-11-03", StartTime: "08:00", Category: "solo1"}},
				Drivers: []DriverInput{{ID: "D1", Affinity: "solo1"}},
				Persist: true,
			},
			"VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, h.Assign, "/api/v1/roster/assign", tt.req)
			if w.Code == http.StatusOK {
				t.Fatal("非法请求不应返回 200")
			}
			if got := errorCode(t, w); got != tt.code {
				t.Errorf("错误码 = %s, expected %s", got, tt.code)
			}
		})
	}
}

func TestRosterHandler_SwapExecuteRejectsViolation(t *testing.T) {
	h := testHandler()

	// D2 周日已有 solo2 班，换入周二的班起步间隔只有 47 小时
	req := SwapRequest{
		Assignments: []AssignmentInput{
			{
				BlockInput: BlockInput{ID: "B1", Date: "2025-11-04", StartTime: "20:30", Category: "solo2"},
				DriverID:   "D1", DriverName: "王强",
			},
			{
				BlockInput: BlockInput{ID: "B2", Date: "2025-11-02", StartTime: "21:30", Category: "solo2"},
				DriverID:   "D2", DriverName: "李明",
			},
		},
		Drivers: []DriverInput{
			{ID: "D1", Name: "王强", Affinity: "solo2"},
			{ID: "D2", Name: "李明", Affinity: "solo2"},
		},
		BlockID:         "B1",
		CurrentDriverID: "D1",
		NewDriverID:     "D2",
	}

	w := postJSON(t, h.SwapExecute, "/api/v1/roster/swap/execute", req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("状态码 = %d, expected 422, body: %s", w.Code, w.Body.String())
	}
	if errorCode(t, w) != "SWAP_REJECTED" {
		t.Errorf("错误码 = %s, expected SWAP_REJECTED", errorCode(t, w))
	}

	// 同一请求改走校验端点只返回结果，不报错
	w = postJSON(t, h.SwapValidate, "/api/v1/roster/swap/validate", req)
	if w.Code != http.StatusOK {
		t.Fatalf("校验端点状态码 = %d, expected 200", w.Code)
	}
	var v map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("解析校验响应失败: %v", err)
	}
	if valid, _ := v["valid"].(bool); valid {
		t.Error("间隔不足的换班不应通过校验")
	}
}

func TestRosterHandler_SwapExecuteSuccess(t *testing.T) {
	h := testHandler()

	req := SwapRequest{
		Assignments: []AssignmentInput{
			{
				BlockInput: BlockInput{ID: "B1", Date: "2025-11-03", StartTime: "08:00", Category: "solo1"},
				DriverID:   "D1", DriverName: "王强",
			},
		},
		Drivers: []DriverInput{
			{ID: "D1", Name: "王强", Affinity: "solo1"},
			{ID: "D2", Name: "李明", Affinity: "solo1"},
		},
		BlockID:         "B1",
		CurrentDriverID: "D1",
		NewDriverID:     "D2",
	}

	w := postJSON(t, h.SwapExecute, "/api/v1/roster/swap/execute", req)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, expected 200, body: %s", w.Code, w.Body.String())
	}

	var resp SwapExecuteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if !resp.Success || resp.Validation == nil || !resp.Validation.Valid {
		t.Error("合规换班应执行成功")
	}
	if len(resp.Assignments) != 1 {
		t.Fatalf("分配数 = %d, expected 1", len(resp.Assignments))
	}
	if resp.Assignments[0].DriverID != "D2" || resp.Assignments[0].MatchType != "manual" {
		t.Errorf("换班后记录不符: %+v", resp.Assignments[0])
	}
}

func TestRosterHandler_Rules(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	w := httptest.NewRecorder()
	h.Rules(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, expected 200", w.Code)
	}
	var resp struct {
		Rules []RuleOutput `json:"rules"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(resp.Rules) != 3 {
		t.Fatalf("规则数 = %d, expected 3", len(resp.Rules))
	}
	if resp.Rules[0].Category != "solo1" || resp.Rules[0].WeeklyQuota != 5 {
		t.Errorf("solo1 规则不符: %+v", resp.Rules[0])
	}
}

func TestRosterHandler_Workload(t *testing.T) {
	h := testHandler()

	req := WorkloadRequest{
		Assignments: []AssignmentInput{
			{
				BlockInput: BlockInput{ID: "B1", Date: "2025-11-03", StartTime: "08:00", Category: "solo1"},
				DriverID:   "D1", DriverName: "王强",
			},
		},
		Drivers: []DriverInput{{ID: "D1", Name: "王强", Affinity: "solo1"}},
	}

	w := postJSON(t, h.Workload, "/api/v1/roster/workload", req)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, expected 200, body: %s", w.Code, w.Body.String())
	}
	var resp WorkloadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(resp.Workloads) != 1 || resp.Workloads[0].TotalBlocks != 1 {
		t.Errorf("工作量汇总不符: %+v", resp.Workloads)
	}
}
