package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"campus-timetable/backend/internal/dto"
	pkgerrors "campus-timetable/backend/pkg/errors"
)

// ── 测试辅助 ──

func setupTestTimeSlotService() (TimeSlotService, *fixture) {
	f := newFixture()
	return NewTimeSlotService(f.repo, zap.NewNop()), f
}

func slotReq(name string, start, end string, seq int) *dto.CreateTimeSlotRequest {
	return &dto.CreateTimeSlotRequest{Name: name, SlotType: "lesson", StartTime: start, EndTime: end, SequenceOrder: seq}
}

// ── Create 测试 ──

func TestTimeSlotService_Create_Success(t *testing.T) {
	svc, _ := setupTestTimeSlotService()

	req := slotReq("第三节", "10:00", "10:45", 10)
	req.AppliesTo = []int{5, 1, 3, 1}

	result, err := svc.Create(context.Background(), editor(), req)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if result.StartTime != "10:00" || result.EndTime != "10:45" {
		t.Errorf("期望 10:00-10:45，实际 %s-%s", result.StartTime, result.EndTime)
	}
	if len(result.AppliesTo) != 3 || result.AppliesTo[0] != 1 || result.AppliesTo[2] != 5 {
		t.Errorf("期望 applies_to 去重排序为 [1 3 5]，实际: %v", result.AppliesTo)
	}
	if !result.IsActive {
		t.Error("新建时间段应默认启用")
	}
}

func TestTimeSlotService_Create_Forbidden(t *testing.T) {
	svc, _ := setupTestTimeSlotService()

	_, err := svc.Create(context.Background(), viewer(), slotReq("第三节", "10:00", "10:45", 10))
	if !errors.Is(err, pkgerrors.ErrForbidden) {
		t.Errorf("期望 ErrForbidden，实际: %v", err)
	}
}

func TestTimeSlotService_Create_Validation(t *testing.T) {
	svc, _ := setupTestTimeSlotService()

	tests := []struct {
		name string
		req  *dto.CreateTimeSlotRequest
		want error
	}{
		{"开始晚于结束", slotReq("x", "10:45", "10:00", 10), ErrInvalidTimeRange},
		{"开始等于结束", slotReq("x", "10:00", "10:00", 10), ErrInvalidTimeRange},
		{"时间格式错误", slotReq("x", "8:00", "10:00", 10), ErrInvalidClock},
		{"类型非法", &dto.CreateTimeSlotRequest{Name: "x", SlotType: "nap", StartTime: "10:00", EndTime: "10:30", SequenceOrder: 10}, ErrInvalidSlotType},
		{"节次重复", slotReq("x", "10:00", "10:45", 1), ErrDuplicateSequence},
		{"星期越界", &dto.CreateTimeSlotRequest{Name: "x", SlotType: "lesson", StartTime: "10:00", EndTime: "10:30", SequenceOrder: 10, AppliesTo: []int{0}}, ErrInvalidAppliesTo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), editor(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
			if !errors.Is(err, pkgerrors.ErrValidation) {
				t.Errorf("应属于校验错误类别，实际: %v", err)
			}
		})
	}
}

// ── List 测试 ──

func TestTimeSlotService_List_OrderedBySequence(t *testing.T) {
	svc, _ := setupTestTimeSlotService()
	if _, err := svc.Create(context.Background(), editor(), slotReq("早读", "07:20", "07:50", 5)); err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	list, err := svc.List(context.Background(), editor(), &dto.TimeSlotListRequest{})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].SequenceOrder > list[i].SequenceOrder {
			t.Fatalf("列表应按节次升序: %d 在 %d 之前", list[i-1].SequenceOrder, list[i].SequenceOrder)
		}
	}
}

func TestTimeSlotService_List_OtherInstitutionInvisible(t *testing.T) {
	svc, _ := setupTestTimeSlotService()

	list, err := svc.List(context.Background(), Actor{UserID: "u", InstitutionID: otherInstitution}, &dto.TimeSlotListRequest{IncludeInactive: true})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("其他机构不应看到时间段，实际 %d 条", len(list))
	}
}

// ── Update 测试 ──

func TestTimeSlotService_Update_PartialAndDeactivate(t *testing.T) {
	svc, f := setupTestTimeSlotService()

	name := "第一节（调整）"
	inactive := false
	result, err := svc.Update(context.Background(), editor(), f.period1, &dto.UpdateTimeSlotRequest{Name: &name, IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if result.Name != name || result.IsActive {
		t.Errorf("期望名称更新且停用，实际: %+v", result)
	}
	if result.StartTime != "08:00" {
		t.Errorf("未修改字段应保持不变，实际 StartTime=%s", result.StartTime)
	}
	if result.Version != 2 {
		t.Errorf("期望 Version=2，实际=%d", result.Version)
	}
}

func TestTimeSlotService_Update_InvertedRange(t *testing.T) {
	svc, f := setupTestTimeSlotService()

	end := "07:00"
	_, err := svc.Update(context.Background(), editor(), f.period1, &dto.UpdateTimeSlotRequest{EndTime: &end})
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("期望 ErrInvalidTimeRange，实际: %v", err)
	}
}

func TestTimeSlotService_Update_NotFound(t *testing.T) {
	svc, _ := setupTestTimeSlotService()

	name := "x"
	_, err := svc.Update(context.Background(), editor(), "nonexistent", &dto.UpdateTimeSlotRequest{Name: &name})
	if !errors.Is(err, ErrTimeSlotNotFound) {
		t.Errorf("期望 ErrTimeSlotNotFound，实际: %v", err)
	}
}

func TestTimeSlotService_Update_DeactivateInUse(t *testing.T) {
	svc, f := setupTestTimeSlotService()
	f.addEntry("e1", f.class7A, f.math, f.teacherA, nil, f.period1, 3)

	inactive := false
	_, err := svc.Update(context.Background(), editor(), f.period1, &dto.UpdateTimeSlotRequest{IsActive: &inactive})
	if !errors.Is(err, ErrSlotInUseChange) {
		t.Fatalf("期望 ErrSlotInUseChange，实际: %v", err)
	}
	if !f.store.slots[f.period1].IsActive {
		t.Error("被拒绝时时间段应保持启用")
	}
}

func TestTimeSlotService_Update_NarrowAppliesTo(t *testing.T) {
	tests := []struct {
		name      string
		appliesTo []int
		wantErr   error
	}{
		{"移除已排课的周三", []int{1, 2, 4, 5}, ErrSlotInUseChange},
		{"移除未排课的周五", []int{1, 2, 3, 4}, nil},
		{"扩展为每天", []int{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, f := setupTestTimeSlotService()
			f.addEntry("e1", f.class7A, f.math, f.teacherA, nil, f.period1, 3)

			days := tt.appliesTo
			_, err := svc.Update(context.Background(), editor(), f.period1, &dto.UpdateTimeSlotRequest{AppliesTo: &days})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("期望 %v，实际: %v", tt.wantErr, err)
			}
			if tt.wantErr != nil && len(f.store.slots[f.period1].AppliesTo) != 5 {
				t.Errorf("被拒绝时适用星期不应变化，实际: %v", f.store.slots[f.period1].AppliesTo)
			}
		})
	}
}

// ── Delete / Usage 测试 ──

func TestTimeSlotService_Delete_InUse(t *testing.T) {
	svc, f := setupTestTimeSlotService()
	f.addEntry("e1", f.class7A, f.math, f.teacherA, nil, f.period1, 1)
	f.addEntry("e2", f.class7B, f.math, f.teacherB, nil, f.period1, 2)

	err := svc.Delete(context.Background(), editor(), f.period1)
	inUse, ok := pkgerrors.AsInUse(err)
	if !ok {
		t.Fatalf("期望 InUseError，实际: %v", err)
	}
	if inUse.Count != 2 {
		t.Errorf("期望引用次数 2，实际 %d", inUse.Count)
	}

	// 时间段仍然存在
	if _, err := svc.Get(context.Background(), editor(), f.period1); err != nil {
		t.Errorf("被拒绝删除的时间段应仍可查询: %v", err)
	}
}

func TestTimeSlotService_Delete_Unused(t *testing.T) {
	svc, f := setupTestTimeSlotService()

	usage, err := svc.Usage(context.Background(), editor(), f.period2)
	if err != nil {
		t.Fatalf("Usage 应成功: %v", err)
	}
	if usage.UsageCount != 0 {
		t.Fatalf("期望 0 次引用，实际 %d", usage.UsageCount)
	}

	if err := svc.Delete(context.Background(), editor(), f.period2); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, err := svc.Get(context.Background(), editor(), f.period2); !errors.Is(err, ErrTimeSlotNotFound) {
		t.Errorf("删除后应返回 ErrTimeSlotNotFound，实际: %v", err)
	}
}
