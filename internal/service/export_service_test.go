package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ── 测试辅助 ──

func setupTestExportService() (ExportService, *fixture) {
	f := newFixture()
	return NewExportService(f.repo, zap.NewNop()), f
}

func openExport(t *testing.T, svc ExportService, classID string) *excelize.File {
	t.Helper()
	buf, filename, err := svc.ExportTimetable(context.Background(), viewer(), "tt-main", classID)
	if err != nil {
		t.Fatalf("ExportTimetable 应成功: %v", err)
	}
	if !strings.HasPrefix(filename, "课表_") || !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名不正确: %s", filename)
	}
	x, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出结果应为合法的 xlsx: %v", err)
	}
	t.Cleanup(func() { x.Close() })
	return x
}

func cellValue(t *testing.T, x *excelize.File, axis string) string {
	t.Helper()
	v, err := x.GetCellValue("课表", axis)
	if err != nil {
		t.Fatalf("读取 %s 失败: %v", axis, err)
	}
	return v
}

// ── ExportTimetable 测试 ──

func TestExportService_Layout(t *testing.T) {
	svc, f := setupTestExportService()
	f.addEntry("e1", f.class7A, f.math, f.teacherA, &f.room101, f.period1, 1)
	f.addEntry("e2", f.class7B, f.english, f.teacherB, nil, f.period1, 1)
	f.addEntry("e3", f.class7A, f.english, f.teacherB, &f.room102, f.period2, 3)

	x := openExport(t, svc, "")

	if got := cellValue(t, x, "A1"); got != "2024-2025 春季课表" {
		t.Errorf("标题不正确: %q", got)
	}
	header := []string{"节次", "时间", "周一", "周二", "周三", "周四", "周五"}
	for i, want := range header {
		if got := cellValue(t, x, cell(colName(i), 2)); got != want {
			t.Errorf("表头第 %d 列期望 %q，实际 %q", i+1, want, got)
		}
	}
	if got := cellValue(t, x, "H2"); got != "" {
		t.Errorf("未配置的周六不应出现，实际 %q", got)
	}

	if got := cellValue(t, x, "B3"); got != "08:00-08:45" {
		t.Errorf("时间列不正确: %q", got)
	}
	want := "7A · Math · Teacher-A · R101\n7B · English · Teacher-B"
	if got := cellValue(t, x, "C3"); got != want {
		t.Errorf("周一第一节期望 %q，实际 %q", want, got)
	}
	if got := cellValue(t, x, "E4"); got != "7A · English · Teacher-B · R102" {
		t.Errorf("周三第二节不正确: %q", got)
	}
	if got := cellValue(t, x, "D3"); got != "-" {
		t.Errorf("空课程格应为 '-'，实际 %q", got)
	}
	if got := cellValue(t, x, "C5"); got != "午休" {
		t.Errorf("午休行应填时间段名称，实际 %q", got)
	}
}

func TestExportService_FilterByClass(t *testing.T) {
	svc, f := setupTestExportService()
	f.addEntry("e1", f.class7A, f.math, f.teacherA, &f.room101, f.period1, 1)
	f.addEntry("e2", f.class7B, f.english, f.teacherB, nil, f.period1, 1)

	x := openExport(t, svc, f.class7B)

	if got := cellValue(t, x, "A1"); got != "2024-2025 春季课表（7B）" {
		t.Errorf("标题应附班级名，实际 %q", got)
	}
	if got := cellValue(t, x, "C3"); got != "7B · English · Teacher-B" {
		t.Errorf("只应导出 7B 的课程，实际 %q", got)
	}
}

func TestExportService_NoSlots(t *testing.T) {
	svc, f := setupTestExportService()
	for id := range f.store.slots {
		delete(f.store.slots, id)
	}

	_, _, err := svc.ExportTimetable(context.Background(), viewer(), f.timetableID, "")
	if !errors.Is(err, ErrExportNoSlots) {
		t.Errorf("期望 ErrExportNoSlots，实际: %v", err)
	}
}

func TestExportService_TimetableNotFound(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportTimetable(context.Background(), viewer(), "tt-missing", "")
	if !errors.Is(err, ErrTimetableNotFound) {
		t.Errorf("期望 ErrTimetableNotFound，实际: %v", err)
	}
}

func TestExportDays(t *testing.T) {
	svc, f := setupTestExportService()
	f.store.slots[f.lunch].AppliesTo = nil

	x := openExport(t, svc, "")
	if got := cellValue(t, x, "I2"); got != "周日" {
		t.Errorf("applies_to 为空的时间段应覆盖整周，实际 %q", got)
	}
	if got := cellValue(t, x, "H3"); got != "" {
		t.Errorf("第一节不适用于周六，应为空，实际 %q", got)
	}
}
