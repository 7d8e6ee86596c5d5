package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"campus-timetable/backend/internal/model"
	"campus-timetable/backend/internal/repository"
	pkgerrors "campus-timetable/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSlots      = pkgerrors.Validation("本机构尚未配置作息时间段")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

var weekdayNames = map[int]string{1: "周一", 2: "周二", 3: "周三", 4: "周四", 5: "周五", 6: "周六", 7: "周日"}

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response。
// 单 Sheet：行为启用的时间段（按节次），列为时间段覆盖到的星期。
type ExportService interface {
	// ExportTimetable 导出课表为 Excel，classID 非空时只导出该班级
	ExportTimetable(ctx context.Context, actor Actor, timetableID, classID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportTimetable — 导出课表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：课表名称（班级过滤时附班级名）
//   - 表头：节次 | 时间 | 周一 … 周日（仅出现的星期）
//   - 课程格：班级 · 科目 · 教师 · 教室，同格多条换行
//   - 课间 / 午休等非授课时间段整行填时间段名称

func (s *exportService) ExportTimetable(ctx context.Context, actor Actor, timetableID, classID string) (*bytes.Buffer, string, error) {
	// 1. 课表
	tt, err := loadTimetable(ctx, s.repo, actor, timetableID)
	if err != nil {
		return nil, "", err
	}

	// 2. 时间段与星期列
	slots, err := s.repo.TimeSlot.List(ctx, actor.InstitutionID, false)
	if err != nil {
		s.logger.Error("查询时间段失败", zap.Error(err))
		return nil, "", err
	}
	if len(slots) == 0 {
		return nil, "", ErrExportNoSlots
	}
	days := exportDays(slots)

	// 3. 排课明细
	entries, err := s.repo.Entry.ListByTimetable(ctx, timetableID, repository.EntryFilter{ClassID: classID})
	if err != nil {
		s.logger.Error("查询排课明细失败", zap.String("timetable_id", timetableID), zap.Error(err))
		return nil, "", err
	}

	// "slotID:day" → 课程格文本
	cells := make(map[string][]string)
	for i := range entries {
		e := &entries[i]
		key := fmt.Sprintf("%s:%d", e.TimeSlotID, e.DayOfWeek)
		cells[key] = append(cells[key], entryCellText(e))
	}
	title := tt.Name
	if classID != "" && len(entries) > 0 && entries[0].Class != nil {
		title = fmt.Sprintf("%s（%s）", tt.Name, entries[0].Class.Name)
	}

	// 4. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "课表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "B", 14)
	for i := range days {
		col := colName(2 + i)
		f.SetColWidth(sheetName, col, col, 28)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	breakStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E7E6E6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "center"},
	})

	// 标题行
	lastCol := colName(1 + len(days))
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "节次")
	f.SetCellValue(sheetName, cell("B", row), "时间")
	for i, d := range days {
		f.SetCellValue(sheetName, cell(colName(2+i), row), weekdayNames[d])
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(lastCol, row), headerStyle)

	// 数据行
	row = 3
	for i := range slots {
		slot := &slots[i]
		f.SetCellValue(sheetName, cell("A", row), slot.Name)
		f.SetCellValue(sheetName, cell("B", row),
			fmt.Sprintf("%s-%s", model.ClockHHMM(slot.StartTime), model.ClockHHMM(slot.EndTime)))

		if !model.IsTeachingSlot(slot.SlotType) {
			for j := range days {
				f.SetCellValue(sheetName, cell(colName(2+j), row), slot.Name)
			}
			f.SetCellStyle(sheetName, cell("C", row), cell(lastCol, row), breakStyle)
			row++
			continue
		}

		for j, d := range days {
			text := "-"
			if !slot.AppliesOn(d) {
				text = ""
			} else if lines, ok := cells[fmt.Sprintf("%s:%d", slot.TimeSlotID, d)]; ok {
				text = strings.Join(lines, "\n")
			}
			f.SetCellValue(sheetName, cell(colName(2+j), row), text)
		}
		f.SetCellStyle(sheetName, cell("C", row), cell(lastCol, row), wrapStyle)
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课表_%s.xlsx", tt.Name)
	return buf, filename, nil
}

// ── 辅助函数 ──

// exportDays 时间段覆盖到的星期，applies_to 为空的时间段覆盖整周
func exportDays(slots []model.TimeSlot) []int {
	seen := make(map[int]bool)
	for i := range slots {
		if len(slots[i].AppliesTo) == 0 {
			for d := 1; d <= 7; d++ {
				seen[d] = true
			}
			continue
		}
		for _, d := range slots[i].AppliesTo {
			seen[d] = true
		}
	}
	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// entryCellText 班级 · 科目 · 教师 · 教室（无教室时省略）
func entryCellText(e *model.TimetableEntry) string {
	parts := []string{className(e), subjectName(e), teacherName(e)}
	if e.Room != nil {
		parts = append(parts, e.Room.Name)
	}
	return strings.Join(parts, " · ")
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
