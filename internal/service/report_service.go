package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/leonard05717/appointment/internal/dto"
	"github.com/leonard05717/appointment/internal/model"
	"github.com/leonard05717/appointment/internal/repository"
	"github.com/leonard05717/appointment/pkg/format"
)

// ── 报表模块业务错误 ──

var (
	ErrInvalidRange       = errors.New("From date must not be after to date")
	ErrReportGenerateFail = errors.New("Failed to generate report file")
)

// ReportService 预约报表
//
// 日期区间含两端；Export 以 bytes.Buffer 返回，由 Handler 设置响应头后写出
type ReportService interface {
	Report(ctx context.Context, req *dto.ReportRequest) (*dto.ReportResponse, error)
	Export(ctx context.Context, req *dto.ReportRequest) (*bytes.Buffer, string, error)
}

type reportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewReportService 创建 ReportService 实例
func NewReportService(repo *repository.Repository, logger *zap.Logger) ReportService {
	return &reportService{repo: repo, logger: logger}
}

func (s *reportService) Report(ctx context.Context, req *dto.ReportRequest) (*dto.ReportResponse, error) {
	list, err := s.query(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &dto.ReportResponse{
		From:         req.From,
		To:           req.To,
		Total:        len(list),
		Counts:       make(map[string]int, len(model.Statuses)),
		Appointments: make([]dto.AppointmentResponse, 0, len(list)),
	}
	for _, st := range model.Statuses {
		resp.Counts[string(st)] = 0
	}
	for i := range list {
		resp.Counts[strings.ToLower(string(list[i].Status))]++
		resp.Appointments = append(resp.Appointments, toAppointmentResponse(&list[i]))
	}
	return resp, nil
}

// Export 生成 .xlsx：Appointments 明细 + Summary 状态统计
func (s *reportService) Export(ctx context.Context, req *dto.ReportRequest) (*bytes.Buffer, string, error) {
	report, err := s.Report(ctx, req)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Appointments"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"#", "QR Code", "Student ID", "Name", "Email", "Section", "Reasons", "Note", "Date", "Time", "Status", "Staff", "Message"}
	widths := []float64{6, 12, 14, 24, 28, 12, 32, 28, 22, 16, 12, 24, 28}

	// 标题行
	f.SetCellValue(sheet, "A1", fmt.Sprintf("Appointments %s to %s", report.From, report.To))
	f.MergeCell(sheet, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	for i, h := range headers {
		col := colName(i)
		f.SetColWidth(sheet, col, col, widths[i])
		f.SetCellValue(sheet, cell(col, 2), h)
	}
	f.SetCellStyle(sheet, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	row := 3
	for i, a := range report.Appointments {
		values := []any{i + 1, a.QRCode, "", "", "", "",
			strings.Join(a.Reasons, ", "), a.Note,
			format.LongDate(a.AppointmentDate), a.AppointmentTime,
			strings.ToLower(a.Status), a.StaffName, a.Message,
		}
		if a.Student != nil {
			values[2], values[3], values[4] = a.Student.StudentID, a.Student.Name, a.Student.Email
		}
		if a.Section != nil {
			values[5] = a.Section.Code
		}
		for j, v := range values {
			f.SetCellValue(sheet, cell(colName(j), row), v)
		}
		row++
	}

	// 统计
	const summary = "Summary"
	f.NewSheet(summary)
	f.SetColWidth(summary, "A", "B", 16)
	f.SetCellValue(summary, "A1", "Status")
	f.SetCellValue(summary, "B1", "Count")
	f.SetCellStyle(summary, "A1", "B1", headerStyle)
	row = 2
	for _, st := range model.Statuses {
		f.SetCellValue(summary, cell("A", row), string(st))
		f.SetCellValue(summary, cell("B", row), report.Counts[string(st)])
		row++
	}
	f.SetCellValue(summary, cell("A", row), "total")
	f.SetCellValue(summary, cell("B", row), report.Total)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrReportGenerateFail
	}

	filename := fmt.Sprintf("appointments_%s_%s.xlsx", report.From, report.To)
	return buf, filename, nil
}

func (s *reportService) query(ctx context.Context, req *dto.ReportRequest) ([]model.Appointment, error) {
	if req.From > req.To {
		return nil, ErrInvalidRange
	}
	filter := repository.AppointmentFilter{From: req.From, To: req.To}
	if req.Status != "" && !strings.EqualFold(req.Status, "all") {
		st, ok := model.ParseStatus(req.Status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		filter.Status = st
	}
	list, err := s.repo.Appointment.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询报表数据失败", zap.String("from", req.From), zap.String("to", req.To), zap.Error(err))
		return nil, err
	}
	return list, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
