package handler

import "github.com/leonard05717/appointment/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth        *AuthHandler
	User        *UserHandler
	Maintenance *MaintenanceHandler
	Booking     *BookingHandler
	Appointment *AppointmentHandler
	Report      *ReportHandler
	Realtime    *RealtimeHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(svc.Auth),
		User:        NewUserHandler(svc.User),
		Maintenance: NewMaintenanceHandler(svc.Section, svc.Reason, svc.Settings),
		Booking:     NewBookingHandler(svc.Booking),
		Appointment: NewAppointmentHandler(svc.Appointment, svc.Queue),
		Report:      NewReportHandler(svc.Report),
		Realtime:    NewRealtimeHandler(svc.Realtime),
	}
}
