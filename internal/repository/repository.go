package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Account         AccountRepository
	User            UserRepository
	Section         SectionRepository
	Reason          ReasonRepository
	AppointmentTime AppointmentTimeRepository
	DisabledDate    DisabledDateRepository
	Appointment     AppointmentRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Account:         NewAccountRepo(db),
		User:            NewUserRepo(db),
		Section:         NewSectionRepo(db),
		Reason:          NewReasonRepo(db),
		AppointmentTime: NewAppointmentTimeRepo(db),
		DisabledDate:    NewDisabledDateRepo(db),
		Appointment:     NewAppointmentRepo(db),
	}
}
