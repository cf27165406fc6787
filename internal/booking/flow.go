// Package booking 预约向导的步骤流转与可约日期、时间段计算
package booking

import (
	"errors"
	"strings"
)

// Step 向导步骤
type Step int

const (
	StepIdentity Step = iota
	StepReasonAndSection
	StepDateAndTime
	StepConfirm
)

var stepNames = [...]string{"identity", "reason_and_section", "date_and_time", "confirm"}

func (s Step) String() string {
	if s < StepIdentity || s > StepConfirm {
		return "unknown"
	}
	return stepNames[s]
}

var (
	ErrFirstStep       = errors.New("already at the first step")
	ErrLastStep        = errors.New("already at the last step")
	ErrNotIdentified   = errors.New("load your account information first")
	ErrInactiveAccount = errors.New("account is disabled")
	ErrReasonRequired  = errors.New("select at least one reason")
	ErrSectionRequired = errors.New("select your section")
	ErrDateRequired    = errors.New("select an appointment date")
	ErrTimeRequired    = errors.New("select an appointment time")
	ErrNotConfirmStep  = errors.New("appointment can only be saved from the confirm step")
)

// Identity 向导中的学生信息
type Identity struct {
	UserID    uint   `json:"user_id"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Active    bool   `json:"active"`
}

// Draft 向导工作副本，可序列化保存
type Draft struct {
	Step      Step      `json:"step"`
	Identity  *Identity `json:"identity,omitempty"`
	Reasons   []string  `json:"reasons"`
	SectionID uint      `json:"section_id,omitempty"`
	Note      string    `json:"note"`
	Date      string    `json:"date,omitempty"`
	Time      string    `json:"time,omitempty"`
}

// NewDraft 初始状态
func NewDraft() *Draft {
	return &Draft{Step: StepIdentity, Reasons: []string{}}
}

// Reset 清空全部数据并回到第一步
func (d *Draft) Reset() {
	*d = *NewDraft()
}

// SetIdentity 载入账号信息
func (d *Draft) SetIdentity(id Identity) {
	d.Identity = &id
}

// SetReasons 去除空白与重复后设置事由
func (d *Draft) SetReasons(reasons []string) {
	seen := make(map[string]bool, len(reasons))
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	d.Reasons = out
}

// SetDate 更换日期时清除已选时间段，时间段余量需按新日期重新计算
func (d *Draft) SetDate(date string) {
	if date != d.Date {
		d.Time = ""
	}
	d.Date = date
}

// Guard 当前步骤前进所需条件
func (d *Draft) Guard() error {
	switch d.Step {
	case StepIdentity:
		if d.Identity == nil {
			return ErrNotIdentified
		}
		if !d.Identity.Active {
			return ErrInactiveAccount
		}
	case StepReasonAndSection:
		if len(d.Reasons) == 0 {
			return ErrReasonRequired
		}
		if d.SectionID == 0 {
			return ErrSectionRequired
		}
	case StepDateAndTime:
		if d.Date == "" {
			return ErrDateRequired
		}
		if d.Time == "" {
			return ErrTimeRequired
		}
	case StepConfirm:
		return ErrLastStep
	}
	return nil
}

// Next 校验通过后前进一步
func (d *Draft) Next() error {
	if err := d.Guard(); err != nil {
		return err
	}
	d.Step++
	return nil
}

// Back 后退一步，第一步不可后退
func (d *Draft) Back() error {
	if d.Step == StepIdentity {
		return ErrFirstStep
	}
	d.Step--
	return nil
}

// ReadyToCommit 仅确认步骤可提交，且前序条件仍然成立
func (d *Draft) ReadyToCommit() error {
	if d.Step != StepConfirm {
		return ErrNotConfirmStep
	}
	for _, s := range []Step{StepIdentity, StepReasonAndSection, StepDateAndTime} {
		probe := *d
		probe.Step = s
		if err := probe.Guard(); err != nil {
			return err
		}
	}
	return nil
}
