package model

import "time"

// AppSetting represents a key-value pair for global application configuration.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting keys stored in app_settings.
const (
	SettingTimerMinutes  = "timer_minutes"
	SettingPassThreshold = "pass_threshold"
	SettingQuestionCount = "question_count"
)

// ExamSettings is the resolved exam configuration: stored values with config
// defaults filled in. PassThreshold is the single source of the pass verdict.
type ExamSettings struct {
	TimerMinutes  int     `json:"timer_minutes"`
	PassThreshold float64 `json:"pass_threshold"`
	QuestionCount int     `json:"question_count"`
}

// UpdateSettingsRequest is the payload for adjusting exam settings.
type UpdateSettingsRequest struct {
	TimerMinutes  *int     `json:"timer_minutes" binding:"omitempty,min=1,max=480"`
	PassThreshold *float64 `json:"pass_threshold" binding:"omitempty,gt=0,lte=1"`
	QuestionCount *int     `json:"question_count" binding:"omitempty,min=1,max=200"`
}
