package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/numerix/numerix-backend/internal/config"
	"github.com/numerix/numerix-backend/internal/model"
	"github.com/numerix/numerix-backend/internal/repository"
	"github.com/rs/zerolog"
)

// SettingService resolves exam configuration from app_settings, falling back
// to config defaults for unset or unparseable keys. It is the single source
// of the pass threshold - nothing else decides the verdict cutoff.
type SettingService struct {
	settings *repository.SettingRepository
	cfg      *config.Config
	log      zerolog.Logger
}

// NewSettingService creates a new SettingService.
func NewSettingService(settings *repository.SettingRepository, cfg *config.Config, log zerolog.Logger) *SettingService {
	return &SettingService{
		settings: settings,
		cfg:      cfg,
		log:      log.With().Str("component", "setting_service").Logger(),
	}
}

// ExamSettings returns the effective exam configuration.
func (s *SettingService) ExamSettings(ctx context.Context) (model.ExamSettings, error) {
	resolved := model.ExamSettings{
		TimerMinutes:  s.cfg.DefaultTimerMinutes,
		PassThreshold: s.cfg.DefaultPassThreshold,
		QuestionCount: s.cfg.DefaultQuestionCount,
	}

	stored, err := s.settings.GetAll(ctx)
	if err != nil {
		return model.ExamSettings{}, fmt.Errorf("%w: load settings: %w", ErrStore, err)
	}

	for _, setting := range stored {
		switch setting.Key {
		case model.SettingTimerMinutes:
			if n, err := strconv.Atoi(setting.Value); err == nil && n > 0 {
				resolved.TimerMinutes = n
			} else {
				s.log.Warn().Str("key", setting.Key).Str("value", setting.Value).Msg("Ignoring invalid setting value")
			}
		case model.SettingPassThreshold:
			if f, err := strconv.ParseFloat(setting.Value, 64); err == nil && f > 0 && f <= 1 {
				resolved.PassThreshold = f
			} else {
				s.log.Warn().Str("key", setting.Key).Str("value", setting.Value).Msg("Ignoring invalid setting value")
			}
		case model.SettingQuestionCount:
			if n, err := strconv.Atoi(setting.Value); err == nil && n > 0 {
				resolved.QuestionCount = n
			} else {
				s.log.Warn().Str("key", setting.Key).Str("value", setting.Value).Msg("Ignoring invalid setting value")
			}
		}
	}

	return resolved, nil
}

// Update stores the provided settings. Nil fields are left untouched.
func (s *SettingService) Update(ctx context.Context, req *model.UpdateSettingsRequest) (model.ExamSettings, error) {
	if req.TimerMinutes != nil {
		if err := s.settings.Upsert(ctx, model.SettingTimerMinutes, strconv.Itoa(*req.TimerMinutes)); err != nil {
			return model.ExamSettings{}, fmt.Errorf("%w: store timer: %w", ErrStore, err)
		}
	}
	if req.PassThreshold != nil {
		if err := s.settings.Upsert(ctx, model.SettingPassThreshold, strconv.FormatFloat(*req.PassThreshold, 'f', -1, 64)); err != nil {
			return model.ExamSettings{}, fmt.Errorf("%w: store pass threshold: %w", ErrStore, err)
		}
	}
	if req.QuestionCount != nil {
		if err := s.settings.Upsert(ctx, model.SettingQuestionCount, strconv.Itoa(*req.QuestionCount)); err != nil {
			return model.ExamSettings{}, fmt.Errorf("%w: store question count: %w", ErrStore, err)
		}
	}

	s.log.Info().Msg("Exam settings updated")
	return s.ExamSettings(ctx)
}
