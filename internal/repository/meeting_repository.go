package repository

import (
	"context"

	"lingua_lms_backend/internal/model"

	"gorm.io/gorm"
)

type MeetingRepository struct {
	DB *gorm.DB
}

func NewMeetingRepository(db *gorm.DB) *MeetingRepository {
	return &MeetingRepository{DB: db}
}

func (r *MeetingRepository) Create(ctx context.Context, m *model.Meeting) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*model.Meeting, error) {
	var m model.Meeting
	err := r.DB.WithContext(ctx).First(&m, "id = ?", id).Error
	return &m, err
}

func (r *MeetingRepository) ListByCourse(ctx context.Context, courseID string) ([]model.Meeting, error) {
	var meetings []model.Meeting
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("start_time ASC").
		Find(&meetings).Error
	return meetings, err
}
