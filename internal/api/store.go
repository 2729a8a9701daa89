package api

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Varaprasad-34/college-job-portal/internal/model"
)

// JobFilter 是职位列表查询条件。零值字段表示不过滤。
type JobFilter struct {
	JobType         string
	ExperienceLevel string
	PostedByRole    string
	Search          string
	Page            int
	Limit           int
}

// JobStore 封装职位的存储操作。
type JobStore interface {
	List(ctx context.Context, f JobFilter) ([]model.Job, int64, error)
	Get(ctx context.Context, id uint) (*model.Job, error)
	Create(ctx context.Context, job *model.Job) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) error
	Deactivate(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
	ListByOwner(ctx context.Context, userID uint) ([]model.Job, error)
	CountActiveByOwner(ctx context.Context, userID uint) (int64, error)
}

// ApplicationRow 是"我的申请"列表的联表查询结果。
type ApplicationRow struct {
	JobID      uint      `gorm:"column:job_id"`
	Title      string    `gorm:"column:title"`
	Company    string    `gorm:"column:company"`
	Location   string    `gorm:"column:location"`
	JobType    string    `gorm:"column:job_type"`
	PosterID   uint      `gorm:"column:poster_id"`
	PosterName string    `gorm:"column:poster_name"`
	PosterRole string    `gorm:"column:poster_role"`
	AppliedAt  time.Time `gorm:"column:applied_at"`
	Status     string    `gorm:"column:status"`
}

// ApplicationStore 封装申请的存储操作。
type ApplicationStore interface {
	// Create 条件插入一条申请。(job, user) 已存在时原子拒绝并返回 false，
	// 不做先查后写。
	Create(ctx context.Context, app *model.Application) (bool, error)
	// SetStatus 更新指定 (job, user) 申请的状态，记录不存在返回 false。
	SetStatus(ctx context.Context, jobID, userID uint, status string) (bool, error)
	ListByApplicant(ctx context.Context, userID uint) ([]ApplicationRow, error)
}

const searchMatch = "MATCH(title, description, company) AGAINST (? IN NATURAL LANGUAGE MODE)"

type dbJobStore struct {
	db *gorm.DB
}

func (s dbJobStore) filtered(ctx context.Context, f JobFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&model.Job{}).Where("is_active = ?", true)
	if f.JobType != "" {
		q = q.Where("job_type = ?", f.JobType)
	}
	if f.ExperienceLevel != "" {
		q = q.Where("experience_level = ?", f.ExperienceLevel)
	}
	if f.PostedByRole != "" {
		q = q.Where("posted_by_role = ?", f.PostedByRole)
	}
	if f.Search != "" {
		q = q.Where(searchMatch, f.Search)
	}
	return q
}

func (s dbJobStore) List(ctx context.Context, f JobFilter) ([]model.Job, int64, error) {
	var total int64
	if err := s.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	jobs := []model.Job{}
	q := s.filtered(ctx, f).Preload("Poster")
	if f.Search != "" {
		// 有搜索词时按全文相关度排序，相关度相同再按时间倒序
		q = q.Select("jobs.*, "+searchMatch+" AS relevance", f.Search).
			Order("relevance DESC").
			Order("created_at DESC")
	} else {
		q = q.Order("created_at DESC")
	}
	if err := q.Limit(f.Limit).Offset((f.Page - 1) * f.Limit).Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (s dbJobStore) Get(ctx context.Context, id uint) (*model.Job, error) {
	var job model.Job
	err := s.db.WithContext(ctx).
		Preload("Poster").
		Preload("Applications").
		Preload("Applications.User").
		First(&job, id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s dbJobStore) Create(ctx context.Context, job *model.Job) error {
	return s.db.WithContext(ctx).Create(job).Error
}

func (s dbJobStore) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(&model.Job{}).Where("id = ?", id).Updates(updates).Error
}

func (s dbJobStore) Deactivate(ctx context.Context, id uint) error {
	// 已下架时再次执行是空操作，天然幂等
	return s.db.WithContext(ctx).Model(&model.Job{}).Where("id = ?", id).Update("is_active", false).Error
}

func (s dbJobStore) IncrementViews(ctx context.Context, id uint) error {
	// 单条 UPDATE 原子自增，避免读-改-写丢失更新
	return s.db.WithContext(ctx).Model(&model.Job{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

func (s dbJobStore) ListByOwner(ctx context.Context, userID uint) ([]model.Job, error) {
	jobs := []model.Job{}
	err := s.db.WithContext(ctx).
		Preload("Applications").
		Preload("Applications.User").
		Where("posted_by = ?", userID).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s dbJobStore) CountActiveByOwner(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Job{}).
		Where("posted_by = ? AND is_active = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

type dbApplicationStore struct {
	db *gorm.DB
}

func (s dbApplicationStore) Create(ctx context.Context, app *model.Application) (bool, error) {
	// 依赖 (job_id, user_id) 联合主键：冲突时什么都不做，
	// RowsAffected 为 0 即重复投递
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(app)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s dbApplicationStore) SetStatus(ctx context.Context, jobID, userID uint, status string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Application{}).
		Where("job_id = ? AND user_id = ?", jobID, userID).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	// MySQL 对值未变化的 UPDATE 返回 0 行，需要区分"不存在"和"没变化"
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Application{}).
		Where("job_id = ? AND user_id = ?", jobID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s dbApplicationStore) ListByApplicant(ctx context.Context, userID uint) ([]ApplicationRow, error) {
	rows := []ApplicationRow{}
	err := s.db.WithContext(ctx).Table("applications").
		Select("applications.job_id, applications.applied_at, applications.status, "+
			"jobs.title, jobs.company, jobs.location, jobs.job_type, "+
			"users.id AS poster_id, users.name AS poster_name, users.role AS poster_role").
		Joins("JOIN jobs ON jobs.id = applications.job_id").
		Joins("JOIN users ON users.id = jobs.posted_by").
		Where("applications.user_id = ? AND jobs.is_active = ?", userID, true).
		Order("applications.applied_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
