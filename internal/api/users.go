package api

import (
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Varaprasad-34/college-job-portal/internal/model"
	"github.com/Varaprasad-34/college-job-portal/internal/pkg/metrics"
	"github.com/Varaprasad-34/college-job-portal/internal/pkg/validate"
)

// publicProfile 是用户的公开资料，不含邮箱验证、密码重置等敏感字段。
type publicProfile struct {
	ID              uint     `json:"id"`
	Name            string   `json:"name"`
	Role            string   `json:"role"`
	GraduationYear  *int     `json:"graduationYear,omitempty"`
	Major           string   `json:"major,omitempty"`
	ProfilePicture  string   `json:"profilePicture,omitempty"`
	Bio             string   `json:"bio,omitempty"`
	Skills          []string `json:"skills"`
	Experience      string   `json:"experience"`
	CurrentPosition string   `json:"currentPosition,omitempty"`
	Company         string   `json:"company,omitempty"`
	LinkedinProfile string   `json:"linkedinProfile,omitempty"`
}

// handleGetUserProfile 返回任意用户的公开资料及其在架职位数。
func (s *Server) handleGetUserProfile(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid user id"})
		return
	}

	var user model.User
	if err := s.db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
			return
		}
		s.logger.Error("get user failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to get user"})
		return
	}

	activeJobs, err := s.jobs.CountActiveByOwner(c.Request.Context(), user.ID)
	if err != nil {
		s.logger.Warn("count active jobs failed", slog.String("error", err.Error()))
	}

	c.JSON(http.StatusOK, gin.H{
		"user": publicProfile{
			ID:              user.ID,
			Name:            user.Name,
			Role:            user.Role,
			GraduationYear:  user.GraduationYear,
			Major:           user.Major,
			ProfilePicture:  user.ProfilePicture,
			Bio:             user.Bio,
			Skills:          user.Skills,
			Experience:      user.Experience,
			CurrentPosition: user.CurrentPosition,
			Company:         user.Company,
			LinkedinProfile: user.LinkedinProfile,
		},
		"stats": gin.H{"activeJobs": activeJobs},
	})
}

// handleMyJobs 列出当前用户发布的全部职位（含已下架），带申请人列表。
func (s *Server) handleMyJobs(c *gin.Context) {
	userID := getUserID(c)

	jobs, err := s.jobs.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("list my jobs failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list jobs"})
		return
	}

	out := make([]gin.H, 0, len(jobs))
	for i := range jobs {
		resp := toJobResponse(&jobs[i], true)
		out = append(out, gin.H{
			"job":              resp,
			"isActive":         jobs[i].IsActive,
			"applicationCount": len(jobs[i].Applications),
		})
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out})
}

// handleApply 投递职位。
//
// 重复投递由存储层条件插入原子拒绝，重复在这里表现为 409。
// 截止时间在读取时校验，过期返回 400。
func (s *Server) handleApply(c *gin.Context) {
	jobID, ok := parseIDParam(c, "jobId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid job id"})
		return
	}
	userID := getUserID(c)

	job, err := s.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
			return
		}
		s.logger.Error("get job failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to apply"})
		return
	}
	if !job.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
		return
	}
	if job.ApplicationDeadline != nil && job.ApplicationDeadline.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "application deadline has passed"})
		return
	}
	if job.PostedBy == userID {
		c.JSON(http.StatusBadRequest, gin.H{"message": "you cannot apply to your own job"})
		return
	}

	app := model.Application{
		JobID:     jobID,
		UserID:    userID,
		AppliedAt: time.Now(),
		Status:    model.ApplicationPending,
	}
	inserted, err := s.apps.Create(c.Request.Context(), &app)
	if err != nil {
		s.logger.Error("create application failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to apply"})
		return
	}
	if !inserted {
		metrics.ApplicationDuplicateRejectedTotal.Inc()
		c.JSON(http.StatusConflict, gin.H{"message": "you have already applied to this job"})
		return
	}

	metrics.ApplicationsSubmittedTotal.Inc()
	s.logger.Info("application submitted",
		slog.Uint64("job_id", uint64(jobID)),
		slog.Uint64("user_id", uint64(userID)))
	c.JSON(http.StatusCreated, gin.H{"message": "application submitted successfully"})
}

// handleMyApplications 列出当前用户的全部投递，按投递时间倒序。
// 已下架职位的投递不再展示。
func (s *Server) handleMyApplications(c *gin.Context) {
	userID := getUserID(c)

	rows, err := s.apps.ListByApplicant(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("list applications failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list applications"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		out = append(out, gin.H{
			"job": gin.H{
				"id":       r.JobID,
				"title":    r.Title,
				"company":  r.Company,
				"location": r.Location,
				"jobType":  r.JobType,
				"postedBy": gin.H{
					"id":   r.PosterID,
					"name": r.PosterName,
					"role": r.PosterRole,
				},
			},
			"application": gin.H{
				"appliedAt": r.AppliedAt,
				"status":    r.Status,
			},
		})
	}
	c.JSON(http.StatusOK, gin.H{"applications": out})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// handleUpdateApplicationStatus 更新某条申请的状态，只有职位发布者可以操作。
// 状态机允许任意方向切换。
func (s *Server) handleUpdateApplicationStatus(c *gin.Context) {
	jobID, ok := parseIDParam(c, "jobId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid job id"})
		return
	}
	applicantID, ok := parseIDParam(c, "userId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid user id"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "status is required"})
		return
	}
	if !validate.ApplicationStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "status must be one of pending, reviewed, accepted, rejected"})
		return
	}

	job, err := s.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
			return
		}
		s.logger.Error("get job failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to update application status"})
		return
	}
	if job.PostedBy != getUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "you can only manage applications for your own jobs"})
		return
	}

	found, err := s.apps.SetStatus(c.Request.Context(), jobID, applicantID, req.Status)
	if err != nil {
		s.logger.Error("set application status failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to update application status"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "application not found"})
		return
	}

	s.logger.Info("application status updated",
		slog.Uint64("job_id", uint64(jobID)),
		slog.Uint64("applicant_id", uint64(applicantID)),
		slog.String("status", req.Status))
	c.JSON(http.StatusOK, gin.H{"message": "application status updated successfully"})
}
