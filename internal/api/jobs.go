package api

import (
	"errors"
	"math"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Varaprasad-34/college-job-portal/internal/model"
	"github.com/Varaprasad-34/college-job-portal/internal/pkg/metrics"
	"github.com/Varaprasad-34/college-job-portal/internal/pkg/validate"
)

// createJobRequest 是发布职位的请求体。
type createJobRequest struct {
	Title           string     `json:"title" binding:"required,min=5,max=100"`
	Description     string     `json:"description" binding:"required,min=50,max=2000"`
	Company         string     `json:"company" binding:"required,min=2,max=100"`
	Location        string     `json:"location" binding:"required,min=2,max=190"`
	JobType         string     `json:"jobType" binding:"required"`
	ExperienceLevel string     `json:"experienceLevel"`
	SalaryMin       *int64     `json:"salaryMin"`
	SalaryMax       *int64     `json:"salaryMax"`
	SalaryCurrency  string     `json:"salaryCurrency"`
	Skills          []string   `json:"skills"`
	Requirements    []string   `json:"requirements"`
	Benefits        []string   `json:"benefits"`
	Deadline        *time.Time `json:"applicationDeadline"`
	ContactEmail    string     `json:"contactEmail" binding:"required,email"`
	ApplicationLink string     `json:"applicationLink"`
}

// updateJobRequest 是修改职位的请求体，所有字段可选。
type updateJobRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Company         *string    `json:"company"`
	Location        *string    `json:"location"`
	JobType         *string    `json:"jobType"`
	ExperienceLevel *string    `json:"experienceLevel"`
	SalaryMin       *int64     `json:"salaryMin"`
	SalaryMax       *int64     `json:"salaryMax"`
	SalaryCurrency  *string    `json:"salaryCurrency"`
	Skills          []string   `json:"skills"`
	Requirements    []string   `json:"requirements"`
	Benefits        []string   `json:"benefits"`
	Deadline        *time.Time `json:"applicationDeadline"`
	ContactEmail    *string    `json:"contactEmail"`
	ApplicationLink *string    `json:"applicationLink"`
}

type postedByInfo struct {
	ID   uint   `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
}

type salaryRange struct {
	Min      *int64 `json:"min"`
	Max      *int64 `json:"max"`
	Currency string `json:"currency"`
}

type applicantInfo struct {
	UserID    uint      `json:"userId"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	AppliedAt time.Time `json:"appliedAt"`
	Status    string    `json:"status"`
}

// jobResponse 是职位的对外表示。申请人列表只在发布者查看自己的职位时返回。
type jobResponse struct {
	ID              uint            `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Company         string          `json:"company"`
	Location        string          `json:"location"`
	JobType         string          `json:"jobType"`
	ExperienceLevel string          `json:"experienceLevel"`
	Salary          salaryRange     `json:"salary"`
	Skills          []string        `json:"skills"`
	Requirements    []string        `json:"requirements"`
	Benefits        []string        `json:"benefits"`
	Deadline        *time.Time      `json:"applicationDeadline"`
	ContactEmail    string          `json:"contactEmail"`
	ApplicationLink string          `json:"applicationLink,omitempty"`
	PostedBy        postedByInfo    `json:"postedBy"`
	Tags            []string        `json:"tags"`
	Views           int64           `json:"views"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Applicants      []applicantInfo `json:"applicants,omitempty"`
}

type paginationInfo struct {
	Current int   `json:"current"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

func toJobResponse(job *model.Job, includeApplicants bool) jobResponse {
	resp := jobResponse{
		ID:              job.ID,
		Title:           job.Title,
		Description:     job.Description,
		Company:         job.Company,
		Location:        job.Location,
		JobType:         job.JobType,
		ExperienceLevel: job.ExperienceLevel,
		Salary: salaryRange{
			Min:      job.SalaryMin,
			Max:      job.SalaryMax,
			Currency: job.SalaryCurrency,
		},
		Skills:          job.Skills,
		Requirements:    job.Requirements,
		Benefits:        job.Benefits,
		Deadline:        job.ApplicationDeadline,
		ContactEmail:    job.ContactEmail,
		ApplicationLink: job.ApplicationLink,
		PostedBy: postedByInfo{
			ID:   job.PostedBy,
			Name: job.Poster.Name,
			Role: job.PostedByRole,
		},
		Tags:      job.Tags,
		Views:     job.Views,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if includeApplicants {
		resp.Applicants = make([]applicantInfo, 0, len(job.Applications))
		for _, app := range job.Applications {
			resp.Applicants = append(resp.Applicants, applicantInfo{
				UserID:    app.UserID,
				Name:      app.User.Name,
				Email:     app.User.Email,
				AppliedAt: app.AppliedAt,
				Status:    app.Status,
			})
		}
	}
	return resp
}

// handleListJobs 分页列出在架职位，支持按类型、经验级别、发布者角色过滤和全文搜索。
func (s *Server) handleListJobs(c *gin.Context) {
	f := JobFilter{
		JobType:         c.Query("jobType"),
		ExperienceLevel: c.Query("experienceLevel"),
		PostedByRole:    c.Query("postedByRole"),
		Search:          c.Query("search"),
		Page:            parseQueryInt(c, "page", 1),
		Limit:           parseQueryInt(c, "limit", s.cfg.App.DefaultPageSize),
	}
	if f.JobType != "" && !validate.JobType(f.JobType) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid jobType filter"})
		return
	}
	if f.ExperienceLevel != "" && !validate.ExperienceLevel(f.ExperienceLevel) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid experienceLevel filter"})
		return
	}
	if f.PostedByRole != "" && !validate.Role(f.PostedByRole) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid postedByRole filter"})
		return
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = s.cfg.App.DefaultPageSize
	}
	if f.Limit > s.cfg.App.MaxPageSize {
		f.Limit = s.cfg.App.MaxPageSize
	}

	jobs, total, err := s.jobs.List(c.Request.Context(), f)
	if err != nil {
		s.logger.Error("list jobs failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list jobs"})
		return
	}

	out := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i], false))
	}
	pages := int(math.Ceil(float64(total) / float64(f.Limit)))
	c.JSON(http.StatusOK, gin.H{
		"jobs": out,
		"pagination": paginationInfo{
			Current: f.Page,
			Limit:   f.Limit,
			Total:   total,
			Pages:   pages,
			HasNext: f.Page < pages,
			HasPrev: f.Page > 1,
		},
	})
}

// handleCreateJob 发布职位。发布者与角色快照取自令牌，不信任请求体。
func (s *Server) handleCreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if fes := validate.BindingErrors(err); len(fes) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": fes})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	if !validate.JobType(req.JobType) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{
			{Field: "jobType", Message: "jobType must be one of full-time, part-time, internship, contract, remote"},
		}})
		return
	}
	if req.ExperienceLevel == "" {
		req.ExperienceLevel = model.ExperienceEntry
	}
	if !validate.ExperienceLevel(req.ExperienceLevel) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{
			{Field: "experienceLevel", Message: "experienceLevel must be one of entry, mid, senior, executive"},
		}})
		return
	}
	if fe := validate.SalaryRange(req.SalaryMin, req.SalaryMax); fe != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{*fe}})
		return
	}
	if fe := validate.FutureDeadline(req.Deadline, time.Now()); fe != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{*fe}})
		return
	}
	if fe := validate.ApplicationURL(req.ApplicationLink); fe != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{*fe}})
		return
	}
	skills, fe := validate.NormalizeSkills(req.Skills)
	if fe != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{*fe}})
		return
	}

	currency := req.SalaryCurrency
	if currency == "" {
		currency = "USD"
	}

	job := model.Job{
		Title:               req.Title,
		Description:         req.Description,
		Company:             req.Company,
		Location:            req.Location,
		JobType:             req.JobType,
		ExperienceLevel:     req.ExperienceLevel,
		SalaryMin:           req.SalaryMin,
		SalaryMax:           req.SalaryMax,
		SalaryCurrency:      currency,
		Skills:              datatypes.NewJSONSlice(skills),
		Requirements:        datatypes.NewJSONSlice(req.Requirements),
		Benefits:            datatypes.NewJSONSlice(req.Benefits),
		ApplicationDeadline: req.Deadline,
		ContactEmail:        req.ContactEmail,
		ApplicationLink:     req.ApplicationLink,
		PostedBy:            getUserID(c),
		PostedByRole:        getUserRole(c),
		Tags:                datatypes.NewJSONSlice(validate.DeriveTags(req.Title, req.Company, skills)),
		IsActive:            true,
	}
	if err := s.jobs.Create(c.Request.Context(), &job); err != nil {
		s.logger.Error("create job failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create job"})
		return
	}

	metrics.JobsCreatedTotal.Inc()
	s.logger.Info("job created",
		slog.Uint64("job_id", uint64(job.ID)),
		slog.Uint64("user_id", uint64(job.PostedBy)))
	c.JSON(http.StatusCreated, gin.H{"message": "job created successfully", "job": toJobResponse(&job, false)})
}

// handleGetJob 返回职位详情。同一用户在去重窗口内的重复浏览不计数。
func (s *Server) handleGetJob(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid job id"})
		return
	}

	job, err := s.jobs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
			return
		}
		s.logger.Error("get job failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to get job"})
		return
	}
	if !job.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
		return
	}

	viewerID := getUserID(c)
	if s.views != nil && viewerID != job.PostedBy {
		count, gerr := s.views.ShouldCount(c.Request.Context(), job.ID, viewerID)
		if gerr != nil {
			s.logger.Warn("view dedup check failed", slog.String("error", gerr.Error()))
		}
		if count {
			if err := s.jobs.IncrementViews(c.Request.Context(), job.ID); err != nil {
				s.logger.Warn("increment views failed", slog.String("error", err.Error()))
			} else {
				job.Views++
				metrics.JobViewsTotal.Inc()
			}
		}
	}

	includeApplicants := viewerID == job.PostedBy
	c.JSON(http.StatusOK, gin.H{"job": toJobResponse(job, includeApplicants)})
}

// handleUpdateJob 修改职位，只有发布者可以操作，已下架的职位不可修改。
func (s *Server) handleUpdateJob(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid job id"})
		return
	}

	var req updateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	job, err := s.jobs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
			return
		}
		s.logger.Error("get job failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to get job"})
		return
	}
	if !job.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
		return
	}
	if job.PostedBy != getUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "you can only modify your own jobs"})
		return
	}

	updates := map[string]interface{}{}

	if req.Title != nil {
		if len(*req.Title) < 5 || len(*req.Title) > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{
				{Field: "title", Message: "title must be between 5 and 100 characters"},
			}})
			return
		}
		updates["title"] = *req.Title
		job.Title = *req.Title
	}
	if req.Description != nil {
		if len(*req.Description) < 50 || len(*req.Description) > 2000 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{
				{Field: "description", Message: "description must be between 50 and 2000 characters"},
			}})
			return
		}
		updates["description"] = *req.Description
	}
	if req.Company != nil {
		if len(*req.Company) < 2 || len(*req.Company) > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{
				{Field: "company", Message: "company must be between 2 and 100 characters"},
			}})
			return
		}
		updates["company"] = *req.Company
		job.Company = *req.Company
	}
	if req.Location != nil {
		if len(*req.Location) < 2 || len(*req.Location) > 190 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{
				{Field: "location", Message: "location must be between 2 and 190 characters"},
			}})
			return
		}
		updates["location"] = *req.Location
	}
	if req.JobType != nil {
		if !validate.JobType(*req.JobType) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{
				{Field: "jobType", Message: "jobType must be one of full-time, part-time, internship, contract, remote"},
			}})
			return
		}
		updates["job_type"] = *req.JobType
	}
	if req.ExperienceLevel != nil {
		if !validate.ExperienceLevel(*req.ExperienceLevel) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{
				{Field: "experienceLevel", Message: "experienceLevel must be one of entry, mid, senior, executive"},
			}})
			return
		}
		updates["experience_level"] = *req.ExperienceLevel
	}

	// 薪资区间要和未修改的另一端合并校验
	newMin, newMax := job.SalaryMin, job.SalaryMax
	if req.SalaryMin != nil {
		newMin = req.SalaryMin
	}
	if req.SalaryMax != nil {
		newMax = req.SalaryMax
	}
	if fe := validate.SalaryRange(newMin, newMax); fe != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{*fe}})
		return
	}
	if req.SalaryMin != nil {
		updates["salary_min"] = *req.SalaryMin
	}
	if req.SalaryMax != nil {
		updates["salary_max"] = *req.SalaryMax
	}
	if req.SalaryCurrency != nil {
		updates["salary_currency"] = *req.SalaryCurrency
	}

	if req.Skills != nil {
		skills, fe := validate.NormalizeSkills(req.Skills)
		if fe != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{*fe}})
			return
		}
		updates["skills"] = datatypes.NewJSONSlice(skills)
		job.Skills = datatypes.NewJSONSlice(skills)
	}
	if req.Requirements != nil {
		updates["requirements"] = datatypes.NewJSONSlice(req.Requirements)
	}
	if req.Benefits != nil {
		updates["benefits"] = datatypes.NewJSONSlice(req.Benefits)
	}
	if req.Deadline != nil {
		if fe := validate.FutureDeadline(req.Deadline, time.Now()); fe != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{*fe}})
			return
		}
		updates["application_deadline"] = *req.Deadline
	}
	if req.ContactEmail != nil {
		if fe := validate.ContactEmail(*req.ContactEmail); fe != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{*fe}})
			return
		}
		updates["contact_email"] = *req.ContactEmail
	}
	if req.ApplicationLink != nil {
		if fe := validate.ApplicationURL(*req.ApplicationLink); fe != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "errors": []validate.FieldError{*fe}})
			return
		}
		updates["application_link"] = *req.ApplicationLink
	}

	// 标题、公司或技能变化时重新派生标签
	if req.Title != nil || req.Company != nil || req.Skills != nil {
		updates["tags"] = datatypes.NewJSONSlice(validate.DeriveTags(job.Title, job.Company, job.Skills))
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "nothing to update", "job": toJobResponse(job, false)})
		return
	}

	if err := s.jobs.Update(c.Request.Context(), id, updates); err != nil {
		s.logger.Error("update job failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to update job"})
		return
	}

	job, err = s.jobs.Get(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("reload job failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to update job"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "job updated successfully", "job": toJobResponse(job, false)})
}

// handleDeleteJob 下架职位（软删除）。重复下架是幂等的，仍返回 200。
func (s *Server) handleDeleteJob(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid job id"})
		return
	}

	job, err := s.jobs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
			return
		}
		s.logger.Error("get job failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to delete job"})
		return
	}
	if job.PostedBy != getUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "you can only delete your own jobs"})
		return
	}

	if err := s.jobs.Deactivate(c.Request.Context(), id); err != nil {
		s.logger.Error("deactivate job failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to delete job"})
		return
	}

	s.logger.Info("job deactivated", slog.Uint64("job_id", uint64(id)))
	c.JSON(http.StatusOK, gin.H{"message": "job deleted successfully"})
}
