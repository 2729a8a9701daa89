package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Varaprasad-34/college-job-portal/internal/model"
)

type mockApplicationStore struct {
	createFunc    func(ctx context.Context, app *model.Application) (bool, error)
	setStatusFunc func(ctx context.Context, jobID, userID uint, status string) (bool, error)
	listFunc      func(ctx context.Context, userID uint) ([]ApplicationRow, error)

	createCalls    int
	setStatusCalls int
}

func (m *mockApplicationStore) Create(ctx context.Context, app *model.Application) (bool, error) {
	m.createCalls++
	return m.createFunc(ctx, app)
}

func (m *mockApplicationStore) SetStatus(ctx context.Context, jobID, userID uint, status string) (bool, error) {
	m.setStatusCalls++
	return m.setStatusFunc(ctx, jobID, userID, status)
}

func (m *mockApplicationStore) ListByApplicant(ctx context.Context, userID uint) ([]ApplicationRow, error) {
	return m.listFunc(ctx, userID)
}

func activeJobStore(postedBy uint, deadline *time.Time) *mockJobStore {
	return &mockJobStore{
		getFunc: func(ctx context.Context, id uint) (*model.Job, error) {
			return &model.Job{
				ID:                  id,
				PostedBy:            postedBy,
				IsActive:            true,
				ApplicationDeadline: deadline,
			}, nil
		},
	}
}

func TestApply_Normal(t *testing.T) {
	gin.SetMode(gin.TestMode)

	deadline := time.Now().Add(24 * time.Hour)
	apps := &mockApplicationStore{
		createFunc: func(ctx context.Context, app *model.Application) (bool, error) {
			if app.Status != model.ApplicationPending {
				t.Fatalf("expected pending status, got %q", app.Status)
			}
			return true, nil
		},
	}
	s := newTestServer(activeJobStore(7, &deadline), apps)
	r := authedRouter(http.MethodPost, "/users/apply/:jobId", 8, model.RoleStudent, s.handleApply)

	req := httptest.NewRequest(http.MethodPost, "/users/apply/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if apps.createCalls != 1 {
		t.Fatalf("expected create to be called once")
	}
}

func TestApply_DuplicateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)

	apps := &mockApplicationStore{
		createFunc: func(ctx context.Context, app *model.Application) (bool, error) {
			return false, nil
		},
	}
	s := newTestServer(activeJobStore(7, nil), apps)
	r := authedRouter(http.MethodPost, "/users/apply/:jobId", 8, model.RoleStudent, s.handleApply)

	req := httptest.NewRequest(http.MethodPost, "/users/apply/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate application, got %d", w.Code)
	}
}

func TestApply_PastDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)

	past := time.Now().Add(-time.Hour)
	apps := &mockApplicationStore{
		createFunc: func(ctx context.Context, app *model.Application) (bool, error) {
			return true, nil
		},
	}
	s := newTestServer(activeJobStore(7, &past), apps)
	r := authedRouter(http.MethodPost, "/users/apply/:jobId", 8, model.RoleStudent, s.handleApply)

	req := httptest.NewRequest(http.MethodPost, "/users/apply/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 past deadline, got %d", w.Code)
	}
	if apps.createCalls != 0 {
		t.Fatalf("expected no create call past deadline")
	}
}

func TestApply_OwnJobRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)

	apps := &mockApplicationStore{
		createFunc: func(ctx context.Context, app *model.Application) (bool, error) {
			return true, nil
		},
	}
	s := newTestServer(activeJobStore(8, nil), apps)
	r := authedRouter(http.MethodPost, "/users/apply/:jobId", 8, model.RoleAlumni, s.handleApply)

	req := httptest.NewRequest(http.MethodPost, "/users/apply/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 applying to own job, got %d", w.Code)
	}
}

func TestApply_InactiveJobNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jobs := &mockJobStore{
		getFunc: func(ctx context.Context, id uint) (*model.Job, error) {
			return &model.Job{ID: id, PostedBy: 7, IsActive: false}, nil
		},
	}
	apps := &mockApplicationStore{
		createFunc: func(ctx context.Context, app *model.Application) (bool, error) {
			return true, nil
		},
	}
	s := newTestServer(jobs, apps)
	r := authedRouter(http.MethodPost, "/users/apply/:jobId", 8, model.RoleStudent, s.handleApply)

	req := httptest.NewRequest(http.MethodPost, "/users/apply/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for inactive job, got %d", w.Code)
	}
}

func TestUpdateApplicationStatus_Owner(t *testing.T) {
	gin.SetMode(gin.TestMode)

	apps := &mockApplicationStore{
		setStatusFunc: func(ctx context.Context, jobID, userID uint, status string) (bool, error) {
			if jobID != 1 || userID != 8 || status != model.ApplicationReviewed {
				t.Fatalf("unexpected args: job=%d user=%d status=%q", jobID, userID, status)
			}
			return true, nil
		},
	}
	s := newTestServer(activeJobStore(7, nil), apps)
	r := authedRouter(http.MethodPut, "/users/application-status/:jobId/:userId", 7, model.RoleAlumni, s.handleUpdateApplicationStatus)

	payload, _ := json.Marshal(map[string]string{"status": model.ApplicationReviewed})
	req := httptest.NewRequest(http.MethodPut, "/users/application-status/1/8", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if apps.setStatusCalls != 1 {
		t.Fatalf("expected set status to be called once")
	}
}

func TestUpdateApplicationStatus_NonOwnerForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)

	apps := &mockApplicationStore{
		setStatusFunc: func(ctx context.Context, jobID, userID uint, status string) (bool, error) {
			return true, nil
		},
	}
	s := newTestServer(activeJobStore(7, nil), apps)
	r := authedRouter(http.MethodPut, "/users/application-status/:jobId/:userId", 9, model.RoleAlumni, s.handleUpdateApplicationStatus)

	payload, _ := json.Marshal(map[string]string{"status": model.ApplicationAccepted})
	req := httptest.NewRequest(http.MethodPut, "/users/application-status/1/8", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", w.Code)
	}
	if apps.setStatusCalls != 0 {
		t.Fatalf("expected no set status call for non-owner")
	}
}

func TestUpdateApplicationStatus_InvalidStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	apps := &mockApplicationStore{
		setStatusFunc: func(ctx context.Context, jobID, userID uint, status string) (bool, error) {
			return true, nil
		},
	}
	s := newTestServer(activeJobStore(7, nil), apps)
	r := authedRouter(http.MethodPut, "/users/application-status/:jobId/:userId", 7, model.RoleAlumni, s.handleUpdateApplicationStatus)

	payload, _ := json.Marshal(map[string]string{"status": "hired"})
	req := httptest.NewRequest(http.MethodPut, "/users/application-status/1/8", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d", w.Code)
	}
}

func TestUpdateApplicationStatus_ApplicationNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	apps := &mockApplicationStore{
		setStatusFunc: func(ctx context.Context, jobID, userID uint, status string) (bool, error) {
			return false, nil
		},
	}
	s := newTestServer(activeJobStore(7, nil), apps)
	r := authedRouter(http.MethodPut, "/users/application-status/:jobId/:userId", 7, model.RoleAlumni, s.handleUpdateApplicationStatus)

	payload, _ := json.Marshal(map[string]string{"status": model.ApplicationRejected})
	req := httptest.NewRequest(http.MethodPut, "/users/application-status/1/8", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing application, got %d", w.Code)
	}
}

func TestUpdateApplicationStatus_JobMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jobs := &mockJobStore{
		getFunc: func(ctx context.Context, id uint) (*model.Job, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	apps := &mockApplicationStore{
		setStatusFunc: func(ctx context.Context, jobID, userID uint, status string) (bool, error) {
			return true, nil
		},
	}
	s := newTestServer(jobs, apps)
	r := authedRouter(http.MethodPut, "/users/application-status/:jobId/:userId", 7, model.RoleAlumni, s.handleUpdateApplicationStatus)

	payload, _ := json.Marshal(map[string]string{"status": model.ApplicationReviewed})
	req := httptest.NewRequest(http.MethodPut, "/users/application-status/1/8", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing job, got %d", w.Code)
	}
}

func TestMyApplications(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Now()
	apps := &mockApplicationStore{
		listFunc: func(ctx context.Context, userID uint) ([]ApplicationRow, error) {
			if userID != 8 {
				t.Fatalf("expected applicant 8, got %d", userID)
			}
			return []ApplicationRow{
				{JobID: 1, Title: "Backend Engineer", Company: "Acme", Status: model.ApplicationPending, AppliedAt: now},
			}, nil
		},
	}
	s := newTestServer(&mockJobStore{}, apps)
	r := authedRouter(http.MethodGet, "/users/my-applications", 8, model.RoleStudent, s.handleMyApplications)

	req := httptest.NewRequest(http.MethodGet, "/users/my-applications", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Applications []struct {
			Job struct {
				Title string `json:"title"`
			} `json:"job"`
			Application struct {
				Status string `json:"status"`
			} `json:"application"`
		} `json:"applications"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Applications) != 1 || resp.Applications[0].Job.Title != "Backend Engineer" {
		t.Fatalf("unexpected applications payload: %s", w.Body.String())
	}
}
