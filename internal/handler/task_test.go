package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskroom/internal/domain"
	"taskroom/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// capturingTaskService records the last patch so tests can assert the
// JSON-to-patch mapping, the part this handler owns.
type capturingTaskService struct {
	lastPatch *domain.TaskPatch
	lastDraft *domain.TaskDraft
	tasks     []*domain.Task
}

func (s *capturingTaskService) List(ctx context.Context, roomID, userID uuid.UUID) ([]*domain.Task, error) {
	return s.tasks, nil
}

func (s *capturingTaskService) Add(ctx context.Context, roomID, userID uuid.UUID, draft *domain.TaskDraft) (*domain.Task, error) {
	s.lastDraft = draft
	return &domain.Task{ID: uuid.New(), RoomID: roomID, Title: draft.Title, Status: domain.TaskStatusNotStarted}, nil
}

func (s *capturingTaskService) UpdateStatus(ctx context.Context, roomID, userID, taskID uuid.UUID, status domain.TaskStatus) error {
	return nil
}

func (s *capturingTaskService) Edit(ctx context.Context, roomID, userID, taskID uuid.UUID, patch *domain.TaskPatch) error {
	s.lastPatch = patch
	return nil
}

func (s *capturingTaskService) Delete(ctx context.Context, roomID, userID, taskID uuid.UUID) error {
	return nil
}

func newTaskTestRouter(svc *capturingTaskService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewTaskHandler(svc, logger.NewNop())

	router := gin.New()
	authed := router.Group("", func(c *gin.Context) {
		c.Set("user_id", uuid.New())
	})
	authed.GET("/rooms/:roomId/tasks", handler.List)
	authed.POST("/rooms/:roomId/tasks", handler.Create)
	authed.PATCH("/rooms/:roomId/tasks/:taskId", handler.Edit)
	return router
}

func TestTaskEditDueDateMapping(t *testing.T) {
	svc := &capturingTaskService{}
	router := newTaskTestRouter(svc)
	base := "/rooms/" + uuid.NewString() + "/tasks/" + uuid.NewString()

	tests := []struct {
		name      string
		body      string
		wantClear bool
		wantSet   bool
	}{
		{"omitted leaves due date alone", `{"title":"x"}`, false, false},
		{"empty string clears", `{"due_date":""}`, true, false},
		{"value sets", `{"due_date":"2026-09-01"}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, base, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if svc.lastPatch.ClearDueDate != tt.wantClear {
				t.Errorf("ClearDueDate = %v, want %v", svc.lastPatch.ClearDueDate, tt.wantClear)
			}
			if (svc.lastPatch.DueDate != nil) != tt.wantSet {
				t.Errorf("DueDate set = %v, want %v", svc.lastPatch.DueDate != nil, tt.wantSet)
			}
		})
	}
}

func TestTaskEditRejectsInvalidStatus(t *testing.T) {
	svc := &capturingTaskService{}
	router := newTaskTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/rooms/"+uuid.NewString()+"/tasks/"+uuid.NewString(), strings.NewReader(`{"status":"archived"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if svc.lastPatch != nil {
		t.Error("invalid status must not reach the service")
	}
}

func TestTaskListStatusFilter(t *testing.T) {
	roomID := uuid.New()
	svc := &capturingTaskService{tasks: []*domain.Task{
		{ID: uuid.New(), RoomID: roomID, Title: "a", Status: domain.TaskStatusDone, CreatedAt: time.Now()},
		{ID: uuid.New(), RoomID: roomID, Title: "b", Status: domain.TaskStatusNotStarted, CreatedAt: time.Now()},
	}}
	router := newTaskTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rooms/"+roomID.String()+"/tasks?status=done", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"title":"a"`) || strings.Contains(w.Body.String(), `"title":"b"`) {
		t.Errorf("filter not applied: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/rooms/"+roomID.String()+"/tasks?status=bogus", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bogus status filter: status = %d, want 400", w.Code)
	}
}

func TestTaskCreateMapsDraft(t *testing.T) {
	svc := &capturingTaskService{}
	router := newTaskTestRouter(svc)
	assignee := uuid.NewString()

	w := httptest.NewRecorder()
	body := `{"title":"Ship it","description":"d","assigned_to":"` + assignee + `","due_date":"2026-09-01T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/rooms/"+uuid.NewString()+"/tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if svc.lastDraft.Title != "Ship it" || svc.lastDraft.AssignedTo.String() != assignee {
		t.Errorf("draft = %+v", svc.lastDraft)
	}
	if svc.lastDraft.DueDate == nil {
		t.Error("due date not parsed")
	}
}
