package api

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/openpromo/pubflow/app/autocomment"
	"github.com/openpromo/pubflow/app/database"
)

// MockContentRepository implements database.ContentRepository for testing
type MockContentRepository struct {
	content *database.ContentItem
}

func (m *MockContentRepository) GetContent(id string) (*database.ContentItem, error) {
	if m.content != nil && m.content.ID == id {
		return m.content, nil
	}
	return nil, nil
}

func (m *MockContentRepository) CreateContent(item *database.ContentItem) error { return nil }
func (m *MockContentRepository) GetContentCount() (int, error)                  { return 0, nil }
func (m *MockContentRepository) MergeMetadata(id string, patch map[string]any) error {
	return nil
}
func (m *MockContentRepository) MarkPublished(id string, patch map[string]any) error {
	return nil
}
func (m *MockContentRepository) AdvancePhase(id, from, to string) (bool, error) {
	return false, nil
}
func (m *MockContentRepository) SetAutoCommentEnabled(id string, enabled bool) error {
	return nil
}

// MockCommentJobRepository implements database.CommentJobRepository for testing
type MockCommentJobRepository struct{}

func (m *MockCommentJobRepository) GetJob(contentID string) (*database.CommentJob, error) {
	return nil, nil
}
func (m *MockCommentJobRepository) EnsureJob(contentID string, beforeTotal, afterTotal int) error {
	return nil
}
func (m *MockCommentJobRepository) IncrementBeforeDone(contentID string) error { return nil }
func (m *MockCommentJobRepository) IncrementAfterDone(contentID string) error  { return nil }

func statusTestContext(t *testing.T, contentID, userID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/content/"+contentID+"/automation-status", nil)
	c.Params = gin.Params{{Key: "id", Value: contentID}}
	c.Set(userIDKey, userID)

	return c, w
}

func TestGetAutomationStatus_OwnerSeesStatus(t *testing.T) {
	contents := &MockContentRepository{content: &database.ContentItem{
		ID:               "c1",
		UserID:           "user-1",
		AutoCommentPhase: "before_pending",
	}}
	handler := &Handler{
		contents: contents,
		status:   autocomment.NewStatusService(contents, &MockCommentJobRepository{}),
	}

	c, w := statusTestContext(t, "c1", "user-1")
	handler.GetAutomationStatus(c)

	if w.Code != 200 {
		t.Errorf("Expected 200 for the owner, got %d", w.Code)
	}
}

func TestGetAutomationStatus_ForeignContentReadsNotFound(t *testing.T) {
	contents := &MockContentRepository{content: &database.ContentItem{
		ID:               "c1",
		UserID:           "user-1",
		AutoCommentPhase: "before_pending",
	}}
	handler := &Handler{
		contents: contents,
		status:   autocomment.NewStatusService(contents, &MockCommentJobRepository{}),
	}

	c, w := statusTestContext(t, "c1", "user-2")
	handler.GetAutomationStatus(c)

	if w.Code != 404 {
		t.Errorf("Expected foreign content to read as 404, got %d", w.Code)
	}
}

func TestGetAutomationStatus_MissingContent(t *testing.T) {
	contents := &MockContentRepository{}
	handler := &Handler{
		contents: contents,
		status:   autocomment.NewStatusService(contents, &MockCommentJobRepository{}),
	}

	c, w := statusTestContext(t, "nope", "user-1")
	handler.GetAutomationStatus(c)

	if w.Code != 404 {
		t.Errorf("Expected 404 for unknown content, got %d", w.Code)
	}
}
