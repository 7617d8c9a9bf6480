package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/parlo-ai/parlo/internal/common"
	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/parlo-ai/parlo/internal/models"
	"github.com/parlo-ai/parlo/internal/services/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// fakeStorage implements interfaces.StorageManager over in-memory maps
type fakeStorage struct {
	mu     sync.Mutex
	agents map[string]*models.Agent
	calls  map[string]*models.Call
	users  map[string]*models.User
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		agents: make(map[string]*models.Agent),
		calls:  make(map[string]*models.Call),
		users:  make(map[string]*models.User),
	}
}

func (f *fakeStorage) UserStorage() interfaces.UserStorage               { return f }
func (f *fakeStorage) SessionStorage() interfaces.SessionStorage         { return nil }
func (f *fakeStorage) IntegrationStorage() interfaces.IntegrationStorage { return nil }
func (f *fakeStorage) AgentStorage() interfaces.AgentStorage             { return f }
func (f *fakeStorage) CallStorage() interfaces.CallStorage               { return f }
func (f *fakeStorage) KeyValueStorage() interfaces.KeyValueStorage       { return nil }
func (f *fakeStorage) Close() error                                     { return nil }

func (f *fakeStorage) SaveAgent(_ context.Context, agent *models.Agent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *agent
	f.agents[agent.ID] = &clone
	return nil
}

func (f *fakeStorage) GetAgent(_ context.Context, id string) (*models.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	agent, ok := f.agents[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	clone := *agent
	return &clone, nil
}

func (f *fakeStorage) GetAgentByAssistantID(_ context.Context, assistantID string) (*models.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, agent := range f.agents {
		if agent.AssistantID == assistantID {
			clone := *agent
			return &clone, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (f *fakeStorage) ListAgents(_ context.Context, userID string) ([]*models.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Agent
	for _, agent := range f.agents {
		if agent.UserID == userID {
			clone := *agent
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeStorage) DeleteAgent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.agents, id)
	return nil
}

func (f *fakeStorage) SaveCall(_ context.Context, call *models.Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *call
	f.calls[call.ID] = &clone
	return nil
}

func (f *fakeStorage) GetCall(_ context.Context, id string) (*models.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call, ok := f.calls[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	clone := *call
	return &clone, nil
}

func (f *fakeStorage) GetCallByPlatformID(_ context.Context, platformCallID string) (*models.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.calls {
		if call.PlatformCallID == platformCallID {
			clone := *call
			return &clone, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (f *fakeStorage) ListCalls(_ context.Context, userID string) ([]*models.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Call
	for _, call := range f.calls {
		if call.UserID == userID {
			clone := *call
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeStorage) DeleteCall(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.calls, id)
	return nil
}

func (f *fakeStorage) SaveUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeStorage) GetUser(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeStorage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (f *fakeStorage) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

// fakePlatform simulates the voice platform API
type fakePlatform struct {
	mu                sync.Mutex
	server            *httptest.Server
	createdAssistants []voice.CreateAssistantRequest
	deletedAssistants []string
	createdCalls      []voice.CreateCallRequest
	failCreate        bool
}

func newFakePlatform(t *testing.T) *fakePlatform {
	p := &fakePlatform{}
	mux := http.NewServeMux()
	mux.HandleFunc("/assistant", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.failCreate {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"invalid assistant"}`))
			return
		}
		var req voice.CreateAssistantRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		p.createdAssistants = append(p.createdAssistants, req)
		json.NewEncoder(w).Encode(voice.Assistant{ID: "asst-1", Name: req.Name})
	})
	mux.HandleFunc("/assistant/", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		id := r.URL.Path[len("/assistant/"):]
		switch r.Method {
		case http.MethodDelete:
			p.deletedAssistants = append(p.deletedAssistants, id)
			json.NewEncoder(w).Encode(voice.Assistant{ID: id})
		case http.MethodPatch:
			var req voice.CreateAssistantRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			p.createdAssistants = append(p.createdAssistants, req)
			json.NewEncoder(w).Encode(voice.Assistant{ID: id, Name: req.Name})
		default:
			json.NewEncoder(w).Encode(voice.Assistant{ID: id})
		}
	})
	mux.HandleFunc("/call", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		var req voice.CreateCallRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		p.createdCalls = append(p.createdCalls, req)
		json.NewEncoder(w).Encode(voice.Call{ID: "call-platform-1", Status: "queued"})
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePlatform) client(logger arbor.ILogger) *voice.Client {
	return voice.NewClient(&common.VoiceConfig{
		APIKey:        "test-key",
		BaseURL:       p.server.URL,
		PhoneNumberID: "pn-1",
		RateLimit:     time.Microsecond,
	}, logger)
}

// recordingMailer captures sent messages
type recordingMailer struct {
	mu         sync.Mutex
	to         []string
	subjects   []string
	bodies     []string
	htmlBodies []string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, textBody, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.subjects = append(m.subjects, subject)
	m.bodies = append(m.bodies, textBody)
	m.htmlBodies = append(m.htmlBodies, htmlBody)
	return nil
}

type fixedFormatter struct{ summary string }

func (f *fixedFormatter) FormatSummary(context.Context, string) (string, error) {
	return f.summary, nil
}

func newTestService(t *testing.T, storage *fakeStorage, formatter interfaces.SummaryFormatter, mailer interfaces.Mailer) (*Service, *fakePlatform) {
	platform := newFakePlatform(t)
	logger := arbor.NewLogger()
	svc := NewService(storage, platform.client(logger), formatter, mailer,
		&common.ServerConfig{BaseURL: "https://parlo.example.com/"}, logger)
	return svc, platform
}

func TestCreateAgentProvisionsAssistant(t *testing.T) {
	storage := newFakeStorage()
	svc, platform := newTestService(t, storage, nil, nil)
	svc.SetToolIDs([]string{"tool-1", "tool-2"})

	agent, err := svc.CreateAgent(context.Background(), "user-1", &CreateAgentRequest{
		Name:         "Booking agent",
		FirstMessage: "Hello, I am calling on behalf of Alex.",
		SystemPrompt: "Book a table for two at 7pm.",
		PhoneNumber:  "+61400000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "asst-1", agent.AssistantID)
	assert.Equal(t, "user-1", agent.UserID)

	require.Len(t, platform.createdAssistants, 1)
	created := platform.createdAssistants[0]
	assert.Equal(t, "https://parlo.example.com/api/voice/webhook", created.ServerURL)
	assert.Equal(t, []string{"tool-1", "tool-2"}, created.Model.ToolIDs)

	prompt := created.Model.Messages[0].Content
	assert.Contains(t, prompt, "on behalf of a user")
	assert.Contains(t, prompt, "+61400000000")
	assert.Contains(t, prompt, "Book a table for two at 7pm.")

	toolTypes := make([]string, 0, len(created.Model.Tools))
	var transfer *voice.BuiltinTool
	for i, tool := range created.Model.Tools {
		toolTypes = append(toolTypes, tool.Type)
		if tool.Type == "transferCall" {
			transfer = &created.Model.Tools[i]
		}
	}
	assert.Contains(t, toolTypes, "endCall")
	require.NotNil(t, transfer)
	require.Len(t, transfer.Destinations, 1)
	assert.Equal(t, "+61400000000", transfer.Destinations[0].Number)

	stored, err := storage.GetAgent(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Booking agent", stored.Name)
}

func TestSetToolIDsSafeUnderConcurrentBuilds(t *testing.T) {
	svc, _ := newTestService(t, newFakeStorage(), nil, nil)

	req := &CreateAgentRequest{Name: "Agent"}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			svc.SetToolIDs([]string{"tool-1", "tool-2"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = svc.assistantRequest(req)
		}
	}()
	wg.Wait()

	assert.Equal(t, []string{"tool-1", "tool-2"}, svc.currentToolIDs())
}

func TestCreateAgentRequiresName(t *testing.T) {
	svc, platform := newTestService(t, newFakeStorage(), nil, nil)

	_, err := svc.CreateAgent(context.Background(), "user-1", &CreateAgentRequest{Name: "  "})
	require.Error(t, err)
	assert.Empty(t, platform.createdAssistants)
}

func TestCreateAgentRejectsBadPhoneNumber(t *testing.T) {
	svc, platform := newTestService(t, newFakeStorage(), nil, nil)

	_, err := svc.CreateAgent(context.Background(), "user-1", &CreateAgentRequest{
		Name:        "Agent",
		PhoneNumber: "0400 000 000",
	})
	require.Error(t, err)
	assert.Empty(t, platform.createdAssistants)
}

func TestCreateAgentSurfacesPlatformError(t *testing.T) {
	storage := newFakeStorage()
	svc, platform := newTestService(t, storage, nil, nil)
	platform.failCreate = true

	_, err := svc.CreateAgent(context.Background(), "user-1", &CreateAgentRequest{Name: "Agent"})
	require.Error(t, err)
	assert.Empty(t, storage.agents)
}

func TestGetAgentEnforcesOwnership(t *testing.T) {
	storage := newFakeStorage()
	svc, _ := newTestService(t, storage, nil, nil)

	agent, err := svc.CreateAgent(context.Background(), "user-1", &CreateAgentRequest{Name: "Agent"})
	require.NoError(t, err)

	_, err = svc.GetAgent(context.Background(), "user-2", agent.ID)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	got, err := svc.GetAgent(context.Background(), "user-1", agent.ID)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, got.ID)
}

func TestDeleteAgentRemovesRemoteAssistant(t *testing.T) {
	storage := newFakeStorage()
	svc, platform := newTestService(t, storage, nil, nil)

	agent, err := svc.CreateAgent(context.Background(), "user-1", &CreateAgentRequest{Name: "Agent"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAgent(context.Background(), "user-1", agent.ID))
	assert.Equal(t, []string{"asst-1"}, platform.deletedAssistants)
	assert.Empty(t, storage.agents)
}

func TestStartCallPersistsQueuedCall(t *testing.T) {
	storage := newFakeStorage()
	svc, platform := newTestService(t, storage, nil, nil)

	agent, err := svc.CreateAgent(context.Background(), "user-1", &CreateAgentRequest{Name: "Agent"})
	require.NoError(t, err)

	call, err := svc.StartCall(context.Background(), "user-1", agent.ID, "+61411111111")
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusQueued, call.Status)
	assert.Equal(t, "call-platform-1", call.PlatformCallID)
	assert.NotNil(t, call.StartedAt)

	require.Len(t, platform.createdCalls, 1)
	assert.Equal(t, "asst-1", platform.createdCalls[0].AssistantID)
	assert.Equal(t, "pn-1", platform.createdCalls[0].PhoneNumberID)
	assert.Equal(t, "+61411111111", platform.createdCalls[0].Customer.Number)
}

func TestStartCallRequiresNumber(t *testing.T) {
	svc, _ := newTestService(t, newFakeStorage(), nil, nil)

	_, err := svc.StartCall(context.Background(), "user-1", "agent-1", "")
	require.Error(t, err)
}

func endReport(platformCallID, assistantID, summary, transcript string) *models.EndOfCallReport {
	report := &models.EndOfCallReport{}
	report.Message.Type = "end-of-call-report"
	report.Message.EndedReason = "customer-ended-call"
	report.Message.Summary = summary
	report.Message.Transcript = transcript
	report.Message.Call.ID = platformCallID
	report.Message.Assistant.ID = assistantID
	return report
}

func TestHandleEndOfCallStoresReportAndEmails(t *testing.T) {
	storage := newFakeStorage()
	storage.SaveUser(context.Background(), &models.User{ID: "user-1", Email: "alex@example.com"})
	mailer := &recordingMailer{}
	svc, _ := newTestService(t, storage, nil, mailer)

	agent, err := svc.CreateAgent(context.Background(), "user-1", &CreateAgentRequest{Name: "Agent"})
	require.NoError(t, err)
	call, err := svc.StartCall(context.Background(), "user-1", agent.ID, "+61411111111")
	require.NoError(t, err)

	report := endReport(call.PlatformCallID, agent.AssistantID, "Table booked for 7pm.", "agent: hi\ncallee: hello")
	require.NoError(t, svc.HandleEndOfCall(context.Background(), report))

	stored, err := storage.GetCall(context.Background(), call.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusEnded, stored.Status)
	assert.Equal(t, "Table booked for 7pm.", stored.Summary)
	assert.Equal(t, "customer-ended-call", stored.EndedReason)
	assert.Equal(t, "agent: hi\ncallee: hello", stored.Transcript)
	require.NotNil(t, stored.EndedAt)

	require.Len(t, mailer.to, 1)
	assert.Equal(t, "alex@example.com", mailer.to[0])
	assert.Contains(t, mailer.bodies[0], "Table booked for 7pm.")
}

func TestHandleEndOfCallEscapesEmailMarkup(t *testing.T) {
	storage := newFakeStorage()
	storage.SaveUser(context.Background(), &models.User{ID: "user-1", Email: "alex@example.com"})
	mailer := &recordingMailer{}
	svc, _ := newTestService(t, storage, nil, mailer)

	agent, err := svc.CreateAgent(context.Background(), "user-1", &CreateAgentRequest{Name: "Agent"})
	require.NoError(t, err)
	call, err := svc.StartCall(context.Background(), "user-1", agent.ID, "+61411111111")
	require.NoError(t, err)

	report := endReport(call.PlatformCallID, agent.AssistantID,
		"Caller wants <script>alert(1)</script> removed.",
		"agent: use <b>bold</b> sparingly")
	require.NoError(t, svc.HandleEndOfCall(context.Background(), report))

	require.Len(t, mailer.htmlBodies, 1)
	assert.Contains(t, mailer.htmlBodies[0], "&lt;script&gt;")
	assert.Contains(t, mailer.htmlBodies[0], "&lt;b&gt;bold&lt;/b&gt;")
	assert.NotContains(t, mailer.htmlBodies[0], "<script>")
}

func TestHandleEndOfCallSummarizesWhenPlatformOmitsSummary(t *testing.T) {
	storage := newFakeStorage()
	svc, _ := newTestService(t, storage, &fixedFormatter{summary: "I confirmed the appointment."}, nil)

	agent, err := svc.CreateAgent(context.Background(), "user-1", &CreateAgentRequest{Name: "Agent"})
	require.NoError(t, err)
	call, err := svc.StartCall(context.Background(), "user-1", agent.ID, "+61411111111")
	require.NoError(t, err)

	report := endReport(call.PlatformCallID, agent.AssistantID, "", "agent: hi")
	require.NoError(t, svc.HandleEndOfCall(context.Background(), report))

	stored, err := storage.GetCall(context.Background(), call.ID)
	require.NoError(t, err)
	assert.Equal(t, "I confirmed the appointment.", stored.Summary)
}

func TestHandleEndOfCallAdoptsUnknownCall(t *testing.T) {
	storage := newFakeStorage()
	svc, _ := newTestService(t, storage, nil, nil)

	agent, err := svc.CreateAgent(context.Background(), "user-1", &CreateAgentRequest{Name: "Agent"})
	require.NoError(t, err)

	report := endReport("call-inbound-9", agent.AssistantID, "Caller asked for opening hours.", "")
	require.NoError(t, svc.HandleEndOfCall(context.Background(), report))

	stored, err := storage.GetCallByPlatformID(context.Background(), "call-inbound-9")
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, agent.ID, stored.AgentID)
	assert.Equal(t, models.CallStatusEnded, stored.Status)
}

func TestHandleEndOfCallPlacesSummaryCallback(t *testing.T) {
	storage := newFakeStorage()
	svc, platform := newTestService(t, storage, nil, nil)

	agent, err := svc.CreateAgent(context.Background(), "user-1", &CreateAgentRequest{
		Name:        "Agent",
		PhoneNumber: "+61400000000",
	})
	require.NoError(t, err)
	call, err := svc.StartCall(context.Background(), "user-1", agent.ID, "+61411111111")
	require.NoError(t, err)

	report := endReport(call.PlatformCallID, agent.AssistantID, "Table booked for 7pm.", "")
	require.NoError(t, svc.HandleEndOfCall(context.Background(), report))

	// First call is the outbound call, second is the summary callback
	require.Len(t, platform.createdCalls, 2)
	callback := platform.createdCalls[1]
	assert.Empty(t, callback.AssistantID)
	assert.Equal(t, "+61400000000", callback.Customer.Number)
	require.NotNil(t, callback.Assistant)
	assert.Contains(t, callback.Assistant.FirstMessage, "Table booked for 7pm.")
}

func TestHandleEndOfCallRejectsReportWithoutCallID(t *testing.T) {
	svc, _ := newTestService(t, newFakeStorage(), nil, nil)

	err := svc.HandleEndOfCall(context.Background(), &models.EndOfCallReport{})
	require.Error(t, err)
}
