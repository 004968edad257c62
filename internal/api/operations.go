package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"novusai.org/internal/conversation"
)

// Identity is the wire-level "who am I" response.
type Identity struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"` // "admin" or "employee"
	CompanyID   int64  `json:"company_id"`
	CompanyName string `json:"company_name"`
}

// SynthesisResult is one assistant answer with its optional visualization and
// the server-assigned conversation id.
type SynthesisResult struct {
	Answer         string
	Visualization  *conversation.Visualization
	ConversationID string
}

// PendingUser is an account awaiting admin approval.
type PendingUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CompanySignup registers a new company together with its admin account.
type CompanySignup struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	AdminName   string `json:"admin_name"`
}

// EmployeeSignup requests access to an existing company. The account starts
// unapproved; an admin has to approve it before login resolves.
type EmployeeSignup struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
}

// UploadedDocument describes a source document the backend accepted.
type UploadedDocument struct {
	Message  string `json:"message"`
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// Login exchanges email and password for a bearer credential. The endpoint
// takes an OAuth2-style form with the email in the username field.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	resp, err := c.do(ctx, "login", http.MethodPost, "/auth/login",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return "", err
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := decodeBody(resp, &out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("login: %w: empty access token", ErrInvalidInput)
	}
	return out.AccessToken, nil
}

// SignupCompany registers a company and returns a bearer credential for its
// freshly created admin account.
func (c *Client) SignupCompany(ctx context.Context, s CompanySignup) (string, error) {
	if s.CompanyName == "" || s.Email == "" || s.Password == "" || s.AdminName == "" {
		return "", fmt.Errorf("signup.company: %w: all fields are required", ErrInvalidInput)
	}
	body, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("signup.company: %w", err)
	}
	resp, err := c.do(ctx, "signup.company", http.MethodPost, "/auth/company/signup",
		bytes.NewReader(body), "application/json")
	if err != nil {
		return "", err
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := decodeBody(resp, &out); err != nil {
		return "", fmt.Errorf("signup.company: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("signup.company: %w: empty access token", ErrInvalidInput)
	}
	return out.AccessToken, nil
}

// SignupEmployee registers an employee account under an existing company and
// returns the server's confirmation message. No credential is issued; the
// account has to be approved first.
func (c *Client) SignupEmployee(ctx context.Context, s EmployeeSignup) (string, error) {
	if s.CompanyName == "" || s.Email == "" || s.Password == "" || s.Name == "" {
		return "", fmt.Errorf("signup.employee: %w: all fields are required", ErrInvalidInput)
	}
	body, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("signup.employee: %w", err)
	}
	resp, err := c.do(ctx, "signup.employee", http.MethodPost, "/auth/employee/signup",
		bytes.NewReader(body), "application/json")
	if err != nil {
		return "", err
	}
	var out struct {
		Message string `json:"message"`
	}
	if err := decodeBody(resp, &out); err != nil {
		return "", fmt.Errorf("signup.employee: %w", err)
	}
	return out.Message, nil
}

// UploadDocument sends a source document as a multipart form.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (UploadedDocument, error) {
	if strings.TrimSpace(filename) == "" {
		return UploadedDocument{}, fmt.Errorf("documents.upload: %w: filename is required", ErrInvalidInput)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadedDocument{}, fmt.Errorf("documents.upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadedDocument{}, fmt.Errorf("documents.upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return UploadedDocument{}, fmt.Errorf("documents.upload: %w", err)
	}

	resp, err := c.do(ctx, "documents.upload", http.MethodPost, "/api/documents/upload",
		&buf, mw.FormDataContentType())
	if err != nil {
		return UploadedDocument{}, err
	}
	var out UploadedDocument
	if err := decodeBody(resp, &out); err != nil {
		return UploadedDocument{}, fmt.Errorf("documents.upload: %w", err)
	}
	return out, nil
}

// GetIdentity fetches the profile the server associates with the current
// credential. Fails with ErrForbidden while the account awaits approval and
// ErrUnauthorized for a bad or expired credential.
func (c *Client) GetIdentity(ctx context.Context) (Identity, error) {
	resp, err := c.do(ctx, "identity", http.MethodGet, "/auth/me", nil, "")
	if err != nil {
		return Identity{}, err
	}
	var out Identity
	if err := decodeBody(resp, &out); err != nil {
		return Identity{}, fmt.Errorf("identity: %w", err)
	}
	return out, nil
}

// ListConversationSummaries fetches the prior-conversation list.
func (c *Client) ListConversationSummaries(ctx context.Context) ([]conversation.Summary, error) {
	resp, err := c.do(ctx, "history.list", http.MethodGet, "/api/history/conversations", nil, "")
	if err != nil {
		return nil, err
	}
	var out []conversation.Summary
	if err := decodeBody(resp, &out); err != nil {
		return nil, fmt.Errorf("history.list: %w", err)
	}
	return out, nil
}

type wireMessage struct {
	Role           conversation.Role `json:"role"`
	Content        string            `json:"content"`
	Visualizations json.RawMessage   `json:"visualizations,omitempty"`
}

// GetConversation fetches the full history for id.
func (c *Client) GetConversation(ctx context.Context, id string) ([]conversation.Message, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("history.get: %w: conversation id is required", ErrInvalidInput)
	}
	resp, err := c.do(ctx, "history.get", http.MethodGet,
		"/api/history/conversations/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, err
	}
	var out struct {
		Messages []wireMessage `json:"messages"`
	}
	if err := decodeBody(resp, &out); err != nil {
		return nil, fmt.Errorf("history.get: %w", err)
	}

	msgs := make([]conversation.Message, 0, len(out.Messages))
	for _, wm := range out.Messages {
		viz, err := conversation.ParseVisualization(wm.Visualizations)
		if err != nil {
			// A malformed payload should not make the whole history
			// unreadable; the text is still worth showing.
			viz = nil
		}
		msgs = append(msgs, conversation.Message{
			Role:          wm.Role,
			Content:       wm.Content,
			Visualization: viz,
		})
	}
	return msgs, nil
}

// Synthesize runs one request/response cycle. An empty conversationID is sent
// as null, asking the server to open a new conversation and name it.
func (c *Client) Synthesize(ctx context.Context, message, conversationID string) (SynthesisResult, error) {
	payload := struct {
		Message        string  `json:"message"`
		ConversationID *string `json:"conversation_id"`
	}{Message: message}
	if conversationID != "" {
		payload.ConversationID = &conversationID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return SynthesisResult{}, fmt.Errorf("synthesize: %w", err)
	}

	resp, err := c.do(ctx, "synthesize", http.MethodPost, "/api/synthesize",
		bytes.NewReader(body), "application/json")
	if err != nil {
		return SynthesisResult{}, err
	}
	var out struct {
		Answer         string          `json:"answer"`
		Visualizations json.RawMessage `json:"visualizations,omitempty"`
		ConversationID string          `json:"conversation_id"`
	}
	if err := decodeBody(resp, &out); err != nil {
		return SynthesisResult{}, fmt.Errorf("synthesize: %w", err)
	}
	viz, err := conversation.ParseVisualization(out.Visualizations)
	if err != nil {
		viz = nil
	}
	return SynthesisResult{
		Answer:         out.Answer,
		Visualization:  viz,
		ConversationID: out.ConversationID,
	}, nil
}

// ExportConversationDocument renders the conversation as a binary document.
func (c *Client) ExportConversationDocument(ctx context.Context, conversationID string) ([]byte, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("export: %w: conversation id is required", ErrInvalidInput)
	}
	body, err := json.Marshal(map[string]string{"conversation_id": conversationID})
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	resp, err := c.do(ctx, "export", http.MethodPost, "/api/pdf",
		bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return data, nil
}

// ListPendingUsers fetches accounts awaiting approval. Admin only.
func (c *Client) ListPendingUsers(ctx context.Context) ([]PendingUser, error) {
	resp, err := c.do(ctx, "admin.pending", http.MethodGet, "/auth/admin/pending", nil, "")
	if err != nil {
		return nil, err
	}
	var out []PendingUser
	if err := decodeBody(resp, &out); err != nil {
		return nil, fmt.Errorf("admin.pending: %w", err)
	}
	return out, nil
}

// ApproveUser grants a pending account access. Admin only.
func (c *Client) ApproveUser(ctx context.Context, userID int64) error {
	resp, err := c.do(ctx, "admin.approve", http.MethodPost,
		fmt.Sprintf("/auth/admin/approve/%d", userID), nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func decodeBody(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
