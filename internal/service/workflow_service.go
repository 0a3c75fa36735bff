package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"lingua_lms_backend/internal/config"
	"lingua_lms_backend/internal/util"
)

// WorkflowService calls the external workflow engine that produces AI chat
// replies, quizzes, summaries and notebook metadata. Every call is a single
// authenticated POST with no retry: the claim layer above decides whether a
// failed run may be attempted again.
type WorkflowService struct {
	config config.WorkflowConfig
	client *http.Client
}

// NewWorkflowService fails fast on missing configuration so a half-wired
// deployment surfaces at startup, not on the first chat message.
func NewWorkflowService(cfg config.WorkflowConfig) (*WorkflowService, error) {
	if cfg.BaseURL == "" || cfg.Token == "" {
		return nil, util.ErrWorkflowNotReady
	}
	return &WorkflowService{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type WorkflowChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type workflowChatRequest struct {
	SessionID string             `json:"sessionId"`
	Message   string             `json:"message"`
	History   []WorkflowChatTurn `json:"history,omitempty"`
}

type workflowChatResponse struct {
	Reply    string          `json:"reply"`
	Segments json.RawMessage `json:"segments,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type workflowGenerateRequest struct {
	NotebookID string `json:"notebookId"`
}

// ChatReply sends one chat turn and waits for the full reply.
func (s *WorkflowService) ChatReply(ctx context.Context, sessionID, message string, history []WorkflowChatTurn) (string, json.RawMessage, error) {
	body := workflowChatRequest{SessionID: sessionID, Message: message, History: history}

	var result workflowChatResponse
	if err := s.post(ctx, s.path(s.config.ChatPath, "/chat"), body, &result); err != nil {
		return "", nil, err
	}
	if result.Error != "" {
		return "", nil, fmt.Errorf("workflow chat error: %s", result.Error)
	}
	return result.Reply, result.Segments, nil
}

// GenerateMetadata asks the engine to derive title, description and icon
// for a notebook from its sources. The engine writes results back through
// the API; the call only reports acceptance.
func (s *WorkflowService) GenerateMetadata(ctx context.Context, notebookID string) error {
	return s.post(ctx, s.path(s.config.MetadataPath, "/generate/metadata"), workflowGenerateRequest{NotebookID: notebookID}, nil)
}

func (s *WorkflowService) GenerateQuiz(ctx context.Context, notebookID string) error {
	return s.post(ctx, s.path(s.config.QuizPath, "/generate/quiz"), workflowGenerateRequest{NotebookID: notebookID}, nil)
}

func (s *WorkflowService) GenerateSummary(ctx context.Context, notebookID string) error {
	return s.post(ctx, s.path(s.config.SummaryPath, "/generate/summary"), workflowGenerateRequest{NotebookID: notebookID}, nil)
}

func (s *WorkflowService) path(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func (s *WorkflowService) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("workflow API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return err
		}
	}
	return nil
}
