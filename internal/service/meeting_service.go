package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"lingua_lms_backend/internal/config"
	"lingua_lms_backend/internal/model"
	"lingua_lms_backend/internal/repository"
	"lingua_lms_backend/internal/util"

	"go.uber.org/zap"
)

// MeetingService proxies meeting creation to the third-party provider. The
// OAuth credentials never leave the server; clients only ever see the
// resulting join link and passcode.
type MeetingService struct {
	config   config.MeetingConfig
	Meetings *repository.MeetingRepository
	Log      *zap.Logger
	client   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewMeetingService(cfg config.MeetingConfig, meetings *repository.MeetingRepository, log *zap.Logger) (*MeetingService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.AccountID == "" {
		return nil, util.ErrMeetingNotReady
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://zoom.us/oauth/token"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.zoom.us/v2"
	}
	return &MeetingService{
		config:   cfg,
		Meetings: meetings,
		Log:      log,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached server-to-server access token, refreshing when the
// cached one is within a minute of expiry.
func (s *MeetingService) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Now().Add(time.Minute).Before(s.tokenExpiry) {
		return s.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", s.config.AccountID)

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.config.ClientID, s.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("meeting token error (status %d): %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", err
	}
	s.accessToken = tok.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return s.accessToken, nil
}

type MeetingInput struct {
	CourseID    string    `json:"courseId" binding:"required"`
	WeekID      string    `json:"weekId"`
	Topic       string    `json:"topic" binding:"required"`
	StartTime   time.Time `json:"startTime" binding:"required"`
	DurationMin int       `json:"durationMin" binding:"required,min=1"`
}

type providerMeetingResponse struct {
	ID       json.Number `json:"id"`
	JoinURL  string      `json:"join_url"`
	Password string      `json:"password"`
}

// CreateMeeting forwards the request to the provider and persists the
// returned id, join link and passcode.
func (s *MeetingService) CreateMeeting(ctx context.Context, createdBy uint, input MeetingInput) (*model.Meeting, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"topic":      input.Topic,
		"type":       2,
		"start_time": input.StartTime.UTC().Format("2006-01-02T15:04:05Z"),
		"duration":   input.DurationMin,
		"settings": map[string]interface{}{
			"join_before_host": false,
			"waiting_room":     true,
		},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+"/users/me/meetings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meeting API error (status %d): %s", resp.StatusCode, string(body))
	}

	var created providerMeetingResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, err
	}

	meeting := &model.Meeting{
		CourseID:    input.CourseID,
		WeekID:      input.WeekID,
		Topic:       input.Topic,
		ProviderID:  created.ID.String(),
		JoinURL:     created.JoinURL,
		Passcode:    created.Password,
		StartTime:   input.StartTime,
		DurationMin: input.DurationMin,
		CreatedByID: createdBy,
	}
	if err := s.Meetings.Create(ctx, meeting); err != nil {
		return nil, err
	}
	return meeting, nil
}

func (s *MeetingService) ListByCourse(ctx context.Context, courseID string) ([]model.Meeting, error) {
	return s.Meetings.ListByCourse(ctx, courseID)
}
