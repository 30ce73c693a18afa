// Package client implements the HTTP client used to talk to sibling
// FitSync services (user, schedule, training).
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/FitSync-G13/fitsync-progress-service/internal/domain"
)

// Config holds the upstream base URLs and the shared request timeout.
type Config struct {
	UserServiceURL     string
	ScheduleServiceURL string
	TrainingServiceURL string
	Timeout            time.Duration
}

// Client calls sibling services. All transport failures surface as
// domain.ErrUpstreamUnavailable so callers never see net/http errors.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New constructs a Client. A zero timeout defaults to five seconds.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// User is the subset of the identity record this service needs.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// BookingDetails is the schedule service's view of a booking.
type BookingDetails struct {
	BookingID   string     `json:"booking_id"`
	UserID      string     `json:"client_id"`
	DurationMin int        `json:"duration_min"`
	Calories    *int       `json:"calories,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ProgramDetails is the training service's view of a program.
type ProgramDetails struct {
	ProgramID      string `json:"program_id"`
	Name           string `json:"name"`
	TotalWeeks     int    `json:"total_weeks"`
	CompletedWeeks int    `json:"completed_weeks"`
	Status         string `json:"status"`
}

// ValidateUser confirms a user exists in the identity service.
func (c *Client) ValidateUser(ctx context.Context, userID, token string) (*User, error) {
	var user User
	url := fmt.Sprintf("%s/api/users/%s", c.cfg.UserServiceURL, userID)
	if err := c.get(ctx, url, token, &user); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, userID)
		}
		return nil, err
	}
	return &user, nil
}

// GetBooking fetches booking details from the schedule service.
func (c *Client) GetBooking(ctx context.Context, bookingID, token string) (*BookingDetails, error) {
	var booking BookingDetails
	url := fmt.Sprintf("%s/api/bookings/%s", c.cfg.ScheduleServiceURL, bookingID)
	if err := c.get(ctx, url, token, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetProgram fetches program details from the training service.
func (c *Client) GetProgram(ctx context.Context, programID, token string) (*ProgramDetails, error) {
	var program ProgramDetails
	url := fmt.Sprintf("%s/api/programs/%s", c.cfg.TrainingServiceURL, programID)
	if err := c.get(ctx, url, token, &program); err != nil {
		return nil, err
	}
	return &program, nil
}

func (c *Client) get(ctx context.Context, url, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		if !strings.HasPrefix(token, "Bearer ") {
			token = "Bearer " + token
		}
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection refusals, DNS failures, and timeouts all collapse
		// into the uniform upstream error.
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, url)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s returned %d", domain.ErrUpstreamUnavailable, url, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("upstream rejected request: %s returned %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
