package api

import (
	"time"

	"sessiond/cmd/internal/auth/session"
	"sessiond/cmd/internal/operators"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Status      string   `json:"status"`
	Permissions []string `json:"permissions,omitempty"`
}

type sessionTimeouts struct {
	ExpiresIn   int64 `json:"expiresIn"`
	MaxLifetime int64 `json:"maxLifetime"`
}

type loginResponse struct {
	Success bool            `json:"success"`
	User    userResponse    `json:"user"`
	Session sessionTimeouts `json:"session"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type revokedResponse struct {
	Success bool `json:"success"`
	Revoked int  `json:"revoked"`
}

type sweepResponse struct {
	Success bool `json:"success"`
	Evicted int  `json:"evicted"`
}

type refreshResponse struct {
	Success   bool  `json:"success"`
	ExpiresIn int64 `json:"expiresIn"`
}

type timeRemaining struct {
	InactivitySeconds int64  `json:"inactivitySeconds"`
	LifetimeSeconds   int64  `json:"lifetimeSeconds"`
	ExpiresBy         string `json:"expiresBy"`
}

type sessionView struct {
	ID            string        `json:"id"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastActivity  time.Time     `json:"lastActivity"`
	ExpiresAt     time.Time     `json:"expiresAt"`
	TimeRemaining timeRemaining `json:"timeRemaining"`
}

type currentSessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          userResponse `json:"user"`
	Session       sessionView  `json:"session"`
}

type sessionsResponse struct {
	Sessions       []session.Summary `json:"sessions"`
	CurrentSession string            `json:"currentSession"`
}

type statsView struct {
	session.Stats
	InactivityTimeout int64 `json:"inactivityTimeout"`
	MaxLifetime       int64 `json:"maxLifetime"`
}

type statsResponse struct {
	Stats statsView `json:"stats"`
}

func profileFromOperator(op operators.Operator) session.Profile {
	return session.Profile{
		Email:       op.Email,
		Name:        op.Name,
		Role:        op.Role,
		Status:      op.Status,
		Permissions: op.Permissions,
	}
}

func userFromOperator(op operators.Operator) userResponse {
	return userResponse{
		ID:          op.ID,
		Email:       op.Email,
		Name:        op.Name,
		Role:        op.Role,
		Status:      op.Status,
		Permissions: op.Permissions,
	}
}

func userFromSession(s session.Session) userResponse {
	return userResponse{
		ID:          s.UserID,
		Email:       s.Profile.Email,
		Name:        s.Profile.Name,
		Role:        s.Profile.Role,
		Status:      s.Profile.Status,
		Permissions: s.Profile.Permissions,
	}
}

func seconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}
