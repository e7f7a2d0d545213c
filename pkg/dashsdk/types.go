// Package dashsdk holds the request/response shapes of the dashboard
// API, shared by the HTTP handlers and Go callers.
package dashsdk

import "time"

// ErrorResponse is the uniform error body: a stable machine-readable
// code plus a human-readable description.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type CreateInvitationRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role"`
}

type InvitationResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`

	// Warnings reports best-effort side steps that failed (e.g. the
	// invitation email); the invitation itself was created.
	Warnings []string `json:"warnings,omitempty"`
}

type AcceptInvitationRequest struct {
	Token     string `json:"token"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type AcceptInvitationResponse struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type RevokeInvitationResponse struct {
	Warnings []string `json:"warnings,omitempty"`
}

type InviterInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type MemberInfo struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	FirstName string       `json:"first_name,omitempty"`
	LastName  string       `json:"last_name,omitempty"`
	Role      string       `json:"role"`
	Status    string       `json:"status"`
	JoinedAt  time.Time    `json:"joined_at"`
	Inviter   *InviterInfo `json:"inviter,omitempty"`
}

type PendingInvitationInfo struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	Role      string       `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
	Inviter   *InviterInfo `json:"inviter,omitempty"`
}

type SeatInfo struct {
	Plan      string `json:"plan"`
	Capacity  int    `json:"capacity"` // -1 when unlimited
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"` // -1 when unlimited
}

type DirectoryResponse struct {
	Active  []MemberInfo            `json:"active"`
	Removed []MemberInfo            `json:"removed"`
	Pending []PendingInvitationInfo `json:"pending"`
	Seats   SeatInfo                `json:"seats"`
}

type BootstrapRequest struct {
	OrgName   string `json:"org_name"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type BootstrapResponse struct {
	OrgID        string `json:"org_id"`
	OwnerID      string `json:"owner_id"`
	APIKey       string `json:"api_key"`
	SessionToken string `json:"session_token"`
}

type HealthChecks struct {
	Database string `json:"database"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type WidgetConfigResponse struct {
	OrgID   string `json:"org_id"`
	OrgName string `json:"org_name"`
	Plan    string `json:"plan"`
}
