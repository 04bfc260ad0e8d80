package mcpserver

import (
	"time"

	"github.com/mcp-collab/collabd/internal/editor"
	"github.com/mcp-collab/collabd/internal/terminal"
)

type connectionRequest struct {
	ClientID     string            `json:"clientId"`
	WorkspaceID  string            `json:"workspaceId"`
	Capabilities []string          `json:"capabilities"`
	Metadata     map[string]string `json:"metadata"`
}

type connectionResponse struct {
	Status             string    `json:"status"`
	ServerTime         time.Time `json:"serverTime"`
	ConnectedClients   int       `json:"connectedClients"`
	AuthRequired       bool      `json:"authRequired"`
	ServerCapabilities []string  `json:"serverCapabilities"`
	SessionCount       int       `json:"sessionCount"`
}

type pingResponse struct {
	ServerTime       time.Time `json:"serverTime"`
	ClientTime       string    `json:"clientTime,omitempty"`
	ConnectedClients int       `json:"connectedClients"`
}

type authenticateRequest struct {
	Token      string `json:"token"`
	AuthMethod string `json:"authMethod"`
}

type authenticateResponse struct {
	Status          string    `json:"status"`
	Permissions     []string  `json:"permissions"`
	TokenValidUntil time.Time `json:"tokenValidUntil"`
	RefreshToken    string    `json:"refreshToken,omitempty"`
}

type tokenRefreshRequest struct {
	Token string `json:"token"`
}

type tokenValidateResponse struct {
	Valid           bool      `json:"valid"`
	TokenValidUntil time.Time `json:"tokenValidUntil,omitempty"`
}

type sessionCreateRequest struct {
	SessionID   string `json:"sessionId"`
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
}

type sessionResponse struct {
	Status       string   `json:"status"`
	SessionID    string   `json:"sessionId"`
	Participants []string `json:"participants"`
}

type sessionJoinRequest struct {
	SessionID string `json:"sessionId"`
}

type sessionLeaveRequest struct {
	SessionID string `json:"sessionId"`
}

type terminalRequest struct {
	Action     string              `json:"action"`
	SessionID  string              `json:"sessionId"`
	TerminalID string              `json:"terminalId"`
	Name       string              `json:"name"`
	Shell      string              `json:"shell"`
	Cwd        string              `json:"cwd"`
	Dimensions terminal.Dimensions `json:"dimensions"`
	Data       string              `json:"data"`
	Limit      int                 `json:"limit"`
}

type terminalResponse struct {
	TerminalID string                 `json:"terminalId"`
	Buffer     []terminal.BufferEntry `json:"buffer,omitempty"`
	Dimensions terminal.Dimensions    `json:"dimensions,omitempty"`
}

type editorRequest struct {
	Action    string           `json:"action"`
	SessionID string           `json:"sessionId"`
	EditorID  string           `json:"editorId"`
	FilePath  string           `json:"filePath"`
	Language  string           `json:"language"`
	Content   string           `json:"content"`
	Version   int              `json:"version"`
	Cursor    editor.Cursor    `json:"cursor"`
	Selection editor.Selection `json:"selection"`
}

type editorResponse struct {
	EditorID string `json:"editorId"`
	Version  int    `json:"version"`
	Accepted bool   `json:"accepted,omitempty"`
}

type extensionRequest struct {
	Action      string         `json:"action"`
	SessionID   string         `json:"sessionId"`
	ExtensionID string         `json:"extensionId"`
	State       map[string]any `json:"state"`
	Version     int            `json:"version"`
}

type extensionResponse struct {
	ExtensionID string `json:"extensionId"`
	Version     int    `json:"version"`
	Accepted    bool   `json:"accepted,omitempty"`
}

type toolInvokeRequest struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type toolInvokeResponse struct {
	Name   string         `json:"name"`
	Result map[string]any `json:"result"`
}
