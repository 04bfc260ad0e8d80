package mcpserver

import (
	"context"

	"github.com/mcp-collab/collabd/internal/connection"
	"github.com/mcp-collab/collabd/internal/notify"
	"github.com/mcp-collab/collabd/internal/protoerr"
	"github.com/mcp-collab/collabd/internal/protocol"
)

func (s *Server) handleTerminal(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req terminalRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed terminal payload")
	}

	switch req.Action {
	case "create":
		t, err := s.Sessions.CreateTerminal(req.SessionID, req.TerminalID, client.ClientID, req.Name, req.Shell, req.Cwd, req.Dimensions)
		if err != nil {
			return nil, err
		}
		return terminalResponse{TerminalID: t.TerminalID, Dimensions: t.Dimensions}, nil

	case "output":
		entry, participants, err := s.Sessions.ProcessTerminalOutput(req.SessionID, req.TerminalID, req.Data)
		if err != nil {
			return nil, err
		}
		s.Notify.NotifySessionParticipants(participants, "", req.SessionID, notify.EventTerminalOutput, map[string]any{"terminalId": req.TerminalID, "entry": entry})
		return terminalResponse{TerminalID: req.TerminalID}, nil

	case "input":
		entry, recipients, err := s.Sessions.ProcessTerminalInput(req.SessionID, req.TerminalID, client.ClientID, req.Data)
		if err != nil {
			return nil, err
		}
		s.Notify.NotifySessionParticipants(recipients, client.ClientID, req.SessionID, notify.EventTerminalInput, map[string]any{"terminalId": req.TerminalID, "entry": entry})
		return terminalResponse{TerminalID: req.TerminalID}, nil

	case "resize":
		participants, err := s.Sessions.ResizeTerminal(req.SessionID, req.TerminalID, client.ClientID, req.Dimensions.Cols, req.Dimensions.Rows)
		if err != nil {
			return nil, err
		}
		s.Notify.NotifySessionParticipants(participants, client.ClientID, req.SessionID, notify.EventTerminalOutput, map[string]any{"terminalId": req.TerminalID, "dimensions": req.Dimensions})
		return terminalResponse{TerminalID: req.TerminalID, Dimensions: req.Dimensions}, nil

	case "getBuffer":
		buffer, err := s.Sessions.GetTerminalBuffer(req.SessionID, req.TerminalID, req.Limit)
		if err != nil {
			return nil, err
		}
		return terminalResponse{TerminalID: req.TerminalID, Buffer: buffer}, nil

	case "close":
		closed, participants, err := s.Sessions.CloseTerminal(req.SessionID, req.TerminalID, client.ClientID)
		if err != nil {
			return nil, err
		}
		if closed {
			s.Notify.NotifySessionParticipants(participants, client.ClientID, req.SessionID, notify.EventTerminalOutput, map[string]any{"terminalId": req.TerminalID, "status": "closed"})
		}
		return terminalResponse{TerminalID: req.TerminalID}, nil

	default:
		return nil, protoerr.New(protoerr.InvalidFieldValue, env.ID, "unknown terminal action "+req.Action)
	}
}

func (s *Server) handleEditor(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req editorRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed editor payload")
	}

	switch req.Action {
	case "register":
		ed, existed, err := s.Sessions.RegisterEditor(req.SessionID, req.EditorID, client.ClientID, req.FilePath, req.Language, req.Content)
		if err != nil {
			return nil, err
		}
		if !existed {
			s.Notify.NotifySessionParticipants(ed.Participants(), client.ClientID, req.SessionID, notify.EventEditorChanged, map[string]any{"editorId": ed.EditorID, "filePath": ed.FilePath, "status": "registered"})
		}
		return editorResponse{EditorID: ed.EditorID, Version: ed.Version}, nil

	case "updateContent":
		accepted, version, recipients, err := s.Sessions.UpdateEditorContent(req.SessionID, req.EditorID, client.ClientID, req.Content, req.Version)
		if err != nil {
			return nil, err
		}
		if accepted {
			s.Notify.NotifySessionParticipants(recipients, client.ClientID, req.SessionID, notify.EventEditorChanged, map[string]any{"editorId": req.EditorID, "content": req.Content, "version": version})
		}
		return editorResponse{EditorID: req.EditorID, Version: version, Accepted: accepted}, nil

	case "updateCursor":
		recipients, err := s.Sessions.UpdateEditorCursor(req.SessionID, req.EditorID, client.ClientID, req.Cursor)
		if err != nil {
			return nil, err
		}
		s.Notify.NotifySessionParticipants(recipients, client.ClientID, req.SessionID, notify.EventCursorMoved, map[string]any{"editorId": req.EditorID, "clientId": client.ClientID, "cursor": req.Cursor})
		return editorResponse{EditorID: req.EditorID}, nil

	case "updateSelections":
		recipients, err := s.Sessions.UpdateEditorSelections(req.SessionID, req.EditorID, client.ClientID, req.Selection)
		if err != nil {
			return nil, err
		}
		s.Notify.NotifySessionParticipants(recipients, client.ClientID, req.SessionID, notify.EventSelectionChanged, map[string]any{"editorId": req.EditorID, "clientId": client.ClientID, "selection": req.Selection})
		return editorResponse{EditorID: req.EditorID}, nil

	case "close":
		participants, err := s.Sessions.CloseEditor(req.SessionID, req.EditorID, client.ClientID)
		if err != nil {
			return nil, err
		}
		s.Notify.NotifySessionParticipants(participants, client.ClientID, req.SessionID, notify.EventEditorChanged, map[string]any{"editorId": req.EditorID, "status": "closed"})
		return editorResponse{EditorID: req.EditorID}, nil

	default:
		return nil, protoerr.New(protoerr.InvalidFieldValue, env.ID, "unknown editor action "+req.Action)
	}
}

func (s *Server) handleExtension(_ context.Context, client *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req extensionRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed extension payload")
	}

	switch req.Action {
	case "register":
		st, err := s.Sessions.RegisterExtension(req.SessionID, req.ExtensionID, client.ClientID, req.State)
		if err != nil {
			return nil, err
		}
		return extensionResponse{ExtensionID: st.ExtensionID, Version: st.Version}, nil

	case "update":
		accepted, version, recipients, err := s.Sessions.UpdateExtension(req.SessionID, req.ExtensionID, client.ClientID, req.State, req.Version)
		if err != nil {
			return nil, err
		}
		if accepted {
			s.Notify.NotifySessionParticipants(recipients, client.ClientID, req.SessionID, notify.EventExtensionChanged, map[string]any{"extensionId": req.ExtensionID, "version": version, "patch": req.State})
		}
		return extensionResponse{ExtensionID: req.ExtensionID, Version: version, Accepted: accepted}, nil

	case "reset":
		version, recipients, err := s.Sessions.ResetExtension(req.SessionID, req.ExtensionID, client.ClientID, req.State)
		if err != nil {
			return nil, err
		}
		s.Notify.NotifySessionParticipants(recipients, client.ClientID, req.SessionID, notify.EventExtensionChanged, map[string]any{"extensionId": req.ExtensionID, "version": version, "state": req.State})
		return extensionResponse{ExtensionID: req.ExtensionID, Version: version}, nil

	case "unregister":
		recipients, err := s.Sessions.UnregisterExtension(req.SessionID, req.ExtensionID, client.ClientID)
		if err != nil {
			return nil, err
		}
		s.Notify.NotifySessionParticipants(recipients, client.ClientID, req.SessionID, notify.EventExtensionChanged, map[string]any{"extensionId": req.ExtensionID, "status": "unregistered"})
		return extensionResponse{ExtensionID: req.ExtensionID}, nil

	default:
		return nil, protoerr.New(protoerr.InvalidFieldValue, env.ID, "unknown extension action "+req.Action)
	}
}

func (s *Server) handleToolInvoke(ctx context.Context, _ *connection.Client, env *protocol.Envelope) (any, *protoerr.Error) {
	var req toolInvokeRequest
	if !protocol.DecodePayload(env.Payload, &req) {
		return nil, protoerr.New(protoerr.InvalidMessageFormat, env.ID, "malformed tool_invoke payload")
	}
	result, err := s.Tools.Invoke(ctx, req.Name, req.Args)
	if err != nil {
		return nil, err
	}
	return toolInvokeResponse{Name: req.Name, Result: result}, nil
}
