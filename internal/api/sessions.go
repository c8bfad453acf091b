package api

import (
	"net/http"

	"imagechat/pkg/api"
)

func (s *ImageChatService) sessionsResponse() api.SessionsResponse {
	res := api.SessionsResponse{Sessions: s.app.Sessions.Sessions()}
	if current, ok := s.app.Sessions.Current(); ok {
		res.CurrentID = current.ID
	}
	return res
}

func (s *ImageChatService) ListSessions(r *http.Request) (any, error) {
	return s.sessionsResponse(), nil
}

func (s *ImageChatService) CreateSession(r *http.Request) (any, error) {
	return s.app.Sessions.CreateSession(r.Context()), nil
}

func (s *ImageChatService) LoadSession(r *http.Request) (any, error) {
	id, err := URLParam(r, "session_id")
	if err != nil {
		return nil, err
	}

	session, err := s.app.Sessions.LoadSession(id)
	if err != nil {
		return nil, serviceError(err)
	}
	return session, nil
}

func (s *ImageChatService) DeleteSession(r *http.Request) (any, error) {
	id, err := URLParam(r, "session_id")
	if err != nil {
		return nil, err
	}

	if err := s.app.DeleteSession(r.Context(), id); err != nil {
		return nil, serviceError(err)
	}
	return s.sessionsResponse(), nil
}

func (s *ImageChatService) GetMessages(r *http.Request) (any, error) {
	res := api.MessagesResponse{Messages: s.app.Sessions.Messages()}
	if current, ok := s.app.Sessions.Current(); ok {
		res.SessionID = current.ID
	}
	return res, nil
}
