package http

import (
	"net/http"

	"messbook/internal/core"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
		AvatarRef   string `json:"avatar_ref"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	u := &core.User{
		ID:          req.ID,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		AvatarRef:   req.AvatarRef,
	}
	if err := s.directory.CreateUser(r.Context(), u); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toUserView(u))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.directory.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(u))
}

func (s *Server) handleCreateMess(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		LogoRef     string `json:"logo_ref"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	m, err := s.directory.CreateMess(r.Context(), actor, req.Name, req.Description, req.LogoRef)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toMessView(m))
}

func (s *Server) handleGetMess(w http.ResponseWriter, r *http.Request) {
	m, err := s.directory.GetMess(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toMessView(m))
}

func (s *Server) handleUpdateMess(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	m, err := s.directory.UpdateMessInfo(r.Context(), r.PathValue("id"), actor, req.Name, req.Description)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toMessView(m))
}

func (s *Server) handleUpdateLogo(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	var req struct {
		LogoRef string `json:"logo_ref"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	m, err := s.directory.UpdateMessLogo(r.Context(), r.PathValue("id"), actor, req.LogoRef)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toMessView(m))
}

func (s *Server) handleDeleteMess(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	cascade := r.URL.Query().Get("cascade") == "true"
	if err := s.directory.DeleteMess(r.Context(), r.PathValue("id"), actor, cascade); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.queries.Members(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	out := make([]userSummaryView, len(members))
	for i, m := range members {
		out[i] = toUserSummaryView(m)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	if err := s.directory.AddMember(r.Context(), r.PathValue("id"), actor, req.UserID); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	if err := s.directory.RemoveMember(r.Context(), r.PathValue("id"), actor, r.PathValue("userID")); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	if err := s.directory.TransferAdmin(r.Context(), r.PathValue("id"), actor, req.UserID); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAddMenuItem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	var req struct {
		Item string `json:"item"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	if err := s.directory.AddMenuItem(r.Context(), r.PathValue("id"), actor, req.Item); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRemoveMenuItem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	var req struct {
		Item string `json:"item"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	if err := s.directory.RemoveMenuItem(r.Context(), r.PathValue("id"), actor, req.Item); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
