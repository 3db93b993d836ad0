package httpserver

import (
	"net/http"

	"github.com/Zimam07/Sonjog/internal/service"
)

type groupCreateRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description string  `json:"description" validate:"max=500"`
	IsPrivate   bool    `json:"isPrivate"`
	Members     []int64 `json:"members" validate:"dive,gt=0"`
}

type groupUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsPrivate   *bool   `json:"isPrivate"`
}

type groupMemberRequest struct {
	GroupID int64 `json:"groupId" validate:"required,gt=0"`
	UserID  int64 `json:"userId" validate:"required,gt=0"`
}

// @Summary      Create a group
// @Description  The caller becomes the owner and a member
// @Tags         groups
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body groupCreateRequest true "Group"
// @Success      201  {object}  domain.Group
// @Failure      400  {object}  errorResponse
// @Router       /group [post]
func handleCreateGroup(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req groupCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		g, err := groupSvc.Create(r.Context(), CurrentUser(r).ID, service.GroupInput{
			Name:        req.Name,
			Description: req.Description,
			IsPrivate:   req.IsPrivate,
			Members:     req.Members,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	}
}

// @Summary      My groups
// @Tags         groups
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   domain.Group
// @Router       /group/mine [get]
func handleMyGroups(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := groupSvc.Mine(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, groups)
	}
}

// @Summary      Join a public group
// @Tags         groups
// @Security     BearerAuth
// @Produce      json
// @Param        groupID path int true "Group ID"
// @Success      200  {object}  domain.Group
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /group/{groupID}/join [post]
func handleJoinGroup(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := pathID(r, "groupID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		g, err := groupSvc.Join(r.Context(), CurrentUser(r).ID, groupID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// @Summary      Leave a group
// @Tags         groups
// @Security     BearerAuth
// @Param        groupID path int true "Group ID"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Router       /group/{groupID}/leave [post]
func handleLeaveGroup(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := pathID(r, "groupID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := groupSvc.Leave(r.Context(), CurrentUser(r).ID, groupID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// @Summary      Update a group
// @Description  Owner only. Omitted fields are left unchanged.
// @Tags         groups
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        groupID path int true "Group ID"
// @Param        input body groupUpdateRequest true "Changes"
// @Success      200  {object}  domain.Group
// @Failure      403  {object}  errorResponse
// @Router       /group/{groupID} [put]
func handleUpdateGroup(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := pathID(r, "groupID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req groupUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		g, err := groupSvc.Update(r.Context(), CurrentUser(r).ID, groupID, service.GroupUpdate{
			Name:        req.Name,
			Description: req.Description,
			IsPrivate:   req.IsPrivate,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// @Summary      Invite a user
// @Description  Owner only. The invitee is notified over the socket if online.
// @Tags         groups
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        input body groupMemberRequest true "Invite"
// @Success      201  {object}  domain.GroupInvite
// @Failure      403  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /group/invite/send [post]
func handleSendInvite(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req groupMemberRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		inv, err := groupSvc.Invite(r.Context(), CurrentUser(r).ID, req.GroupID, req.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, inv)
	}
}

// @Summary      Pending invites
// @Tags         groups
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   domain.GroupInvite
// @Router       /group/invites/pending [get]
func handlePendingInvites(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invites, err := groupSvc.PendingInvites(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, invites)
	}
}

// @Summary      Accept an invite
// @Tags         groups
// @Security     BearerAuth
// @Produce      json
// @Param        inviteID path int true "Invite ID"
// @Success      200  {object}  domain.Group
// @Failure      403  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /group/invite/{inviteID}/accept [post]
func handleAcceptInvite(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inviteID, err := pathID(r, "inviteID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		g, err := groupSvc.AcceptInvite(r.Context(), CurrentUser(r).ID, inviteID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// @Summary      Reject an invite
// @Tags         groups
// @Security     BearerAuth
// @Param        inviteID path int true "Invite ID"
// @Success      204
// @Router       /group/invite/{inviteID}/reject [post]
func handleRejectInvite(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inviteID, err := pathID(r, "inviteID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := groupSvc.RejectInvite(r.Context(), CurrentUser(r).ID, inviteID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// @Summary      Remove a member
// @Description  Owner only; the owner cannot be removed.
// @Tags         groups
// @Security     BearerAuth
// @Accept       json
// @Param        input body groupMemberRequest true "Member"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Router       /group/member/remove [post]
func handleRemoveMember(groupSvc *service.GroupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req groupMemberRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := groupSvc.RemoveMember(r.Context(), CurrentUser(r).ID, req.GroupID, req.UserID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
