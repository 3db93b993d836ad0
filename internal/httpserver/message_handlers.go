package httpserver

import (
	"net/http"

	"github.com/Zimam07/Sonjog/internal/service"
)

type sendMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// @Summary      Send a direct message
// @Description  Store a message for userID and push it to their live connection
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        userID path int true "Receiver ID"
// @Param        input body sendMessageRequest true "Message"
// @Success      201  {object}  domain.MessageView
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /message/send/{userID} [post]
func handleSendDirect(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receiverID, err := pathID(r, "userID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req sendMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		msg, err := msgSvc.SendDirect(r.Context(), CurrentUser(r).ID, receiverID, req.Message)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// @Summary      Direct conversation history
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        userID path int true "Peer ID"
// @Success      200  {array}   domain.MessageView
// @Router       /message/all/{userID} [get]
func handleDirectHistory(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		peerID, err := pathID(r, "userID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		msgs, err := msgSvc.History(r.Context(), CurrentUser(r).ID, peerID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// @Summary      Send a group message
// @Description  Store a message in the group conversation and broadcast it to the group room
// @Tags         messages
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        groupID path int true "Group ID"
// @Param        input body sendMessageRequest true "Message"
// @Success      201  {object}  domain.MessageView
// @Failure      403  {object}  errorResponse
// @Router       /message/group/{groupID}/send [post]
func handleSendGroup(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := pathID(r, "groupID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req sendMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		msg, err := msgSvc.SendGroup(r.Context(), CurrentUser(r).ID, groupID, req.Message)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// @Summary      Group conversation history
// @Tags         messages
// @Security     BearerAuth
// @Produce      json
// @Param        groupID path int true "Group ID"
// @Success      200  {array}   domain.MessageView
// @Failure      403  {object}  errorResponse
// @Router       /message/group/{groupID}/all [get]
func handleGroupHistory(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := pathID(r, "groupID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		msgs, err := msgSvc.GroupHistory(r.Context(), CurrentUser(r).ID, groupID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}
