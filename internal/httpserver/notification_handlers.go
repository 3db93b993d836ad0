package httpserver

import (
	"net/http"

	"github.com/Zimam07/Sonjog/internal/service"
)

// @Summary      List notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   domain.Notification
// @Router       /notification [get]
func handleListNotifications(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := notifSvc.List(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// @Summary      Group invite notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   domain.Notification
// @Router       /notification/group-invites [get]
func handleGroupInviteNotifications(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := notifSvc.GroupInvites(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// @Summary      Mark a notification read
// @Tags         notifications
// @Security     BearerAuth
// @Param        notificationID path int true "Notification ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /notification/{notificationID}/read [post]
func handleMarkNotificationRead(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "notificationID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := notifSvc.MarkRead(r.Context(), CurrentUser(r).ID, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// @Summary      Clear notifications
// @Tags         notifications
// @Security     BearerAuth
// @Success      204
// @Router       /notification [delete]
func handleClearNotifications(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := notifSvc.Clear(r.Context(), CurrentUser(r).ID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
