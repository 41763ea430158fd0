package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// OnlineHandler handles the online session endpoints
type OnlineHandler struct {
	onlineService  OnlineSessionServiceInterface
	historyService EventHistoryServiceInterface
	maxUploadSize  int64
}

// NewOnlineHandler creates a new OnlineHandler.
// historyService may be nil when no database is configured.
func NewOnlineHandler(onlineService OnlineSessionServiceInterface, historyService EventHistoryServiceInterface, maxUploadSize int64) *OnlineHandler {
	return &OnlineHandler{
		onlineService:  onlineService,
		historyService: historyService,
		maxUploadSize:  maxUploadSize,
	}
}

// CreateSession creates a new online session owned by the caller
func (h *OnlineHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := identityFromRequest(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	var req models.CreateOnlineSessionRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	token, err := h.onlineService.CreateSession(r.Context(), owner, req.SessionName, req.Password, req.AutoExpireMinutes)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusCreated, models.CreatedSession{Token: token})
}

// JoinSession adds the caller to a session. The body may be omitted for sessions without a password.
func (h *OnlineHandler) JoinSession(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFromRequest(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	var req models.JoinOnlineSessionRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeAndValidate(r, &req); err != nil {
			utils.ErrorFromAppError(w, utils.ParseError(err))
			return
		}
	}

	token := chi.URLParam(r, constants.ParamToken)
	if err := h.onlineService.JoinSession(r.Context(), user, token, req.Password); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, map[string]string{
		"message": constants.MsgJoinedSession,
	})
}

// GetSession returns the session as seen by the calling participant
func (h *OnlineHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFromRequest(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	view, err := h.onlineService.GetSessionView(r.Context(), user, chi.URLParam(r, constants.ParamToken))
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, view)
}

// ListFiles returns the registered files of a session
func (h *OnlineHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFromRequest(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	files, err := h.onlineService.ListFiles(r.Context(), user, chi.URLParam(r, constants.ParamToken))
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, models.FileList{Files: files})
}

// UploadFile stores a multipart file in a session
func (h *OnlineHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFromRequest(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	file, name, err := readUpload(w, r, h.maxUploadSize)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}
	defer file.Close()

	filename, err := h.onlineService.UploadFile(r.Context(), user, chi.URLParam(r, constants.ParamToken), name, file)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusCreated, models.UploadedFile{Filename: filename})
}

// DownloadFile streams a registered session file as an attachment
func (h *OnlineHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFromRequest(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	token := chi.URLParam(r, constants.ParamToken)
	name := chi.URLParam(r, constants.ParamFilename)

	file, filename, err := h.onlineService.DownloadFile(r.Context(), user, token, name)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	writeAttachment(w, file, filename)
}

// EndSession ends a session. Only its owner may do so.
func (h *OnlineHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := identityFromRequest(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	if err := h.onlineService.EndSession(r.Context(), caller.IDString(), chi.URLParam(r, constants.ParamToken)); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, map[string]string{
		"message": constants.MsgSessionEnded,
	})
}

// SetAutoExpire changes how long a session lives, counted from now
func (h *OnlineHandler) SetAutoExpire(w http.ResponseWriter, r *http.Request) {
	caller, ok := identityFromRequest(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	var req models.SetAutoExpireRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	token := chi.URLParam(r, constants.ParamToken)
	if err := h.onlineService.SetAutoExpire(r.Context(), caller.IDString(), token, req.Minutes); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, map[string]interface{}{
		"message": constants.MsgAutoExpireSet,
		"minutes": req.Minutes,
	})
}

// ListEvents returns the recorded event history of a session
func (h *OnlineHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.historyService == nil {
		utils.NotFound(w, "Event history is not enabled")
		return
	}

	user, ok := identityFromRequest(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	// Get pagination parameters
	params := utils.GetPaginationParams(r)

	events, total, err := h.historyService.List(r.Context(), user, chi.URLParam(r, constants.ParamToken), params.Page, params.PageSize)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.Paginated(w, constants.StatusOK, events, params.Page, params.PageSize, int(total))
}
