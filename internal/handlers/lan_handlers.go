package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// LANHandler handles the LAN session endpoints
type LANHandler struct {
	lanService    LANSessionServiceInterface
	maxUploadSize int64
}

// NewLANHandler creates a new LANHandler
func NewLANHandler(lanService LANSessionServiceInterface, maxUploadSize int64) *LANHandler {
	return &LANHandler{
		lanService:    lanService,
		maxUploadSize: maxUploadSize,
	}
}

// RequireActiveSession rejects requests while no LAN session is running
func (h *LANHandler) RequireActiveSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.lanService.Active() {
			utils.ErrorFromAppError(w, utils.NewNoActiveSessionError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSession starts a new LAN session, replacing any running one
func (h *LANHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := identityFromRequest(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	var req models.CreateLANSessionRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	info, err := h.lanService.CreateSession(r.Context(), owner, req.Username, req.Password)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusCreated, info)
}

// Join checks a receiver's credentials against the running LAN session
func (h *LANHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req models.JoinLANSessionRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	if err := h.lanService.Join(r.Context(), req.Username, req.Password, req.Code); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, map[string]string{
		"message": constants.MsgJoinedSession,
	})
}

// Panel returns the running session together with its files. The join
// credentials are only shown to the owner.
func (h *LANHandler) Panel(w http.ResponseWriter, r *http.Request) {
	info, ok := h.lanService.Info()
	if !ok {
		utils.ErrorFromAppError(w, utils.NewNoActiveSessionError())
		return
	}
	if caller, ok := identityFromRequest(r); !ok || caller.IDString() != info.OwnerID {
		shown := *info
		shown.Username, shown.Code = "", ""
		info = &shown
	}

	files, err := h.lanService.ListFiles(r.Context())
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, models.LANPanel{
		Session: info,
		Files:   files,
	})
}

// ListFiles lists the files of the running session
func (h *LANHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.lanService.ListFiles(r.Context())
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, models.FileList{Files: files})
}

// Upload stores a multipart file in the running session
func (h *LANHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, name, err := readUpload(w, r, h.maxUploadSize)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}
	defer file.Close()

	filename, err := h.lanService.Upload(r.Context(), name, file)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusCreated, models.UploadedFile{Filename: filename})
}

// Download streams a file of the running session as an attachment
func (h *LANHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, constants.ParamFilename)
	if name == "" {
		utils.BadRequest(w, "Filename is required", nil)
		return
	}

	file, filename, err := h.lanService.Download(r.Context(), name)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	writeAttachment(w, file, filename)
}

// EndSession ends the running session. Only its owner may do so.
func (h *LANHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := identityFromRequest(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	if err := h.lanService.EndSession(r.Context(), caller.IDString()); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, map[string]string{
		"message": constants.MsgSessionEnded,
	})
}
