package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/spf13/afero"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/auth"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// identityFromRequest builds the caller's identity from the authenticated request context
func identityFromRequest(r *http.Request) (models.Identity, bool) {
	userID, ok := auth.GetUserID(r)
	if !ok {
		return models.Identity{}, false
	}
	username, _ := auth.GetUsername(r)
	return models.Identity{ID: userID, Name: username}, true
}

// readUpload extracts the uploaded file from a multipart request.
// The caller closes the returned file.
func readUpload(w http.ResponseWriter, r *http.Request, maxSize int64) (multipart.File, string, error) {
	if maxSize <= 0 {
		maxSize = constants.DefaultMaxUploadSize
	}

	// Limit the size of the upload
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(constants.MultipartMemoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, "", utils.New(utils.ErrBadRequest, http.StatusRequestEntityTooLarge, constants.MsgRequestBodyTooLarge)
		}
		return nil, "", utils.NewNoFileError()
	}

	file, header, err := r.FormFile(constants.FormFieldFile)
	if err != nil {
		return nil, "", utils.NewNoFileError()
	}
	return file, header.Filename, nil
}

// writeAttachment streams an opened session file to the client and closes it
func writeAttachment(w http.ResponseWriter, file afero.File, filename string) {
	defer file.Close()

	size := int64(-1)
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}
	utils.Attachment(w, file, filename, size)
}
