package handler

import (
	"net/http"
	"strconv"

	"github.com/convertia/backend/internal/contextkeys"
	"github.com/convertia/backend/internal/domain"
	"github.com/convertia/backend/internal/service"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	xlsxFilename    = "estado_de_cuenta.xlsx"
)

// ConvertHandler handles the entitlement-backed conversion endpoint.
type ConvertHandler struct {
	convert *service.ConvertService
}

// NewConvertHandler creates a new ConvertHandler.
func NewConvertHandler(convert *service.ConvertService) *ConvertHandler {
	return &ConvertHandler{convert: convert}
}

// Convert handles POST /api/convert. Requires a bearer identity; the
// conversion spends one entitlement credit.
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(contextkeys.AccountID).(string)
	if !ok || accountID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.ConvertRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	if req.UploadID == "" {
		Error(w, domain.ErrBadRequest("upload_id is required"))
		return
	}

	artifact, err := h.convert.ConvertWithEntitlement(r.Context(), accountID, req.UploadID)
	if err != nil {
		Error(w, err)
		return
	}

	writeArtifact(w, artifact)
}

// writeArtifact streams the generated workbook as an attachment.
func writeArtifact(w http.ResponseWriter, artifact []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename=`+xlsxFilename)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact)))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact)
}
