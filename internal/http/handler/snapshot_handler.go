package handler

import (
	"net/http"

	"github.com/straye-as/renovation-api/internal/service"
	"go.uber.org/zap"
)

type SnapshotHandler struct {
	snapshotService *service.SnapshotService
	exportService   *service.ExportService
	logger          *zap.Logger
}

func NewSnapshotHandler(snapshotService *service.SnapshotService, exportService *service.ExportService, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService: snapshotService,
		exportService:   exportService,
		logger:          logger,
	}
}

// @Summary Snapshot
// @Description Every customer, deal (converted ones included) and project, read at one point in time
// @Tags Snapshot
// @Produce json
// @Success 200 {object} domain.SnapshotDTO
// @Router /snapshot [get]
func (h *SnapshotHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshotService.Snapshot(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to take snapshot")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// @Summary Export snapshot
// @Description Writes the snapshot as CSV files to the configured storage
// @Tags Snapshot
// @Produce json
// @Success 201 {object} domain.ExportResultDTO
// @Router /exports [post]
func (h *SnapshotHandler) Export(w http.ResponseWriter, r *http.Request) {
	result, err := h.exportService.Export(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to export snapshot")
		return
	}

	respondJSON(w, http.StatusCreated, result)
}
