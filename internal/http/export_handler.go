package httpapi

import (
	"net/http"
	"strconv"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/cache"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/export"

	"go.uber.org/zap"
)

type ExportHandler struct {
	cache  *cache.Cache
	logger *zap.Logger
}

func NewExportHandler(c *cache.Cache, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{cache: c, logger: logger}
}

// Dashboard downloads the cached snapshot as an .xlsx workbook.
func (h *ExportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap, ok := snapshot(w, r, h.cache, h.logger)
	if !ok {
		return
	}
	data, err := export.Workbook(snap)
	if err != nil {
		h.logger.Error("Failed to build dashboard workbook", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(snap.LoadedAt)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
