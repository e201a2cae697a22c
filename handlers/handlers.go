// Package handlers holds the gin handlers for the board API.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/warner-apps/service-timeclock/cache"
	"github.com/warner-apps/service-timeclock/timeclock"
)

// SnapshotProvider serves the latest published board. Implemented by
// cache.Cache.
type SnapshotProvider interface {
	Latest() *cache.Snapshot
}

type Handlers struct {
	Board    SnapshotProvider
	Branches map[string]string // branch id -> friendly name
}

type timeclockResponse struct {
	LastRefresh *string                      `json:"last_refresh"`
	RecordCount int                          `json:"record_count"`
	Data        []timeclock.TechnicianStatus `json:"data"`
}

// GetTimeclock returns the cached technician data. Optional ?branch=###
// filters by BrnId. Before the first refresh the envelope carries a null
// timestamp and an empty record list.
func (h *Handlers) GetTimeclock(context *gin.Context) {
	branch := context.Query("branch")

	response := timeclockResponse{Data: []timeclock.TechnicianStatus{}}
	if snap := h.Board.Latest(); snap != nil {
		formatted := snap.LastRefresh.Format(time.DateTime)
		response.LastRefresh = &formatted
		response.Data = filterBranch(snap.Records, branch)
	}
	response.RecordCount = len(response.Data)

	context.JSON(http.StatusOK, response)
}

// GetBranches returns the branch id to display-name map for the UI selector.
func (h *Handlers) GetBranches(context *gin.Context) {
	context.JSON(http.StatusOK, h.Branches)
}

// ExportTimeclock downloads the current board as an .xlsx workbook, one row
// per technician. Optional ?branch=### filters like GetTimeclock.
func (h *Handlers) ExportTimeclock(context *gin.Context) {
	var records []timeclock.TechnicianStatus
	if snap := h.Board.Latest(); snap != nil {
		records = filterBranch(snap.Records, context.Query("branch"))
	}

	buf, err := buildWorkbook(records)
	if err != nil {
		slog.Error("error building board workbook", "error", err)
		context.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("timeclock-board-%s.xlsx", time.Now().Format("2006-01-02"))
	context.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	context.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf)
}

func filterBranch(records []timeclock.TechnicianStatus, branch string) []timeclock.TechnicianStatus {
	if branch == "" {
		return records
	}
	filtered := []timeclock.TechnicianStatus{}
	for _, r := range records {
		if strconv.FormatInt(r.BrnID, 10) == branch {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

var exportHeader = []any{
	"Emp ID", "Name", "Branch", "Clock Status", "On Work Order", "Current RO",
	"Job", "Customer", "RO Start", "Elapsed", "Hrs Actual", "Hrs Bill",
	"Current Idle", "Total Idle",
}

func buildWorkbook(records []timeclock.TechnicianStatus) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Board"
	f.SetSheetName("Sheet1", sheet)
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, err
	}

	for i, r := range records {
		row := []any{
			r.EmpID, r.EmpName, r.BrnID, string(r.ClockStatus), string(r.OnWorkOrder),
			orEmpty(r.CurrentRO), orEmpty(r.Job), orEmpty(r.CurrentCustomer),
			orEmpty(r.ROStartTime), orEmpty(r.TimeElapsed), r.HrsActual, r.HrsBill,
			orEmpty(r.CurrentIdle), orEmpty(r.TotalIdle),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
