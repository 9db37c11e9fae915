package stations

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kilianp07/stationrisk/core/aggregate"
	"github.com/kilianp07/stationrisk/core/eventlog"
	"github.com/kilianp07/stationrisk/core/fleet"
	"github.com/kilianp07/stationrisk/core/history"
	"github.com/kilianp07/stationrisk/core/model"
	"github.com/kilianp07/stationrisk/core/stationstatus"
)

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if !s.engine.Loaded() {
		status = "loading"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status})
}

// handleStations serves GET /api/stations. An explicit start_date/end_date
// pair takes precedence over timeframe; a bad date is ignored like a
// missing one.
func (s *Server) handleStations(c *gin.Context) {
	q := fleet.Query{
		Query: aggregate.Query{TimeframeID: c.DefaultQuery("timeframe", "0")},
		Filter: stationstatus.Filter{
			Network: c.Query("network"),
			City:    c.Query("city"),
			State:   c.Query("state"),
		},
	}
	if start, end := c.Query("start_date"), c.Query("end_date"); start != "" && end != "" {
		st, errS := history.ParseTimestamp(start)
		en, errE := history.ParseTimestamp(end)
		if errS == nil && errE == nil {
			q.Range = &model.DateRange{Start: st, End: endOfDay(end, en)}
		}
	}
	res, err := s.engine.Snapshot(q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// endOfDay widens a bare date to the whole day so the window is inclusive.
func endOfDay(raw string, t time.Time) time.Time {
	if len(strings.TrimSpace(raw)) == len("2006-01-02") {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}

func (s *Server) handleStress(c *gin.Context) {
	id := c.Param("station_id")
	st, err := s.engine.Stress(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stress simulated for " + id, "data": st})
}

func (s *Server) handleHeal(c *gin.Context) {
	id := c.Param("station_id")
	res, err := s.engine.Heal(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Self-healing applied for " + id, "data": res})
}

type tickRequest struct {
	Timestamp string `json:"timestamp"`
}

// handleTick serves POST /api/simulation/tick. A missing or unparsable
// timestamp ticks at the current wall-clock time.
func (s *Server) handleTick(c *gin.Context) {
	var req tickRequest
	_ = c.ShouldBindJSON(&req)
	target, err := history.ParseTimestamp(strings.TrimSpace(req.Timestamp))
	if err != nil {
		target = s.now()
	}
	res, err := s.engine.Tick(target)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tick processed", "report": res.Report, "stations": res.Stations})
}

func (s *Server) handleLogs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"logs": s.engine.Logs()})
}

// handleLogHistory serves GET /api/logs/history?start=&end=&action= from
// the journal. Bad times are ignored.
func (s *Server) handleLogHistory(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event journal not configured"})
		return
	}
	q := eventlog.JournalQuery{Action: model.EventAction(c.Query("action"))}
	if v := c.Query("start"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			q.Start = t
		}
	}
	if v := c.Query("end"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			q.End = t
		}
	}
	entries, err := s.journal.Query(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries, "count": len(entries)})
}

func (s *Server) handleReload(c *gin.Context) {
	if s.reloader == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "model reload not configured"})
		return
	}
	if err := s.reloader.Reload(); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Models reloaded"})
}
