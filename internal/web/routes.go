package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sstent/garmin-summary/internal/models"
	"github.com/sstent/garmin-summary/internal/report"
	"github.com/sstent/garmin-summary/internal/sync"
)

type WebHandler struct {
	syncer *sync.SyncService
	now    func() time.Time
}

func NewWebHandler(syncer *sync.SyncService) *WebHandler {
	return &WebHandler{syncer: syncer, now: time.Now}
}

// NewRouter returns a gin engine with the templates loaded and all routes
// registered.
func (h *WebHandler) NewRouter() (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	if err := h.LoadTemplates(router); err != nil {
		return nil, err
	}
	h.RegisterRoutes(router)
	return router, nil
}

func (h *WebHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/", h.Index)
	router.GET("/status", h.Status)
	router.GET("/report", h.Report)
	router.GET("/activities", h.ActivityList)
	router.GET("/activities/:filename", h.ActivityDetail)
	router.POST("/sync", h.Sync)
}

func (h *WebHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (h *WebHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.syncer.Status())
}

// Index shows the default report.
func (h *WebHandler) Index(c *gin.Context) {
	agg, err := h.aggregation(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	opts := reportOptions(c)
	opts.Now = h.now()
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Status": h.syncer.Status(),
		"Report": report.Text(agg, opts),
	})
}

// Report renders the text report. Query flags file, day, week, month, year,
// average and occur select sections; sport filters.
func (h *WebHandler) Report(c *gin.Context) {
	agg, err := h.aggregation(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	opts := reportOptions(c)
	opts.Now = h.now()
	c.String(http.StatusOK, report.Text(agg, opts))
}

func (h *WebHandler) ActivityList(c *gin.Context) {
	agg, err := h.aggregation(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records := agg.Records()

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	if offset < 0 || offset > len(records) {
		offset = len(records)
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	if records == nil {
		records = []*models.Summary{}
	}
	c.JSON(http.StatusOK, records)
}

func (h *WebHandler) ActivityDetail(c *gin.Context) {
	rec, ok := h.syncer.Snapshot()[c.Param("filename")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "activity not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Sync refreshes the snapshot now and returns the resulting status.
func (h *WebHandler) Sync(c *gin.Context) {
	if _, err := h.syncer.Sync(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.syncer.Status())
}

type badSportError string

func (e badSportError) Error() string {
	return "unknown sport " + strconv.Quote(string(e))
}

func (h *WebHandler) aggregation(c *gin.Context) (*report.Aggregation, error) {
	var sport models.Sport
	if name := c.Query("sport"); name != "" {
		s, ok := models.ParseSport(name)
		if !ok {
			return nil, badSportError(name)
		}
		sport = s
	}
	return report.Aggregate(h.syncer.Records(), sport), nil
}

func reportOptions(c *gin.Context) report.Options {
	flag := func(name string) bool {
		v, ok := c.GetQuery(name)
		if !ok {
			return false
		}
		if v == "" {
			return true
		}
		b, _ := strconv.ParseBool(v)
		return b
	}
	opts := report.Options{
		File:       flag("file"),
		Day:        flag("day"),
		Week:       flag("week"),
		Month:      flag("month"),
		Year:       flag("year"),
		Average:    flag("average"),
		Occurrence: flag("occur"),
	}
	if opts == (report.Options{}) {
		return report.DefaultOptions()
	}
	return opts
}
