package checkpoint

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/newsharvest"
)

// Reader reads saved state without side effects. Stores that move or repair
// files on Load implement it so the API never changes the data directory.
type Reader interface {
	Read(ctx context.Context, id newsharvest.SourceIdentity) (newsharvest.CrawlState, error)
}

// StartLookup returns the configured start date of a site. ok is false for
// sites the server does not know.
type StartLookup func(site string) (start time.Time, ok bool)

// APIServer serves saved crawl state over HTTP, read-only.
type APIServer struct {
	store Store
	start StartLookup
}

// DaySummary is one entry of the day listing.
type DaySummary struct {
	Date    string `json:"date"`
	DayKey  int64  `json:"day_key"`
	Records int    `json:"records"`
}

// NewAPIServer creates a new checkpoint API server.
func NewAPIServer(store Store, start StartLookup) *APIServer {
	return &APIServer{
		store: store,
		start: start,
	}
}

// SetupRouter configures the Gin router with checkpoint API routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.Default()

	router.Use(func(ctx *gin.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")
		ctx.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if ctx.Request.Method == "OPTIONS" {
			ctx.AbortWithStatus(http.StatusOK)
			return
		}

		ctx.Next()
	})

	api := router.Group("/api/v1/checkpoints/:site/:section")
	api.GET("/days", s.HandleListDays)
	api.GET("/days/:date", s.HandleGetDay)
	api.GET("/resume", s.HandleResume)

	return router
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// identity reads the source identity from the path, writing a 404 and
// returning false for unknown sites.
func (s *APIServer) identity(ctx *gin.Context) (newsharvest.SourceIdentity, time.Time, bool) {
	id := newsharvest.SourceIdentity{Site: ctx.Param("site"), Section: ctx.Param("section")}
	start, ok := s.start(id.Site)
	if !ok {
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "Unknown site: "+id.Site))
		return id, time.Time{}, false
	}
	return id, start, true
}

// load reads the state of id, writing a 500 and returning false when the
// saved state cannot be read.
func (s *APIServer) load(ctx *gin.Context, id newsharvest.SourceIdentity) (newsharvest.CrawlState, bool) {
	reader, ok := s.store.(Reader)
	if !ok {
		return s.store.Load(ctx.Request.Context(), id), true
	}
	state, err := reader.Read(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to read checkpoint"))
		return nil, false
	}
	return state, true
}

// HandleListDays handles GET /api/v1/checkpoints/:site/:section/days.
func (s *APIServer) HandleListDays(ctx *gin.Context) {
	id, _, ok := s.identity(ctx)
	if !ok {
		return
	}

	state, ok := s.load(ctx, id)
	if !ok {
		return
	}
	days := make([]DaySummary, 0, len(state))
	for key, bucket := range state {
		days = append(days, DaySummary{
			Date:    key.Day().Format(time.DateOnly),
			DayKey:  int64(key),
			Records: len(bucket),
		})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].DayKey < days[j].DayKey
	})

	ctx.JSON(http.StatusOK, gin.H{
		"source":   id.String(),
		"days":     days,
		"articles": state.Articles(),
	})
}

// HandleGetDay handles GET /api/v1/checkpoints/:site/:section/days/:date.
func (s *APIServer) HandleGetDay(ctx *gin.Context) {
	id, _, ok := s.identity(ctx)
	if !ok {
		return
	}

	date, err := time.Parse(time.DateOnly, ctx.Param("date"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", "Date must be YYYY-MM-DD"))
		return
	}

	state, ok := s.load(ctx, id)
	if !ok {
		return
	}
	bucket, found := state[newsharvest.KeyOf(date)]
	if !found {
		ctx.JSON(http.StatusNotFound, errorResponse("not_found", "Day not crawled"))
		return
	}
	if bucket == nil {
		bucket = newsharvest.DayBucket{}
	}

	ctx.JSON(http.StatusOK, bucket)
}

// HandleResume handles GET /api/v1/checkpoints/:site/:section/resume.
func (s *APIServer) HandleResume(ctx *gin.Context) {
	id, start, ok := s.identity(ctx)
	if !ok {
		return
	}

	state, ok := s.load(ctx, id)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"source": id.String(),
		"resume": ResumeDate(state, start).Format(time.DateOnly),
	})
}
