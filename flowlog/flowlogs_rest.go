package flowlog

import (
	"flowtrack/bizerror"
	"net/http"
	"strconv"
	"strings"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

var (
	PathWorkItemLogs = "/v1/work-item-logs"
)

func RegisterFlowLogsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/work-items", middleWares...)
	g.GET(":id/logs", handleQueryWorkItemLogs)

	b := r.Group(PathWorkItemLogs, middleWares...)
	b.GET("", handleBatchQueryWorkItemLogs)
}

func handleQueryWorkItemLogs(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	logs, err := LogsOfWorkItemFunc(c.Request.Context(), id)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, logs)
}

func handleBatchQueryWorkItemLogs(c *gin.Context) {
	ids := []types.ID{}
	for _, raw := range strings.Split(c.Query("itemIds"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := types.ParseID(raw)
		if err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
		ids = append(ids, id)
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
		limit = parsed
	}

	logs, err := BatchLogsOfWorkItemsFunc(c.Request.Context(), ids, limit)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, logs)
}
