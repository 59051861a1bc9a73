package work

import (
	"flowtrack/bizerror"
	"flowtrack/domain"
	"flowtrack/misc"
	"net/http"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

var (
	PathWorkItems = "/v1/work-items"
)

func RegisterWorkItemsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorkItems, middleWares...)

	g.POST("", handleCreateWorkItem)
	g.GET("", handleQueryWorkItems)
	g.GET(":id", handleDetailWorkItem)
	g.DELETE(":id", handleDeleteWorkItem)

	g.GET(":id/children", handleQueryWorkItemChildren)
	g.GET(":id/parent", handleQueryWorkItemParent)
	g.GET(":id/flow", handleQueryWorkItemFlow)
}

func handleCreateWorkItem(c *gin.Context) {
	creation := domain.WorkItemCreation{}
	if err := c.ShouldBindJSON(&creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	item, err := CreateWorkItemFunc(c.Request.Context(), &creation)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, item)
}

func handleQueryWorkItems(c *gin.Context) {
	query := domain.WorkItemQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	items, err := QueryWorkItemsFunc(c.Request.Context(), &query)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &misc.PagedBody{List: items, Total: uint64(len(items))})
}

func handleDetailWorkItem(c *gin.Context) {
	item, err := DetailWorkItemFunc(c.Request.Context(), parseIdParam(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, item)
}

func handleDeleteWorkItem(c *gin.Context) {
	if err := DeleteWorkItemFunc(c.Request.Context(), parseIdParam(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleQueryWorkItemChildren(c *gin.Context) {
	children, err := ChildrenOfWorkItemFunc(c.Request.Context(), parseIdParam(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, children)
}

func handleQueryWorkItemParent(c *gin.Context) {
	parent, err := ParentOfWorkItemFunc(c.Request.Context(), parseIdParam(c))
	if err != nil {
		panic(err)
	}
	if parent == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, parent)
}

func handleQueryWorkItemFlow(c *gin.Context) {
	stateFlow, err := FlowOfWorkItemFunc(c.Request.Context(), parseIdParam(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, stateFlow)
}

func parseIdParam(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	return id
}
