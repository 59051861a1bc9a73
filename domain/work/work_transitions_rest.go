package work

import (
	"flowtrack/bizerror"
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterWorkTransitionsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorkItems, middleWares...)

	g.GET(":id/transitions", handleQueryAvailableTransitions)
	g.POST(":id/transitions", handleExecuteTransition)
	g.POST(":id/reassign", handleReassignWorkItem)
}

func handleQueryAvailableTransitions(c *gin.Context) {
	options, err := AvailableTransitionsFunc(c.Request.Context(), parseIdParam(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, options)
}

func handleExecuteTransition(c *gin.Context) {
	id := parseIdParam(c)

	req := TransitionRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	result, err := ExecuteTransitionFunc(c.Request.Context(), id, &req)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, result)
}

func handleReassignWorkItem(c *gin.Context) {
	id := parseIdParam(c)

	req := ReassignRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	item, err := ReassignWorkItemFunc(c.Request.Context(), id, &req)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, item)
}
