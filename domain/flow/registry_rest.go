package flow

import (
	"flowtrack/bizerror"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	PathWorkTypes      = "/v1/work-types"
	PathWorkflowStates = "/v1/workflow-states"
	PathWorkflowRules  = "/v1/workflow-rules"
)

func RegisterRegistryRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	r.Group(PathWorkTypes, middleWares...).GET("", handleQueryWorkTypes)
	r.Group(PathWorkflowStates, middleWares...).GET("", handleQueryWorkflowStates)
	r.Group(PathWorkflowRules, middleWares...).GET("", handleQueryWorkflowRules)
}

func handleQueryWorkTypes(c *gin.Context) {
	registry, err := RegistryFunc(c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, registry.WorkTypes())
}

func handleQueryWorkflowStates(c *gin.Context) {
	registry, err := RegistryFunc(c.Request.Context())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, registry.States())
}

func handleQueryWorkflowRules(c *gin.Context) {
	typeCode := c.Query("typeCode")
	if typeCode == "" {
		panic(&bizerror.ErrBadParam{})
	}

	registry, err := RegistryFunc(c.Request.Context())
	if err != nil {
		panic(err)
	}
	if _, found := registry.TypeOf(typeCode); !found {
		panic(&bizerror.ErrInvalidType{TypeCode: typeCode})
	}
	c.JSON(http.StatusOK, registry.RulesOfType(typeCode))
}
