package main

import (
	"context"
	"flowtrack/account"
	"flowtrack/bizerror"
	"flowtrack/common"
	"flowtrack/domain"
	"flowtrack/domain/flow"
	"flowtrack/domain/work"
	"flowtrack/flowlog"
	"flowtrack/infra/tracing"
	"flowtrack/persistence"
	"flowtrack/servehttp"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("service start")

	closer, err := tracing.InitTracing(common.GetServiceName())
	if err != nil {
		log.Fatalf("failed to init tracing %v\n", err)
	}
	defer closer.Close()

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		log.Fatalf("parse database config failed %v\n", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			log.Fatalf("failed to prepare database %v\n", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		log.Fatalf("database connection failed %v\n", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	// database migration (race condition)
	err = ds.GormDB(context.Background()).AutoMigrate(
		&domain.WorkType{}, &domain.WorkflowState{}, &domain.TransitionRule{},
		&domain.WorkItem{}, &flowlog.TransitionLog{}, &account.User{}).Error
	if err != nil {
		log.Fatalf("database migration failed %v\n", err)
	}

	if err := flow.SyncRegistryFunc(context.Background(), &flow.DefaultRegistryConfig); err != nil {
		log.Fatalf("failed to sync workflow registry %v\n", err)
	}
	if err := account.SyncDefaultUsers(context.Background()); err != nil {
		log.Fatalf("failed to sync default users %v\n", err)
	}

	engine := gin.Default()
	engine.Use(tracing.TracingIngress(), bizerror.ErrorHandling())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "flowtrack")
	})

	account.RegisterUsersRestAPI(engine)
	flow.RegisterRegistryRestAPI(engine)
	work.RegisterWorkItemsRestAPI(engine)
	work.RegisterWorkTransitionsRestAPI(engine)
	flowlog.RegisterFlowLogsRestAPI(engine)

	servehttp.StartHTTPServer(engine)
}
