// cmd/point-service/main.go
package main

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"

	"pointshop/internal/pkg/bootstrap"
	"pointshop/internal/service/point/application"
	"pointshop/internal/service/point/infrastructure"
	"pointshop/internal/service/point/interfaces"
)

const (
	serviceName = "point-service"
	servicePort = 8083
)

// main 是 point-service 的组装根。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := sql.Open("mysql", cfg.Infra.Mysql.DSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	db.SetMaxOpenConns(32)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(time.Hour)
	defer db.Close()

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(serviceName)

			repo := infrastructure.NewMysqlPointRepository(db)
			service := application.NewPointService(repo, tracer)

			handler := interfaces.NewPointHandler(service)
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
