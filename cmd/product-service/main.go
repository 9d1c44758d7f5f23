// cmd/product-service/main.go
package main

import (
	"log"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"pointshop/internal/pkg/bootstrap"
	"pointshop/internal/service/product/application"
	"pointshop/internal/service/product/infrastructure"
	"pointshop/internal/service/product/interfaces"
	"pointshop/internal/zookeeper"
)

const (
	serviceName = "product-service"
	servicePort = 8082
)

// main 是 product-service 的组装根。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}

	// ZooKeeper 分布式锁串行化同一商品的并发库存变更
	zkConn, err := zookeeper.NewConn(cfg.Infra.Zookeeper.Servers)
	if err != nil {
		log.Fatalf("failed to connect to zookeeper: %v", err)
	}
	defer zkConn.Close()

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(serviceName)

			repo := infrastructure.NewGormProductRepository(db)
			service := application.NewProductService(repo, zkConn, tracer)

			handler := interfaces.NewProductHandler(service)
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
