// cmd/order-service/main.go
package main

import (
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"pointshop/internal/pkg/bootstrap"
	"pointshop/internal/pkg/httpclient"
	"pointshop/internal/pkg/idempotency"
	"pointshop/internal/pkg/mq"
	"pointshop/internal/service/order/application"
	"pointshop/internal/service/order/infrastructure"
	"pointshop/internal/service/order/infrastructure/adapter"
	"pointshop/internal/service/order/interfaces"
)

const (
	serviceName = "order-service"
	servicePort = 8081

	orderEventsTopic = "order-events"

	// 单个订单处理流程（编译、预占、持久化）的超时上限
	orderProcessingTimeout = 30 * time.Second

	idempotencyKeyTTL = 24 * time.Hour
)

// main 是 order-service 的组装根：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}

	kafkaWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, orderEventsTopic)
	defer kafkaWriter.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Infra.Redis.Addr})
	defer redisClient.Close()

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(serviceName)

			// 下游调用统一走 Nacos 发现 + 链路透传的 HTTP 客户端
			httpClient := httpclient.NewClient(tracer, appCtx.Nacos)

			orderRepo := infrastructure.NewGormOrderRepository(db)
			inventoryService := adapter.NewInventoryHTTPAdapter(httpClient)
			paymentService := adapter.NewPaymentHTTPAdapter(httpClient)
			eventProducer := infrastructure.NewOrderEventProducerAdapter(kafkaWriter)

			orderService := application.NewOrderService(
				orderRepo,
				inventoryService,
				paymentService,
				eventProducer,
				orderProcessingTimeout,
				tracer,
			)

			idemStore := idempotency.NewStore(redisClient, idempotencyKeyTTL)

			handler := interfaces.NewOrderHandler(orderService, idemStore)
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
