// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config 描述一个服务启动所需的全部配置。
// 通过 yaml 文件加载，个别字段允许被环境变量覆盖。
type Config struct {
	App struct {
		Env string `yaml:"env"`
	} `yaml:"app"`

	Infra struct {
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers string `yaml:"brokers"`
		} `yaml:"kafka"`
		Nacos struct {
			ServerAddrs string `yaml:"server_addrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
		Zookeeper struct {
			Servers string `yaml:"servers"`
		} `yaml:"zookeeper"`
	} `yaml:"infra"`
}

var (
	currentConfig Config
	configOnce    sync.Once
)

// Init 加载配置文件。路径取自 CONFIG_FILE 环境变量，缺省为 ./config.yaml。
// 文件不存在时退回到内置默认值，保证本地启动零配置可用。
func Init() {
	configOnce.Do(func() {
		applyDefaults(&currentConfig)

		path := getEnv("CONFIG_FILE", "config.yaml")
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("WARN: config file %s not readable (%v), using defaults", path, err)
		} else if err := yaml.Unmarshal(data, &currentConfig); err != nil {
			log.Fatalf("FATAL: invalid config file %s: %v", path, err)
		}

		applyEnvOverrides(&currentConfig)
	})
}

// GetCurrentConfig 返回已加载的配置。必须先调用 Init。
func GetCurrentConfig() *Config {
	return &currentConfig
}

func applyDefaults(c *Config) {
	c.App.Env = "dev"
	c.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	c.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/pointshop?charset=utf8mb4&parseTime=True&loc=Local"
	c.Infra.Redis.Addr = "localhost:6379"
	c.Infra.Kafka.Brokers = "localhost:9092"
	c.Infra.Nacos.ServerAddrs = "localhost:8848"
	c.Infra.Nacos.Group = "DEFAULT_GROUP"
	c.Infra.Zookeeper.Servers = "localhost:2181"
}

// applyEnvOverrides 允许容器环境在不改文件的情况下覆盖关键地址。
func applyEnvOverrides(c *Config) {
	c.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", c.Infra.Jaeger.Endpoint)
	c.Infra.Mysql.DSN = getEnv("MYSQL_DSN", c.Infra.Mysql.DSN)
	c.Infra.Redis.Addr = getEnv("REDIS_ADDR", c.Infra.Redis.Addr)
	c.Infra.Kafka.Brokers = getEnv("KAFKA_BROKERS", c.Infra.Kafka.Brokers)
	c.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", c.Infra.Nacos.ServerAddrs)
	c.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", c.Infra.Nacos.Namespace)
	c.Infra.Nacos.Group = getEnv("NACOS_GROUP", c.Infra.Nacos.Group)
	c.Infra.Zookeeper.Servers = getEnv("ZK_SERVERS", c.Infra.Zookeeper.Servers)
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
