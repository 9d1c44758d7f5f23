// internal/pkg/httpclient/client.go

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Discovery 抽象了服务发现能力，由 Nacos 客户端实现。
type Discovery interface {
	DiscoverServiceInstance(serviceName string) (string, error)
}

// StatusError 表示下游返回了非 2xx 状态码。
// 适配器层根据 StatusCode 将其翻译成领域错误。
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service %s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// Client 是一个可追踪的、可注入的 HTTP JSON 客户端。
// 下游地址通过 Discovery 按服务名解析，每次调用解析一个健康实例。
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
	discovery  Discovery
}

// NewClient 创建一个新的客户端实例。
// 不设置 http.Client 的 Timeout 字段，让其完全受控于每次请求传入的 context。
func NewClient(tracer trace.Tracer, discovery Discovery) *Client {
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:     tracer,
		HTTPClient: httpClient,
		discovery:  discovery,
	}
}

// GetJSON 对指定服务发起 GET 请求，并把响应体解码到 out。
func (c *Client) GetJSON(ctx context.Context, serviceName, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, serviceName, path, nil, out)
}

// PostJSON 对指定服务发起 POST 请求，body 为 JSON 序列化后的请求体。
func (c *Client) PostJSON(ctx context.Context, serviceName, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, serviceName, path, body, out)
}

// PutJSON 对指定服务发起 PUT 请求。
func (c *Client) PutJSON(ctx context.Context, serviceName, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPut, serviceName, path, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, serviceName, path string, body, out interface{}) error {
	spanName := fmt.Sprintf("call-%s", serviceName)
	ctx, span := c.Tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	hostPort, err := c.discovery.DiscoverServiceInstance(serviceName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "service discovery failed")
		return err
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			span.RecordError(err)
			return err
		}
		reqBody = bytes.NewReader(raw)
	}

	url := fmt.Sprintf("http://%s%s", hostPort, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	span.SetAttributes(
		attribute.String("http.url", url),
		attribute.String("http.method", method),
		attribute.String("peer.service", serviceName),
	)
	// 将当前 trace 上下文注入请求头，串联跨服务链路
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "downstream call failed")
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, "downstream returned error status")
		return statusErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to decode response from %s: %w", serviceName, err)
		}
	}
	return nil
}
