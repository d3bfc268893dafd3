// Пакет mgmtclient — HTTP-клиент management API pub/sub топиков.
// Поддерживает TLS с кастомным CA (TC_API_CA_CERT_PATH) и API-ключ (X-API-Key).
// Ответы сверяются со встроенным OpenAPI-контрактом до декодирования.
// Операции: List, Get, Create, Update, Delete, Clear (/api/v1/pubsub/topics).
package mgmtclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/topic-console/internal/domain/model"
)

// topicsPath — коллекция топиков management API.
const topicsPath = "/api/v1/pubsub/topics"

// maxBodySize — ограничение размера тела ответа.
const maxBodySize = 4 << 20

// ListOptions — параметры запроса страницы топиков.
type ListOptions struct {
	Page     int
	PageSize int
	Query    string
	Sort     string
	Order    string
}

// TopicList — страница топиков (ответ GET /api/v1/pubsub/topics).
type TopicList struct {
	Topics []model.Topic `json:"topics"`
	Total  int           `json:"total"`
}

// Config — параметры клиента.
type Config struct {
	// BaseURL — адрес management API (без trailing slash).
	BaseURL string
	// APIKey — значение заголовка X-API-Key (пусто — без заголовка).
	APIKey string
	// CACertPath — CA-сертификат для TLS (пусто — системный пул).
	CACertPath string
	// Timeout — таймаут одного запроса.
	Timeout time.Duration
}

// Client — HTTP-клиент management API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	schema     *Schema
	logger     *slog.Logger
}

// New создаёт клиент management API.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("не задан адрес management API")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	if cfg.CACertPath != "" {
		tlsConfig, err := buildTLSConfig(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата management API: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат management API добавлен в пул доверия",
			slog.String("ca_cert", cfg.CACertPath),
		)
	}

	schema, err := LoadSchema(context.Background())
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		schema:     schema,
		logger:     logger.With(slog.String("component", "mgmt_client")),
	}, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("в %s нет PEM-сертификатов", caCertPath)
	}

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

// BaseURL возвращает адрес management API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// List запрашивает страницу топиков.
// GET /api/v1/pubsub/topics?page=N&page_size=M&query=...
func (c *Client) List(ctx context.Context, opts ListOptions) (*TopicList, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(opts.PageSize))
	}
	if opts.Query != "" {
		q.Set("query", opts.Query)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Order != "" {
		q.Set("order", opts.Order)
	}

	path := topicsPath
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list TopicList
	if err := c.do(ctx, "list", http.MethodGet, path, nil, http.StatusOK, schemaTopicList, &list); err != nil {
		return nil, err
	}
	if list.Topics == nil {
		list.Topics = []model.Topic{}
	}
	return &list, nil
}

// CreateTopic создаёт топик. POST /api/v1/pubsub/topics → 201.
func (c *Client) CreateTopic(ctx context.Context, in model.TopicInput) (model.Topic, error) {
	var t model.Topic
	err := c.do(ctx, "create", http.MethodPost, topicsPath, in, http.StatusCreated, schemaTopic, &t)
	return t, err
}

// UpdateTopic изменяет топик in.ID (отправляются все изменяемые поля).
// PUT /api/v1/pubsub/topics/{id} → 200.
func (c *Client) UpdateTopic(ctx context.Context, in model.TopicInput) (model.Topic, error) {
	if in.ID <= 0 {
		return model.Topic{}, fmt.Errorf("%w: не задан id топика", ErrValidation)
	}
	var t model.Topic
	err := c.do(ctx, "update", http.MethodPut, topicPath(in.ID, ""), in, http.StatusOK, schemaTopic, &t)
	return t, err
}

// DeleteTopic удаляет топик. DELETE /api/v1/pubsub/topics/{id} → 204.
func (c *Client) DeleteTopic(ctx context.Context, id int64) error {
	return c.do(ctx, "delete", http.MethodDelete, topicPath(id, ""), nil, http.StatusNoContent, "", nil)
}

// ClearTopic очищает содержимое топика, не удаляя его.
// POST /api/v1/pubsub/topics/{id}/clear → 204.
func (c *Client) ClearTopic(ctx context.Context, id int64) error {
	return c.do(ctx, "clear", http.MethodPost, topicPath(id, "clear"), nil, http.StatusNoContent, "", nil)
}

// Ping проверяет доступность management API запросом страницы из одного топика.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.List(ctx, ListOptions{Page: 1, PageSize: 1})
	return err
}

// CheckReady проверяет доступность management API.
// Реализует handlers.ReadinessChecker. Ответ, не соответствующий
// контракту, даёт статус "degraded".
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Ping(ctx)
	switch {
	case err == nil:
		return "ok", fmt.Sprintf("management API %s доступен", c.baseURL)
	case errors.Is(err, ErrInvalidResponse):
		return "degraded", fmt.Sprintf("management API отвечает не по контракту: %v", err)
	default:
		return "fail", fmt.Sprintf("management API недоступен: %v", err)
	}
}

func topicPath(id int64, suffix string) string {
	p := topicsPath + "/" + strconv.FormatInt(id, 10)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

// do выполняет запрос op. Тело ответа с ожидаемым статусом проверяется по
// схеме schema и декодируется в out; остальные статусы превращаются в *APIError.
func (c *Client) do(ctx context.Context, op, method, path string, in any, want int, schema string, out any) error {
	start := time.Now()
	status := "error"
	defer func() {
		observe(op, status, time.Since(start))
	}()

	var body io.Reader
	if in != nil {
		payload, mErr := json.Marshal(in)
		if mErr != nil {
			return fmt.Errorf("кодирование запроса %s: %w", op, mErr)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("создание запроса %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("management API недоступен",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return &APIError{Op: op, Message: "management API недоступен", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &APIError{Op: op, Status: resp.StatusCode, Message: "ошибка чтения ответа", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}

	if resp.StatusCode != want {
		return c.decodeError(op, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}

	if err := c.schema.Validate(schema, raw); err != nil {
		c.logger.Error("Ответ management API не соответствует контракту",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return &APIError{Op: op, Status: resp.StatusCode, Message: "некорректный ответ management API", Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Op: op, Status: resp.StatusCode, Message: "некорректный ответ management API", Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err)}
	}
	return nil
}

// errorBody — тело ответа ошибки {"error": {"code", "message"}}.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeError строит *APIError по статусу и телу ответа. Если тело не
// соответствует формату ошибки, сообщением становится текст статуса.
func (c *Client) decodeError(op string, status int, raw []byte) error {
	apiErr := &APIError{Op: op, Status: status, Err: kindForStatus(status)}

	var body errorBody
	if c.schema.Validate(schemaError, raw) == nil && json.Unmarshal(raw, &body) == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	c.logger.Debug("management API вернул ошибку",
		slog.String("op", op),
		slog.Int("status", status),
		slog.String("code", apiErr.Code),
	)
	return apiErr
}

// kindForStatus сопоставляет HTTP-статус ошибке-сентинелу.
func kindForStatus(status int) error {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrUnexpectedStatus
	}
}
