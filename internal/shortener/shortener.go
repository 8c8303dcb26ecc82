// Пакет shortener — HTTP-клиент сервиса сокращения ссылок (is.gd-style API).
// Ошибка сокращения не фатальна: вызывающий код обязан вернуть пользователю
// исходную длинную ссылку.
package shortener

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client — клиент сервиса сокращения ссылок.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент сокращателя.
// baseURL — базовый URL сервиса (FL_SHORTENER_BASE_URL).
// timeout — таймаут запроса (FL_SHORTENER_TIMEOUT).
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(slog.String("component", "shortener_client")),
	}
}

// Shorten сокращает длинную ссылку.
// Формат запроса: GET {base}/create.php?format=simple&url={longURL},
// тело ответа — короткая ссылка в plain text.
func (c *Client) Shorten(ctx context.Context, longURL string) (string, error) {
	q := url.Values{}
	q.Set("format", "simple")
	q.Set("url", longURL)

	reqURL := c.baseURL + "/create.php?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("создание запроса Shorten: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("запрос к сокращателю: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("сокращатель вернул HTTP %d", resp.StatusCode)
	}

	// Тело ограничено: короткая ссылка не бывает длиннее пары сотен байт
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("чтение ответа сокращателя: %w", err)
	}

	short := strings.TrimSpace(string(body))
	if short == "" {
		return "", fmt.Errorf("сокращатель вернул пустой ответ")
	}

	return short, nil
}
