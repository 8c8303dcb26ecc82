// Пакет pcloud — HTTP-клиент удалённого хранилища файлов (pCloud-style API).
// Операции: создание папки, загрузка файла, выпуск публичной ссылки, удаление.
// Все ответы приходят в JSON-конверте с числовым полем result (0 = успех).
package pcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/gofilelink/internal/domain/model"
)

// resultFileNotFound — код result для «файл не найден» в API хранилища.
const resultFileNotFound = 2009

// Client — HTTP-клиент удалённого хранилища.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент хранилища.
// baseURL — базовый URL API (FL_STORAGE_BASE_URL).
// token — access token (FL_STORAGE_TOKEN), передаётся как Bearer.
// timeout — таймаут HTTP-запросов (FL_STORAGE_TIMEOUT); delete-вызовы sweeper
// дополнительно ограничиваются контекстом с собственным таймаутом.
func New(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				// Настройка пула idle-соединений для эффективного переиспользования
				MaxIdleConnsPerHost: 10,
			},
		},
		logger: logger.With(slog.String("component", "pcloud_client")),
	}
}

// apiResponse — общий JSON-конверт ответов API хранилища.
type apiResponse struct {
	Result   int    `json:"result"`
	Error    string `json:"error,omitempty"`
	Link     string `json:"link,omitempty"`
	Metadata *struct {
		FolderID int64 `json:"folderid"`
	} `json:"metadata,omitempty"`
	FileIDs []int64 `json:"fileids,omitempty"`
}

// EnsureFolder создаёт (или находит существующую) папку с указанным именем
// в корне хранилища и возвращает её идентификатор.
func (c *Client) EnsureFolder(ctx context.Context, name string) (int64, error) {
	q := url.Values{}
	q.Set("folderid", "0")
	q.Set("name", name)

	resp, err := c.get(ctx, "/createfolderifnotexists", q)
	if err != nil {
		return 0, fmt.Errorf("создание папки %q: %w", name, err)
	}
	if resp.Metadata == nil {
		return 0, fmt.Errorf("создание папки %q: ответ без metadata", name)
	}

	return resp.Metadata.FolderID, nil
}

// Upload загружает файл localPath в папку folderID и возвращает
// идентификатор файла, выданный хранилищем.
func (c *Client) Upload(ctx context.Context, folderID int64, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("открытие файла %s: %w", localPath, err)
	}
	defer f.Close()

	// Multipart тело пишется в pipe, чтобы не буферизовать файл в памяти
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, partErr := mw.CreateFormFile("file", filepath.Base(localPath))
		if partErr != nil {
			pw.CloseWithError(partErr)
			return
		}
		if _, copyErr := io.Copy(part, f); copyErr != nil {
			pw.CloseWithError(copyErr)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	reqURL := fmt.Sprintf("%s/uploadfile?folderid=%d", c.baseURL, folderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, pr)
	if err != nil {
		return "", fmt.Errorf("создание запроса Upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("запрос Upload: %w", err)
	}
	defer httpResp.Body.Close()

	resp, err := decodeResponse(httpResp)
	if err != nil {
		return "", fmt.Errorf("загрузка файла: %w", err)
	}
	if len(resp.FileIDs) == 0 {
		return "", fmt.Errorf("загрузка файла: ответ без fileids")
	}

	resourceID := strconv.FormatInt(resp.FileIDs[0], 10)
	c.logger.Debug("Файл загружен в хранилище",
		slog.String("resource_id", resourceID),
		slog.Int64("folder_id", folderID),
	)
	return resourceID, nil
}

// CreateShareLink выпускает публичную ссылку на скачивание файла.
func (c *Client) CreateShareLink(ctx context.Context, resourceID string) (string, error) {
	q := url.Values{}
	q.Set("fileid", resourceID)

	resp, err := c.get(ctx, "/getfilepublink", q)
	if err != nil {
		return "", fmt.Errorf("выпуск публичной ссылки для %s: %w", resourceID, err)
	}
	if resp.Link == "" {
		return "", fmt.Errorf("выпуск публичной ссылки для %s: ответ без link", resourceID)
	}

	return resp.Link, nil
}

// Delete удаляет файл из хранилища.
// Код result «файл не найден» транслируется в model.ErrResourceGone:
// желаемое конечное состояние достигнуто, но вызывающий код может
// залогировать аномалию.
func (c *Client) Delete(ctx context.Context, resourceID string) error {
	q := url.Values{}
	q.Set("fileid", resourceID)

	_, err := c.get(ctx, "/deletefile", q)
	if err != nil {
		return fmt.Errorf("удаление файла %s: %w", resourceID, err)
	}
	return nil
}

// get выполняет GET-запрос к API и декодирует общий конверт ответа.
func (c *Client) get(ctx context.Context, path string, q url.Values) (*apiResponse, error) {
	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	return decodeResponse(httpResp)
}

// decodeResponse декодирует JSON-конверт и транслирует коды result в ошибки.
func decodeResponse(httpResp *http.Response) (*apiResponse, error) {
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("хранилище вернуло HTTP %d", httpResp.StatusCode)
	}

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("декодирование ответа: %w", err)
	}

	switch resp.Result {
	case 0:
		return &resp, nil
	case resultFileNotFound:
		return nil, model.ErrResourceGone
	default:
		return nil, fmt.Errorf("хранилище вернуло result=%d: %s", resp.Result, resp.Error)
	}
}
