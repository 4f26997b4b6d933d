package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"versemill/internal/config"
	"versemill/internal/publish"
	"versemill/internal/queue"
)

const (
	defaultTokenURL  = "https://oauth2.googleapis.com/token"
	defaultUploadURL = "https://www.googleapis.com/upload/youtube/v3/videos"

	// tokenSlack refreshes the access token a little before its real expiry.
	tokenSlack = 60 * time.Second
)

// HTTPDoer describes the HTTP client used by the upload client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client uploads videos via the YouTube Data API v3.
type Client struct {
	cfg    config.Publish
	client HTTPDoer

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	now func() time.Time
}

// NewClient builds an upload client from the publish configuration.
func NewClient(cfg config.Publish) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// NewClientWithDoer builds a client with an injected HTTP transport.
func NewClientWithDoer(cfg config.Publish, doer HTTPDoer) *Client {
	return &Client{cfg: cfg, client: doer, now: time.Now}
}

// Publish uploads the job's final video and returns its published identity.
func (c *Client) Publish(ctx context.Context, job *queue.Job) (publish.Result, error) {
	if job.FinalPath == "" {
		return publish.Result{}, &publish.Error{
			Op:  "upload",
			Err: fmt.Errorf("job %d has no final video", job.ID),
		}
	}

	token, err := c.accessTokenLocked(ctx)
	if err != nil {
		return publish.Result{}, err
	}

	video, err := os.Open(job.FinalPath)
	if err != nil {
		return publish.Result{}, &publish.Error{Op: "upload", Err: fmt.Errorf("open video: %w", err)}
	}
	defer video.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := writer.CreatePart(metaHeader)
	if err != nil {
		return publish.Result{}, &publish.Error{Op: "upload", Err: err}
	}
	if err := json.NewEncoder(metaPart).Encode(c.metadata(job)); err != nil {
		return publish.Result{}, &publish.Error{Op: "upload", Err: err}
	}

	videoHeader := textproto.MIMEHeader{}
	videoHeader.Set("Content-Type", "video/mp4")
	videoPart, err := writer.CreatePart(videoHeader)
	if err != nil {
		return publish.Result{}, &publish.Error{Op: "upload", Err: err}
	}
	if _, err := io.Copy(videoPart, video); err != nil {
		return publish.Result{}, &publish.Error{Op: "upload", Err: fmt.Errorf("read video: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return publish.Result{}, &publish.Error{Op: "upload", Err: err}
	}

	uploadURL := c.uploadURL() + "?uploadType=multipart&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return publish.Result{}, &publish.Error{Op: "upload", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "multipart/related; boundary="+writer.Boundary())

	resp, err := c.client.Do(req)
	if err != nil {
		return publish.Result{}, &publish.Error{Op: "upload", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return publish.Result{}, &publish.Error{
			Op:        "upload",
			Retryable: retryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("upload returned %d: %s", resp.StatusCode, compact(payload)),
		}
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &uploaded); err != nil {
		return publish.Result{}, &publish.Error{Op: "upload", Err: fmt.Errorf("parse upload response: %w", err)}
	}
	if uploaded.ID == "" {
		return publish.Result{}, &publish.Error{Op: "upload", Err: fmt.Errorf("upload response carried no video id")}
	}

	return publish.Result{
		ID:  uploaded.ID,
		URL: "https://www.youtube.com/watch?v=" + uploaded.ID,
	}, nil
}

func (c *Client) metadata(job *queue.Job) map[string]any {
	return map[string]any{
		"snippet": map[string]any{
			"title":       renderTemplate(c.cfg.TitleTemplate, job),
			"description": renderTemplate(c.cfg.DescriptionTemplate, job),
			"tags":        c.cfg.Tags,
			"categoryId":  c.cfg.CategoryID,
		},
		"status": map[string]any{
			"privacyStatus":           c.privacy(),
			"selfDeclaredMadeForKids": false,
		},
	}
}

func (c *Client) privacy() string {
	if c.cfg.Privacy == "" {
		return "public"
	}
	return c.cfg.Privacy
}

// renderTemplate substitutes job fields into a metadata template.
func renderTemplate(template string, job *queue.Job) string {
	if template == "" {
		return job.Reference()
	}
	replacer := strings.NewReplacer(
		"{reference}", job.Reference(),
		"{text}", job.Text,
		"{first_words}", firstWords(job.Text, 5),
		"{book}", job.Book,
		"{chapter}", fmt.Sprintf("%d", job.Chapter),
		"{verse}", fmt.Sprintf("%d", job.Verse),
	)
	return replacer.Replace(template)
}

func firstWords(text string, count int) string {
	words := strings.Fields(text)
	if len(words) > count {
		words = words[:count]
		return strings.Join(words, " ") + "..."
	}
	return strings.Join(words, " ")
}

func (c *Client) accessTokenLocked(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Add(tokenSlack).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("refresh_token", c.cfg.RefreshToken)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", &publish.Error{Op: "refresh token", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &publish.Error{Op: "refresh token", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return "", &publish.Error{
			Op:        "refresh token",
			Retryable: retryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, compact(payload)),
		}
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(payload, &token); err != nil {
		return "", &publish.Error{Op: "refresh token", Err: fmt.Errorf("parse token response: %w", err)}
	}
	if token.AccessToken == "" {
		return "", &publish.Error{Op: "refresh token", Err: fmt.Errorf("token response carried no access token")}
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func (c *Client) tokenURL() string {
	if c.cfg.TokenURL != "" {
		return c.cfg.TokenURL
	}
	return defaultTokenURL
}

func (c *Client) uploadURL() string {
	if c.cfg.UploadURL != "" {
		return c.cfg.UploadURL
	}
	return defaultUploadURL
}

// retryableStatus treats rate limiting and server-side failures as retryable.
func retryableStatus(status int) bool {
	switch {
	case status == http.StatusTooManyRequests:
		return true
	case status == http.StatusForbidden:
		// Daily quota exhaustion arrives as 403; retry after the reset.
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

func compact(payload []byte) string {
	trimmed := strings.TrimSpace(string(payload))
	if len(trimmed) > 300 {
		trimmed = trimmed[:300] + "..."
	}
	return strings.Join(strings.Fields(trimmed), " ")
}
